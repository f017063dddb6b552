package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the encoder and optional rotated log file.
type Config struct {
	Mode     string // "production" or anything else for development
	Filename string // empty disables file output
}

// Init builds the process logger and installs it as zap's global.
func Init(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Filename != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(rotating),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return nil, err
		}
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// StdLogger adapts the global zap logger for libraries that want a *log.Logger.
func StdLogger() *log.Logger {
	return zap.NewStdLog(zap.L())
}
