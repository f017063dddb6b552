package app

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/config"
	"atelier/internal/repositories"
	"atelier/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openRepositories connects to the configured database and returns the
// repository set with a function releasing the connection.
func openRepositories(cfg *config.Config) (*repositories.Set, func() error, error) {
	switch cfg.DBDriver {
	case "mongo":
		return openMongo(cfg)
	case "postgres":
		return openGORM(postgres.Open(cfg.DatabaseDSN), cfg)
	default:
		return openGORM(sqlite.Open(cfg.DatabaseDSN), cfg)
	}
}

func openGORM(dialector gorm.Dialector, cfg *config.Config) (*repositories.Set, func() error, error) {
	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.StdLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	zap.L().Info("database connected", zap.String("driver", cfg.DBDriver))
	return repositories.NewGORMSet(db), sqlDB.Close, nil
}

func openMongo(cfg *config.Config) (*repositories.Set, func() error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	db := client.Database(cfg.MongoDatabase)
	if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	zap.L().Info("database connected", zap.String("driver", "mongo"), zap.String("database", cfg.MongoDatabase))

	closer := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	}
	return repositories.NewMongoSet(db), closer, nil
}
