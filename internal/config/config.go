package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment.
type Config struct {
	AppPort    string
	APIBaseURL string
	Debug      bool

	DBDriver      string // sqlite, postgres or mongo
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string

	JWTSecret     string
	JWTTTL        time.Duration
	AdminEmail    string
	AdminPassword string

	MediaDriver        string // memory or s3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3Endpoint         string
	MediaPublicURL     string
	MaxUploadBytes     int64
	MediaSweepSchedule string
	MediaSweepGrace    time.Duration

	RabbitMQURL string

	CORSOrigins          string
	ContactRatePerMinute int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	NotifyEmail  string

	LogMode string
	LogFile string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	for _, p := range []string{".env", "../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("DEBUG", false)
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "atelier.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "atelier")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("MEDIA_DRIVER", "memory")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("MEDIA_PUBLIC_URL", "")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("MEDIA_SWEEP_GRACE", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CONTACT_RATE_PER_MINUTE", 5)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LOG_MODE", "development")
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:    v.GetString("APP_PORT"),
		APIBaseURL: strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Debug:      v.GetBool("DEBUG"),

		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),

		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTTTL:        v.GetDuration("JWT_TTL"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),

		MediaDriver:        strings.ToLower(v.GetString("MEDIA_DRIVER")),
		AWSRegion:          v.GetString("AWS_REGION"),
		AWSAccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Endpoint:         v.GetString("S3_ENDPOINT"),
		MediaPublicURL:     v.GetString("MEDIA_PUBLIC_URL"),
		MaxUploadBytes:     v.GetInt64("MAX_UPLOAD_MB") << 20,
		MediaSweepSchedule: v.GetString("MEDIA_SWEEP_SCHEDULE"),
		MediaSweepGrace:    v.GetDuration("MEDIA_SWEEP_GRACE"),

		RabbitMQURL: v.GetString("RABBITMQ_URL"),

		CORSOrigins:          v.GetString("CORS_ORIGINS"),
		ContactRatePerMinute: v.GetInt("CONTACT_RATE_PER_MINUTE"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUser:     v.GetString("SMTP_USER"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		MailFrom:     v.GetString("MAIL_FROM"),
		NotifyEmail:  v.GetString("NOTIFY_EMAIL"),

		LogMode: v.GetString("LOG_MODE"),
		LogFile: v.GetString("LOG_FILE"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be a positive duration")
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres", "mongo":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.MediaDriver {
	case "memory":
	case "s3":
		if cfg.S3Bucket == "" || cfg.AWSRegion == "" {
			return nil, fmt.Errorf("S3_BUCKET and AWS_REGION must be set for MEDIA_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported MEDIA_DRIVER %q", cfg.MediaDriver)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return cfg, nil
}

// CORSOriginList splits CORS_ORIGINS on commas.
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, p := range strings.Split(c.CORSOrigins, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
