package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Extraction  ExtractionConfig  `mapstructure:"extraction"`
	Classifier  ClassifierConfig  `mapstructure:"classifier"`
	Categorizer CategorizerConfig `mapstructure:"categorizer"`
	Paper       PaperConfig       `mapstructure:"paper"`

	// runtime flags, set from the command line
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port    string
	Mode    string
	APIKeys []string `mapstructure:"api_keys"`
}

type DatabaseConfig struct {
	Driver    string // mysql | sqlite
	Path      string // sqlite file
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// ExtractionConfig controls the background extraction jobs and the page segmenter.
type ExtractionConfig struct {
	Workers           int    `mapstructure:"workers"`
	QueueSize         int    `mapstructure:"queue_size"`
	ImageDir          string `mapstructure:"image_dir"`
	MinQuestionLength int    `mapstructure:"min_question_length"`
	MinStemForOptions int    `mapstructure:"min_stem_for_options"`
	MaxMessageLength  int    `mapstructure:"max_message_length"`
	StatusTTLHours    int    `mapstructure:"status_ttl_hours"`
}

type ClassifierConfig struct {
	EssayWordThreshold       int `mapstructure:"essay_word_threshold"`
	ShortAnswerWordThreshold int `mapstructure:"short_answer_word_threshold"`
	EasyWordLimit            int `mapstructure:"easy_word_limit"`
	MediumWordLimit          int `mapstructure:"medium_word_limit"`
}

type CategorizerConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type PaperConfig struct {
	OutputDir        string  `mapstructure:"output_dir"`
	QuestionsPerPage int     `mapstructure:"questions_per_page"`
	MaxImageWidth    float64 `mapstructure:"max_image_width"`
	MaxImageHeight   float64 `mapstructure:"max_image_height"`
	Watermark        string  `mapstructure:"watermark"`
	Copyright        string  `mapstructure:"copyright"`
	FontPath         string  `mapstructure:"font_path"`
	DurationMinutes  int     `mapstructure:"duration_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/qbank.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("rate_limit.max_requests", 1000)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("extraction.workers", 2)
	v.SetDefault("extraction.queue_size", 64)
	v.SetDefault("extraction.image_dir", "uploads/extracted_images")
	v.SetDefault("extraction.min_question_length", 10)
	v.SetDefault("extraction.min_stem_for_options", 50)
	v.SetDefault("extraction.max_message_length", 200)
	v.SetDefault("extraction.status_ttl_hours", 24)

	v.SetDefault("classifier.essay_word_threshold", 50)
	v.SetDefault("classifier.short_answer_word_threshold", 30)
	v.SetDefault("classifier.easy_word_limit", 20)
	v.SetDefault("classifier.medium_word_limit", 50)

	v.SetDefault("categorizer.threshold", 0.1)

	v.SetDefault("paper.output_dir", "uploads/generated")
	v.SetDefault("paper.questions_per_page", 3)
	v.SetDefault("paper.max_image_width", 120.0)
	v.SetDefault("paper.max_image_height", 80.0)
	v.SetDefault("paper.watermark", "CONFIDENTIAL")
	v.SetDefault("paper.copyright", "Question Bank. All rights reserved.")
	v.SetDefault("paper.duration_minutes", 180)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.Extraction.ImageDir, cfg.Paper.OutputDir} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			os.MkdirAll(dir, 0755)
		}
	}
	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// StatusTTL is how long a finished job snapshot stays in redis.
func (c ExtractionConfig) StatusTTL() time.Duration {
	if c.StatusTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.StatusTTLHours) * time.Hour
}

// RateWindow converts the configured window to a duration.
func (c RateLimitConfig) RateWindow() time.Duration {
	if c.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowMinutes) * time.Minute
}
