// Package config loads the pipeline configuration from a YAML file, an
// optional .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"natgas-forecast/internal/logging"
)

// Config is the full configuration. Secrets are only read from the
// environment.
type Config struct {
	Log        logging.Config   `yaml:"log"`
	Storage    StorageConfig    `yaml:"storage"`
	Watermarks WatermarkConfig  `yaml:"watermarks"`
	EIA        EIAConfig        `yaml:"eia"`
	NOAA       NOAAConfig       `yaml:"noaa"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Notify     NotifyConfig     `yaml:"notify"`
	Server     ServerConfig     `yaml:"server"`
}

// StorageConfig selects the object store backend and its caches.
type StorageConfig struct {
	Backend    string      `yaml:"backend" validate:"oneof=memory sqlite minio"`
	SQLitePath string      `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	MinIO      MinIOConfig `yaml:"minio"`
	Cache      CacheConfig `yaml:"cache"`
}

// MinIOConfig addresses an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// CacheConfig enables the read-through caches in front of the object store.
type CacheConfig struct {
	LRUSize   int           `yaml:"lru_size" validate:"gte=0"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" validate:"gte=0"`
	RedisTTL  time.Duration `yaml:"redis_ttl" validate:"gte=0"`
	Password  string        `yaml:"-"`
}

// WatermarkConfig selects where watermarks live.
type WatermarkConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=object postgres"`
	PostgresDSN string `yaml:"-" validate:"required_if=Backend postgres"`
}

// EIAConfig configures the EIA client.
type EIAConfig struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	APIKey  string        `yaml:"-"`
}

// NOAAConfig configures the NOAA client.
type NOAAConfig struct {
	URL        string        `yaml:"url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=-1"`
	Token      string        `yaml:"-"`
}

// ExtractionConfig controls which datasets are pulled and how often.
type ExtractionConfig struct {
	Datasets []string      `yaml:"datasets"`
	MaxPages int           `yaml:"max_pages" validate:"gte=0"`
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

// PipelineConfig controls the transform-to-windows run.
type PipelineConfig struct {
	Holdout       float64 `yaml:"holdout" validate:"gt=0,lt=1"`
	WindowLength  int     `yaml:"window_length" validate:"gte=1"`
	BatchSize     int     `yaml:"batch_size" validate:"gte=1"`
	OutputDir     string  `yaml:"output_dir"`
	ExtendCurated bool    `yaml:"extend_curated"`
	ClickHouseDSN string  `yaml:"-"`
}

// NotifyConfig enables extraction-complete messages.
type NotifyConfig struct {
	Queue   string `yaml:"queue"`
	AMQPURL string `yaml:"-"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:        logging.Config{Level: "info", Format: "json"},
		Storage:    StorageConfig{Backend: "memory", MinIO: MinIOConfig{Bucket: "natgas-forecast"}},
		Watermarks: WatermarkConfig{Backend: "object"},
		EIA:        EIAConfig{Timeout: 30 * time.Second},
		NOAA:       NOAAConfig{Timeout: 7 * time.Second, MaxRetries: 3},
		Extraction: ExtractionConfig{Interval: 30 * 24 * time.Hour},
		Pipeline: PipelineConfig{
			Holdout:       0.2,
			WindowLength:  30,
			BatchSize:     128,
			OutputDir:     "reports",
			ExtendCurated: true,
		},
		Notify: NotifyConfig{Queue: "transform"},
		Server: ServerConfig{Port: "8080"},
	}
}

var validate = validator.New()

// Load reads path (skipped when empty), then .env, then the environment,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Backend == "minio" && (c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "") {
		return errors.New("invalid config: minio backend needs storage.minio.endpoint and bucket")
	}
	return nil
}

func applyEnv(c *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("EIA_API_KEY", &c.EIA.APIKey)
	str("NOAA_TOKEN", &c.NOAA.Token)
	str("POSTGRES_DSN", &c.Watermarks.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Pipeline.ClickHouseDSN)
	str("MINIO_ACCESS_KEY", &c.Storage.MinIO.AccessKey)
	str("MINIO_SECRET_KEY", &c.Storage.MinIO.SecretKey)
	str("REDIS_PASSWORD", &c.Storage.Cache.Password)
	str("AMQP_URL", &c.Notify.AMQPURL)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("LOG_LEVEL", &c.Log.Level)
	str("PORT", &c.Server.Port)

	if v, ok := os.LookupEnv("EXTRACTION_MAX_PAGES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EXTRACTION_MAX_PAGES: %w", err)
		}
		c.Extraction.MaxPages = n
	}
	if v, ok := os.LookupEnv("EXTRACTION_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EXTRACTION_INTERVAL: %w", err)
		}
		c.Extraction.Interval = d
	}
	return nil
}
