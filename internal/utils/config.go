package utils

import (
	"os"

	"gopkg.in/yaml.v3"
)

// PostgresConfig holds the connection settings for the API key store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Config is the full application configuration, loaded once at startup.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
		Level      string `yaml:"level"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost      string `yaml:"redis_host"`
		QRCacheDB      int    `yaml:"qr_cache_db"`
		RateLimitDB    int    `yaml:"rate_limit_db"`
		QRCacheEnabled bool   `yaml:"qr_cache_enabled"`
		QRCacheTTLSecs int    `yaml:"qr_cache_ttl_secs"`
	} `yaml:"cache"`

	RateLimiter struct {
		FreeTierLimit int `yaml:"free_tier_limit"`
		IntervalSecs  int `yaml:"interval_secs"`
	} `yaml:"rate_limiter"`

	Auth struct {
		ProAPIKey string         `yaml:"pro_api_key"`
		Postgres  PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	QR struct {
		DefaultSize     int `yaml:"default_size"`
		DefaultBorder   int `yaml:"default_border"`
		LogoTimeoutSecs int `yaml:"logo_timeout_secs"`
		BulkMaxItems    int `yaml:"bulk_max_items"`
		BulkWorkers     int `yaml:"bulk_workers"`
	} `yaml:"qr"`

	Limits struct {
		MaxDataChars int `yaml:"max_data_chars"`
	} `yaml:"limits"`
}

// AppConfig holds the loaded configuration for global access.
var AppConfig Config

// GetConfig returns the currently loaded configuration.
func GetConfig() Config {
	return AppConfig
}

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Host = ""
	cfg.Server.Port = ":8000"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 28
	cfg.Cache.RedisHost = "127.0.0.1:6379"
	cfg.Cache.QRCacheDB = 1
	cfg.Cache.RateLimitDB = 0
	cfg.Cache.QRCacheTTLSecs = 24 * 60 * 60
	cfg.RateLimiter.FreeTierLimit = 20
	cfg.RateLimiter.IntervalSecs = 24 * 60 * 60
	cfg.QR.DefaultSize = 300
	cfg.QR.DefaultBorder = 4
	cfg.QR.LogoTimeoutSecs = 5
	cfg.QR.BulkMaxItems = 50
	cfg.QR.BulkWorkers = 8
	cfg.Limits.MaxDataChars = 4296
	return cfg
}

// LoadConfig reads the YAML configuration from CONFIG_PATH (default
// "config.yaml"). A missing file is not fatal: defaults apply, so the
// service can start in a bare container. Environment variables override
// the secrets that are awkward to keep in a file.
func LoadConfig() Config {
	cfg := defaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic("invalid config file " + path + ": " + err.Error())
		}
	}

	if v := os.Getenv("PRO_API_KEY"); v != "" {
		cfg.Auth.ProAPIKey = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}

	validateConfig(&cfg)

	AppConfig = cfg
	return cfg
}

func validateConfig(cfg *Config) {
	if cfg.RateLimiter.FreeTierLimit <= 0 {
		panic("rate_limiter.free_tier_limit must be positive")
	}
	if cfg.RateLimiter.IntervalSecs <= 0 {
		panic("rate_limiter.interval_secs must be positive")
	}
	if cfg.QR.BulkMaxItems <= 0 || cfg.QR.BulkMaxItems > 50 {
		panic("qr.bulk_max_items must be in 1..50")
	}
	if cfg.QR.BulkWorkers <= 0 {
		cfg.QR.BulkWorkers = 8
	}
	if cfg.QR.LogoTimeoutSecs <= 0 {
		cfg.QR.LogoTimeoutSecs = 5
	}
	if cfg.Limits.MaxDataChars <= 0 || cfg.Limits.MaxDataChars > 4296 {
		cfg.Limits.MaxDataChars = 4296
	}
}
