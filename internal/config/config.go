package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	Env                   string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StoreID               string
	SnapshotTTLSeconds    int
	ReportTimezone        string
	LowStockThreshold     int
	TopN                  int
	AuthSecret            string
	AccessTokenTTLMinutes int
	LogLevel              string
	LogFile               string
}

// Load reads configuration from an optional .env file and the environment.
// Environment variables win over the file.
func Load() Config {
	return load(".env")
}

func load(envFile string) Config {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	// Missing .env is the normal case outside local development.
	_ = v.ReadInConfig()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEFAULT_STORE_ID", "main-store")
	v.SetDefault("SNAPSHOT_TTL_SECONDS", 60)
	v.SetDefault("REPORT_TIMEZONE", "Local")
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("TOP_N", 10)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := Config{
		Port:                  v.GetString("PORT"),
		Env:                   strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		StoreID:               v.GetString("DEFAULT_STORE_ID"),
		SnapshotTTLSeconds:    v.GetInt("SNAPSHOT_TTL_SECONDS"),
		ReportTimezone:        strings.TrimSpace(v.GetString("REPORT_TIMEZONE")),
		LowStockThreshold:     v.GetInt("LOW_STOCK_THRESHOLD"),
		TopN:                  v.GetInt("TOP_N"),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: v.GetInt("ACCESS_TOKEN_TTL_MINUTES"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFile:               strings.TrimSpace(v.GetString("LOG_FILE")),
	}

	if cfg.SnapshotTTLSeconds < 1 {
		cfg.SnapshotTTLSeconds = 60
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.TopN < 1 {
		cfg.TopN = 10
	}
	if cfg.LowStockThreshold < 1 {
		cfg.LowStockThreshold = 10
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

// Location resolves REPORT_TIMEZONE. Empty and "Local" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" || strings.EqualFold(c.ReportTimezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("load REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}
