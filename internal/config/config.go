// Package config содержит логику чтения конфигурации витрины аптеки.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации витрины аптеки.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	CachePath   string `env:"CACHE_PATH"`
	AuthSecret  string `env:"AUTH_SECRET"`

	FeedLimit    int           `env:"FEED_LIMIT" envDefault:"10"`
	FeedInterval time.Duration `env:"FEED_INTERVAL"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	SweepGrace    time.Duration `env:"SWEEP_GRACE" envDefault:"1h"`

	WhatsAppToken   string `env:"WHATSAPP_TOKEN"`
	WhatsAppPhoneID string `env:"WHATSAPP_PHONE_ID"`
	OwnerPhone      string `env:"OWNER_PHONE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envCachePath := cfg.CachePath
	envFeedInterval := cfg.FeedInterval

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.CachePath, "c", "storefront-cache.db", "path to the local cache file")
	flag.DurationVar(&cfg.FeedInterval, "i", 5*time.Second, "announcement feed poll interval")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envCachePath != "" {
		cfg.CachePath = envCachePath
	}
	if envFeedInterval != 0 {
		cfg.FeedInterval = envFeedInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "storefront-secret"
	}

	return cfg, nil
}
