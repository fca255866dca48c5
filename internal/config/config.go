package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Client  ClientConfig
	Catalog CatalogConfig
}

type ClientConfig struct {
	BaseURL  string
	Timeout  time.Duration
	StateDir string
	Env      string
}

type CatalogConfig struct {
	PageSize int
	CacheTTL time.Duration
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("BACKEND_URL", "http://localhost:3000")
	viper.SetDefault("REQUEST_TIMEOUT", 15) // seconds
	viper.SetDefault("STATE_DIR", defaultStateDir())
	viper.SetDefault("CLIENT_ENV", "development")
	viper.SetDefault("CATALOG_PAGE_SIZE", 12)
	viper.SetDefault("CATALOG_CACHE_TTL", 30) // seconds

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Client: ClientConfig{
			BaseURL:  viper.GetString("BACKEND_URL"),
			Timeout:  time.Duration(viper.GetInt("REQUEST_TIMEOUT")) * time.Second,
			StateDir: viper.GetString("STATE_DIR"),
			Env:      viper.GetString("CLIENT_ENV"),
		},
		Catalog: CatalogConfig{
			PageSize: viper.GetInt("CATALOG_PAGE_SIZE"),
			CacheTTL: time.Duration(viper.GetInt("CATALOG_CACHE_TTL")) * time.Second,
		},
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(dir, "storefront")
}
