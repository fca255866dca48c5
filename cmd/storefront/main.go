package main

import (
	"fmt"
	"os"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/logger"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app bundles the wired services behind the CLI commands. Explicit wiring
// instead of ambient globals: every command receives exactly the state it
// reads and writes.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *store.Store
	auth     service.AuthService
	catalog  service.CatalogService
	cart     service.CartService
	orders   service.OrderService
	admin    service.AdminService
}

func newApp() (*app, error) {
	// A .env file is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.Client.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sessions, err := store.Open(afero.NewOsFs(), cfg.Client.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	gw := gateway.New(cfg.Client.BaseURL, cfg.Client.Timeout, sessions, log)

	auth := service.NewAuthService(gw, sessions, log)
	catalog := service.NewCatalogService(gw, cache.New(cfg.Catalog.CacheTTL), cfg.Catalog.PageSize, log)
	orders := service.NewOrderService(gw, auth, log)
	cart := service.NewCartService(gw, auth, orders, log)
	admin := service.NewAdminService(gw, auth, log)

	return &app{
		cfg:      cfg,
		logger:   log,
		sessions: sessions,
		auth:     auth,
		catalog:  catalog,
		cart:     cart,
		orders:   orders,
		admin:    admin,
	}, nil
}

func main() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer a.logger.Sync()

	if err := a.rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
