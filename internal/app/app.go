package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"comandas-go/internal/db"
	"comandas-go/internal/notify"
	"comandas-go/internal/orders"
	"comandas-go/internal/printer"
)

type Config struct {
	Addr    string
	BaseURL string

	DataDir string
	DBPath  string

	TokenSecret []byte
	TokenTTL    time.Duration

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string

	// SeedCatalogFile is an optional YAML menu; the built-in catalog is used when empty.
	SeedCatalogFile string

	Printer printer.Config
	Push    notify.Config
}

type App struct {
	cfg    Config
	store  *db.Store
	log    *slog.Logger
	sseHub *SSEHub

	closePrinter func() error
	push         *notify.WebPush
	orders       *orders.Service
}

func New(cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/data"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "comandas.db")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.Printer.Timeout <= 0 {
		cfg.Printer.Timeout = printer.DefaultTimeout
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}

	if len(cfg.TokenSecret) < 32 {
		cfg.TokenSecret = make([]byte, 32)
		_, _ = rand.Read(cfg.TokenSecret)
		logger.Warn("TOKEN_SECRET_HEX not set (or too short), generating ephemeral signing key; tokens reset on restart")
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Migrate(store.DB); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{
		cfg:    cfg,
		store:  store,
		log:    logger,
		sseHub: NewSSEHub(logger),
		push:   notify.NewWebPush(store.Q, cfg.Push, logger),
	}

	p, closePrinter, err := printer.Open(cfg.Printer)
	if err != nil {
		// Orders must keep flowing without a printer.
		logger.Warn("printer unavailable, tickets will not print", "mode", cfg.Printer.Mode, "err", err)
		p, closePrinter = printer.Noop{}, func() error { return nil }
		a.cfg.Printer.Mode = printer.ModeNone
	}
	a.closePrinter = closePrinter

	a.orders = orders.New(orders.Deps{
		Store:        store,
		Printer:      p,
		Notifier:     a,
		Logger:       logger,
		PrintTimeout: cfg.Printer.Timeout,
	})

	ctx := context.Background()
	if err := a.bootstrapAdmin(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	// Seed catalog ONLY if empty; existing stock is never overwritten.
	n, err := store.Q.CountProducts(ctx)
	if err != nil {
		a.log.Warn("catalog empty check failed", "err", err)
	} else if n == 0 {
		catalog := db.DefaultCatalog()
		if cfg.SeedCatalogFile != "" {
			catalog, err = db.LoadCatalogFile(cfg.SeedCatalogFile)
			if err != nil {
				_ = a.Close()
				return nil, err
			}
		}
		if err := db.SeedCatalog(store.DB, catalog); err != nil {
			a.log.Warn("catalog seed failed", "err", err)
		} else {
			a.log.Info("catalog seeded", "products", len(catalog))
		}
	}

	return a, nil
}

// bootstrapAdmin creates the first admin from env when none exists (only once).
func (a *App) bootstrapAdmin(ctx context.Context) error {
	hasAdmin, err := a.store.Q.HasAnyAdmin(ctx)
	if err != nil {
		return err
	}
	if hasAdmin {
		return nil
	}
	email := strings.TrimSpace(a.cfg.BootstrapAdminEmail)
	pass := strings.TrimSpace(a.cfg.BootstrapAdminPassword)
	name := strings.TrimSpace(a.cfg.BootstrapAdminName)
	if email == "" || pass == "" || name == "" {
		a.log.Info("no admin yet, waiting for onboarding")
		return nil
	}

	hash, err := HashPassword(pass)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	_, err = a.store.Q.CreateUser(ctx, db.CreateUserParams{
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         RoleAdmin,
		DisplayName:  name,
		IsActive:     true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	a.log.Info("bootstrapped admin user", "email", NormalizeEmail(email))
	return nil
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.closePrinter != nil {
		if err := a.closePrinter(); err != nil {
			a.log.Warn("printer close failed", "err", err)
		}
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *App) Store() *db.Store        { return a.store }
func (a *App) SSE() *SSEHub            { return a.sseHub }
func (a *App) Config() Config          { return a.cfg }
func (a *App) Logger() *slog.Logger    { return a.log }
func (a *App) Orders() *orders.Service { return a.orders }
func (a *App) Push() *notify.WebPush   { return a.push }
