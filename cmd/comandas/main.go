package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"comandas-go/internal/app"
	"comandas-go/internal/handlers"
	"comandas-go/internal/notify"
	"comandas-go/internal/printer"
)

func main() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(logger *slog.Logger) error {
	cfg := app.Config{
		Addr:    getenv("ADDR", ":8080"),
		BaseURL: getenv("BASE_URL", "http://localhost:8080"),

		DataDir: getenv("DATA_DIR", "/data"),
		DBPath:  getenv("DB_PATH", "/data/comandas.db"),

		TokenTTL: getduration(logger, "TOKEN_TTL", 12*time.Hour),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     os.Getenv("BOOTSTRAP_ADMIN_NAME"),

		SeedCatalogFile: os.Getenv("SEED_CATALOG_FILE"),

		Printer: printer.Config{
			Mode:     getenv("PRINTER_MODE", printer.ModeNone),
			Addr:     os.Getenv("PRINTER_ADDR"),
			Timeout:  getduration(logger, "PRINTER_TIMEOUT", printer.DefaultTimeout),
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getenv("AMQP_EXCHANGE", printer.DefaultExchange),
		},
		Push: notify.Config{
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			Subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
		},
	}

	if hk := strings.TrimSpace(os.Getenv("TOKEN_SECRET_HEX")); hk != "" {
		if b, err := hex.DecodeString(hk); err == nil {
			cfg.TokenSecret = b
		} else {
			logger.Warn("TOKEN_SECRET_HEX is not valid hex, ignoring", "err", err)
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("app init: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}()

	r := handlers.NewRouter(a)
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		fileServer(r, "/", http.Dir(dir))
	}

	srv := &http.Server{
		Addr:        a.Config().Addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr, "base_url", a.Config().BaseURL, "printer", cfg.Printer.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getduration(logger *slog.Logger, k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration, using default", "key", k, "value", v, "default", def)
		return def
	}
	return d
}

// fileServer serves an optional front-end bundle (PWA shell and push service worker).
func fileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("fileServer does not permit URL params")
	}
	fs := http.StripPrefix(path, http.FileServer(root))
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	r.Get(strings.TrimSuffix(path, "/")+"/*", func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	})
}
