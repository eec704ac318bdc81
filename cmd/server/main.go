package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/financas/server/internal/advisor"
	"github.com/financas/server/internal/config"
	"github.com/financas/server/internal/core"
	"github.com/financas/server/internal/logging"
	"github.com/financas/server/internal/store"
	"github.com/financas/server/internal/store/memstore"
	"github.com/financas/server/internal/store/pgstore"
	"github.com/financas/server/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"analysis_enabled", cfg.Gemini.APIKey != "",
	)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	service := core.NewService(st)
	imports := core.NewImportRunner(service)

	var adv *advisor.Advisor
	if cfg.Gemini.APIKey != "" {
		adv, err = advisor.New(ctx, cfg.Gemini.APIKey, advisor.Options{
			Model:      cfg.Gemini.Model,
			MaxRetries: cfg.Gemini.MaxRetries,
			BaseDelay:  cfg.Gemini.RetryBaseDelay,
		})
		if err != nil {
			slog.Error("failed to create analysis client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("GEMINI_API_KEY not set, analysis endpoint disabled")
	}

	server := web.NewServer(cfg, service, imports, adv)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openStore connects the configured document-store driver.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store, data will not survive restarts")
		return memstore.New(), nil
	default:
		st, err := pgstore.Connect(ctx, cfg.Store.URL, int32(cfg.Store.MaxConns), int32(cfg.Store.MinConns))
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}
}
