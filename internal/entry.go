// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/api"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/backend"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/mcpserver"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/noteservice"
	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/store"
	pkgconfig "github.com/Paul-Bonneville-Labs/neemee-mcp/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. With stdio MCP enabled, stdout
	// carries the protocol, so logs go to stderr.
	logOut := os.Stdout
	if cfg.MCP.Stdio {
		logOut = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_mode", cfg.Storage.Mode),
		slog.Bool("mcp_stdio", cfg.MCP.Stdio),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var (
		svc    *noteservice.Service
		authn  *auth.Authenticator
		mcpCtx *auth.Context
	)

	switch cfg.Storage.Mode {
	case StorageModeSQLite:
		st, err := store.Open(cfg.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		svc = noteservice.NewService(st)

		authOpts := []auth.Option{auth.WithLogger(logger)}
		if ttl := cfg.Auth.CacheTTL(); ttl > 0 {
			authOpts = append(authOpts, auth.WithTTL(ttl))
		}
		authn = auth.New(st, authOpts...)

		if cfg.MCP.Stdio {
			c, ok := authn.Authenticate(ctx, cfg.Auth.Key)
			if !ok {
				return fmt.Errorf("auth: configured key was not accepted")
			}
			mcpCtx = c
		}

	case StorageModeAPI:
		client := backend.New(cfg.Storage.API.BaseURL, cfg.Storage.API.Key, cfg.Storage.API.Timeout())
		svc = noteservice.NewService(client)

		if cfg.MCP.Stdio {
			c, err := client.VerifyKey(ctx)
			if err != nil {
				return fmt.Errorf("verify backend key: %w", err)
			}
			mcpCtx = c
		}

	default:
		return fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The REST surface needs the local key store; in api mode the remote
	// backend already fronts the data, so only health endpoints are served.
	if authn != nil {
		r.Mount("/api", api.NewRouter(svc, authn))
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Start stdio MCP server.
	if cfg.MCP.Stdio {
		mcp := mcpserver.New(svc, mcpCtx)
		g.Go(func() error {
			logger.Info("Starting MCP server on stdio",
				slog.String("tenant_id", mcpCtx.TenantID))
			if err := mcp.ServeStdio(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	// Watch the config file and apply log-level changes without a restart.
	if app.configPath != "" {
		configPath := app.configPath
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, configPath, func() {
				next := NewDefaultConfig()
				if err := pkgconfig.Load(configPath, next); err != nil {
					logger.Warn("config reload failed", slog.String("error", err.Error()))
					return
				}
				if next.App.LogLevel != level.Level() {
					logger.Info("log level changed",
						slog.String("from", level.Level().String()),
						slog.String("to", next.App.LogLevel.String()))
					level.Set(next.App.LogLevel)
				}
			})
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		if authn != nil {
			authn.Wait()
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
