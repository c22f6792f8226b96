package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/audit"
	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/handlers"
	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp"
	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-catalog/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if migrate {
				if err := a.migrate(); err != nil {
					return err
				}
			}

			return a.serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

// routes builds the request multiplexer.
func (a *app) routes() http.Handler {
	cfg, logger := a.cfg, a.logger

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	sessions := auth.NewSessionStore(cfg.Auth.SessionSecret, cfg.Auth.SessionMaxAge,
		auth.DeriveCookieSettings(cfg.BaseURL, cfg.Auth.CookieDomain))
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(sessions, tokens, logger), logger)
	scope := handlers.ScopeMiddleware(database.WithConnection(a.db, logger))
	auditor := audit.NewSecurityAuditor(logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(a.users, sessions, tokens, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewAreaHandler(a.areas, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewProcessStepHandler(a.steps, a.analysis, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewUseCaseHandler(a.useCases, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewRelevanceHandler(a.relevance, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewGraphHandler(a.graph, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewDashboardHandler(a.dashboard, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewLLMSettingsHandler(a.settings, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewImportHandler(a.imports, a.planStore, sessions, cfg.Import.MaxUploadBytes, logger).
		RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewTransferHandler(a.transfers, cfg.Import.MaxUploadBytes, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)

	mcpServer := mcp.NewCatalogServer(cfg.Version, &tools.CatalogToolDeps{
		DB:                 a.db,
		AreaService:        a.areas,
		ProcessStepService: a.steps,
		UseCaseService:     a.useCases,
		GraphService:       a.graph,
		Logger:             logger,
	})
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux, authMiddleware)

	return middleware.RequestLogger(logger)(mux)
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	useTLS := cfg.TLSCertPath != "" && cfg.TLSKeyPath != ""

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-catalog",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", useTLS))

		var err error
		if useTLS {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
