package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/config"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/database"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/logging"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/metrics"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/server"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Catalog API
// @version 1.0
// @description Multi-tenant gym and club management: customers, membership plans and class scheduling.

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description RS256 JWT issued by the identity provider. Format: "Bearer {token}"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "catalog-server",
		Short:        "Catalog multi-tenant club management API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return migrate(db, logger)
		},
	})

	return cmd
}

// bootstrap loads configuration, builds the logger and opens the database
func bootstrap() (config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, pkgerrors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		return config.Config{}, nil, nil, pkgerrors.Wrap(err, "building logger")
	}

	db, err := database.Connect(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to connect to database", zap.String("db_path", cfg.DBPath), zap.Error(err))
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, db, nil
}

func migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := models.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("database migrations completed")
	return nil
}

func runServe(ctx context.Context) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := migrate(db, logger); err != nil {
		return err
	}

	verifier, err := auth.NewVerifier(cfg.JWTPublicKey, logger)
	if err != nil {
		logger.Error("invalid jwt_public_key", zap.Error(err))
		return err
	}
	if !verifier.Configured() {
		logger.Error("jwt_public_key is not configured; every authenticated request will be rejected")
	}
	if cfg.PlatformDomain == "" {
		logger.Warn("platform_domain is not set; tenants resolve from the first host label or the override header")
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := server.New(server.Deps{
		DB:       db,
		Config:   cfg,
		Verifier: verifier,
		Clock:    clock.New(),
		Metrics:  metrics.New(),
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("platform_domain", cfg.PlatformDomain),
			zap.Int("session_horizon_months", cfg.SessionHorizonMonths),
		)
		if err := srv.ListenAndServe(); err != nil && !pkgerrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
