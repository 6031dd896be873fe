package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/CacconeLabYale/TsetseCheckout/internal/api"
	"github.com/CacconeLabYale/TsetseCheckout/internal/core/services/checkout"
	"github.com/CacconeLabYale/TsetseCheckout/internal/core/vocab"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/cache"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/database"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/database/repositories"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/parsers"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/queue"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/storage"
	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/config"
	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/logger"
	"github.com/CacconeLabYale/TsetseCheckout/internal/workers"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Initialize(cfg.Environment)

	vocabSet, err := vocab.Load()
	if err != nil {
		return fmt.Errorf("failed to load vocabularies: %w", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(&cfg.Cache, log)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	asynqClient, err := queue.NewAsynqClient(&cfg.Queue, log)
	if err != nil {
		return err
	}
	defer asynqClient.Close()

	fileStorage, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: cfg.Upload.Dir}, log)
	if err != nil {
		return err
	}

	dbLog := logger.NewServiceLogger("database")
	userRepo := repositories.NewUserRepository(db.DB, dbLog)
	requestRepo := repositories.NewCheckoutRequestRepository(db.DB, dbLog)
	uploadRepo := repositories.NewUploadRepository(db.DB, dbLog)

	svcLog := logger.NewServiceLogger("checkout")
	notifier := workers.NewEnqueuer(asynqClient, cfg.Queue.MaxRetries)
	builder := checkout.NewBuilder(vocabSet, userRepo, requestRepo, svcLog)
	processor := checkout.NewProcessor(builder, requestRepo, notifier, svcLog)

	apiLog := logger.NewServiceLogger("api")
	checkoutHandler := api.NewCheckoutHandler(builder, requestRepo, notifier, apiLog)
	userHandler := api.NewUserHandler(userRepo, apiLog)
	uploadHandler := api.NewUploadHandler(
		fileStorage,
		parsers.NewParserFactory(nil),
		uploadRepo,
		redisCache,
		processor,
		cfg.Upload.MaxFileSizeMB,
		apiLog,
	)
	authMiddleware := api.NewAuthMiddleware(userRepo, apiLog)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	api.NewRouter(engine, log, checkoutHandler, uploadHandler, userHandler, authMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
