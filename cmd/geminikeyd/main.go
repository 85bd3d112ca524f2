package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/huanlingzx/gemini-key/internal/api"
	"github.com/huanlingzx/gemini-key/internal/config"
	"github.com/huanlingzx/gemini-key/internal/db"
	"github.com/huanlingzx/gemini-key/internal/extractor"
	"github.com/huanlingzx/gemini-key/internal/logger"
	"github.com/huanlingzx/gemini-key/internal/scheduler"
	"github.com/huanlingzx/gemini-key/internal/validator"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"
)

// customRecovery is a middleware that recovers from panics and handles http.ErrAbortHandler gracefully.
func customRecovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					log.Warn("Client connection aborted", "path", c.Request.URL.Path)
					c.Abort()
					return
				}

				log.Error("Panic recovered",
					"error", recovered,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// newChecker picks the remote check implementation for the configured mode.
func newChecker(cfg config.ValidatorConfig) (validator.Checker, error) {
	if cfg.Mode == "sdk" {
		endpoint, err := validator.SDKEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		return validator.NewSDKChecker(cfg.Timeout,
			option.WithEndpoint(endpoint),
			option.WithUserAgent(cfg.ClientID),
		), nil
	}
	return validator.NewRESTChecker(cfg.Endpoint, cfg.ClientID, cfg.Timeout), nil
}

// buildServer wires the store, validator and routes into a router and a scheduler.
func buildServer(cfg *config.Config, log *slog.Logger, dbService db.Service) (*gin.Engine, *scheduler.Scheduler, error) {
	ex, err := extractor.New(extractor.Pattern{
		Prefix:    cfg.Extractor.Prefix,
		MinLength: cfg.Extractor.MinLength,
		MaxLength: cfg.Extractor.MaxLength,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating extractor: %w", err)
	}

	checker, err := newChecker(cfg.Validator)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating checker: %w", err)
	}
	batchValidator := validator.NewBatchValidator(checker, dbService, log)
	handler := api.NewHandler(dbService, batchValidator, ex, cfg.Validator.MaxBatchKeys, log)

	router := gin.New()
	// Use our custom recovery middleware instead of the default one.
	router.Use(customRecovery(log))
	// If debug mode is enabled, add the logger middleware
	if cfg.Debug {
		router.Use(gin.Logger())
	}
	api.SetupRoutes(router, handler, cfg)

	sched := scheduler.NewScheduler(dbService, batchValidator, cfg.Validator.BatchSize, cfg.Scheduler.RevalidateSpec, log)
	return router, sched, nil
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger, dbService db.Service) error {
	router, sched, err := buildServer(cfg, log, dbService)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// The server has 5 seconds to finish the requests it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func main() {
	configPath := "config.yaml"
	if p := os.Getenv("GEMINIKEY_CONFIG"); p != "" {
		configPath = p
	}
	cfg, warning, err := config.LoadConfig(configPath)
	if err != nil {
		// Use a temporary logger for startup errors
		slog.Error("Error loading configuration", "error", err)
		os.Exit(1)
	}

	log, logCloser := logger.NewFromConfig(cfg)
	defer logCloser.Close()
	log.Info("Logger initialized", "debug_mode", cfg.Debug)
	if warning != "" {
		log.Warn(warning)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	dbService, err := db.NewService(cfg.Database)
	if err != nil {
		log.Error("Error initializing database", "error", err)
		os.Exit(1)
	}
	defer dbService.Close()
	log.Info("Database initialized", "type", cfg.Database.Type)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runServer(ctx, cfg, log, dbService); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server exiting")
}
