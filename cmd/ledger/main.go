package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/loan-ledger/internal/cache"
	"github.com/Dan9191/loan-ledger/internal/config"
	"github.com/Dan9191/loan-ledger/internal/handler"
	"github.com/Dan9191/loan-ledger/internal/integrations/remote"
	"github.com/Dan9191/loan-ledger/internal/scheduler"
	"github.com/Dan9191/loan-ledger/internal/service"
	"github.com/Dan9191/loan-ledger/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := cache.Open(cfg.SessionCache)
	if err != nil {
		logger.Fatalf("Failed to open session cache: %v", err)
	}
	defer sessions.Close()

	// Initialize layers
	store := remote.NewClient(cfg, logger)
	svc, err := service.NewService(store, logger, cfg,
		service.WithAlerter(email.NewSender(cfg, logger)),
		service.WithSessionCache(sessions),
	)
	if err != nil {
		logger.Fatalf("Failed to create service: %v", err)
	}
	if err := svc.Load(ctx); err != nil {
		logger.Fatalf("Failed to load ledger: %v", err)
	}

	sched := scheduler.New(logger)
	// Poll logs its own failures
	err = sched.Every("poll", cfg.PollInterval, func(ctx context.Context) { _ = svc.Poll(ctx) })
	if err != nil {
		logger.Fatalf("Failed to schedule poll: %v", err)
	}
	sched.Start()

	h := handler.NewHandler(svc, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Router(cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	go func() {
		logger.Infof("Starting ledger agent on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	sched.Stop(shutdownCtx)
	svc.Close(shutdownCtx)
}
