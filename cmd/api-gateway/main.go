package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-scheduler-api/api/swagger"
	"github.com/noah-isme/exam-scheduler-api/internal/app"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/logger"
	"github.com/noah-isme/exam-scheduler-api/pkg/tracing"
)

// @title Exam Scheduler API
// @version 1.0.0
// @description Exam scheduling engine: batch placement, manual assignment and conflict audits.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	shutdownTracing, err := tracing.Init(cfg, os.Stdout)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logr, app.Options{Migrate: cfg.Storage.Driver == config.StorageDriverPostgres})
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close()

	application.AuditQueue.Start(context.Background())
	defer application.AuditQueue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver, "lock", cfg.Scheduler.LockDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracing shutdown", zap.Error(err))
	}
}
