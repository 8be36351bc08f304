// Package main runs the background job worker (QR artifact mirror to S3) as
// a standalone process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wingedflyer/backend/config"
	"github.com/wingedflyer/backend/internal/events"
	"github.com/wingedflyer/backend/internal/worker"
	"github.com/wingedflyer/backend/pkg/database"
	"github.com/wingedflyer/backend/pkg/queue"
	"github.com/wingedflyer/backend/pkg/redis"
	"github.com/wingedflyer/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	artifacts, err := storage.NewLocal(cfg.App.QRArtifactDir)
	if err != nil {
		logger.Fatal("artifact store", zap.Error(err))
	}

	s3Cfg := storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		QRBucket:        cfg.AWS.QRBucket,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	eventRepo := events.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	uploader := worker.NewQRUploader(eventRepo, artifacts, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(ctx)
	go uploader.Run(workerCtx)
	logger.Info("qr upload worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
