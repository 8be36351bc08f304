// Package main runs the event page HTTP server with WebSocket live updates
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wingedflyer/backend/config"
	"github.com/wingedflyer/backend/internal/events"
	"github.com/wingedflyer/backend/internal/live"
	"github.com/wingedflyer/backend/internal/messages"
	"github.com/wingedflyer/backend/internal/middleware"
	"github.com/wingedflyer/backend/internal/pages"
	"github.com/wingedflyer/backend/internal/qrcodes"
	"github.com/wingedflyer/backend/internal/worker"
	"github.com/wingedflyer/backend/pkg/database"
	"github.com/wingedflyer/backend/pkg/queue"
	"github.com/wingedflyer/backend/pkg/redis"
	"github.com/wingedflyer/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	artifacts, err := storage.NewLocal(cfg.App.QRArtifactDir)
	if err != nil {
		logger.Fatal("artifact store", zap.Error(err))
	}

	// Redis is optional: without it there is no cross-instance fan-out and no
	// S3 mirror queue, but the CRUD flow and local QR artifacts still work.
	var (
		hub      *live.Hub
		jobQueue *queue.Queue
	)
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, live updates are single-instance and S3 mirror disabled", zap.Error(err))
		hub = live.NewHub(logger, nil, nil)
	} else {
		defer rdb.Close()
		pubsub := live.NewRedisPubSub(rdb.Client, logger)
		hub = live.NewHub(logger, pubsub, pubsub)
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			QRBucket:        cfg.AWS.QRBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	// Events
	eventRepo := events.NewRepository(pool)
	var enq events.Enqueuer
	var mirror events.MirrorStore
	var qrMirror qrcodes.MirrorReader
	if s3Client != nil {
		mirror = s3Client
		qrMirror = s3Client
		if jobQueue != nil {
			enq = jobQueue
		}
	}
	eventHandler := events.NewHandler(eventRepo, artifacts, mirror, enq, hub, hub, cfg.App, logger)
	requireEditKey := events.RequireEditKey(eventRepo)

	// Timeline messages
	messageRepo := messages.NewRepository(pool)
	messageHandler := messages.NewHandler(messageRepo, hub)

	// QR artifacts
	qrHandler := qrcodes.NewHandler(eventRepo, artifacts, qrMirror, cfg.App, logger)

	// Public pages
	pageRepo := pages.NewRepository(pool)
	renderer := pages.NewRenderer(true)
	pageHandler := pages.NewHandler(pageRepo, messageRepo, renderer, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Organizer API (per-event edit key; there are no accounts)
	router.POST("/events", eventHandler.Create)
	router.GET("/events/:id", eventHandler.GetByID)
	router.PATCH("/events/:id", requireEditKey, eventHandler.Update)
	router.DELETE("/events/:id", requireEditKey, eventHandler.Delete)
	router.PUT("/events/:id/urgent", requireEditKey, eventHandler.SetUrgent)
	router.GET("/events/:id/stats", requireEditKey, eventHandler.Stats)
	router.POST("/events/:id/messages", requireEditKey, messageHandler.Add)
	router.GET("/events/:id/messages", messageHandler.List)
	router.GET("/events/:id/qr", qrHandler.Get)

	// Visitor pages (what the QR code lands on)
	router.GET("/p/:id", pageHandler.Get)
	router.GET("/p/:id/qr", qrHandler.Get)

	// WebSocket live page updates (public, read-only)
	router.GET("/ws", live.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (QR artifact mirror to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil && s3Client != nil {
		uploader := worker.NewQRUploader(eventRepo, artifacts, s3Client, jobQueue, logger)
		go uploader.Run(workerCtx)
		logger.Info("qr upload worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
