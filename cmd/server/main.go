package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/config"
	"github.com/mamadbah2/herd/internal/metrics"
	"github.com/mamadbah2/herd/internal/quota"
	"github.com/mamadbah2/herd/internal/repository/mongodb"
	"github.com/mamadbah2/herd/internal/repository/sheets"
	"github.com/mamadbah2/herd/internal/scheduler"
	"github.com/mamadbah2/herd/internal/server/handlers"
	"github.com/mamadbah2/herd/internal/server/router"
	herdsvc "github.com/mamadbah2/herd/internal/service/herd"
	reportingsvc "github.com/mamadbah2/herd/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/herd/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/herd/pkg/clients/whatsapp"
	"github.com/mamadbah2/herd/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var tracker quota.Tracker = quota.NewMemoryTracker(cfg.Herd.DailyWriteQuota)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		tracker = quota.NewRedisTracker(rdb, cfg.Herd.DailyWriteQuota)
		baseLogger.Info("write quota shared through redis", zap.String("addr", cfg.Redis.Addr))
	}

	prom := metrics.NewPrometheus(cfg.Herd.MetricsNamespace)

	herdService := herdsvc.NewService(mongoRepo, herdsvc.Options{
		OwnerID:   cfg.Herd.OwnerID,
		BatchSize: cfg.Herd.BatchSize,
		Quota:     tracker,
		Metrics:   prom,
		Logger:    baseLogger.Named("svc.herd"),
	})
	if err := herdService.Load(ctx); err != nil {
		baseLogger.Fatal("failed to load herd snapshot", zap.Error(err))
	}

	var sheetRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		r, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetRepo = r
	} else {
		baseLogger.Warn("google sheets not configured, season export disabled")
	}
	reportingSvc := reportingsvc.NewService(herdService, sheetRepo, baseLogger.Named("svc.reporting"))

	var notifier whatsappsvc.Notifier = whatsappsvc.Discard{}
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		notifier = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, reportingSvc, baseLogger.Named("svc.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp not configured, sweep notifications disabled")
	}

	sched, err := scheduler.NewScheduler(cfg.Sweep, herdService, reportingSvc, notifier, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	herdHandler := handlers.NewHerdHandler(herdService, cfg.Sweep.ToleranceDays, baseLogger.Named("handlers.herd"))
	engine := router.New(herdHandler, prom.Handler(), baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
