package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/api"
	"github.com/jstittsworth/bet-analytics/internal/api/handlers"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/internal/features"
	"github.com/jstittsworth/bet-analytics/internal/metrics"
	"github.com/jstittsworth/bet-analytics/internal/models"
	"github.com/jstittsworth/bet-analytics/internal/providers"
	"github.com/jstittsworth/bet-analytics/internal/registry"
	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/internal/websocket"
	"github.com/jstittsworth/bet-analytics/pkg/config"
	"github.com/jstittsworth/bet-analytics/pkg/database"
	"github.com/jstittsworth/bet-analytics/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	logger.WithService("bet-analytics").WithField("env", cfg.Env).Info("Starting bet analytics server")
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	bus := events.NewBus(log)

	// Redis backs the snapshot cache and the event stream; without it the
	// service runs in memory only
	var cache services.Cache
	var cachePinger handlers.Pinger
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache and event stream")
	} else {
		cacheService := services.NewCacheService(redisClient)
		cache, cachePinger = cacheService, cacheService

		stream := events.NewStreamPublisher(redisClient, events.StreamConfig{
			StreamName: cfg.EventStreamName,
			MaxLength:  cfg.EventStreamMaxLen,
		}, log)
		defer stream.Attach(bus)()
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	monitor := metrics.NewPerformanceMonitor(promRegistry)

	breakers := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout, log)

	hub := services.NewDataIntegrationHub(services.HubConfig{
		AdapterTimeout: cfg.AdapterTimeout,
		EMAAlpha:       cfg.SourceEMAAlpha,
		HistoryLength:  cfg.HistoryLength,
	}, bus, cache, monitor, log)
	adapters := providers.BuildAdapters(cfg, breakers, bus, log)
	for _, adapter := range adapters {
		if err := hub.Register(adapter); err != nil {
			log.Fatalf("Failed to register adapter %s: %v", adapter.Name(), err)
		}
	}
	log.WithField("adapters", providers.AdapterNames(adapters)).Info("Data adapters registered")
	if err := hub.RestoreSnapshot(ctx); err == nil {
		log.Info("Restored snapshot from cache")
	}

	profiles := strategy.NewProfileManager()
	if cfg.RiskProfilesFile != "" {
		if err := profiles.LoadFile(cfg.RiskProfilesFile); err != nil {
			log.Fatalf("Failed to load risk profiles: %v", err)
		}
	}

	modelRegistry, err := registry.New(cfg.ModelStoragePath, cfg.ModelMaxVersions, bus, log)
	if err != nil {
		log.Fatalf("Failed to open model registry: %v", err)
	}

	featureService := features.NewFeatureEngineeringService(log)
	recommendations := services.NewRecommendationService(services.RecommendationDeps{
		Snapshots:   hub,
		Predictions: services.NewPredictionService(hub, featureService, log),
		Engine: strategy.NewStrategyEngine(strategy.EngineConfig{
			Bankroll:         cfg.Bankroll,
			DefaultPickPrice: cfg.DefaultPickPrice,
		}, log),
		Profiles: profiles,
		DB:       db,
		Cache:    cache,
		Bus:      bus,
		Monitor:  monitor,
		Logger:   log,
	})

	alerts := services.NewAlertService(services.AlertConfig{
		Recipients:    cfg.AlertPhoneNumbers,
		MinConfidence: cfg.AlertMinConfidence,
	}, newSMSService(cfg, breakers, log), services.NewSMSRateLimiter(cfg.AlertSMSPerHour, time.Hour), monitor, log)
	defer alerts.Subscribe(bus)()

	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)
	defer wsHub.Attach(bus)()

	dataSync := services.NewDataSyncService(services.SyncConfig{
		Interval:        cfg.SyncInterval,
		Retention:       cfg.RecordRetention,
		SkipInitialSync: cfg.SkipInitialSync,
	}, hub, recommendations, modelRegistry, db, log)
	if err := dataSync.Start(); err != nil {
		log.Errorf("Failed to start data sync: %v", err)
	}
	defer dataSync.Stop()

	router, err := api.NewRouter(api.Deps{
		Config:          cfg,
		Logger:          log,
		DB:              db,
		Cache:           cachePinger,
		Hub:             hub,
		Sync:            dataSync,
		Recommendations: recommendations,
		Features:        featureService,
		Registry:        modelRegistry,
		Breakers:        breakers,
		Monitor:         monitor,
		WSHub:           wsHub,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func newSMSService(cfg *config.Config, breakers *services.CircuitBreakerService, log *logrus.Logger) services.SMSService {
	if cfg.SMSProvider == "twilio" && cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		return services.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, breakers, log)
	}
	return services.NewMockSMSService(log)
}
