package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/api/handlers"
	"github.com/jstittsworth/bet-analytics/internal/api/middleware"
	"github.com/jstittsworth/bet-analytics/internal/features"
	"github.com/jstittsworth/bet-analytics/internal/metrics"
	"github.com/jstittsworth/bet-analytics/internal/registry"
	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/internal/websocket"
	"github.com/jstittsworth/bet-analytics/pkg/config"
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

// Deps are the services the HTTP layer serves. DB, Cache, Breakers and WSHub may be nil.
type Deps struct {
	Config          *config.Config
	Logger          *logrus.Logger
	DB              *database.DB
	Cache           handlers.Pinger
	Hub             *services.DataIntegrationHub
	Sync            *services.DataSyncService
	Recommendations *services.RecommendationService
	Features        *features.FeatureEngineeringService
	Registry        *registry.Registry
	Breakers        *services.CircuitBreakerService
	Monitor         *metrics.PerformanceMonitor
	WSHub           *websocket.Hub
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(corsConfig(cfg.CorsOrigins)))
	if deps.Monitor != nil {
		router.Use(middleware.Metrics(deps.Monitor))
	}

	limits := make(map[string]gin.HandlerFunc, 3)
	for _, class := range []string{"default", "strict", "heavy"} {
		mw, err := middleware.RateLimit(cfg, class)
		if err != nil {
			return nil, err
		}
		limits[class] = mw
	}

	health := handlers.NewHealthHandler(deps.DB, deps.Cache, deps.Hub, deps.Breakers)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)
	if deps.Monitor != nil {
		router.GET("/metrics", gin.WrapH(deps.Monitor.Handler()))
	}
	if deps.WSHub != nil {
		router.GET("/ws", middleware.OptionalAuth(cfg.JWTSecret), deps.WSHub.HandleWebSocket)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.OptionalAuth(cfg.JWTSecret))
	SetupRoutes(v1, deps, limits)
	return router, nil
}

// SetupRoutes registers the /api/v1 routes on group
func SetupRoutes(group *gin.RouterGroup, deps Deps, limits map[string]gin.HandlerFunc) {
	cfg := deps.Config
	auth := middleware.AuthRequired(cfg.JWTSecret)

	integrationHandler := handlers.NewIntegrationHandler(deps.Hub, deps.Sync, deps.Recommendations)
	strategyHandler := handlers.NewStrategyHandler(deps.Recommendations, cfg.DefaultRiskProfile, cfg.Bankroll)
	featureHandler := handlers.NewFeatureHandler(deps.Features)
	modelHandler := handlers.NewModelHandler(deps.Registry)

	standard := group.Group("")
	standard.Use(limits["default"])
	{
		standard.GET("/snapshot", integrationHandler.GetSnapshot)
		standard.GET("/snapshot/summary", integrationHandler.GetSnapshotSummary)
		standard.GET("/sources", integrationHandler.GetSources)
		standard.GET("/players/:id", integrationHandler.GetPlayer)
		standard.GET("/jobs", integrationHandler.GetJobs)

		standard.GET("/analysis", strategyHandler.GetAnalysis)
		standard.GET("/opportunities", strategyHandler.GetOpportunities)
		standard.GET("/recommendations", strategyHandler.GetRecommendations)
		standard.GET("/recommendations/history", strategyHandler.GetRecommendationHistory)
		standard.GET("/arbitrage", strategyHandler.GetArbitrage)
		standard.GET("/parlays", strategyHandler.GetParlays)
		standard.GET("/profiles", strategyHandler.GetProfiles)
		standard.PUT("/profiles/:name", auth, strategyHandler.UpsertProfile)
		standard.POST("/kelly", strategyHandler.CalculateKelly)

		standard.GET("/models", modelHandler.ListModels)
		standard.GET("/models/:name", modelHandler.GetModel)
		standard.GET("/models/:name/versions", modelHandler.ListVersions)
		standard.POST("/models", auth, modelHandler.RegisterModel)
		standard.POST("/models/:name/versions", auth, modelHandler.SaveVersion)
		standard.POST("/models/:name/versions/:id/activate", auth, modelHandler.ActivateVersion)
		standard.DELETE("/models/:name/versions/:id", auth, modelHandler.DeleteVersion)
	}

	group.POST("/sync", auth, limits["strict"], integrationHandler.TriggerSync)
	group.POST("/recommendations", limits["heavy"], strategyHandler.CreateRecommendations)
	group.POST("/features", limits["heavy"], featureHandler.Extract)
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Class", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}
	c.AllowOrigins = origins
	return c
}
