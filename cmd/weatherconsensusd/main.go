// Command weatherconsensusd is the REST server entry point. Grounded on the
// teacher's cmd/server/main.go config-load -> router-build -> router.Run
// shape, trimmed to this engine's three outward queries.
package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wxconsensus/engine/internal/api"
	"github.com/wxconsensus/engine/internal/api/middleware"
	"github.com/wxconsensus/engine/internal/config"
	"github.com/wxconsensus/engine/internal/engine"
	"github.com/wxconsensus/engine/internal/geocode"
	"github.com/wxconsensus/engine/internal/weather/fanout"
	"github.com/wxconsensus/engine/internal/weather/openmeteo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	geocoder := geocode.NewClient(cfg.Weather.GeocodingBaseURL, logger)
	resolver := openmeteo.NewResolver(cfg.Weather.ForecastBaseURL)
	client := openmeteo.NewClient(resolver, logger)
	coordinator := fanout.NewCoordinator(client, logger)
	eng := engine.New(geocoder, coordinator, logger)
	handler := api.NewHandler(eng)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORS.AllowOrigins,
		AllowMethods:     cfg.Server.CORS.AllowMethods,
		AllowHeaders:     cfg.Server.CORS.AllowHeaders,
		ExposeHeaders:    cfg.Server.CORS.ExposeHeaders,
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
		MaxAge:           cfg.Server.CORS.MaxAge,
	}))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", handler.HealthCheck)
		apiGroup.GET("/forecast", handler.AggregateForecast)
		apiGroup.GET("/compare", handler.Compare)
		apiGroup.GET("/geocode", handler.Geocode)
	}

	logger.Info("starting weather consensus API server", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
