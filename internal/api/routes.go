// Package api wires the HTTP routes to their handlers.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/api/handlers"
	"github.com/ratewatch/ratewatch/internal/middleware"
)

// Handlers collects the per-endpoint handlers SetupRoutes mounts.
type Handlers struct {
	Health      *handlers.HealthHandler
	Rates       *handlers.RatesHandler
	Correlation *handlers.CorrelationHandler
	Analysis    *handlers.AnalysisHandler
	News        *handlers.NewsHandler
	Forecast    *handlers.ForecastHandler
	Chat        *handlers.ChatHandler
	Cache       *handlers.CacheHandler
}

func SetupRoutes(router *gin.Engine, h Handlers, admin *middleware.AdminMiddleware) {
	// Health check endpoint
	router.GET("/health", h.Health.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		rates := v1.Group("/rates")
		{
			rates.GET("", h.Rates.GetRates)
			rates.GET("/latest", h.Rates.GetLatestRates)
		}

		v1.GET("/correlation", h.Correlation.GetCorrelation)
		v1.GET("/analysis", h.Analysis.GetAnalysis)
		v1.GET("/news", h.News.GetNews)
		v1.GET("/forecast", h.Forecast.GetForecast)
		v1.POST("/chat", h.Chat.PostChat)

		cacheGroup := v1.Group("/cache", admin.RequireAdminAuth())
		{
			cacheGroup.POST("/clear", h.Cache.ClearCache)
			cacheGroup.GET("/stats", h.Cache.GetCacheStats)
		}
	}
}
