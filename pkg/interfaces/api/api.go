// Package api exposes the planning engine over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vsinha/batchplan/pkg/application/services/orchestration"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

// Services are the collaborators the handlers call
type Services struct {
	Orchestrator *orchestration.PlanningOrchestrator
	Materials    repositories.MaterialRepository
	Stock        repositories.StockRepository
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(Logger())
	router.Use(Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Orchestrator != nil {
			planHandler := NewPlanHandler(services.Orchestrator)
			planGroup := apiGroup.Group("/plans")
			{
				planGroup.POST("/simulate", planHandler.Simulate)
				planGroup.POST("/diff", planHandler.Diff)
				planGroup.GET("/previous-batches", planHandler.PreviousBatches)
			}
		}

		if services.Materials != nil && services.Stock != nil {
			stockHandler := NewStockHandler(services.Materials, services.Stock)
			apiGroup.POST("/stock/import", stockHandler.ImportWorkbook)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
