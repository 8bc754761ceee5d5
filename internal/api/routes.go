package api

import (
	"github.com/JustJay7/highcourt-fetcher/internal/cache"
	"github.com/JustJay7/highcourt-fetcher/internal/config"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, cache cache.Cache, sessions Sessions, logger *logger.Logger, cfg *config.Config) {
	h := NewHandlers(db, cache, sessions, logger, cfg)

	// Downloaded orders and cause lists
	router.Static(cfg.StaticURLPrefix, cfg.ArtifactDir)

	api := router.Group("/api")
	api.Use(rateLimitMiddleware(cfg.APIRateLimit, cfg.APIRateWindow))
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/cache/stats", h.CacheStats)

		// Stored records
		api.GET("/cases", h.ListCases)
		api.GET("/cases/:cnr", h.GetCase)
		api.DELETE("/cases/:cnr", h.DeleteCase)
		api.GET("/cause-lists", h.CauseLists)
		api.GET("/query-logs", h.QueryLogs)
	}

	// Portal wizards, bound to the caller's session cookie
	caseStatus := api.Group("/highcourt", sessionMiddleware())
	{
		caseStatus.GET("/courts", h.CaseCourts)
		caseStatus.GET("/benches/:courtId", h.CaseBenches)
		caseStatus.GET("/caseTypes/:benchId", h.CaseTypes)
		caseStatus.GET("/captcha", h.CaseCaptcha)
		caseStatus.POST("/fetchCase", h.FetchCase)
	}

	causeList := api.Group("/causelist", sessionMiddleware())
	{
		causeList.GET("/courts", h.CauseCourts)
		causeList.GET("/benches/:courtId", h.CauseBenches)
		causeList.POST("/benches/:benchId/select", h.CauseSelectBench)
		causeList.GET("/captcha", h.CauseCaptcha)
		causeList.POST("/fetchCauseList", h.FetchCauseList)
	}
}
