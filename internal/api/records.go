package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/gin-gonic/gin"
)

const recentQueryLogs = 50

// ListCases returns stored cases, newest first
func (h *Handlers) ListCases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	cases, total, err := h.reconciler.ListCases(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetCase returns one stored case by CNR
func (h *Handlers) GetCase(c *gin.Context) {
	cnr := database.NormalizeCNR(c.Param("cnr"))

	if stored, found := h.cache.Get(cnr); found {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"data":      stored,
			"fromCache": true,
		})
		return
	}

	stored, err := h.reconciler.LoadCase(c.Request.Context(), cnr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.cache.Set(cnr, stored); err != nil {
		h.logger.Warn("Failed to cache case", "cnr", cnr, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      stored,
		"fromCache": false,
	})
}

// DeleteCase removes a stored case and everything it owns
func (h *Handlers) DeleteCase(c *gin.Context) {
	cnr := database.NormalizeCNR(c.Param("cnr"))

	if err := h.reconciler.DeleteCase(c.Request.Context(), cnr); err != nil {
		h.respondError(c, err)
		return
	}
	h.cache.Delete(cnr)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CauseLists returns the stored cause-list rows for a date
func (h *Handlers) CauseLists(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "date must be YYYY-MM-DD",
		})
		return
	}

	entries, err := h.reconciler.CauseListFor(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"date":    date.Format("2006-01-02"),
		"data":    entries,
	})
}

// QueryLogs returns the latest audit entries and totals
func (h *Handlers) QueryLogs(c *gin.Context) {
	ctx := c.Request.Context()

	logs, err := h.queries.Recent(ctx, recentQueryLogs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.queries.Stats(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"logs":    logs,
		"stats":   stats,
	})
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	var count int64
	dbErr := h.db.Model(&database.QueryLog{}).Count(&count).Error

	status := http.StatusOK
	state := "healthy"
	if dbErr != nil {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":   state,
		"database": dbErr == nil,
		"cache":    h.cache.Stats(),
		"time":     time.Now().Unix(),
	})
}

// CacheStats returns cache statistics
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.cache.Stats(),
	})
}
