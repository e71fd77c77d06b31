package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Analytics Handler
// ============================================

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

// StatusDistribution - GET /projects/:id/analytics/status-distribution
// Keys are todo, in-progress, review and done; "inprogress" repeats the in-progress count.
func (h *AnalyticsHandler) StatusDistribution(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	dist, err := h.analyticsService.StatusDistribution(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

// Completion - GET /projects/:id/analytics/completion
func (h *AnalyticsHandler) Completion(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	completion, err := h.analyticsService.Completion(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

// DueDates - GET /projects/:id/analytics/due-dates
func (h *AnalyticsHandler) DueDates(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	due, err := h.analyticsService.DueDates(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, due)
}

// Summary - GET /projects/:id/analytics/summary
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.Summary(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
