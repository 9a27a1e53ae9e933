package handlers

import (
	"net/http"

	"grc-isms/internal/alerts"
	"grc-isms/internal/compliance"

	"github.com/gin-gonic/gin"
)

// DashboardStats returns the compliance overview and chart data.
func (h *Handlers) DashboardStats(c *gin.Context) {
	snap, err := compliance.Load(c.Request.Context(), h.st)
	if err != nil {
		h.fail(c, "Dashboard", err)
		return
	}
	c.JSON(http.StatusOK, compliance.Summarize(snap, h.now()))
}

func (h *Handlers) DashboardAlerts(c *gin.Context) {
	snap, err := compliance.Load(c.Request.Context(), h.st)
	if err != nil {
		h.fail(c, "Dashboard", err)
		return
	}
	c.JSON(http.StatusOK, alerts.Evaluate(snap, h.now()))
}

func (h *Handlers) RecentActivities(c *gin.Context) {
	items, err := compliance.LoadRecentActivities(c.Request.Context(), h.st)
	if err != nil {
		h.fail(c, "Dashboard", err)
		return
	}
	c.JSON(http.StatusOK, items)
}
