package handlers

import (
	"net/http"
	"runtime"
	"time"

	"grc-isms/internal/alerts"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var securityLogList = listSpec{
	filters: map[string]filter{
		"action":    {column: "action"},
		"resource":  {column: "resource"},
		"userId":    {column: "user_id", kind: filterUint},
		"ipAddress": {column: "ip_address"},
	},
	sorts:        map[string]string{"createdAt": "created_at"},
	defaultSort:  "createdAt",
	defaultLimit: 50,
	dateRange:    true,
}

func (h *Handlers) SecurityDashboard(c *gin.Context) {
	d, err := alerts.LoadSecurity(c.Request.Context(), h.st, h.now())
	if err != nil {
		h.fail(c, "Security dashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handlers) SecurityLogs(c *gin.Context) {
	q, err := securityLogList.parse(c)
	if err != nil {
		h.fail(c, "Audit log", err)
		return
	}
	items, total, err := h.st.AuditLogs().List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Audit log", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

// UnlockAccount clears the failed login counter of a locked account.
func (h *Handlers) UnlockAccount(c *gin.Context) {
	id, err := idParam(c, "userId")
	if err != nil {
		h.fail(c, "User", err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.st.Users().Get(ctx, id)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	attempts := u.FailedLoginAttempts
	u, err = h.st.Users().ResetFailedLogins(ctx, u.ID)
	if err != nil {
		h.fail(c, "User", err)
		return
	}

	admin := middleware.CurrentUser(c)
	h.journal.Record(c, &models.AuditLog{
		UserID:     &admin.ID,
		Action:     models.ActionAdmin,
		Resource:   models.EventAccountUnlock,
		ResourceID: formatID(u.ID),
		Details: map[string]any{
			"unlockedUser":     u.Email,
			"previousAttempts": attempts,
		},
	})
	h.log.Info("account unlocked",
		zap.Uint("user_id", u.ID),
		zap.Uint("admin_id", admin.ID),
		zap.Int("previous_attempts", attempts),
	)

	c.JSON(http.StatusOK, gin.H{"message": "Account unlocked successfully", "user": u.Ref()})
}

type healthReport struct {
	Status        string    `json:"status"`
	Database      string    `json:"database"`
	ErrorRate     float64   `json:"errorRate"`
	RequestCount  int       `json:"requestCount"`
	Uptime        float64   `json:"uptime"`
	MemoryAlloc   uint64    `json:"memoryAlloc"`
	MemorySys     uint64    `json:"memorySys"`
	Goroutines    int       `json:"goroutines"`
	GeneratedAt   time.Time `json:"generatedAt"`
	SecurityAlert bool      `json:"securityAlert"`
}

// errorRateThreshold is the daily share of failed requests above which health is degraded.
const errorRateThreshold = 0.1

func (h *Handlers) SecurityHealth(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now()
	r := healthReport{
		Status:      "healthy",
		Database:    "connected",
		Uptime:      time.Since(h.started).Seconds(),
		Goroutines:  runtime.NumGoroutine(),
		GeneratedAt: now,
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.MemoryAlloc = mem.Alloc
	r.MemorySys = mem.Sys

	if err := h.st.Ping(ctx); err != nil {
		h.log.Warn("health check: database unreachable", zap.Error(err))
		r.Status = "unhealthy"
		r.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, r)
		return
	}

	logs, err := h.st.AuditLogs().Since(ctx, now.Add(-24*time.Hour))
	if err != nil {
		h.fail(c, "Audit log", err)
		return
	}
	r.RequestCount, r.ErrorRate = errorRate(logs)
	if r.ErrorRate > errorRateThreshold {
		r.Status = "degraded"
		r.SecurityAlert = true
	}
	c.JSON(http.StatusOK, r)
}

// errorRate returns how many entries carry a status code and the share of
// them that is >= 400.
func errorRate(logs []models.AuditLog) (int, float64) {
	var total, failed int
	for _, l := range logs {
		code, ok := statusCode(l.Details["statusCode"])
		if !ok {
			continue
		}
		total++
		if code >= http.StatusBadRequest {
			failed++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return total, float64(failed) / float64(total)
}

// statusCode reads a status from details, which holds float64 after a JSON round trip.
func statusCode(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
