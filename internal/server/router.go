package server

import (
	"net/http"
	"time"

	"grc-isms/internal/auth"
	"grc-isms/internal/config"
	"grc-isms/internal/handlers"
	"grc-isms/internal/ident"
	"grc-isms/internal/metrics"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionName = "grc_session"

// Option tweaks the router, used by tests.
type Option func(*handlers.Handlers)

// WithClock overrides the time source of the reports and alerts.
func WithClock(now func() time.Time) Option {
	return func(h *handlers.Handlers) { h.SetClock(now) }
}

func NewRouter(cfg *config.Config, st store.Store, log *zap.Logger, m *metrics.Metrics, opts ...Option) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log, m))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(middleware.MaxBodyBytes))

	sessStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTExpiresIn.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	r.Use(sessions.Sessions(sessionName, sessStore))

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	journal := middleware.NewJournal(st.AuditLogs(), log, m)
	authn := middleware.NewAuth(st.Users(), tokens, journal, log)
	ids := ident.NewAllocator(st, store.LatestFuncs(st))

	h := handlers.New(st, ids, tokens, journal, log, m)
	for _, opt := range opts {
		opt(h)
	}

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	general := middleware.NewRateLimiter("api", cfg.RateLimitRPS, cfg.RateLimitBurst,
		"Too many requests from this IP, please try again later.", m)
	strict := middleware.NewRateLimiter("auth", cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst,
		"Too many authentication attempts, please try again later.", m)

	api := r.Group("/api")
	api.Use(general.Middleware())

	// AUTH
	authGroup := api.Group("/auth")
	authGroup.POST("/register", strict.Middleware(), journal.Activity(models.ActionCreate, "User"), h.Register)
	authGroup.POST("/login", strict.Middleware(), h.Login)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", authn.RequireAuth(), h.Me)
	authGroup.GET("/profile", authn.RequireAuth(), h.Me)
	authGroup.PUT("/profile", authn.RequireAuth(), journal.Activity(models.ActionUpdate, "User"), h.UpdateProfile)

	secured := api.Group("")
	secured.Use(authn.RequireAuth())

	editors := middleware.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleAuditor)
	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := middleware.RequireRole(models.RoleAdmin)

	// РИСКИ
	risks := secured.Group("/risks")
	risks.GET("", h.ListRisks)
	risks.GET("/stats", h.RiskStats)
	risks.GET("/:id", h.GetRisk)
	risks.POST("", editors, journal.Activity(models.ActionCreate, "Risk"), h.CreateRisk)
	risks.PUT("/:id", editors, journal.Activity(models.ActionUpdate, "Risk"), h.UpdateRisk)
	risks.DELETE("/:id", managers, journal.Activity(models.ActionDelete, "Risk"), h.DeleteRisk)

	// SoA
	soa := secured.Group("/soa")
	soa.GET("", h.ListControls)
	soa.GET("/stats", h.ControlStats)
	soa.GET("/:id", h.GetControl)
	soa.POST("", editors, journal.Activity(models.ActionCreate, "SoA"), h.CreateControl)
	soa.PUT("/:id", editors, journal.Activity(models.ActionUpdate, "SoA"), h.UpdateControl)
	soa.DELETE("/:id", managers, journal.Activity(models.ActionDelete, "SoA"), h.DeleteControl)

	// АУДИТЫ И ЗАМЕЧАНИЯ
	audits := secured.Group("/audits")
	audits.GET("", h.ListAudits)
	audits.GET("/stats", h.AuditStats)
	audits.GET("/:id", h.GetAudit)
	audits.POST("", editors, journal.Activity(models.ActionCreate, "Audit"), h.CreateAudit)
	audits.PUT("/:id", editors, journal.Activity(models.ActionUpdate, "Audit"), h.UpdateAudit)
	audits.DELETE("/:id", managers, journal.Activity(models.ActionDelete, "Audit"), h.DeleteAudit)
	audits.POST("/:id/findings", editors, journal.Activity(models.ActionCreate, "Finding"), h.AddFinding)
	audits.PUT("/:id/findings/:findingId", editors, journal.Activity(models.ActionUpdate, "Finding"), h.UpdateFinding)
	audits.DELETE("/:id/findings/:findingId", managers, journal.Activity(models.ActionDelete, "Finding"), h.DeleteFinding)

	// ПОЛИТИКИ
	policies := secured.Group("/policies")
	policies.GET("", h.ListPolicies)
	policies.GET("/stats", h.PolicyStats)
	policies.GET("/:id", h.GetPolicy)
	policies.POST("", managers, journal.Activity(models.ActionCreate, "Policy"), h.CreatePolicy)
	policies.PUT("/:id", managers, journal.Activity(models.ActionUpdate, "Policy"), h.UpdatePolicy)
	policies.DELETE("/:id", managers, journal.Activity(models.ActionDelete, "Policy"), h.DeletePolicy)

	// ПОЛЬЗОВАТЕЛИ: только админ
	users := secured.Group("/users", admins)
	users.GET("", h.ListUsers)
	users.GET("/stats", h.UserStats)
	users.GET("/:id", h.GetUser)
	users.GET("/:id/activity", h.UserActivity)
	users.PUT("/:id/role", h.UpdateUserRole)
	users.PUT("/:id/status", h.UpdateUserStatus)

	// УВЕДОМЛЕНИЯ
	notifications := secured.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.PUT("/mark-all-read", h.MarkAllNotificationsRead)
	notifications.PUT("/:id/read", h.MarkNotificationRead)
	notifications.DELETE("/:id", h.DeleteNotification)

	// ДАШБОРД
	dashboard := secured.Group("/dashboard")
	dashboard.GET("/stats", h.DashboardStats)
	dashboard.GET("/alerts", h.DashboardAlerts)
	dashboard.GET("/recent-activities", h.RecentActivities)

	// БЕЗОПАСНОСТЬ: только админ
	security := secured.Group("/security", admins)
	security.GET("/dashboard", h.SecurityDashboard)
	security.GET("/logs", h.SecurityLogs)
	security.GET("/health", h.SecurityHealth)
	security.POST("/unlock-account/:userId", h.UnlockAccount)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
	})

	return r
}
