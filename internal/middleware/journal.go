package middleware

import (
	"grc-isms/internal/metrics"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Journal writes audit log entries for requests. A failed write is logged and
// never fails the request.
type Journal struct {
	logs    store.AuditLogRepo
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewJournal(logs store.AuditLogRepo, log *zap.Logger, m *metrics.Metrics) *Journal {
	return &Journal{logs: logs, log: log, metrics: m}
}

// Security records a SECURITY_EVENT entry with the event name as resource.
func (j *Journal) Security(c *gin.Context, event, details string, userID *uint) {
	j.metrics.Security(event)
	j.Record(c, &models.AuditLog{
		UserID:   userID,
		Action:   models.ActionSecurityEvent,
		Resource: event,
		Details: map[string]any{
			"event":     event,
			"details":   details,
			"method":    c.Request.Method,
			"url":       c.Request.URL.RequestURI(),
			"userAgent": c.Request.UserAgent(),
		},
	})
}

// Record fills the request fields of entry and stores it.
func (j *Journal) Record(c *gin.Context, entry *models.AuditLog) {
	if entry.IPAddress == "" {
		entry.IPAddress = c.ClientIP()
	}
	if entry.UserAgent == "" {
		entry.UserAgent = c.Request.UserAgent()
	}

	if err := j.logs.Create(c.Request.Context(), entry); err != nil {
		j.log.Error("audit log write failed",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.String("request_id", RequestID(c)),
			zap.Error(err),
		)
	}
}

// Activity logs a mutating request after its handler ran. The resource id is
// taken from the ":id" path parameter, or from the "resourceId" context key
// when the handler created a new record.
func (j *Journal) Activity(action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		u := CurrentUser(c)
		if u == nil {
			if v, ok := c.Get(newUserKey); ok {
				u, _ = v.(*models.User)
			}
		}
		if u == nil {
			return
		}

		resourceID := c.Param("id")
		if v := c.GetString(ResourceIDKey); v != "" {
			resourceID = v
		}

		userID := u.ID
		j.Record(c, &models.AuditLog{
			UserID:     &userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Details: map[string]any{
				"method":     c.Request.Method,
				"url":        c.Request.URL.RequestURI(),
				"statusCode": c.Writer.Status(),
			},
		})
	}
}

const (
	// ResourceIDKey is set by handlers that create a record.
	ResourceIDKey = "resourceId"
	newUserKey    = "NewUser"
)

// SetNewUser marks the account created by a registration so Activity can
// attribute the entry to it.
func SetNewUser(c *gin.Context, u *models.User) {
	c.Set(newUserKey, u)
}
