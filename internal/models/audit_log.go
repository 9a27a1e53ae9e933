package models

import "time"

// Journal actions.
const (
	ActionCreate        = "CREATE"
	ActionUpdate        = "UPDATE"
	ActionDelete        = "DELETE"
	ActionSecurityEvent = "SECURITY_EVENT"
	ActionAdmin         = "ADMIN_ACTION"
)

// Security events, stored in Resource when Action is SECURITY_EVENT.
const (
	EventAuthFailed    = "AUTH_FAILED"
	EventLoginSuccess  = "LOGIN_SUCCESS"
	EventTokenExpired  = "TOKEN_EXPIRED"
	EventTokenInvalid  = "TOKEN_INVALID"
	EventAccountLocked = "ACCOUNT_LOCKED"
	EventAccountUnlock = "ACCOUNT_UNLOCK"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	UserID *uint `gorm:"index" json:"userId,omitempty"`
	User   *User `json:"user,omitempty"`

	Action     string         `gorm:"size:32;not null;index" json:"action"`   // "CREATE", "SECURITY_EVENT" и т.п.
	Resource   string         `gorm:"size:50;not null;index" json:"resource"` // "Risk", "AUTH_FAILED" и т.п.
	ResourceID string         `gorm:"size:64" json:"resourceId,omitempty"`
	Details    map[string]any `gorm:"serializer:json" json:"details,omitempty"`
	IPAddress  string         `gorm:"size:64;index" json:"ipAddress,omitempty"`
	UserAgent  string         `gorm:"size:255" json:"userAgent,omitempty"`
}

func (l *AuditLog) GetID() uint        { return l.ID }
func (l *AuditLog) SetID(id uint)      { l.ID = id }
func (l *AuditLog) Created() time.Time { return l.CreatedAt }
func (l *AuditLog) Touch(now time.Time) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
}
