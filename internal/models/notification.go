package models

import "time"

type NotificationType string
type NotificationCategory string

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
	NotifySuccess NotificationType = "success"

	NotifyRisk   NotificationCategory = "Risk"
	NotifyAudit  NotificationCategory = "Audit"
	NotifyPolicy NotificationCategory = "Policy"
	NotifySoA    NotificationCategory = "SoA"
	NotifySystem NotificationCategory = "System"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Title    string               `gorm:"size:255;not null" json:"title"`
	Message  string               `gorm:"type:text;not null" json:"message"`
	Type     NotificationType     `gorm:"type:varchar(16);not null" json:"type"`
	Category NotificationCategory `gorm:"type:varchar(16);not null" json:"category"`

	RecipientID uint `gorm:"not null;index" json:"recipientId"`

	EntityType string `gorm:"size:16" json:"entityType,omitempty"`
	EntityID   *uint  `json:"entityId,omitempty"`

	IsRead bool       `gorm:"not null;index" json:"isRead"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}

func (n *Notification) GetID() uint        { return n.ID }
func (n *Notification) SetID(id uint)      { n.ID = id }
func (n *Notification) Created() time.Time { return n.CreatedAt }
func (n *Notification) Touch(now time.Time) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}
