package models

import "time"

type FindingSeverity string
type FindingCategory string
type FindingStatus string

const (
	SeverityLow      FindingSeverity = "Low"
	SeverityMedium   FindingSeverity = "Medium"
	SeverityHigh     FindingSeverity = "High"
	SeverityCritical FindingSeverity = "Critical"

	FindingNonConformity FindingCategory = "Non-Conformity"
	FindingObservation   FindingCategory = "Observation"
	FindingImprovement   FindingCategory = "Opportunity for Improvement"

	FindingOpen       FindingStatus = "Open"
	FindingInProgress FindingStatus = "In Progress"
	FindingClosed     FindingStatus = "Closed"
	FindingVerified   FindingStatus = "Verified"
)

var (
	FindingSeverities = []FindingSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	FindingCategories = []FindingCategory{FindingNonConformity, FindingObservation, FindingImprovement}
	FindingStatuses   = []FindingStatus{FindingOpen, FindingInProgress, FindingClosed, FindingVerified}
)

func (s FindingSeverity) Valid() bool { return oneOf(s, FindingSeverities) }
func (c FindingCategory) Valid() bool { return oneOf(c, FindingCategories) }
func (s FindingStatus) Valid() bool   { return oneOf(s, FindingStatuses) }

// Unresolved reports whether the finding is still being worked on.
func (s FindingStatus) Unresolved() bool {
	return s == FindingOpen || s == FindingInProgress
}

// Finding belongs to its parent Audit.
type Finding struct {
	Base
	AuditRefID uint   `gorm:"not null;index" json:"-"`
	FindingID  string `gorm:"size:24;uniqueIndex;not null" json:"findingId"`

	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Severity    FindingSeverity `gorm:"type:varchar(16);not null" json:"severity"`
	Category    FindingCategory `gorm:"type:varchar(40);not null" json:"category"`

	RelatedControl   string `gorm:"size:32" json:"relatedControl,omitempty"`
	CorrectiveAction string `gorm:"type:text" json:"correctiveAction,omitempty"`

	ActionOwnerID *uint         `json:"actionOwnerId,omitempty"`
	ActionOwner   *User         `json:"actionOwner,omitempty"`
	TargetDate    *time.Time    `json:"targetDate,omitempty"`
	Status        FindingStatus `gorm:"type:varchar(16);not null" json:"status"`
}
