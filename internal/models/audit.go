package models

import "time"

type AuditType string
type AuditStatus string

const (
	AuditInternal      AuditType = "Internal"
	AuditExternal      AuditType = "External"
	AuditCertification AuditType = "Certification"
	AuditSurveillance  AuditType = "Surveillance"

	AuditPlanned    AuditStatus = "Planned"
	AuditInProgress AuditStatus = "In Progress"
	AuditCompleted  AuditStatus = "Completed"
	AuditCancelled  AuditStatus = "Cancelled"
)

var (
	AuditTypes    = []AuditType{AuditInternal, AuditExternal, AuditCertification, AuditSurveillance}
	AuditStatuses = []AuditStatus{AuditPlanned, AuditInProgress, AuditCompleted, AuditCancelled}
)

func (t AuditType) Valid() bool   { return oneOf(t, AuditTypes) }
func (s AuditStatus) Valid() bool { return oneOf(s, AuditStatuses) }

// Active reports whether the audit is planned or in progress.
func (s AuditStatus) Active() bool {
	return s == AuditPlanned || s == AuditInProgress
}

type Audit struct {
	Base
	AuditID       string    `gorm:"size:16;uniqueIndex;not null" json:"auditId"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Type          AuditType `gorm:"type:varchar(20);not null;index" json:"type"`
	Scope         string    `gorm:"type:text;not null" json:"scope"`
	Objectives    string    `gorm:"type:text;not null" json:"objectives"`
	AuditCriteria string    `gorm:"type:text;not null" json:"auditCriteria"`

	LeadAuditorID uint   `gorm:"not null" json:"leadAuditorId"`
	LeadAuditor   *User  `json:"leadAuditor,omitempty"`
	AuditTeamIDs  []uint `gorm:"serializer:json" json:"auditTeam"`
	AuditeeIDs    []uint `gorm:"serializer:json" json:"auditees"`

	PlannedStartDate time.Time  `gorm:"not null;index" json:"plannedStartDate"`
	PlannedEndDate   time.Time  `gorm:"not null" json:"plannedEndDate"`
	ActualStartDate  *time.Time `json:"actualStartDate,omitempty"`
	ActualEndDate    *time.Time `json:"actualEndDate,omitempty"`

	Status   AuditStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Findings []Finding   `gorm:"foreignKey:AuditRefID;constraint:OnDelete:CASCADE" json:"findings"`
	// FindingSeq numbers findings and never decreases on delete
	FindingSeq int `gorm:"not null;default:0" json:"-"`

	OverallConclusion string `gorm:"type:text" json:"overallConclusion,omitempty"`
	Recommendations   string `gorm:"type:text" json:"recommendations,omitempty"`
	ReportFile        string `gorm:"size:500" json:"reportFile,omitempty"`

	CreatedByID uint  `gorm:"not null" json:"createdById"`
	CreatedBy   *User `json:"createdBy,omitempty"`
}
