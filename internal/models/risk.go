package models

import (
	"time"

	"grc-isms/internal/scoring"

	"gorm.io/gorm"
)

type RiskCategory string
type RiskTreatment string
type RiskStatus string

const (
	RiskOperational  RiskCategory = "Operational"
	RiskTechnical    RiskCategory = "Technical"
	RiskFinancial    RiskCategory = "Financial"
	RiskStrategic    RiskCategory = "Strategic"
	RiskCompliance   RiskCategory = "Compliance"
	RiskReputational RiskCategory = "Reputational"

	TreatmentAccept   RiskTreatment = "Accept"
	TreatmentMitigate RiskTreatment = "Mitigate"
	TreatmentTransfer RiskTreatment = "Transfer"
	TreatmentAvoid    RiskTreatment = "Avoid"

	RiskOpen       RiskStatus = "Open"
	RiskInProgress RiskStatus = "In Progress"
	RiskMonitoring RiskStatus = "Monitoring"
	RiskClosed     RiskStatus = "Closed"
)

var (
	RiskCategories = []RiskCategory{RiskOperational, RiskTechnical, RiskFinancial, RiskStrategic, RiskCompliance, RiskReputational}
	RiskTreatments = []RiskTreatment{TreatmentAccept, TreatmentMitigate, TreatmentTransfer, TreatmentAvoid}
	RiskStatuses   = []RiskStatus{RiskOpen, RiskInProgress, RiskMonitoring, RiskClosed}
)

func (c RiskCategory) Valid() bool  { return oneOf(c, RiskCategories) }
func (t RiskTreatment) Valid() bool { return oneOf(t, RiskTreatments) }
func (s RiskStatus) Valid() bool    { return oneOf(s, RiskStatuses) }

type Risk struct {
	Base
	RiskID      string       `gorm:"size:16;uniqueIndex;not null" json:"riskId"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Category    RiskCategory `gorm:"type:varchar(32);not null;index" json:"category"`

	Likelihood int           `gorm:"not null" json:"likelihood"`
	Impact     int           `gorm:"not null" json:"impact"`
	RiskScore  int           `gorm:"not null" json:"riskScore"`
	RiskLevel  scoring.Level `gorm:"type:varchar(16);not null;index" json:"riskLevel"`

	OwnerID uint  `gorm:"not null" json:"ownerId"`
	Owner   *User `json:"owner,omitempty"`

	Treatment     RiskTreatment `gorm:"type:varchar(16);not null" json:"treatment"`
	TreatmentPlan string        `gorm:"type:text" json:"treatmentPlan,omitempty"`
	Status        RiskStatus    `gorm:"type:varchar(16);not null;index" json:"status"`

	ResidualLikelihood *int           `json:"residualLikelihood,omitempty"`
	ResidualImpact     *int           `json:"residualImpact,omitempty"`
	ResidualScore      *int           `json:"residualScore,omitempty"`
	ResidualLevel      *scoring.Level `gorm:"type:varchar(16)" json:"residualLevel,omitempty"`

	ReviewDate time.Time `gorm:"not null;index" json:"reviewDate"`

	CreatedByID uint  `gorm:"not null" json:"createdById"`
	CreatedBy   *User `json:"createdBy,omitempty"`
}

// ApplyDerived recomputes the derived fields, overwriting whatever the
// client sent.
func (r *Risk) ApplyDerived(now time.Time) {
	r.RiskScore, r.RiskLevel = scoring.ComputeScore(r.Likelihood, r.Impact)

	r.ResidualScore, r.ResidualLevel = nil, nil
	if res := scoring.ComputeResidualScore(r.ResidualLikelihood, r.ResidualImpact); res != nil {
		score, level := res.Score, res.Level
		r.ResidualScore = &score
		r.ResidualLevel = &level
	}

	r.UpdatedAt = now
}

// BeforeSave is the gorm hook run before create and update.
func (r *Risk) BeforeSave(tx *gorm.DB) error {
	r.ApplyDerived(tx.NowFunc())
	return nil
}
