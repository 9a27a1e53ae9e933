package models

import "time"

type PolicyCategory string
type PolicyStatus string

const (
	PolicyInfoSec            PolicyCategory = "Information Security Policy"
	PolicyAccessControl      PolicyCategory = "Access Control Policy"
	PolicyAcceptableUse      PolicyCategory = "Acceptable Use Policy"
	PolicyDataClassification PolicyCategory = "Data Classification Policy"
	PolicyIncidentResponse   PolicyCategory = "Incident Response Policy"
	PolicyBusinessContinuity PolicyCategory = "Business Continuity Policy"
	PolicyRiskManagement     PolicyCategory = "Risk Management Policy"
	PolicySupplierSecurity   PolicyCategory = "Supplier Security Policy"
	PolicyHRSecurity         PolicyCategory = "HR Security Policy"
	PolicyAssetManagement    PolicyCategory = "Asset Management Policy"

	PolicyDraft       PolicyStatus = "Draft"
	PolicyUnderReview PolicyStatus = "Under Review"
	PolicyApproved    PolicyStatus = "Approved"
	PolicyPublished   PolicyStatus = "Published"
	PolicyArchived    PolicyStatus = "Archived"
)

var (
	PolicyCategories = []PolicyCategory{
		PolicyInfoSec, PolicyAccessControl, PolicyAcceptableUse, PolicyDataClassification,
		PolicyIncidentResponse, PolicyBusinessContinuity, PolicyRiskManagement,
		PolicySupplierSecurity, PolicyHRSecurity, PolicyAssetManagement,
	}
	PolicyStatuses = []PolicyStatus{PolicyDraft, PolicyUnderReview, PolicyApproved, PolicyPublished, PolicyArchived}
)

func (c PolicyCategory) Valid() bool { return oneOf(c, PolicyCategories) }
func (s PolicyStatus) Valid() bool   { return oneOf(s, PolicyStatuses) }

// Policy is policy document metadata. The file itself is stored elsewhere.
type Policy struct {
	Base
	PolicyID    string         `gorm:"size:16;uniqueIndex;not null" json:"policyId"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Category    PolicyCategory `gorm:"type:varchar(64);not null;index" json:"category"`
	Version     string         `gorm:"size:16;not null" json:"version"`
	Status      PolicyStatus   `gorm:"type:varchar(20);not null;index" json:"status"`

	OwnerID      uint       `gorm:"not null" json:"ownerId"`
	Owner        *User      `json:"owner,omitempty"`
	ApproverID   *uint      `json:"approverId,omitempty"`
	Approver     *User      `json:"approver,omitempty"`
	ApprovalDate *time.Time `json:"approvalDate,omitempty"`

	EffectiveDate  time.Time `gorm:"not null" json:"effectiveDate"`
	ReviewDate     time.Time `gorm:"not null" json:"reviewDate"`
	NextReviewDate time.Time `gorm:"not null;index" json:"nextReviewDate"`

	FileName string `gorm:"size:255;not null" json:"fileName"`
	FilePath string `gorm:"size:500" json:"-"`
	FileSize int64  `gorm:"not null" json:"fileSize"`
	MimeType string `gorm:"size:100;not null" json:"mimeType"`

	Tags             []string `gorm:"serializer:json" json:"tags"`
	RelatedPolicyIDs []uint   `gorm:"serializer:json" json:"relatedPolicies"`

	CreatedByID uint  `gorm:"not null" json:"createdById"`
	CreatedBy   *User `json:"createdBy,omitempty"`
}

const DefaultPolicyVersion = "1.0"
