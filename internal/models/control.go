package models

import "time"

// ControlCategory is an Annex A domain (ISO/IEC 27001:2013).
type ControlCategory string
type Applicability string
type ImplementationStatus string

const (
	CatPolicies       ControlCategory = "A.5 Information Security Policies"
	CatOrganization   ControlCategory = "A.6 Organization of Information Security"
	CatHumanResources ControlCategory = "A.7 Human Resource Security"
	CatAssets         ControlCategory = "A.8 Asset Management"
	CatAccess         ControlCategory = "A.9 Access Control"
	CatCryptography   ControlCategory = "A.10 Cryptography"
	CatPhysical       ControlCategory = "A.11 Physical and Environmental Security"
	CatOperations     ControlCategory = "A.12 Operations Security"
	CatCommunications ControlCategory = "A.13 Communications Security"
	CatAcquisition    ControlCategory = "A.14 System Acquisition, Development and Maintenance"
	CatSuppliers      ControlCategory = "A.15 Supplier Relationships"
	CatIncidents      ControlCategory = "A.16 Information Security Incident Management"
	CatContinuity     ControlCategory = "A.17 Information Security Aspects of Business Continuity Management"
	CatCompliance     ControlCategory = "A.18 Compliance"

	Applicable    Applicability = "Applicable"
	NotApplicable Applicability = "Not Applicable"

	StatusNotImplemented       ImplementationStatus = "Not Implemented"
	StatusPartiallyImplemented ImplementationStatus = "Partially Implemented"
	StatusImplemented          ImplementationStatus = "Implemented"
	StatusNotApplicable        ImplementationStatus = "Not Applicable"
)

var (
	ControlCategories = []ControlCategory{
		CatPolicies, CatOrganization, CatHumanResources, CatAssets, CatAccess,
		CatCryptography, CatPhysical, CatOperations, CatCommunications, CatAcquisition,
		CatSuppliers, CatIncidents, CatContinuity, CatCompliance,
	}
	Applicabilities        = []Applicability{Applicable, NotApplicable}
	ImplementationStatuses = []ImplementationStatus{
		StatusNotImplemented, StatusPartiallyImplemented, StatusImplemented, StatusNotApplicable,
	}
)

func (c ControlCategory) Valid() bool      { return oneOf(c, ControlCategories) }
func (a Applicability) Valid() bool        { return oneOf(a, Applicabilities) }
func (s ImplementationStatus) Valid() bool { return oneOf(s, ImplementationStatuses) }

// Control is one Statement of Applicability entry.
type Control struct {
	Base
	ControlID          string          `gorm:"size:32;uniqueIndex;not null" json:"controlId"`
	ControlTitle       string          `gorm:"size:255;not null" json:"controlTitle"`
	ControlDescription string          `gorm:"type:text;not null" json:"controlDescription"`
	Category           ControlCategory `gorm:"type:varchar(100);not null;index" json:"category"`

	Applicability        Applicability        `gorm:"type:varchar(20);not null" json:"applicability"`
	ImplementationStatus ImplementationStatus `gorm:"type:varchar(32);not null" json:"implementationStatus"`
	Justification        string               `gorm:"type:text;not null" json:"justification"`

	ResponsibleOwnerID uint  `gorm:"not null" json:"responsibleOwnerId"`
	ResponsibleOwner   *User `json:"responsibleOwner,omitempty"`

	ImplementationDetails string     `gorm:"type:text" json:"implementationDetails,omitempty"`
	EvidenceLocation      string     `gorm:"size:500" json:"evidenceLocation,omitempty"`
	LastReviewDate        *time.Time `json:"lastReviewDate,omitempty"`
	NextReviewDate        time.Time  `gorm:"not null" json:"nextReviewDate"`

	CreatedByID uint  `gorm:"not null" json:"createdById"`
	CreatedBy   *User `json:"createdBy,omitempty"`
}

// IsImplementedApplicable reports whether c counts towards compliance.
func (c Control) IsImplementedApplicable() bool {
	return c.Applicability == Applicable && c.ImplementationStatus == StatusImplemented
}
