// Package alerts selects the records that need attention: critical and
// overdue risks, audits about to start, policies due for review and
// unresolved findings.
package alerts

import (
	"time"

	"grc-isms/internal/compliance"
	"grc-isms/internal/models"
	"grc-isms/internal/scoring"
)

const (
	AuditHorizon        = 7 * 24 * time.Hour
	PolicyReviewHorizon = compliance.ReviewHorizon
)

type RiskAlert struct {
	ID         uint              `json:"id"`
	RiskID     string            `json:"riskId"`
	Title      string            `json:"title"`
	RiskLevel  scoring.Level     `json:"riskLevel"`
	Status     models.RiskStatus `json:"status"`
	Owner      *models.UserRef   `json:"owner,omitempty"`
	ReviewDate time.Time         `json:"reviewDate"`
}

type AuditAlert struct {
	ID               uint            `json:"id"`
	AuditID          string          `json:"auditId"`
	Title            string          `json:"title"`
	PlannedStartDate time.Time       `json:"plannedStartDate"`
	LeadAuditor      *models.UserRef `json:"leadAuditor,omitempty"`
}

type PolicyAlert struct {
	ID             uint            `json:"id"`
	PolicyID       string          `json:"policyId"`
	Title          string          `json:"title"`
	NextReviewDate time.Time       `json:"nextReviewDate"`
	Owner          *models.UserRef `json:"owner,omitempty"`
}

type FindingAlert struct {
	AuditRef    uint                   `json:"auditRef"`
	AuditID     string                 `json:"auditId"`
	FindingID   string                 `json:"findingId"`
	Title       string                 `json:"title"`
	Severity    models.FindingSeverity `json:"severity"`
	Status      models.FindingStatus   `json:"status"`
	TargetDate  *time.Time             `json:"targetDate,omitempty"`
	ActionOwner *models.UserRef        `json:"actionOwner,omitempty"`
}

type Alerts struct {
	CriticalRisks  []RiskAlert    `json:"criticalRisks"`
	OverdueRisks   []RiskAlert    `json:"overdueRisks"`
	UpcomingAudits []AuditAlert   `json:"upcomingAudits"`
	PolicyReviews  []PolicyAlert  `json:"policyReviews"`
	OpenFindings   []FindingAlert `json:"openFindings"`
}

// Evaluate runs every selection over the snapshot. Each list keeps the input
// order. User references are resolved from s.Users; unknown ids are left nil.
func Evaluate(s compliance.Snapshot, now time.Time) Alerts {
	users := indexUsers(s.Users)

	out := Alerts{
		CriticalRisks:  []RiskAlert{},
		OverdueRisks:   []RiskAlert{},
		UpcomingAudits: []AuditAlert{},
		PolicyReviews:  []PolicyAlert{},
		OpenFindings:   []FindingAlert{},
	}

	for _, r := range s.Risks {
		if r.Status == models.RiskClosed {
			continue
		}
		if r.RiskLevel == scoring.LevelCritical {
			out.CriticalRisks = append(out.CriticalRisks, riskAlert(r, users))
		}
		if r.ReviewDate.Before(now) {
			out.OverdueRisks = append(out.OverdueRisks, riskAlert(r, users))
		}
	}

	auditLimit := now.Add(AuditHorizon)
	for _, a := range s.Audits {
		if a.Status == models.AuditPlanned && !a.PlannedStartDate.Before(now) && !a.PlannedStartDate.After(auditLimit) {
			out.UpcomingAudits = append(out.UpcomingAudits, AuditAlert{
				ID:               a.ID,
				AuditID:          a.AuditID,
				Title:            a.Title,
				PlannedStartDate: a.PlannedStartDate,
				LeadAuditor:      users.ref(a.LeadAuditorID),
			})
		}
		for _, f := range a.Findings {
			if !f.Status.Unresolved() {
				continue
			}
			fa := FindingAlert{
				AuditRef:   a.ID,
				AuditID:    a.AuditID,
				FindingID:  f.FindingID,
				Title:      f.Title,
				Severity:   f.Severity,
				Status:     f.Status,
				TargetDate: f.TargetDate,
			}
			if f.ActionOwnerID != nil {
				fa.ActionOwner = users.ref(*f.ActionOwnerID)
			}
			out.OpenFindings = append(out.OpenFindings, fa)
		}
	}

	policyLimit := now.Add(PolicyReviewHorizon)
	for _, p := range s.Policies {
		if p.Status == models.PolicyPublished && !p.NextReviewDate.After(policyLimit) {
			out.PolicyReviews = append(out.PolicyReviews, PolicyAlert{
				ID:             p.ID,
				PolicyID:       p.PolicyID,
				Title:          p.Title,
				NextReviewDate: p.NextReviewDate,
				Owner:          users.ref(p.OwnerID),
			})
		}
	}

	return out
}

func riskAlert(r models.Risk, users userIndex) RiskAlert {
	return RiskAlert{
		ID:         r.ID,
		RiskID:     r.RiskID,
		Title:      r.Title,
		RiskLevel:  r.RiskLevel,
		Status:     r.Status,
		Owner:      users.ref(r.OwnerID),
		ReviewDate: r.ReviewDate,
	}
}

type userIndex map[uint]*models.User

func indexUsers(users []models.User) userIndex {
	idx := make(userIndex, len(users))
	for i := range users {
		idx[users[i].ID] = &users[i]
	}
	return idx
}

func (idx userIndex) ref(id uint) *models.UserRef {
	return idx[id].Ref()
}
