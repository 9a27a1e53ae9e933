package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/models"
	"grc-isms/internal/scoring"
	"grc-isms/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func control(app models.Applicability, st models.ImplementationStatus, cat models.ControlCategory) models.Control {
	return models.Control{Applicability: app, ImplementationStatus: st, Category: cat}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 50, Percentage(3, 6))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	// 0.5 округляется вверх
	assert.Equal(t, 13, Percentage(1, 8))
	assert.Equal(t, 100, Percentage(4, 4))
}

func TestCompliancePercentage(t *testing.T) {
	var controls []models.Control
	for i := 0; i < 3; i++ {
		controls = append(controls, control(models.Applicable, models.StatusImplemented, models.CatAccess))
	}
	for i := 0; i < 3; i++ {
		controls = append(controls, control(models.Applicable, models.StatusPartiallyImplemented, models.CatAccess))
	}
	for i := 0; i < 4; i++ {
		// неприменимые не учитываются, даже если помечены Implemented
		controls = append(controls, control(models.NotApplicable, models.StatusImplemented, models.CatPhysical))
	}
	assert.Equal(t, 50, CompliancePercentage(controls))

	assert.Equal(t, 0, CompliancePercentage(nil))
	assert.Equal(t, 0, CompliancePercentage([]models.Control{control(models.NotApplicable, models.StatusNotApplicable, models.CatAssets)}))
}

func TestSummarize_Empty(t *testing.T) {
	r := Summarize(Snapshot{}, now)
	assert.Equal(t, Overview{}, r.Overview)
	assert.Empty(t, r.Charts.RisksByCategory)
	assert.Empty(t, r.Charts.ControlsByStatus)
}

func risk(level scoring.Level, st models.RiskStatus, cat models.RiskCategory, created time.Time) models.Risk {
	return models.Risk{Base: models.Base{CreatedAt: created}, RiskLevel: level, Status: st, Category: cat}
}

func TestSummarize_Overview(t *testing.T) {
	s := Snapshot{
		Risks: []models.Risk{
			risk(scoring.LevelCritical, models.RiskOpen, models.RiskTechnical, now),
			risk(scoring.LevelHigh, models.RiskInProgress, models.RiskTechnical, now),
			risk(scoring.LevelLow, models.RiskOpen, models.RiskFinancial, now),
			risk(scoring.LevelMedium, models.RiskClosed, models.RiskTechnical, now),
		},
		Controls: []models.Control{
			control(models.Applicable, models.StatusImplemented, models.CatAccess),
			control(models.Applicable, models.StatusNotImplemented, models.CatAccess),
			control(models.NotApplicable, models.StatusNotApplicable, models.CatCryptography),
		},
		Audits: []models.Audit{
			{Status: models.AuditPlanned, Findings: []models.Finding{{Status: models.FindingOpen}, {Status: models.FindingClosed}}},
			{Status: models.AuditCompleted, Findings: []models.Finding{{Status: models.FindingInProgress}, {Status: models.FindingVerified}, {Status: models.FindingOpen}}},
			{Status: models.AuditInProgress},
		},
		Policies: []models.Policy{
			{Status: models.PolicyPublished, NextReviewDate: now.Add(ReviewHorizon)},
			{Status: models.PolicyPublished, NextReviewDate: now.Add(ReviewHorizon + time.Hour)},
			{Status: models.PolicyDraft, NextReviewDate: now.Add(-time.Hour)},
		},
		Users: []models.User{{IsActive: true}, {IsActive: false}},
	}

	o := Summarize(s, now).Overview
	assert.Equal(t, Overview{
		TotalRisks:           4,
		HighRisks:            2,
		OpenRisks:            2,
		CompliancePercentage: 50,
		TotalAudits:          3,
		ActiveAudits:         2,
		TotalFindings:        5,
		OpenFindings:         3,
		TotalPolicies:        3,
		PublishedPolicies:    2,
		UpcomingReviews:      2,
		TotalUsers:           2,
		ActiveUsers:          1,
	}, o)
}

func TestSummarize_SparseGroups(t *testing.T) {
	s := Snapshot{Risks: []models.Risk{
		risk(scoring.LevelLow, models.RiskOpen, models.RiskTechnical, now),
		risk(scoring.LevelLow, models.RiskOpen, models.RiskTechnical, now),
		risk(scoring.LevelHigh, models.RiskOpen, models.RiskStrategic, now),
	}}

	charts := Summarize(s, now).Charts
	assert.Equal(t, []GroupCount{{Key: "Technical", Count: 2}, {Key: "Strategic", Count: 1}}, charts.RisksByCategory)
	assert.Equal(t, []GroupCount{{Key: "Low", Count: 2}, {Key: "High", Count: 1}}, charts.RisksByLevel)
	assert.Equal(t, []GroupCount{{Key: "Open", Count: 3}}, charts.RisksByStatus)
}

func TestRiskTrend_KeepsRecentMonths(t *testing.T) {
	var risks []models.Risk
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	for m := 0; m < 14; m++ {
		risks = append(risks, risk(scoring.LevelLow, models.RiskOpen, models.RiskTechnical, start.AddDate(0, m, 0)))
	}
	risks = append(risks, risk(scoring.LevelLow, models.RiskOpen, models.RiskTechnical, start.AddDate(0, 13, 0)))

	trend := RiskTrend(risks)
	require.Len(t, trend, 12)
	assert.Equal(t, MonthCount{Year: 2025, Month: 3, Count: 1}, trend[0])
	assert.Equal(t, MonthCount{Year: 2026, Month: 2, Count: 2}, trend[11])
}

func TestSummarizeSoA(t *testing.T) {
	s := SummarizeSoA([]models.Control{
		control(models.Applicable, models.StatusImplemented, models.CatAccess),
		control(models.Applicable, models.StatusPartiallyImplemented, models.CatAccess),
		control(models.Applicable, models.StatusNotImplemented, models.CatAssets),
		control(models.NotApplicable, models.StatusNotApplicable, models.CatAssets),
	})
	assert.Equal(t, 4, s.TotalControls)
	assert.Equal(t, 3, s.ApplicableControls)
	assert.Equal(t, 1, s.ImplementedControls)
	assert.Equal(t, 1, s.PartiallyImplemented)
	assert.Equal(t, 33, s.CompliancePercentage)
	assert.Len(t, s.ByCategory, 2)
}

func TestSummarizeRisks(t *testing.T) {
	s := SummarizeRisks([]models.Risk{
		{RiskScore: 20, RiskLevel: scoring.LevelCritical},
		{RiskScore: 5, RiskLevel: scoring.LevelLow},
		{RiskScore: 6, RiskLevel: scoring.LevelMedium},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Critical)
	assert.InDelta(t, 10.33, s.AverageScore, 0.001)

	assert.Zero(t, SummarizeRisks(nil).AverageScore)
}

func TestSummarizeAudits(t *testing.T) {
	s := SummarizeAudits([]models.Audit{
		{Type: models.AuditInternal, Status: models.AuditPlanned, Findings: []models.Finding{
			{Status: models.FindingOpen, Severity: models.SeverityHigh},
			{Status: models.FindingClosed, Severity: models.SeverityLow},
		}},
		{Type: models.AuditExternal, Status: models.AuditPlanned},
	})
	assert.Equal(t, 2, s.TotalAudits)
	assert.Equal(t, 2, s.TotalFindings)
	assert.Equal(t, 1, s.OpenFindings)
	assert.Equal(t, []GroupCount{{Key: "Planned", Count: 2}}, s.ByStatus)
}

func TestSummarizePolicies(t *testing.T) {
	s := SummarizePolicies([]models.Policy{
		{Status: models.PolicyPublished, Category: models.PolicyInfoSec, NextReviewDate: now.AddDate(0, 0, 10)},
		{Status: models.PolicyDraft, Category: models.PolicyInfoSec, NextReviewDate: now.AddDate(1, 0, 0)},
	}, now)
	assert.Equal(t, 2, s.TotalPolicies)
	assert.Equal(t, 1, s.PublishedPolicies)
	assert.Equal(t, 1, s.UpcomingReviews)
}

func TestSummarizeUsers(t *testing.T) {
	recent := now.Add(-48 * time.Hour)
	old := now.AddDate(0, -1, 0)
	s := SummarizeUsers([]models.User{
		{Role: models.RoleAdmin, IsActive: true, LastLogin: &recent},
		{Role: models.RoleUser, IsActive: true, LastLogin: &old},
		{Role: models.RoleUser, IsActive: false, FailedLoginAttempts: models.MaxFailedLogins},
	}, now)

	assert.Equal(t, 3, s.TotalUsers)
	assert.Equal(t, 2, s.ActiveUsers)
	assert.Equal(t, 1, s.LockedUsers)
	assert.Equal(t, 1, s.RecentLogins)
	assert.Equal(t, []GroupCount{{Key: "User", Count: 2}, {Key: "Admin", Count: 1}}, s.ByRole)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, st.Controls().Create(ctx, &models.Control{ControlID: "A.5.1.1", Applicability: models.Applicable, ImplementationStatus: models.StatusImplemented}))
	require.NoError(t, st.Risks().Create(ctx, &models.Risk{RiskID: "RISK-0001", Likelihood: 4, Impact: 4, Status: models.RiskOpen}))

	snap, err := Load(ctx, st)
	require.NoError(t, err)
	r := Summarize(snap, now)
	assert.Equal(t, 100, r.Overview.CompliancePercentage)
	assert.Equal(t, 1, r.Overview.HighRisks)
}

func TestLoad_FailsAsAWhole(t *testing.T) {
	st := memstore.New()
	st.SetFailure(errors.New("connection reset"))

	snap, err := Load(context.Background(), st)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Nil(t, snap.Risks)
	assert.Nil(t, snap.Controls)
}
