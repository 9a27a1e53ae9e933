// Package compliance aggregates controls, risks, audits and policies into the
// dashboard overview and the per-collection summaries.
//
// Everything here is a pure function over already loaded collections. Load
// fetches those collections with independent concurrent queries.
package compliance

import (
	"math"
	"sort"
	"time"

	"grc-isms/internal/models"
	"grc-isms/internal/scoring"
)

// ReviewHorizon is how far ahead a policy review counts as upcoming.
const ReviewHorizon = 30 * 24 * time.Hour

// trendMonths is how many most recent months the risk trend keeps.
const trendMonths = 12

// GroupCount is one row of a sparse grouped count.
type GroupCount struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

type MonthCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

type Overview struct {
	TotalRisks           int `json:"totalRisks"`
	HighRisks            int `json:"highRisks"`
	OpenRisks            int `json:"openRisks"`
	CompliancePercentage int `json:"compliancePercentage"`
	TotalAudits          int `json:"totalAudits"`
	ActiveAudits         int `json:"activeAudits"`
	TotalFindings        int `json:"totalFindings"`
	OpenFindings         int `json:"openFindings"`
	TotalPolicies        int `json:"totalPolicies"`
	PublishedPolicies    int `json:"publishedPolicies"`
	UpcomingReviews      int `json:"upcomingReviews"`
	TotalUsers           int `json:"totalUsers"`
	ActiveUsers          int `json:"activeUsers"`
}

type Charts struct {
	RiskTrend          []MonthCount `json:"riskTrend"`
	RisksByCategory    []GroupCount `json:"risksByCategory"`
	RisksByLevel       []GroupCount `json:"risksByLevel"`
	RisksByStatus      []GroupCount `json:"risksByStatus"`
	ControlsByCategory []GroupCount `json:"controlsByCategory"`
	ControlsByStatus   []GroupCount `json:"controlsByStatus"`
}

type Report struct {
	Overview Overview `json:"overview"`
	Charts   Charts   `json:"charts"`
}

// Snapshot is the set of collections a report is computed from.
type Snapshot struct {
	Controls []models.Control
	Risks    []models.Risk
	Audits   []models.Audit
	Policies []models.Policy
	Users    []models.User
}

// Percentage returns round-half-up(100*part/whole), or 0 when whole is 0.
func Percentage(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Floor(float64(part)*100/float64(whole) + 0.5))
}

// CompliancePercentage is the share of applicable controls that are implemented.
func CompliancePercentage(controls []models.Control) int {
	applicable, implemented := 0, 0
	for _, c := range controls {
		if c.Applicability != models.Applicable {
			continue
		}
		applicable++
		if c.ImplementationStatus == models.StatusImplemented {
			implemented++
		}
	}
	return Percentage(implemented, applicable)
}

// Summarize builds the dashboard report. It never fails: an empty snapshot
// yields zero counters and empty groups.
func Summarize(s Snapshot, now time.Time) Report {
	var o Overview

	o.TotalRisks = len(s.Risks)
	for _, r := range s.Risks {
		if r.RiskLevel.IsHighOrAbove() {
			o.HighRisks++
		}
		if r.Status == models.RiskOpen {
			o.OpenRisks++
		}
	}

	o.CompliancePercentage = CompliancePercentage(s.Controls)

	o.TotalAudits = len(s.Audits)
	for _, a := range s.Audits {
		if a.Status.Active() {
			o.ActiveAudits++
		}
		for _, f := range a.Findings {
			o.TotalFindings++
			if f.Status.Unresolved() {
				o.OpenFindings++
			}
		}
	}

	o.TotalPolicies = len(s.Policies)
	o.UpcomingReviews = UpcomingReviews(s.Policies, now)
	for _, p := range s.Policies {
		if p.Status == models.PolicyPublished {
			o.PublishedPolicies++
		}
	}

	o.TotalUsers = len(s.Users)
	for _, u := range s.Users {
		if u.IsActive {
			o.ActiveUsers++
		}
	}

	return Report{
		Overview: o,
		Charts: Charts{
			RiskTrend:          RiskTrend(s.Risks),
			RisksByCategory:    groupBy(s.Risks, func(r models.Risk) string { return string(r.Category) }),
			RisksByLevel:       groupBy(s.Risks, func(r models.Risk) string { return string(r.RiskLevel) }),
			RisksByStatus:      groupBy(s.Risks, func(r models.Risk) string { return string(r.Status) }),
			ControlsByCategory: groupBy(s.Controls, func(c models.Control) string { return string(c.Category) }),
			ControlsByStatus:   groupBy(s.Controls, func(c models.Control) string { return string(c.ImplementationStatus) }),
		},
	}
}

// UpcomingReviews counts policies whose next review falls on or before now+ReviewHorizon.
func UpcomingReviews(policies []models.Policy, now time.Time) int {
	limit := now.Add(ReviewHorizon)
	n := 0
	for _, p := range policies {
		if !p.NextReviewDate.After(limit) {
			n++
		}
	}
	return n
}

// RiskTrend counts risks per creation month, oldest first, keeping the most
// recent trendMonths months that have data.
func RiskTrend(risks []models.Risk) []MonthCount {
	type ym struct{ y, m int }
	counts := map[ym]int{}
	for _, r := range risks {
		c := r.CreatedAt.UTC()
		counts[ym{c.Year(), int(c.Month())}]++
	}

	out := make([]MonthCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, MonthCount{Year: k.y, Month: k.m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	if len(out) > trendMonths {
		out = out[len(out)-trendMonths:]
	}
	return out
}

// groupBy returns one row per distinct key present in items. Rows are sorted
// by count descending, then key, so responses are stable.
func groupBy[T any](items []T, key func(T) string) []GroupCount {
	counts := map[string]int{}
	for _, it := range items {
		counts[key(it)]++
	}
	out := make([]GroupCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GroupCount{Key: k, Count: n})
	}
	sortGroups(out)
	return out
}

func sortGroups(g []GroupCount) {
	sort.Slice(g, func(i, j int) bool {
		if g[i].Count != g[j].Count {
			return g[i].Count > g[j].Count
		}
		return g[i].Key < g[j].Key
	})
}

type RiskSummary struct {
	Total        int          `json:"total"`
	ByLevel      []GroupCount `json:"risksByLevel"`
	ByStatus     []GroupCount `json:"risksByStatus"`
	ByCategory   []GroupCount `json:"risksByCategory"`
	AverageScore float64      `json:"averageScore"`
	Critical     int          `json:"critical"`
}

func SummarizeRisks(risks []models.Risk) RiskSummary {
	s := RiskSummary{
		Total:      len(risks),
		ByLevel:    groupBy(risks, func(r models.Risk) string { return string(r.RiskLevel) }),
		ByStatus:   groupBy(risks, func(r models.Risk) string { return string(r.Status) }),
		ByCategory: groupBy(risks, func(r models.Risk) string { return string(r.Category) }),
	}
	sum := 0
	for _, r := range risks {
		sum += r.RiskScore
		if r.RiskLevel == scoring.LevelCritical {
			s.Critical++
		}
	}
	if len(risks) > 0 {
		s.AverageScore = math.Round(float64(sum)/float64(len(risks))*100) / 100
	}
	return s
}

type SoASummary struct {
	TotalControls        int          `json:"totalControls"`
	ApplicableControls   int          `json:"applicableControls"`
	ImplementedControls  int          `json:"implementedControls"`
	PartiallyImplemented int          `json:"partiallyImplemented"`
	CompliancePercentage int          `json:"compliancePercentage"`
	ByCategory           []GroupCount `json:"controlsByCategory"`
	ByStatus             []GroupCount `json:"controlsByStatus"`
}

func SummarizeSoA(controls []models.Control) SoASummary {
	s := SoASummary{
		TotalControls:        len(controls),
		CompliancePercentage: CompliancePercentage(controls),
		ByCategory:           groupBy(controls, func(c models.Control) string { return string(c.Category) }),
		ByStatus:             groupBy(controls, func(c models.Control) string { return string(c.ImplementationStatus) }),
	}
	for _, c := range controls {
		if c.Applicability != models.Applicable {
			continue
		}
		s.ApplicableControls++
		switch c.ImplementationStatus {
		case models.StatusImplemented:
			s.ImplementedControls++
		case models.StatusPartiallyImplemented:
			s.PartiallyImplemented++
		}
	}
	return s
}

type AuditSummary struct {
	TotalAudits   int          `json:"totalAudits"`
	ByStatus      []GroupCount `json:"auditsByStatus"`
	ByType        []GroupCount `json:"auditsByType"`
	FindingsStats []GroupCount `json:"findingsStats"`
	TotalFindings int          `json:"totalFindings"`
	OpenFindings  int          `json:"openFindings"`
	BySeverity    []GroupCount `json:"findingsBySeverity"`
}

func SummarizeAudits(audits []models.Audit) AuditSummary {
	var findings []models.Finding
	for _, a := range audits {
		findings = append(findings, a.Findings...)
	}

	s := AuditSummary{
		TotalAudits:   len(audits),
		ByStatus:      groupBy(audits, func(a models.Audit) string { return string(a.Status) }),
		ByType:        groupBy(audits, func(a models.Audit) string { return string(a.Type) }),
		FindingsStats: groupBy(findings, func(f models.Finding) string { return string(f.Status) }),
		TotalFindings: len(findings),
		BySeverity:    groupBy(findings, func(f models.Finding) string { return string(f.Severity) }),
	}
	for _, f := range findings {
		if f.Status.Unresolved() {
			s.OpenFindings++
		}
	}
	return s
}

type PolicySummary struct {
	TotalPolicies     int          `json:"totalPolicies"`
	PublishedPolicies int          `json:"publishedPolicies"`
	ByStatus          []GroupCount `json:"policiesByStatus"`
	ByCategory        []GroupCount `json:"policiesByCategory"`
	UpcomingReviews   int          `json:"upcomingReviews"`
}

func SummarizePolicies(policies []models.Policy, now time.Time) PolicySummary {
	s := PolicySummary{
		TotalPolicies:   len(policies),
		ByStatus:        groupBy(policies, func(p models.Policy) string { return string(p.Status) }),
		ByCategory:      groupBy(policies, func(p models.Policy) string { return string(p.Category) }),
		UpcomingReviews: UpcomingReviews(policies, now),
	}
	for _, p := range policies {
		if p.Status == models.PolicyPublished {
			s.PublishedPolicies++
		}
	}
	return s
}

// recentLoginWindow bounds the "recent logins" counter.
const recentLoginWindow = 7 * 24 * time.Hour

type UserSummary struct {
	TotalUsers   int          `json:"totalUsers"`
	ActiveUsers  int          `json:"activeUsers"`
	LockedUsers  int          `json:"lockedUsers"`
	RecentLogins int          `json:"recentLogins"`
	ByRole       []GroupCount `json:"usersByRole"`
}

func SummarizeUsers(users []models.User, now time.Time) UserSummary {
	s := UserSummary{
		TotalUsers: len(users),
		ByRole:     groupBy(users, func(u models.User) string { return string(u.Role) }),
	}
	since := now.Add(-recentLoginWindow)
	for _, u := range users {
		if u.IsActive {
			s.ActiveUsers++
		}
		if u.Locked() {
			s.LockedUsers++
		}
		if u.LastLogin != nil && !u.LastLogin.Before(since) {
			s.RecentLogins++
		}
	}
	return s
}
