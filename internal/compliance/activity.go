package compliance

import (
	"context"
	"sort"
	"time"

	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"golang.org/x/sync/errgroup"
)

const (
	recentPerKind = 5
	recentTotal   = 10
)

// Activity is one entry of the "recently created" feed.
type Activity struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Level     *string         `json:"level"`
	CreatedAt time.Time       `json:"createdAt"`
	CreatedBy *models.UserRef `json:"createdBy,omitempty"`
}

// RecentActivities merges the newest risks, audits and policies and keeps the
// newest recentTotal entries overall.
func RecentActivities(risks []models.Risk, audits []models.Audit, policies []models.Policy) []Activity {
	out := make([]Activity, 0, len(risks)+len(audits)+len(policies))
	for _, r := range risks {
		level := string(r.RiskLevel)
		out = append(out, Activity{Type: "Risk", ID: r.RiskID, Title: r.Title, Status: string(r.Status),
			Level: &level, CreatedAt: r.CreatedAt, CreatedBy: r.CreatedBy.Ref()})
	}
	for _, a := range audits {
		kind := string(a.Type)
		out = append(out, Activity{Type: "Audit", ID: a.AuditID, Title: a.Title, Status: string(a.Status),
			Level: &kind, CreatedAt: a.CreatedAt, CreatedBy: a.CreatedBy.Ref()})
	}
	for _, p := range policies {
		out = append(out, Activity{Type: "Policy", ID: p.PolicyID, Title: p.Title, Status: string(p.Status),
			CreatedAt: p.CreatedAt, CreatedBy: p.CreatedBy.Ref()})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > recentTotal {
		out = out[:recentTotal]
	}
	return out
}

// LoadRecentActivities fetches the newest records of each kind concurrently.
func LoadRecentActivities(ctx context.Context, st store.Store) ([]Activity, error) {
	q := store.ListQuery{Page: 1, Limit: recentPerKind}
	var (
		risks    []models.Risk
		audits   []models.Audit
		policies []models.Policy
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		risks, _, err = st.Risks().List(gCtx, q)
		return err
	})
	g.Go(func() (err error) {
		audits, _, err = st.Audits().List(gCtx, q)
		return err
	})
	g.Go(func() (err error) {
		policies, _, err = st.Policies().List(gCtx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return RecentActivities(risks, audits, policies), nil
}
