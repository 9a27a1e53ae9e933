package alerts

import (
	"context"
	"sort"
	"time"

	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"golang.org/x/sync/errgroup"
)

const (
	securityWindow = 24 * time.Hour
	activityWindow = 7 * 24 * time.Hour
	topN           = 10
)

type EventCount struct {
	Resource       string    `json:"_id"`
	Count          int       `json:"count"`
	LastOccurrence time.Time `json:"lastOccurrence"`
}

type IPCount struct {
	IPAddress   string    `json:"_id"`
	Count       int       `json:"count"`
	LastAttempt time.Time `json:"lastAttempt"`
}

type UserActivity struct {
	UserID        uint      `json:"_id"`
	UserName      string    `json:"userName"`
	Email         string    `json:"email"`
	ActivityCount int       `json:"activityCount"`
	LastActivity  time.Time `json:"lastActivity"`
}

type SecurityDashboard struct {
	SecurityEvents []EventCount     `json:"securityEvents"`
	FailedLogins   []IPCount        `json:"failedLogins"`
	ActiveUsers    int              `json:"activeUsers"`
	LockedAccounts int              `json:"lockedAccounts"`
	UserActivities []UserActivity   `json:"userActivities"`
	Locked         []models.UserRef `json:"locked"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

// Security summarises the audit log of the last week. logs must cover at
// least the last 7 days; older entries are ignored.
func Security(logs []models.AuditLog, users []models.User, now time.Time) SecurityDashboard {
	dayAgo := now.Add(-securityWindow)
	weekAgo := now.Add(-activityWindow)
	idx := indexUsers(users)

	events := map[string]*EventCount{}
	failed := map[string]*IPCount{}
	activity := map[uint]*UserActivity{}

	for _, l := range logs {
		if l.CreatedAt.Before(weekAgo) {
			continue
		}
		if l.UserID != nil {
			if u, ok := idx[*l.UserID]; ok {
				a := activity[u.ID]
				if a == nil {
					a = &UserActivity{UserID: u.ID, UserName: u.FullName(), Email: u.Email}
					activity[u.ID] = a
				}
				a.ActivityCount++
				if l.CreatedAt.After(a.LastActivity) {
					a.LastActivity = l.CreatedAt
				}
			}
		}

		if l.CreatedAt.Before(dayAgo) {
			continue
		}
		if l.Action == models.ActionSecurityEvent {
			e := events[l.Resource]
			if e == nil {
				e = &EventCount{Resource: l.Resource}
				events[l.Resource] = e
			}
			e.Count++
			if l.CreatedAt.After(e.LastOccurrence) {
				e.LastOccurrence = l.CreatedAt
			}
		}
		if l.Resource == models.EventAuthFailed {
			f := failed[l.IPAddress]
			if f == nil {
				f = &IPCount{IPAddress: l.IPAddress}
				failed[l.IPAddress] = f
			}
			f.Count++
			if l.CreatedAt.After(f.LastAttempt) {
				f.LastAttempt = l.CreatedAt
			}
		}
	}

	out := SecurityDashboard{
		SecurityEvents: make([]EventCount, 0, len(events)),
		FailedLogins:   make([]IPCount, 0, len(failed)),
		UserActivities: make([]UserActivity, 0, len(activity)),
		Locked:         []models.UserRef{},
		GeneratedAt:    now,
	}

	for _, e := range events {
		out.SecurityEvents = append(out.SecurityEvents, *e)
	}
	sort.Slice(out.SecurityEvents, func(i, j int) bool {
		a, b := out.SecurityEvents[i], out.SecurityEvents[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Resource < b.Resource
	})

	for _, f := range failed {
		out.FailedLogins = append(out.FailedLogins, *f)
	}
	sort.Slice(out.FailedLogins, func(i, j int) bool {
		a, b := out.FailedLogins[i], out.FailedLogins[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.IPAddress < b.IPAddress
	})
	out.FailedLogins = capN(out.FailedLogins)

	for _, a := range activity {
		out.UserActivities = append(out.UserActivities, *a)
	}
	sort.Slice(out.UserActivities, func(i, j int) bool {
		a, b := out.UserActivities[i], out.UserActivities[j]
		if a.ActivityCount != b.ActivityCount {
			return a.ActivityCount > b.ActivityCount
		}
		return a.UserID < b.UserID
	})
	out.UserActivities = capN(out.UserActivities)

	for _, u := range users {
		if u.LastActivity != nil && !u.LastActivity.Before(dayAgo) {
			out.ActiveUsers++
		}
		if u.Locked() {
			out.LockedAccounts++
			out.Locked = append(out.Locked, *u.Ref())
		}
	}
	return out
}

func capN[T any](s []T) []T {
	if len(s) > topN {
		return s[:topN]
	}
	return s
}

// LoadSecurity reads the last week of audit log and all users concurrently
// and builds the dashboard.
func LoadSecurity(ctx context.Context, st store.Store, now time.Time) (SecurityDashboard, error) {
	var (
		logs  []models.AuditLog
		users []models.User
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		logs, err = st.AuditLogs().Since(gCtx, now.Add(-activityWindow))
		return err
	})
	g.Go(func() (err error) {
		users, err = st.Users().All(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return SecurityDashboard{}, err
	}
	return Security(logs, users, now), nil
}
