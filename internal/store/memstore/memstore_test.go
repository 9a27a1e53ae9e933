package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/ident"
	"grc-isms/internal/models"
	"grc-isms/internal/scoring"
	"grc-isms/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newStore() *Store {
	s := New()
	now := t0
	s.SetNow(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	return s
}

func TestRisks_CreateAppliesGuard(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	r := &models.Risk{RiskID: "RISK-0001", Likelihood: 3, Impact: 5, RiskScore: 1, RiskLevel: scoring.LevelLow}
	require.NoError(t, s.Risks().Create(ctx, r))

	got, err := s.Risks().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.RiskScore)
	assert.Equal(t, scoring.LevelHigh, got.RiskLevel)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	got.Likelihood = 5
	require.NoError(t, s.Risks().Update(ctx, got))
	again, err := s.Risks().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, again.RiskScore)
	assert.Equal(t, scoring.LevelCritical, again.RiskLevel)
	assert.True(t, again.UpdatedAt.After(again.CreatedAt))
}

func TestRisks_UniqueBusinessID(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	require.NoError(t, s.Risks().Create(ctx, &models.Risk{RiskID: "RISK-0001", Likelihood: 1, Impact: 1}))
	err := s.Risks().Create(ctx, &models.Risk{RiskID: "RISK-0001", Likelihood: 1, Impact: 1})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	n, err := s.Risks().Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestList_FilterSortPage(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	for i, l := range []int{1, 5, 3, 4, 2} {
		r := &models.Risk{RiskID: ident.Format(ident.KindRisk, i+1), Likelihood: l, Impact: 4, Status: models.RiskOpen}
		if l == 2 {
			r.Status = models.RiskClosed
		}
		require.NoError(t, s.Risks().Create(ctx, r))
	}

	items, total, err := s.Risks().List(ctx, store.ListQuery{
		Filters: map[string]any{"status": models.RiskOpen},
		SortBy:  "risk_score",
		Page:    1,
		Limit:   3,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 3)
	assert.Equal(t, []int{4, 12, 16}, []int{items[0].RiskScore, items[1].RiskScore, items[2].RiskScore})

	items, _, err = s.Risks().List(ctx, store.ListQuery{Filters: map[string]any{"status": models.RiskOpen}, SortBy: "risk_score", Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].RiskScore)

	// по умолчанию сначала новые
	items, _, err = s.Risks().List(ctx, store.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "RISK-0005", items[0].RiskID)

	_, _, err = s.Risks().List(ctx, store.ListQuery{Filters: map[string]any{"nope": 1}})
	assert.Error(t, err)
}

func TestLatest(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	_, err := s.Policies().Latest(ctx)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.Policies().Create(ctx, &models.Policy{PolicyID: "POL-0001"}))
	require.NoError(t, s.Policies().Create(ctx, &models.Policy{PolicyID: "POL-0002"}))
	p, err := s.Policies().Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "POL-0002", p.PolicyID)
}

func TestDelete_NotFound(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.Controls().Delete(ctx, 42), apperr.ErrNotFound)
	assert.ErrorIs(t, s.Controls().Update(ctx, &models.Control{Base: models.Base{ID: 42}}), apperr.ErrNotFound)
}

func TestUsers_GetByEmailCaseInsensitive(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, &models.User{Email: "Ann@Example.com", IsActive: true}))
	u, err := s.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann@Example.com", u.Email)

	err = s.Users().Create(ctx, &models.User{Email: "ANN@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUsers_ColumnScopedWrites(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	u := &models.User{FirstName: "Ann", LastName: "Lee", Email: "ann@grc.local", PasswordHash: "hash", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, s.Users().Create(ctx, u))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Users().IncrementFailedLogins(ctx, u.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Users().SetRole(ctx, u.ID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 10, got.FailedLoginAttempts)

	require.NoError(t, s.Users().Touch(ctx, u.ID, t0, "10.0.0.7"))
	got, err = s.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, "10.0.0.7", got.LastIP)
	require.NotNil(t, got.LastActivity)
	assert.True(t, t0.Equal(*got.LastActivity))

	got, err = s.Users().UpdateProfile(ctx, u.ID, models.Profile{FirstName: "Anna", LastName: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, models.RoleUser, got.Role)

	got, err = s.Users().ResetFailedLogins(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)

	got, err = s.Users().RecordLogin(ctx, u.ID, t0, "10.0.0.8")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, "10.0.0.8", got.LastIP)

	_, err = s.Users().SetActive(ctx, 999, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Users().IncrementFailedLogins(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAudits_FindingNumbering(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	a := &models.Audit{AuditID: "AUD-0003"}
	require.NoError(t, s.Audits().Create(ctx, a))

	f1 := &models.Finding{Title: "first", Status: models.FindingOpen}
	f2 := &models.Finding{Title: "second", Status: models.FindingOpen}
	require.NoError(t, s.Audits().AddFinding(ctx, a.ID, f1))
	require.NoError(t, s.Audits().AddFinding(ctx, a.ID, f2))
	assert.Equal(t, "AUD-0003-F01", f1.FindingID)
	assert.Equal(t, "AUD-0003-F02", f2.FindingID)

	require.NoError(t, s.Audits().DeleteFinding(ctx, a.ID, f1.ID))
	f3 := &models.Finding{Title: "third", Status: models.FindingOpen}
	require.NoError(t, s.Audits().AddFinding(ctx, a.ID, f3))
	assert.Equal(t, "AUD-0003-F03", f3.FindingID, "deleted numbers are not reused")

	f2.Status = models.FindingClosed
	f2.FindingID = "AUD-0003-F99"
	require.NoError(t, s.Audits().UpdateFinding(ctx, f2))
	got, err := s.Audits().GetFinding(ctx, a.ID, f2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FindingClosed, got.Status)
	assert.Equal(t, "AUD-0003-F02", got.FindingID)

	loaded, err := s.Audits().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Findings, 2)

	assert.ErrorIs(t, s.Audits().AddFinding(ctx, 999, &models.Finding{}), apperr.ErrNotFound)
}

func TestAudits_ReturnedCopiesAreIsolated(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	a := &models.Audit{AuditID: "AUD-0001"}
	require.NoError(t, s.Audits().Create(ctx, a))
	require.NoError(t, s.Audits().AddFinding(ctx, a.ID, &models.Finding{Title: "x"}))

	got, err := s.Audits().Get(ctx, a.ID)
	require.NoError(t, err)
	got.Findings[0].Title = "mutated"

	again, err := s.Audits().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", again.Findings[0].Title)
}

func TestNotifications_MarkAllRead(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	for _, rcpt := range []uint{1, 1, 2} {
		require.NoError(t, s.Notifications().Create(ctx, &models.Notification{RecipientID: rcpt}))
	}
	n, err := s.Notifications().MarkAllRead(ctx, 1, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err := s.Notifications().Count(ctx, map[string]any{"is_read": false})
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestNextSequence_SeedsFromFloor(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	calls := 0
	floor := func(context.Context) (int, error) {
		calls++
		return 41, nil
	}
	n, err := s.NextSequence(ctx, "AUD", floor)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	n, err = s.NextSequence(ctx, "AUD", floor)
	require.NoError(t, err)
	assert.Equal(t, 43, n)
	assert.Equal(t, 1, calls)
}

func TestAllocatorOverStore(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	require.NoError(t, s.Risks().Create(ctx, &models.Risk{RiskID: "RISK-0007", Likelihood: 1, Impact: 1}))

	alloc := ident.NewAllocator(s, store.LatestFuncs(s))
	id, err := alloc.Next(ctx, ident.KindRisk)
	require.NoError(t, err)
	assert.Equal(t, "RISK-0008", id)

	id, err = alloc.Next(ctx, ident.KindPolicy)
	require.NoError(t, err)
	assert.Equal(t, "POL-0001", id)
}

func TestFailure_IsUnavailable(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	s.SetFailure(errors.New("dial tcp: connection refused"))

	_, err := s.Risks().All(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), apperr.ErrUnavailable)

	s.SetFailure(nil)
	assert.NoError(t, s.Ping(ctx))
}
