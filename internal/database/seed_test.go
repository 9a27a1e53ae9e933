package database

import (
	"context"
	"testing"
	"time"

	"grc-isms/internal/auth"
	"grc-isms/internal/ident"
	"grc-isms/internal/models"
	"grc-isms/internal/store"
	"grc-isms/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSeeder(t *testing.T) (*Seeder, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	s := NewSeeder(st, ident.NewAllocator(st, store.LatestFuncs(st)), zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, st
}

func TestLoadDemo(t *testing.T) {
	d, err := loadDemo()
	require.NoError(t, err)

	assert.NotEmpty(t, d.Users)
	assert.NotEmpty(t, d.Controls)
	assert.NotEmpty(t, d.Risks)
	assert.NotEmpty(t, d.Audit.Findings)

	for _, c := range d.Controls {
		assert.True(t, c.Category.Valid(), "control %s has category %q", c.ID, c.Category)
	}
	for _, r := range d.Risks {
		assert.True(t, r.Category.Valid(), r.Title)
		assert.True(t, r.Treatment.Valid(), r.Title)
		assert.True(t, r.Status.Valid(), r.Title)
	}
	for _, u := range d.Users {
		assert.True(t, u.Role.Valid(), u.Email)
	}
}

func TestSeeder_Admin(t *testing.T) {
	s, st := newSeeder(t)
	ctx := context.Background()

	admin, err := s.Admin(ctx, "Admin@GRC.local", "Admin123!")
	require.NoError(t, err)
	assert.Equal(t, "admin@grc.local", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "Admin123!"))

	// повторный запуск не создаёт второго админа
	again, err := s.Admin(ctx, "other@grc.local", "Other123!")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	n, err := st.Users().Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSeeder_DemoIsIdempotent(t *testing.T) {
	s, st := newSeeder(t)
	ctx := context.Background()

	admin, err := s.Admin(ctx, "admin@grc.local", "Admin123!")
	require.NoError(t, err)
	require.NoError(t, s.Demo(ctx, admin))

	d, err := loadDemo()
	require.NoError(t, err)

	counts := func() [4]int64 {
		var out [4]int64
		var err error
		out[0], err = st.Users().Count(ctx, nil)
		require.NoError(t, err)
		out[1], err = st.Controls().Count(ctx, nil)
		require.NoError(t, err)
		out[2], err = st.Risks().Count(ctx, nil)
		require.NoError(t, err)
		out[3], err = st.Audits().Count(ctx, nil)
		require.NoError(t, err)
		return out
	}

	first := counts()
	assert.Equal(t, [4]int64{int64(len(d.Users) + 1), int64(len(d.Controls)), int64(len(d.Risks)), 1}, first)

	require.NoError(t, s.Demo(ctx, admin))
	assert.Equal(t, first, counts())

	risks, err := st.Risks().All(ctx)
	require.NoError(t, err)
	for i, r := range risks {
		assert.Equal(t, ident.Format(ident.KindRisk, i+1), r.RiskID)
		assert.Equal(t, r.Likelihood*r.Impact, r.RiskScore)
	}

	audits, err := st.Audits().All(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "AUD-0001", audits[0].AuditID)
	require.Len(t, audits[0].Findings, len(d.Audit.Findings))
	assert.Equal(t, "AUD-0001-F01", audits[0].Findings[0].FindingID)

	auditor, err := st.Users().GetByEmail(ctx, "auditor@grc.local")
	require.NoError(t, err)
	assert.Equal(t, auditor.ID, audits[0].LeadAuditorID)
}
