package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: `"2026-03-01"`, want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: `"2026-03-01T10:30:00+02:00"`, want: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{in: `null`},
		{in: `""`},
		{in: `"01/03/2026"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d.Time), "got %v", d.Time)
		})
	}
}

func TestTimePtr(t *testing.T) {
	assert.Nil(t, timePtr(nil))
	assert.Nil(t, timePtr(&Date{}))
	now := time.Now()
	require.NotNil(t, timePtr(&Date{now}))
}

func parseQuery(t *testing.T, spec listSpec, rawQuery string) (store.ListQuery, error) {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return spec.parse(c)
}

func TestListSpec_Parse(t *testing.T) {
	q, err := parseQuery(t, riskList, "")
	require.NoError(t, err)
	assert.Equal(t, "created_at", q.SortBy)
	assert.True(t, q.SortDesc)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)
	assert.Empty(t, q.Filters)

	q, err = parseQuery(t, riskList, "status=Open&ownerId=7&sortBy=riskScore&sortOrder=asc&page=2&limit=500")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "Open", "owner_id": uint(7)}, q.Filters)
	assert.Equal(t, "risk_score", q.SortBy)
	assert.False(t, q.SortDesc)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 100, q.Limit)

	q, err = parseQuery(t, controlList, "")
	require.NoError(t, err)
	assert.Equal(t, "control_id", q.SortBy)
	assert.False(t, q.SortDesc)
	assert.Equal(t, 20, q.Limit)

	q, err = parseQuery(t, userList, "isActive=false")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"is_active": false}, q.Filters)
}

func TestListSpec_ParseErrors(t *testing.T) {
	for _, raw := range []string{
		"sortBy=password_hash",
		"page=two",
		"ownerId=abc",
		"limit=1e3",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := parseQuery(t, riskList, raw)
			var ve *apperr.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	_, err := parseQuery(t, securityLogList, "startDate=yesterday")
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestErrorRate(t *testing.T) {
	logs := []models.AuditLog{
		{Details: map[string]any{"statusCode": 200}},
		{Details: map[string]any{"statusCode": float64(500)}},
		{Details: map[string]any{"statusCode": float64(201)}},
		{Details: map[string]any{"statusCode": 404}},
		{Details: map[string]any{"event": "AUTH_FAILED"}},
	}
	n, rate := errorRate(logs)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.5, rate, 1e-9)

	n, rate = errorRate(nil)
	assert.Zero(t, n)
	assert.Zero(t, rate)
}
