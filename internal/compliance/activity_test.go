package compliance

import (
	"testing"
	"time"

	"grc-isms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentActivities(t *testing.T) {
	at := func(h int) models.Base {
		return models.Base{CreatedAt: now.Add(time.Duration(h) * time.Hour)}
	}

	var risks []models.Risk
	var audits []models.Audit
	var policies []models.Policy
	for i := 0; i < 5; i++ {
		risks = append(risks, models.Risk{Base: at(i * 3), RiskID: "R"})
		audits = append(audits, models.Audit{Base: at(i*3 + 1), AuditID: "A", Type: models.AuditInternal})
		policies = append(policies, models.Policy{Base: at(i*3 + 2), PolicyID: "P"})
	}

	got := RecentActivities(risks, audits, policies)
	require.Len(t, got, 10)
	assert.Equal(t, "Policy", got[0].Type)
	assert.Equal(t, now.Add(14*time.Hour), got[0].CreatedAt)
	assert.Nil(t, got[0].Level)
	assert.Equal(t, "Audit", got[1].Type)
	require.NotNil(t, got[1].Level)
	assert.Equal(t, "Internal", *got[1].Level)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
	}
}
