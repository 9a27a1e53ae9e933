package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScore(t *testing.T) {
	cases := []struct {
		name       string
		likelihood int
		impact     int
		score      int
		level      Level
	}{
		{"minimum", 1, 1, 1, LevelLow},
		{"low upper bound", 5, 1, 5, LevelLow},
		{"medium lower bound", 2, 3, 6, LevelMedium},
		{"medium upper bound", 5, 2, 10, LevelMedium},
		{"high", 3, 4, 12, LevelHigh},
		{"high upper bound", 5, 3, 15, LevelHigh},
		{"critical lower bound", 4, 4, 16, LevelCritical},
		{"maximum", 5, 5, 25, LevelCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, level := ComputeScore(tc.likelihood, tc.impact)
			assert.Equal(t, tc.score, score)
			assert.Equal(t, tc.level, level)
		})
	}
}

func TestComputeScore_FullGrid(t *testing.T) {
	for l := MinRating; l <= MaxRating; l++ {
		for i := MinRating; i <= MaxRating; i++ {
			score, level := ComputeScore(l, i)
			again, levelAgain := ComputeScore(l, i)

			assert.Equal(t, l*i, score)
			assert.Equal(t, score, again)
			assert.Equal(t, level, levelAgain)
			assert.True(t, level.Valid(), "level %q for %dx%d", level, l, i)
			assert.Equal(t, LevelFor(score), level)
		}
	}
}

func TestComputeResidualScore(t *testing.T) {
	two, three := 2, 3

	t.Run("both present", func(t *testing.T) {
		r := ComputeResidualScore(&two, &three)
		require.NotNil(t, r)
		assert.Equal(t, 6, r.Score)
		assert.Equal(t, LevelMedium, r.Level)
	})

	t.Run("likelihood missing", func(t *testing.T) {
		assert.Nil(t, ComputeResidualScore(nil, &three))
	})

	t.Run("impact missing", func(t *testing.T) {
		assert.Nil(t, ComputeResidualScore(&two, nil))
	})
}

func TestValidRating(t *testing.T) {
	assert.False(t, ValidRating(0))
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(5))
	assert.False(t, ValidRating(6))
}
