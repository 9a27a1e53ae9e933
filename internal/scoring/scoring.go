package scoring

// Level is the qualitative risk level.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Levels in ascending severity.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether v is a likelihood/impact value in [1,5].
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// LevelFor buckets a score; upper bounds are inclusive.
func LevelFor(score int) Level {
	switch {
	case score <= 5:
		return LevelLow
	case score <= 10:
		return LevelMedium
	case score <= 15:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// ComputeScore returns likelihood*impact and its level.
// Inputs are expected to be validated by the caller.
func ComputeScore(likelihood, impact int) (int, Level) {
	score := likelihood * impact
	return score, LevelFor(score)
}

// Residual is the score left after treatment.
type Residual struct {
	Score int
	Level Level
}

// ComputeResidualScore returns nil unless both residual inputs are present.
func ComputeResidualScore(likelihood, impact *int) *Residual {
	if likelihood == nil || impact == nil {
		return nil
	}
	score, level := ComputeScore(*likelihood, *impact)
	return &Residual{Score: score, Level: level}
}

// IsHighOrAbove is used by dashboards for the "high risks" counter.
func (l Level) IsHighOrAbove() bool {
	return l == LevelHigh || l == LevelCritical
}

func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	}
	return false
}
