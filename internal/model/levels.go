package model

import "math"

// Level bounds. LevelUnassessed marks a domain or pillar with no scored
// responses; it is distinct from level 1 ("Initial").
const (
	LevelUnassessed = 0
	MinLevel        = 1
	MaxLevel        = 5
)

var levelNames = map[int]string{
	1: "Initial",
	2: "Developing",
	3: "Defined",
	4: "Managed",
	5: "Optimizing",
}

// LevelName returns the display name of a maturity level, or "Unknown"
// for anything outside 1..5.
func LevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "Unknown"
}

// LevelFromScore converts a mean 1..5 score into a maturity level: rounded
// to the nearest integer and clamped to [1,5]. A non-positive (or NaN)
// score means nothing was scored and yields LevelUnassessed.
//
// Every aggregation site goes through this function so rounding, clamping
// and the unassessed case stay consistent.
func LevelFromScore(score float64) int {
	if math.IsNaN(score) || score <= 0 {
		return LevelUnassessed
	}
	level := int(math.Round(score))
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Thresholds are the minimum percentages for levels 5 down to 2.
// Anything below Developing is level 1.
type Thresholds struct {
	Optimizing float64 `json:"optimizing" yaml:"optimizing"`
	Managed    float64 `json:"managed" yaml:"managed"`
	Defined    float64 `json:"defined" yaml:"defined"`
	Developing float64 `json:"developing" yaml:"developing"`
}

// DefaultThresholds: ≥90→5, ≥70→4, ≥50→3, ≥30→2, else 1.
var DefaultThresholds = Thresholds{Optimizing: 90, Managed: 70, Defined: 50, Developing: 30}

// IsZero reports whether no threshold is set.
func (t Thresholds) IsZero() bool {
	return t == Thresholds{}
}

// Descending reports whether thresholds are strictly ordered from
// Optimizing down to Developing.
func (t Thresholds) Descending() bool {
	return t.Optimizing > t.Managed && t.Managed > t.Defined && t.Defined > t.Developing
}

// Level derives a maturity level from a percentage score. Stored levels
// come from the mean raw score (LevelFromScore); Level is a lookup for
// callers that only hold a percentage.
func (t Thresholds) Level(percent float64) int {
	switch {
	case percent >= t.Optimizing:
		return 5
	case percent >= t.Managed:
		return 4
	case percent >= t.Defined:
		return 3
	case percent >= t.Developing:
		return 2
	default:
		return 1
	}
}

// LevelFromPercentage derives a level from a percentage using DefaultThresholds.
func LevelFromPercentage(percent float64) int {
	return DefaultThresholds.Level(percent)
}
