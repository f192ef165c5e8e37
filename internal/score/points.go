package score

import (
	"math"

	"rapport/internal/emotion"
)

// PointRange is the per-message adjustment table entry for one emotion.
type PointRange struct {
	Base int `json:"base"`
	Min  int `json:"min"`
	Max  int `json:"max"`
}

var pointTable = map[emotion.Category]PointRange{
	emotion.Excited:  {Base: 8, Min: 5, Max: 10},
	emotion.Neutral:  {Base: 1, Min: 0, Max: 2},
	emotion.Stressed: {Base: -3, Min: -5, Max: -2},
	emotion.Angry:    {Base: -15, Min: -20, Max: -10},
}

func PointRanges() map[emotion.Category]PointRange {
	out := make(map[emotion.Category]PointRange, len(pointTable))
	for k, v := range pointTable {
		out[k] = v
	}
	return out
}

// PointsFor returns clamp(round(base*confidence), min, max). Confidence is
// clamped to [0,1] first; unknown emotions score as neutral.
func PointsFor(c emotion.Category, confidence float64) int {
	r, ok := pointTable[c]
	if !ok {
		r = pointTable[emotion.Neutral]
	}
	if math.IsNaN(confidence) {
		confidence = 0
	}
	confidence = math.Max(0, math.Min(1, confidence))
	points := int(math.Round(float64(r.Base) * confidence))
	return clampInt(points, r.Min, r.Max)
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
