package matching

import (
	"math"

	"tornedge/internal/features"
)

// Gate thresholds. A candidate must be strictly closer than these.
const (
	HeightThreshold = 0.2
	AngleThreshold  = 10.0
)

// IsHeightMatched reports whether two height features differ by less than
// HeightThreshold.
func IsHeightMatched(query, candidate float64) bool {
	return math.Abs(query-candidate) < HeightThreshold
}

// IsAngleMatched reports whether two angle features differ by less than
// AngleThreshold degrees.
func IsAngleMatched(query, candidate float64) bool {
	return math.Abs(query-candidate) < AngleThreshold
}

// IsPositionMatched reports whether every position bit agrees.
func IsPositionMatched(query, candidate features.Position) bool {
	for i := range query {
		if query[i] != candidate[i] {
			return false
		}
	}
	return true
}

// Options selects which gates run before shape scoring.
type Options struct {
	UseHeight   bool
	UseAngle    bool
	UsePosition bool
}

// DefaultOptions enables the height gate only.
func DefaultOptions() Options {
	return Options{UseHeight: true}
}

func (o Options) admit(query, candidate features.FeatureSet) bool {
	if o.UseHeight && !IsHeightMatched(query.Height, candidate.Height) {
		return false
	}
	if o.UseAngle && !IsAngleMatched(query.Angle, candidate.Angle) {
		return false
	}
	if o.UsePosition && !IsPositionMatched(query.Position, candidate.Position) {
		return false
	}
	return true
}
