// Package region resolves location-dependent constants (classification
// thresholds, estimation baselines, urban adjustments) from ordered rule
// lists. The first matching rule wins.
package region

import "math"

// Predicate decides whether a rule applies at a location.
type Predicate interface {
	Match(lat, lon float64) bool
}

// Box is a lat/lon rectangle. Bounds are inclusive.
type Box struct {
	South, West, North, East float64
}

// Match implements Predicate.
func (b Box) Match(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Boxes matches when any box matches.
type Boxes []Box

// Match implements Predicate.
func (bs Boxes) Match(lat, lon float64) bool {
	for _, b := range bs {
		if b.Match(lat, lon) {
			return true
		}
	}
	return false
}

// Hemisphere restricts a latitude band.
type Hemisphere string

const (
	Either Hemisphere = ""
	North  Hemisphere = "north"
	South  Hemisphere = "south"
)

// LatBand matches MinAbs <= |lat| < MaxAbs, optionally in one hemisphere.
type LatBand struct {
	MinAbs, MaxAbs float64
	Hemisphere     Hemisphere
}

// Match implements Predicate.
func (b LatBand) Match(lat, _ float64) bool {
	switch b.Hemisphere {
	case North:
		if lat < 0 {
			return false
		}
	case South:
		if lat >= 0 {
			return false
		}
	}
	a := math.Abs(lat)
	return a >= b.MinAbs && a < b.MaxAbs
}

// Rule binds a value to a predicate.
type Rule struct {
	Name      string
	Predicate Predicate
	Value     float64
}

// RuleList is evaluated in priority order.
type RuleList []Rule

// Resolve returns the value and name of the first matching rule, or def and
// "default" when none match.
func (rl RuleList) Resolve(lat, lon, def float64) (float64, string) {
	for _, r := range rl {
		if r.Predicate != nil && r.Predicate.Match(lat, lon) {
			return r.Value, r.Name
		}
	}
	return def, "default"
}

// Match returns the first matching rule.
func (rl RuleList) Match(lat, lon float64) (Rule, bool) {
	for _, r := range rl {
		if r.Predicate != nil && r.Predicate.Match(lat, lon) {
			return r, true
		}
	}
	return Rule{}, false
}
