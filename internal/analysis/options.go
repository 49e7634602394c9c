// Package analysis computes descriptive statistics, Pearson correlations and
// categorical frequencies over a loaded dataset. Every function is pure: the
// same dataset and parameters always give bit-identical results.
package analysis

import (
	"fmt"
	"math"
)

// Options controls analysis behavior.
type Options struct {
	// Thresholds classify correlation strength.
	Thresholds Thresholds
	// MaxCandidates caps how many variables Correlate compares with a target.
	MaxCandidates int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// TopCategories limits the values listed per categorical column in the report.
	TopCategories int
	// TopPairs limits the correlation pairs listed in the report.
	TopPairs int
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		Thresholds:    DefaultThresholds(),
		MaxCandidates: 4,
		SampleRows:    5,
		TopCategories: 8,
		TopPairs:      10,
	}
}

// Strength is the user-facing band of a correlation coefficient.
type Strength string

const (
	StrengthStrong     Strength = "strong"
	StrengthModerate   Strength = "moderate"
	StrengthWeak       Strength = "weak"
	StrengthNegligible Strength = "negligible"
	StrengthUndefined  Strength = "undefined"
)

// Thresholds are the inclusive lower bounds of each named band, applied to |r|.
type Thresholds struct {
	Strong   float64 `json:"strong"`
	Moderate float64 `json:"moderate"`
	Weak     float64 `json:"weak"`
}

// DefaultThresholds returns 0.7 / 0.4 / 0.2. These values are shown to users
// as guidance; change them only through configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Strong: 0.7, Moderate: 0.4, Weak: 0.2}
}

// Validate requires 0 < weak < moderate < strong <= 1.
func (t Thresholds) Validate() error {
	if !(t.Weak > 0 && t.Weak < t.Moderate && t.Moderate < t.Strong && t.Strong <= 1) {
		return fmt.Errorf("correlation thresholds must satisfy 0 < weak < moderate < strong <= 1 (got %.3g/%.3g/%.3g)",
			t.Weak, t.Moderate, t.Strong)
	}
	return nil
}

// Strength classifies r by |r|. NaN yields StrengthUndefined.
func (t Thresholds) Strength(r float64) Strength {
	if math.IsNaN(r) {
		return StrengthUndefined
	}
	a := math.Abs(r)
	switch {
	case a >= t.Strong:
		return StrengthStrong
	case a >= t.Moderate:
		return StrengthModerate
	case a >= t.Weak:
		return StrengthWeak
	default:
		return StrengthNegligible
	}
}

// StrengthOf classifies r with the default thresholds.
func StrengthOf(r float64) Strength { return DefaultThresholds().Strength(r) }

// Label is the sentence shown next to a coefficient.
func (s Strength) Label() string {
	switch s {
	case StrengthStrong:
		return "Strong correlation"
	case StrengthModerate:
		return "Moderate correlation"
	case StrengthWeak:
		return "Weak correlation"
	case StrengthNegligible:
		return "Negligible or no correlation"
	default:
		return "Correlation undefined (fewer than two complete rows or a constant variable)"
	}
}

// FormatCoefficient renders r rounded to three decimals, or a marker for
// undefined coefficients so they never read as zero.
func FormatCoefficient(r float64) string {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return "n/a (undefined)"
	}
	return fmt.Sprintf("%.3f", r)
}

// finite returns nil for NaN/Inf so JSON encodes them as null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
