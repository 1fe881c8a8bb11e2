// Package correlation computes the rolling correlation between the two
// yield series and classifies the current coupling regime. Everything here
// is pure computation; rendering concerns live in the binder.
package correlation

import (
	"math"
	"time"
)

// DefaultWindow is the trailing window size in observations. The window is
// positional, not calendar-based: a run of market holidays shrinks the
// covered time span without any special handling.
const DefaultWindow = 20

// Regime classification thresholds, evaluated top-down.
const (
	CouplingThreshold = 0.7
	WeakThreshold     = 0.3
)

// Observation is one paired reading of the two series, ordered by date.
type Observation struct {
	Date      time.Time
	Primary   float64
	Secondary float64
}

// Point is one rolling-correlation value, keyed on the date of the final
// observation in its window.
type Point struct {
	Date        time.Time `json:"date"`
	Correlation float64   `json:"correlation"`
}

// Regime is the coarse coupling classification of a correlation value.
type Regime int

const (
	RegimeDecoupling Regime = iota
	RegimeWeak
	RegimeCoupling
)

func (r Regime) String() string {
	switch r {
	case RegimeCoupling:
		return "coupling"
	case RegimeWeak:
		return "weak"
	default:
		return "decoupling"
	}
}

// Label returns the display label shown on the dashboard badge.
func (r Regime) Label() string {
	switch r {
	case RegimeCoupling:
		return "동조화"
	case RegimeWeak:
		return "약한 동조화"
	default:
		return "탈동조화"
	}
}

// Color returns the color token shared by the chart segments, the threshold
// badge and the status indicator for this regime.
func (r Regime) Color() string {
	switch r {
	case RegimeCoupling:
		return "#16a34a"
	case RegimeWeak:
		return "#f59e0b"
	default:
		return "#dc2626"
	}
}

// Pearson computes the product-moment correlation of two paired sequences.
// ok is false when the correlation is undefined: mismatched or empty
// inputs, or zero variance in either sequence. Callers must not treat an
// undefined correlation as zero except at a presentation boundary.
func Pearson(xs, ys []float64) (r float64, ok bool) {
	n := len(xs)
	if n == 0 || len(ys) != n {
		return 0, false
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
		sumYY += ys[i] * ys[i]
	}

	nf := float64(n)
	denom := math.Sqrt((nf*sumXX - sumX*sumX) * (nf*sumYY - sumY*sumY))
	if denom == 0 {
		return 0, false
	}

	r = (nf*sumXY - sumX*sumY) / denom
	// Floating-point noise can push the ratio just past the bounds.
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r, true
}

// RollingCorrelation emits one Point per trailing window of exactly
// `window` observations, keyed on the window's final date. Fewer
// observations than the window produce an empty result, not an error.
//
// An undefined window correlation (zero variance) is substituted with 0 at
// emission, which classifies as decoupling rather than leaving a hole in
// the series.
func RollingCorrelation(obs []Observation, window int) []Point {
	if window <= 0 || len(obs) < window {
		return []Point{}
	}

	points := make([]Point, 0, len(obs)-window+1)
	xs := make([]float64, window)
	ys := make([]float64, window)

	for end := window - 1; end < len(obs); end++ {
		for i := 0; i < window; i++ {
			o := obs[end-window+1+i]
			xs[i] = o.Primary
			ys[i] = o.Secondary
		}
		points = append(points, Point{
			Date:        obs[end].Date,
			Correlation: pearsonOrZero(xs, ys),
		})
	}
	return points
}

// pearsonOrZero applies the emission-time substitution policy. The paired
// slices are built from one observation slice, so a length mismatch can
// only mean a bug in this package.
func pearsonOrZero(xs, ys []float64) float64 {
	if len(xs) != len(ys) {
		panic("correlation: paired window series diverged in length")
	}
	r, ok := Pearson(xs, ys)
	if !ok {
		return 0
	}
	return r
}

// Classify maps a correlation value to its regime. Total over the reals;
// first matching threshold wins.
func Classify(r float64) Regime {
	switch {
	case r >= CouplingThreshold:
		return RegimeCoupling
	case r >= WeakThreshold:
		return RegimeWeak
	default:
		return RegimeDecoupling
	}
}
