package domain

import (
	"errors"
	"math"
)

// TrendFit is a degree-1 ordinary least-squares fit.
type TrendFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Eval returns the fitted y at x.
func (f TrendFit) Eval(x float64) float64 {
	return f.Slope*x + f.Intercept
}

var (
	// ErrTooFewPoints means fewer than two finite points were available.
	ErrTooFewPoints = errors.New("fewer than 2 points for trend fit")
	// ErrZeroVariance means all x values coincide, so the slope is undefined.
	ErrZeroVariance = errors.New("all x values identical, trend slope undefined")
)

// FitLine computes the ordinary least-squares line through the given points.
// Pairs with a non-finite coordinate are skipped. Callers should treat an
// error as "no trend to draw", not a failure.
func FitLine(xs, ys []float64) (slope, intercept float64, err error) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	var sumX, sumY float64
	valid := 0
	for i := 0; i < n; i++ {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		sumX += xs[i]
		sumY += ys[i]
		valid++
	}
	if valid < 2 {
		return 0, 0, ErrTooFewPoints
	}

	meanX := sumX / float64(valid)
	meanY := sumY / float64(valid)

	var sumXY, sumXX float64
	for i := 0; i < n; i++ {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		dx := xs[i] - meanX
		sumXY += dx * (ys[i] - meanY)
		sumXX += dx * dx
	}
	if sumXX == 0 {
		return 0, 0, ErrZeroVariance
	}

	slope = sumXY / sumXX
	intercept = meanY - slope*meanX
	return slope, intercept, nil
}

// XY is a sampled point on a fitted line.
type XY struct {
	X float64
	Y float64
}

// trendSampleCount is the number of points the fitted line is evaluated at.
const trendSampleCount = 100

// TrendSamples evaluates the fit across the finite x-range padded by 5% on
// each side. Returns nil when no finite x exists or the range collapses to
// a point.
func TrendSamples(fit TrendFit, xs []float64) []XY {
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if !isFinite(x) {
			continue
		}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
	}
	if minX >= maxX {
		return nil
	}

	pad := (maxX - minX) * 0.05
	lo, hi := minX-pad, maxX+pad
	step := (hi - lo) / float64(trendSampleCount-1)

	samples := make([]XY, trendSampleCount)
	for i := range samples {
		x := lo + float64(i)*step
		samples[i] = XY{X: x, Y: fit.Eval(x)}
	}
	return samples
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
