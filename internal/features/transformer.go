package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FeatureTransformer applies element-wise transforms to series
type FeatureTransformer struct{}

// NewFeatureTransformer creates a transformer
func NewFeatureTransformer() *FeatureTransformer {
	return &FeatureTransformer{}
}

// MinMax scales x into [0, 1]; a constant series maps to zeros
func (t *FeatureTransformer) MinMax(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptySeries
	}
	lo, hi := floats.Min(x), floats.Max(x)
	out := make([]float64, len(x))
	if hi == lo {
		return out, nil
	}
	for i, v := range x {
		out[i] = (v - lo) / (hi - lo)
	}
	return out, nil
}

// Standardize returns z-scores
func (t *FeatureTransformer) Standardize(x []float64) ([]float64, error) {
	return ZScores(x)
}

// Log1p returns log(1+x); values at or below -1 are rejected
func (t *FeatureTransformer) Log1p(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptySeries
	}
	out := make([]float64, len(x))
	for i, v := range x {
		if v <= -1 {
			return nil, fmt.Errorf("%w: log1p undefined for %v at index %d", ErrInvalidParameter, v, i)
		}
		out[i] = math.Log1p(v)
	}
	return out, nil
}

// Lag shifts x by k; the first k positions have no value and are dropped,
// so the result aligns with x[k:]
func (t *FeatureTransformer) Lag(x []float64, k int) ([]float64, error) {
	if k < 1 || k >= len(x) {
		return nil, fmt.Errorf("%w: lag %d for series of length %d", ErrInvalidParameter, k, len(x))
	}
	out := make([]float64, len(x)-k)
	copy(out, x[:len(x)-k])
	return out, nil
}

// Clip bounds every value to [lo, hi]
func (t *FeatureTransformer) Clip(x []float64, lo, hi float64) ([]float64, error) {
	if lo > hi {
		return nil, fmt.Errorf("%w: lower bound %v above upper bound %v", ErrInvalidParameter, lo, hi)
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(lo, math.Min(hi, v))
	}
	return out, nil
}

// TransformParams carries the arguments of the parameterized transforms
type TransformParams struct {
	Lag     int      `json:"lag"`
	ClipMin *float64 `json:"clip_min"`
	ClipMax *float64 `json:"clip_max"`
}

// Apply runs the named transform: minmax, standardize, log1p, lag or clip.
// An empty name returns nil.
func (t *FeatureTransformer) Apply(name string, x []float64, p TransformParams) ([]float64, error) {
	switch name {
	case "":
		return nil, nil
	case "minmax":
		return t.MinMax(x)
	case "standardize":
		return t.Standardize(x)
	case "log1p":
		return t.Log1p(x)
	case "lag":
		return t.Lag(x, p.Lag)
	case "clip":
		if p.ClipMin == nil || p.ClipMax == nil {
			return nil, fmt.Errorf("%w: clip needs clip_min and clip_max", ErrInvalidParameter)
		}
		return t.Clip(x, *p.ClipMin, *p.ClipMax)
	default:
		return nil, fmt.Errorf("%w: unknown transform %q", ErrInvalidParameter, name)
	}
}
