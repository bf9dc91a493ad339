package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptySeries      = errors.New("series is empty")
	ErrInvalidWindow    = errors.New("invalid window size")
	ErrInsufficientData = errors.New("insufficient data points")
	ErrNonFiniteValue   = errors.New("series contains NaN or Inf")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// RollingMean returns the mean of each full window; output length is n-w+1
func RollingMean(x []float64, w int) ([]float64, error) {
	if err := checkWindow(x, w); err != nil {
		return nil, err
	}
	out := make([]float64, len(x)-w+1)
	for i := range out {
		out[i] = stat.Mean(x[i:i+w], nil)
	}
	return out, nil
}

// RollingStd returns the sample standard deviation of each full window.
// Windows of size 1 have zero deviation.
func RollingStd(x []float64, w int) ([]float64, error) {
	if err := checkWindow(x, w); err != nil {
		return nil, err
	}
	out := make([]float64, len(x)-w+1)
	if w == 1 {
		return out, nil
	}
	for i := range out {
		out[i] = stat.StdDev(x[i:i+w], nil)
	}
	return out, nil
}

func checkWindow(x []float64, w int) error {
	if len(x) == 0 {
		return ErrEmptySeries
	}
	if w < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, w)
	}
	if w > len(x) {
		return fmt.Errorf("%w: window %d exceeds series length %d", ErrInsufficientData, w, len(x))
	}
	return nil
}

// LinearTrend fits y = intercept + slope*t for t = 0..n-1 by least squares
func LinearTrend(y []float64) (slope, intercept float64, err error) {
	if len(y) < 2 {
		return 0, 0, fmt.Errorf("%w: need at least 2 points for a trend", ErrInsufficientData)
	}
	t := index(len(y))
	intercept, slope = stat.LinearRegression(t, y, nil, false)
	return slope, intercept, nil
}

// Detrend removes the least-squares linear trend from y
func Detrend(y []float64) ([]float64, error) {
	slope, intercept, err := LinearTrend(y)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = v - (intercept + slope*float64(i))
	}
	return out, nil
}

// Autocorrelation returns the sample autocorrelation of x at lag.
// A constant series has zero autocorrelation.
func Autocorrelation(x []float64, lag int) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptySeries
	}
	if lag < 0 || lag >= len(x) {
		return 0, fmt.Errorf("%w: lag %d for series of length %d", ErrInvalidParameter, lag, len(x))
	}
	mean := stat.Mean(x, nil)
	var num, den float64
	for i, v := range x {
		d := v - mean
		den += d * d
		if i+lag < len(x) {
			num += d * (x[i+lag] - mean)
		}
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}

// Seasonality is the dominant periodicity found in a series
type Seasonality struct {
	Period   int     `json:"period"`
	Strength float64 `json:"strength"`
	Detected bool    `json:"detected"`
}

// DetectSeasonality picks the lag in [2, maxLag] with the strongest
// autocorrelation after detrending. Detected is set when it reaches threshold.
func DetectSeasonality(x []float64, maxLag int, threshold float64) (Seasonality, error) {
	if len(x) < 4 {
		return Seasonality{}, fmt.Errorf("%w: need at least 4 points for seasonality", ErrInsufficientData)
	}
	if maxLag > len(x)/2 {
		maxLag = len(x) / 2
	}
	if maxLag < 2 {
		return Seasonality{}, fmt.Errorf("%w: max lag must be at least 2", ErrInvalidParameter)
	}

	detrended, err := Detrend(x)
	if err != nil {
		return Seasonality{}, err
	}

	best := Seasonality{}
	for lag := 2; lag <= maxLag; lag++ {
		acf, err := Autocorrelation(detrended, lag)
		if err != nil {
			return Seasonality{}, err
		}
		if acf > best.Strength {
			best = Seasonality{Period: lag, Strength: acf}
		}
	}
	best.Detected = best.Period > 0 && best.Strength >= threshold
	return best, nil
}

// ZScores standardizes x by its sample mean and deviation
func ZScores(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptySeries
	}
	out := make([]float64, len(x))
	if len(x) == 1 {
		return out, nil
	}
	mean, std := stat.MeanStdDev(x, nil)
	if std == 0 {
		return out, nil
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out, nil
}

// PercentChange returns period-over-period relative change; output length n-1.
// A zero previous value yields 0.
func PercentChange(x []float64) ([]float64, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points for percent change", ErrInsufficientData)
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		if x[i-1] != 0 {
			out[i-1] = (x[i] - x[i-1]) / math.Abs(x[i-1])
		}
	}
	return out, nil
}

// ExponentialSmoothing applies simple exponential smoothing seeded with x[0]
func ExponentialSmoothing(x []float64, alpha float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptySeries
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: alpha must be in (0, 1], got %v", ErrInvalidParameter, alpha)
	}
	out := make([]float64, len(x))
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// Summary holds basic descriptive statistics
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Last  float64 `json:"last"`
}

// Describe computes a Summary of x
func Describe(x []float64) (Summary, error) {
	if len(x) == 0 {
		return Summary{}, ErrEmptySeries
	}
	s := Summary{
		Count: len(x),
		Mean:  stat.Mean(x, nil),
		Min:   floats.Min(x),
		Max:   floats.Max(x),
		Last:  x[len(x)-1],
	}
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	}
	return s, nil
}

func index(n int) []float64 {
	t := make([]float64, n)
	floats.Span(t, 0, float64(n-1))
	return t
}
