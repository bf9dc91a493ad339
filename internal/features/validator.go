package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ValidationReport lists warnings for a series that passed validation
type ValidationReport struct {
	Length   int      `json:"length"`
	Constant bool     `json:"constant"`
	Outliers []int    `json:"outliers,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// FeatureValidator rejects series that cannot produce meaningful features
type FeatureValidator struct {
	MinLength        int
	OutlierThreshold float64
}

// NewFeatureValidator creates a validator; minLength below 1 is raised to 1
func NewFeatureValidator(minLength int) *FeatureValidator {
	if minLength < 1 {
		minLength = 1
	}
	return &FeatureValidator{MinLength: minLength, OutlierThreshold: 3}
}

// Validate returns an error for empty, short or non-finite series and a
// report of softer problems otherwise
func (v *FeatureValidator) Validate(x []float64) (*ValidationReport, error) {
	if len(x) == 0 {
		return nil, ErrEmptySeries
	}
	for i, val := range x {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%w at index %d", ErrNonFiniteValue, i)
		}
	}
	if len(x) < v.MinLength {
		return nil, fmt.Errorf("%w: got %d points, need %d", ErrInsufficientData, len(x), v.MinLength)
	}

	report := &ValidationReport{Length: len(x)}
	if len(x) < 2 {
		return report, nil
	}

	mean, std := stat.MeanStdDev(x, nil)
	if std == 0 {
		report.Constant = true
		report.Warnings = append(report.Warnings, "series is constant")
		return report, nil
	}

	for i, val := range x {
		if math.Abs((val-mean)/std) > v.OutlierThreshold {
			report.Outliers = append(report.Outliers, i)
		}
	}
	if len(report.Outliers) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d outlier(s) beyond %.1f standard deviations", len(report.Outliers), v.OutlierThreshold))
	}
	return report, nil
}
