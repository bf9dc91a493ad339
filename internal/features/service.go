package features

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

const featureVersion = "1.0"

// ExtractOptions controls feature extraction
type ExtractOptions struct {
	Window               int     `json:"window"`
	MaxLag               int     `json:"max_lag"`
	SeasonalityThreshold float64 `json:"seasonality_threshold"`
	SmoothingAlpha       float64 `json:"smoothing_alpha"`
}

// DefaultExtractOptions are used for zero-valued fields
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Window:               5,
		MaxLag:               12,
		SeasonalityThreshold: 0.3,
		SmoothingAlpha:       0.3,
	}
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	d := DefaultExtractOptions()
	if o.Window <= 0 {
		o.Window = d.Window
	}
	if o.MaxLag <= 0 {
		o.MaxLag = d.MaxLag
	}
	if o.SeasonalityThreshold <= 0 {
		o.SeasonalityThreshold = d.SeasonalityThreshold
	}
	if o.SmoothingAlpha <= 0 || o.SmoothingAlpha > 1 {
		o.SmoothingAlpha = d.SmoothingAlpha
	}
	return o
}

// FeatureSet is the named feature output for one series
type FeatureSet struct {
	Features       map[string]float64 `json:"features"`
	Seasonality    *Seasonality       `json:"seasonality,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	Length         int                `json:"length"`
	ExtractedAt    time.Time          `json:"extracted_at"`
	FeatureVersion string             `json:"feature_version"`
}

// FeatureEngineeringService turns numeric history into model features
type FeatureEngineeringService struct {
	validator   *FeatureValidator
	transformer *FeatureTransformer
	logger      *logrus.Logger
}

// NewFeatureEngineeringService creates a service that accepts series of at least 3 points
func NewFeatureEngineeringService(logger *logrus.Logger) *FeatureEngineeringService {
	return &FeatureEngineeringService{
		validator:   NewFeatureValidator(3),
		transformer: NewFeatureTransformer(),
		logger:      logger,
	}
}

// Transformer exposes the element-wise transforms
func (s *FeatureEngineeringService) Transformer() *FeatureTransformer {
	return s.transformer
}

// Extract validates series and computes its feature set
func (s *FeatureEngineeringService) Extract(series []float64, opts ExtractOptions) (*FeatureSet, error) {
	report, err := s.validator.Validate(series)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	fs := &FeatureSet{
		Features:       make(map[string]float64),
		Warnings:       report.Warnings,
		Length:         len(series),
		ExtractedAt:    time.Now().UTC(),
		FeatureVersion: featureVersion,
	}

	summary, err := Describe(series)
	if err != nil {
		return nil, err
	}
	fs.Features["mean"] = summary.Mean
	fs.Features["std"] = summary.Std
	fs.Features["min"] = summary.Min
	fs.Features["max"] = summary.Max
	fs.Features["last"] = summary.Last
	if summary.Mean != 0 {
		fs.Features["volatility"] = summary.Std / math.Abs(summary.Mean)
	} else {
		fs.Features["volatility"] = 0
	}

	window := opts.Window
	if window > len(series) {
		window = len(series)
	}
	rollingMean, err := RollingMean(series, window)
	if err != nil {
		return nil, err
	}
	rollingStd, err := RollingStd(series, window)
	if err != nil {
		return nil, err
	}
	fs.Features["rolling_mean"] = rollingMean[len(rollingMean)-1]
	fs.Features["rolling_std"] = rollingStd[len(rollingStd)-1]

	// Momentum compares the latest value with the one a window earlier
	base := series[len(series)-window]
	if base != 0 {
		fs.Features["momentum"] = (summary.Last - base) / math.Abs(base)
	} else {
		fs.Features["momentum"] = 0
	}

	slope, intercept, err := LinearTrend(series)
	if err != nil {
		return nil, err
	}
	fs.Features["trend_slope"] = slope
	fs.Features["trend_intercept"] = intercept

	acf1, err := Autocorrelation(series, 1)
	if err != nil {
		return nil, err
	}
	fs.Features["autocorr_lag1"] = acf1

	smoothed, err := ExponentialSmoothing(series, opts.SmoothingAlpha)
	if err != nil {
		return nil, err
	}
	fs.Features["smoothed_last"] = smoothed[len(smoothed)-1]

	zscores, err := ZScores(series)
	if err != nil {
		return nil, err
	}
	fs.Features["zscore_last"] = zscores[len(zscores)-1]

	if len(series) >= 4 {
		seasonality, err := DetectSeasonality(series, opts.MaxLag, opts.SeasonalityThreshold)
		if err == nil {
			fs.Seasonality = &seasonality
			fs.Features["seasonality_period"] = float64(seasonality.Period)
			fs.Features["seasonality_strength"] = seasonality.Strength
		} else if s.logger != nil {
			s.logger.WithError(err).Debug("Seasonality detection skipped")
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component":     "feature_engineering",
			"length":        len(series),
			"feature_count": len(fs.Features),
			"warnings":      len(fs.Warnings),
		}).Debug("Feature extraction completed")
	}

	return fs, nil
}
