package services

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/features"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
)

const (
	// sentimentWeight scales a [-1,1] sentiment score into a relative projection shift
	sentimentWeight = 0.03
	// maxTrendShift caps the history trend adjustment relative to the base projection
	maxTrendShift = 0.10
	fullHistory   = 10
)

// HistorySource provides per-player projection history
type HistorySource interface {
	History(playerID string) []HistoryPoint
}

// PredictionService turns a snapshot into per player and stat predictions
type PredictionService struct {
	history  HistorySource
	features *features.FeatureEngineeringService
	logger   *logrus.Logger
	now      func() time.Time
}

func NewPredictionService(history HistorySource, fe *features.FeatureEngineeringService, logger *logrus.Logger) *PredictionService {
	if logger == nil {
		logger = logrus.New()
	}
	if fe == nil {
		fe = features.NewFeatureEngineeringService(logger)
	}
	return &PredictionService{history: history, features: fe, logger: logger, now: time.Now}
}

// Analyze builds predictions for every player stat that has at least one
// independent projection. Pick'em lines are market prices, not projections.
func (s *PredictionService) Analyze(data *betting.IntegratedData) (*strategy.Analysis, error) {
	if data == nil {
		return nil, betting.ErrNoData
	}

	analysis := &strategy.Analysis{
		SnapshotID:  data.ID,
		GeneratedAt: s.now().UTC(),
		Predictions: []strategy.Prediction{},
	}

	for _, playerID := range data.PlayerIDs() {
		byStat := make(map[string][]betting.Projection)
		for _, p := range data.Projections[playerID] {
			if p.IsPropLine() {
				continue
			}
			byStat[p.StatType] = append(byStat[p.StatType], p)
		}
		var history []HistoryPoint
		if s.history != nil {
			history = s.history.History(playerID)
		}
		for statType, projections := range byStat {
			analysis.Predictions = append(analysis.Predictions, s.predict(data, playerID, statType, projections, history))
		}
	}

	sort.Slice(analysis.Predictions, func(i, j int) bool {
		a, b := analysis.Predictions[i], analysis.Predictions[j]
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		return a.StatType < b.StatType
	})

	s.logger.WithFields(logrus.Fields{
		"component":   "prediction",
		"snapshot_id": data.ID,
		"predictions": len(analysis.Predictions),
	}).Debug("Analysis complete")

	return analysis, nil
}

func (s *PredictionService) predict(data *betting.IntegratedData, playerID, statType string, projections []betting.Projection, history []HistoryPoint) strategy.Prediction {
	first := projections[0]
	pred := strategy.Prediction{
		PlayerID:     playerID,
		PlayerName:   first.PlayerName,
		Team:         first.Team,
		Sport:        first.Sport,
		EventID:      first.EventID,
		StatType:     statType,
		InjuryStatus: betting.InjuryActive,
	}

	values := make([]float64, 0, len(projections))
	sources := make(map[string]bool)
	for _, p := range projections {
		values = append(values, p.Value)
		sources[p.Source] = true
		if pred.EventID == "" {
			pred.EventID = p.EventID
		}
	}
	pred.Sources = len(sources)

	base, sourceStd := stat.Mean(values, nil), 0.0
	if len(values) > 1 {
		sourceStd = stat.StdDev(values, nil)
	}
	pred.BaseProjection = base

	// agreement between sources; one source gives no evidence either way
	pred.Consistency = 0.5
	if len(values) > 1 && base > 0 {
		pred.Consistency = betting.Clamp01(1 - sourceStd/base)
	}

	if score, ok := data.Sentiment[playerID]; ok {
		pred.Sentiment = betting.Clamp(score.Score, -1, 1)
	}
	if inj, ok := data.Injuries[playerID]; ok && inj.Status != "" {
		pred.InjuryStatus = inj.Status
	}

	series := make([]float64, 0, len(history))
	for _, h := range history {
		if v, ok := h.Projections[statType]; ok {
			series = append(series, v)
		}
	}

	historyStd := 0.0
	if fs, err := s.features.Extract(series, features.DefaultExtractOptions()); err == nil {
		pred.Trend = fs.Features["trend_slope"]
		historyStd = fs.Features["std"]
	} else if t, ok := data.Trends[playerID]; ok {
		pred.Trend = t.ProjectionDelta
	}

	shift := betting.Clamp(pred.Trend*0.5, -maxTrendShift*base, maxTrendShift*base)
	mean := (base + shift) * (1 + sentimentWeight*pred.Sentiment)
	mean *= pred.InjuryStatus.AvailabilityFactor()
	pred.Mean = math.Max(mean, 0)
	pred.StdDev = math.Max(sourceStd, historyStd)

	historyScore := betting.Clamp01(float64(len(series)) / fullHistory)
	pred.Confidence = betting.Clamp01(0.4*pred.Consistency + 0.3*betting.Clamp01(float64(pred.Sources)/3) + 0.3*historyScore)
	return pred
}
