package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

type staticHistory map[string][]HistoryPoint

func (h staticHistory) History(playerID string) []HistoryPoint { return h[playerID] }

func TestPredictionService_Analyze(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC))
	data.Projections["lebron-james"] = []betting.Projection{
		{PlayerID: "lebron-james", PlayerName: "LeBron James", Team: "LAL", Sport: betting.SportNBA, StatType: "points", Value: 25, Source: "sportsradar"},
		{PlayerID: "lebron-james", PlayerName: "LeBron James", Team: "LAL", Sport: betting.SportNBA, EventID: "evt-1", StatType: "points", Value: 27, Source: "dailyfantasy"},
		{PlayerID: "lebron-james", PlayerName: "LeBron James", StatType: "points", Value: 26.5, Line: 26.5, Source: "prizepicks"},
		{PlayerID: "lebron-james", PlayerName: "LeBron James", StatType: "blocks", Value: 0.5, Line: 0.5, Source: "prizepicks"},
	}
	data.Sentiment["lebron-james"] = betting.SentimentScore{Score: 0.5}
	data.Injuries["lebron-james"] = betting.InjuryReport{Status: betting.InjuryQuestionable}

	svc := NewPredictionService(nil, nil, quietLogger())
	analysis, err := svc.Analyze(data)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", analysis.SnapshotID)
	require.Len(t, analysis.Predictions, 1)

	p := analysis.Predictions[0]
	assert.Equal(t, "points", p.StatType)
	assert.Equal(t, "evt-1", p.EventID)
	assert.Equal(t, 2, p.Sources)
	assert.Equal(t, 26.0, p.BaseProjection)
	assert.InDelta(t, 0.9456, p.Consistency, 1e-3)
	assert.InDelta(t, 26*1.015*0.8, p.Mean, 1e-9)
	assert.InDelta(t, 1.4142, p.StdDev, 1e-3)
	assert.Equal(t, betting.InjuryQuestionable, p.InjuryStatus)
	assert.InDelta(t, 0.4*0.9456+0.2, p.Confidence, 1e-3)
}

func TestPredictionService_UsesHistoryTrend(t *testing.T) {
	data := betting.NewIntegratedData("snap-2", time.Now())
	data.Projections["jayson-tatum"] = []betting.Projection{
		{PlayerID: "jayson-tatum", PlayerName: "Jayson Tatum", StatType: "points", Value: 26, Source: "sportsradar"},
	}

	var history []HistoryPoint
	for _, v := range []float64{20, 22, 24, 26} {
		history = append(history, HistoryPoint{Projections: map[string]float64{"points": v}})
	}

	svc := NewPredictionService(staticHistory{"jayson-tatum": history}, nil, quietLogger())
	analysis, err := svc.Analyze(data)
	require.NoError(t, err)
	require.Len(t, analysis.Predictions, 1)

	p := analysis.Predictions[0]
	assert.InDelta(t, 2.0, p.Trend, 1e-9)
	// half the slope, capped at 10% of the base
	assert.InDelta(t, 27.0, p.Mean, 1e-9)
	assert.InDelta(t, 2.582, p.StdDev, 1e-3)
	assert.Equal(t, 0.5, p.Consistency)
	assert.Equal(t, betting.InjuryActive, p.InjuryStatus)
}

func TestPredictionService_NilSnapshot(t *testing.T) {
	_, err := NewPredictionService(nil, nil, quietLogger()).Analyze(nil)
	assert.ErrorIs(t, err, betting.ErrNoData)
}
