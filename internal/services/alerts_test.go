package services

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/internal/metrics"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
)

type failingSMS struct{}

func (failingSMS) SendMessage(string, string) error { return errors.New("boom") }

func alertRecommendation() strategy.Recommendation {
	return strategy.Recommendation{
		Profile: "moderate",
		Bets: []strategy.Opportunity{
			{ID: "a", Kind: strategy.KindProp, PlayerName: "LeBron James", StatType: "points", Selection: "over", Line: 25.5, Price: -110, Bookmaker: "draftkings", Stake: 42, ExpectedValue: 0.08, Confidence: 0.86},
			{ID: "b", Kind: strategy.KindValue, Selection: "Lakers", Price: 150, Bookmaker: "fanduel", Stake: 10, ExpectedValue: 0.05, Confidence: 0.6},
		},
	}
}

func TestAlertService_Notify(t *testing.T) {
	sms := NewMockSMSService(quietLogger())
	monitor := metrics.NewPerformanceMonitor(prometheus.NewRegistry())
	svc := NewAlertService(AlertConfig{Recipients: []string{"+15555550100", "+15555550101"}, MinConfidence: 0.8}, sms, nil, monitor, quietLogger())

	sent := svc.Notify(alertRecommendation())
	assert.Equal(t, 2, sent)
	require.Len(t, sms.Sent(), 2)
	assert.Contains(t, sms.Sent()[0].Body, "LeBron James points over 25.5")
	assert.Equal(t, float64(2), testutil.ToFloat64(monitor.AlertsSent.WithLabelValues("sent")))

	// Same bet again inside the repeat window is suppressed
	assert.Equal(t, 0, svc.Notify(alertRecommendation()))

	svc.now = func() time.Time { return time.Now().Add(7 * time.Hour) }
	assert.Equal(t, 2, svc.Notify(alertRecommendation()))
}

func TestAlertService_RepeatAcrossSyncs(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", time.Now())
	line := 25.5
	data.Odds["evt-lal-bos"] = []betting.OddsLine{
		{EventID: "evt-lal-bos", Sport: betting.SportNBA, Bookmaker: "fanduel", Market: "player_points", Outcome: "Over", Participant: "LeBron James", Point: &line, Price: 100},
	}
	analysis := &strategy.Analysis{Predictions: []strategy.Prediction{{
		PlayerID: "lebron-james", PlayerName: "LeBron James", Sport: betting.SportNBA, EventID: "evt-lal-bos",
		StatType: "points", Mean: 30, StdDev: 3, Sources: 3, Consistency: 0.9, Sentiment: 0.2, InjuryStatus: betting.InjuryActive,
	}}}
	profile, err := strategy.NewProfileManager().Get("moderate")
	require.NoError(t, err)
	engine := strategy.NewStrategyEngine(strategy.EngineConfig{Bankroll: 1000}, quietLogger())

	sms := NewMockSMSService(quietLogger())
	svc := NewAlertService(AlertConfig{Recipients: []string{"+15555550100"}, MinConfidence: 0.8}, sms, nil, nil, quietLogger())

	for i := 0; i < 3; i++ {
		opps, err := engine.Generate(data, analysis, profile)
		require.NoError(t, err)
		require.Len(t, opps, 1)
		svc.Notify(strategy.Recommendation{Profile: "moderate", Bets: opps})
	}
	assert.Len(t, sms.Sent(), 1)
}

func TestAlertService_RateLimitAndFailures(t *testing.T) {
	sms := NewMockSMSService(quietLogger())
	limiter := NewSMSRateLimiter(1, time.Hour)
	svc := NewAlertService(AlertConfig{Recipients: []string{"+15555550100"}}, sms, limiter, nil, quietLogger())

	rec := alertRecommendation()
	rec.Bets[1].Confidence = 0.95
	assert.Equal(t, 1, svc.Notify(rec))

	monitor := metrics.NewPerformanceMonitor(prometheus.NewRegistry())
	failing := NewAlertService(AlertConfig{Recipients: []string{"+15555550100"}}, failingSMS{}, nil, monitor, quietLogger())
	assert.Equal(t, 0, failing.Notify(alertRecommendation()))
	assert.Equal(t, float64(1), testutil.ToFloat64(monitor.AlertsSent.WithLabelValues("failed")))
}

func TestAlertService_Subscribe(t *testing.T) {
	bus := events.NewBus(quietLogger())
	sms := NewMockSMSService(quietLogger())
	svc := NewAlertService(AlertConfig{Recipients: []string{"+15555550100"}}, sms, nil, nil, quietLogger())

	unsubscribe := svc.Subscribe(bus)
	bus.Publish(events.TopicStrategyRecommendations, "recommendation", alertRecommendation())
	assert.Len(t, sms.Sent(), 1)

	unsubscribe()
	rec := alertRecommendation()
	rec.Profile = "aggressive"
	bus.Publish(events.TopicStrategyRecommendations, "recommendation", rec)
	assert.Len(t, sms.Sent(), 1)
}

func TestSMSRateLimiter_Window(t *testing.T) {
	rl := NewSMSRateLimiter(2, time.Minute)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	assert.NoError(t, rl.Allow("+15555550100"))
	assert.NoError(t, rl.Allow("+15555550100"))
	assert.Error(t, rl.Allow("+15555550100"))
	assert.NoError(t, rl.Allow("+15555550199"))

	rl.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.NoError(t, rl.Allow("+15555550100"))
	assert.Equal(t, 2, rl.GetStats()["tracked_numbers"])

	rl.Reset()
	assert.Equal(t, 0, rl.GetStats()["tracked_numbers"])
}

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(555) 555-0100", "+15555550100", false},
		{"+44 20 7946 0958", "+442079460958", false},
		{"12345", "", true},
		{"+0123", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizePhoneNumber(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapTwilioError(t *testing.T) {
	assert.Equal(t, ErrInvalidPhoneNumber, mapTwilioError(errors.New("Invalid 'To' Phone Number: 555")))
	assert.Equal(t, ErrSMSUnavailable, mapTwilioError(errors.New("circuit breaker is open")))
	assert.Contains(t, mapTwilioError(errors.New("socket hang up")).Error(), "failed to send SMS")
}
