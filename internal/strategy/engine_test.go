package strategy

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

var testTime = time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func point(v float64) *float64 { return &v }

func moderate(t *testing.T) RiskProfile {
	t.Helper()
	p, err := NewProfileManager().Get("moderate")
	require.NoError(t, err)
	return p
}

func lebronPrediction() Prediction {
	return Prediction{
		PlayerID:     "lebron-james",
		PlayerName:   "LeBron James",
		Sport:        betting.SportNBA,
		EventID:      "evt-lal-bos",
		StatType:     "points",
		Mean:         30,
		StdDev:       3,
		Sources:      3,
		Consistency:  0.9,
		Sentiment:    0.2,
		InjuryStatus: betting.InjuryActive,
	}
}

func TestStrategyEngine_BookProps(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", testTime)
	prop := func(book, outcome string, price int) betting.OddsLine {
		return betting.OddsLine{
			EventID: "evt-lal-bos", Sport: betting.SportNBA, Bookmaker: book,
			Market: "player_points", Outcome: outcome, Participant: "LeBron James",
			Point: point(25.5), Price: price,
		}
	}
	data.Odds["evt-lal-bos"] = []betting.OddsLine{
		prop("draftkings", "Over", -110),
		prop("fanduel", "Over", 100),
		prop("fanduel", "Under", -110),
	}
	analysis := &Analysis{SnapshotID: "snap-1", Predictions: []Prediction{lebronPrediction()}}

	engine := NewStrategyEngine(EngineConfig{Bankroll: 1000}, quietLogger())
	opps, err := engine.Generate(data, analysis, moderate(t))
	require.NoError(t, err)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, KindProp, o.Kind)
	assert.Equal(t, "fanduel", o.Bookmaker)
	assert.Equal(t, "Over", o.Selection)
	assert.Equal(t, 25.5, o.Line)
	// std floors at 15% of the mean: 4.5, so the line sits one std below
	assert.InDelta(t, 0.8413, o.Probability, 1e-3)
	assert.InDelta(t, 0.6827, o.ExpectedValue, 1e-3)
	assert.InDelta(t, 0.935, o.Confidence, 1e-3)
	assert.Equal(t, RiskLow, o.RiskLevel)
	assert.Equal(t, 50.0, o.Stake)
	assert.Contains(t, o.Warnings, "stake capped at 5% of bankroll")
	assert.NotEmpty(t, o.ID)
}

func TestStrategyEngine_StableOpportunityIDs(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", testTime)
	data.Odds["evt-lal-bos"] = []betting.OddsLine{
		{EventID: "evt-lal-bos", Sport: betting.SportNBA, Bookmaker: "fanduel", Market: "player_points", Outcome: "Over", Participant: "LeBron James", Point: point(25.5), Price: 100},
		{EventID: "evt-lal-bos", Sport: betting.SportNBA, Bookmaker: "betmgm", Market: "player_points", Outcome: "Over", Participant: "LeBron James", Point: point(26.5), Price: 105},
	}
	analysis := &Analysis{Predictions: []Prediction{lebronPrediction()}}
	engine := NewStrategyEngine(EngineConfig{Bankroll: 1000}, quietLogger())

	first, err := engine.Generate(data, analysis, moderate(t))
	require.NoError(t, err)
	require.Len(t, first, 2)

	// A later snapshot with a moved price is still the same bet
	data.Odds["evt-lal-bos"][0].Price = 105
	second, err := engine.Generate(data, analysis, moderate(t))
	require.NoError(t, err)

	ids := func(opps []Opportunity) map[string]string {
		out := make(map[string]string)
		for _, o := range opps {
			out[o.Bookmaker] = o.ID
		}
		return out
	}
	assert.Equal(t, ids(first), ids(second))
	assert.NotEqual(t, ids(first)["fanduel"], ids(first)["betmgm"])
}

func TestStrategyEngine_PickemProps(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", testTime)
	data.Projections["lebron-james"] = []betting.Projection{
		{PlayerID: "lebron-james", PlayerName: "LeBron James", StatType: "points", Value: 20.5, Line: 20.5, Source: "prizepicks"},
	}
	pred := lebronPrediction()
	pred.Mean = 26
	pred.InjuryStatus = betting.InjuryQuestionable
	analysis := &Analysis{Predictions: []Prediction{pred}}

	engine := NewStrategyEngine(EngineConfig{}, quietLogger())
	opps, err := engine.Generate(data, analysis, moderate(t))
	require.NoError(t, err)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, "prizepicks", o.Bookmaker)
	assert.Equal(t, "pickem_points", o.Market)
	assert.Equal(t, -119, o.Price)
	assert.Equal(t, RiskHigh, o.RiskLevel)
	assert.Contains(t, o.Warnings, "pick'em line priced at -119")
	assert.Contains(t, o.Warnings, "LeBron James listed as questionable")
}

func TestStrategyEngine_ValueBets(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", testTime)
	h2h := func(book, outcome string, price int) betting.OddsLine {
		return betting.OddsLine{
			EventID: "evt-1", Sport: betting.SportNBA, HomeTeam: "Home", AwayTeam: "Away",
			Bookmaker: book, Market: "h2h", Outcome: outcome, Price: price,
		}
	}
	data.Odds["evt-1"] = []betting.OddsLine{
		h2h("a", "Home", -150), h2h("a", "Away", 130),
		h2h("b", "Home", -140), h2h("b", "Away", 120),
		h2h("c", "Home", -200), h2h("c", "Away", 155),
	}

	engine := NewStrategyEngine(EngineConfig{}, quietLogger())
	opps, err := engine.Generate(data, nil, moderate(t))
	require.NoError(t, err)
	require.NotEmpty(t, opps)

	var found *Opportunity
	for i := range opps {
		assert.Equal(t, KindValue, opps[i].Kind)
		assert.Greater(t, opps[i].ExpectedValue, 0.0)
		if opps[i].Bookmaker == "c" && opps[i].Selection == "Away" {
			found = &opps[i]
		}
	}
	require.NotNil(t, found)
	assert.InDelta(t, 0.4095, found.Probability, 1e-3)
	assert.InDelta(t, 0.0442, found.ExpectedValue, 1e-3)
	assert.Equal(t, "event:evt-1", found.exclusivityKey())
}

func TestStrategyEngine_SingleBookHasNoConsensus(t *testing.T) {
	data := betting.NewIntegratedData("snap-1", testTime)
	data.Odds["evt-1"] = []betting.OddsLine{
		{EventID: "evt-1", Bookmaker: "a", Market: "h2h", Outcome: "Home", Price: 200},
		{EventID: "evt-1", Bookmaker: "a", Market: "h2h", Outcome: "Away", Price: -300},
	}

	opps, err := NewStrategyEngine(EngineConfig{}, quietLogger()).Generate(data, nil, moderate(t))
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestStrategyEngine_Errors(t *testing.T) {
	engine := NewStrategyEngine(EngineConfig{}, quietLogger())

	_, err := engine.Generate(nil, nil, moderate(t))
	assert.ErrorIs(t, err, betting.ErrNoData)

	_, err = engine.Generate(betting.NewIntegratedData("x", testTime), nil, RiskProfile{Name: "empty"})
	assert.Error(t, err)
}

func TestPropRisk(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		cv         float64
		dec        float64
		status     betting.InjuryStatus
		want       RiskLevel
	}{
		{name: "solid", confidence: 0.8, cv: 0.1, dec: 1.9, status: betting.InjuryActive, want: RiskLow},
		{name: "long price", confidence: 0.8, cv: 0.1, dec: 3.5, want: RiskHigh},
		{name: "doubtful", confidence: 0.9, cv: 0.1, dec: 1.9, status: betting.InjuryDoubtful, want: RiskHigh},
		{name: "volatile", confidence: 0.8, cv: 0.6, dec: 1.9, want: RiskHigh},
		{name: "middling", confidence: 0.65, cv: 0.3, dec: 2.0, want: RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, propRisk(tt.confidence, tt.cv, tt.dec, tt.status))
		})
	}
}
