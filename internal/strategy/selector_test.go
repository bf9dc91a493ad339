package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOpp(id, player, event string, score, confidence, ev float64, risk RiskLevel, stake float64) Opportunity {
	kind := KindProp
	if player == "" {
		kind = KindValue
	}
	return Opportunity{
		ID:            id,
		Kind:          kind,
		PlayerID:      player,
		EventID:       event,
		Score:         score,
		Confidence:    confidence,
		ExpectedValue: ev,
		RiskLevel:     risk,
		Stake:         stake,
		Probability:   0.55,
		DecimalOdds:   2.0,
	}
}

func ids(opps []Opportunity) []string {
	out := make([]string, 0, len(opps))
	for _, o := range opps {
		out = append(out, o.ID)
	}
	return out
}

func TestBestBetSelector_Filters(t *testing.T) {
	opps := []Opportunity{
		testOpp("keep", "p1", "e1", 0.9, 0.8, 0.05, RiskLow, 20),
		testOpp("low-confidence", "p2", "e2", 0.8, 0.5, 0.05, RiskLow, 20),
		testOpp("low-ev", "p3", "e3", 0.8, 0.8, 0.01, RiskLow, 20),
		testOpp("too-risky", "p4", "e4", 0.8, 0.8, 0.05, RiskHigh, 20),
		testOpp("no-stake", "p5", "e5", 0.8, 0.8, 0.05, RiskMedium, 0),
		testOpp("dup-player", "p1", "e6", 0.7, 0.8, 0.05, RiskMedium, 20),
		testOpp("value", "", "e7", 0.75, 0.8, 0.04, RiskMedium, 20),
	}

	rec := NewBestBetSelector(1000).Select(opps, moderate(t))

	assert.Equal(t, []string{"keep", "value"}, ids(rec.Bets))
	assert.Equal(t, "moderate", rec.Profile)
	assert.Equal(t, 7, rec.Considered)
	assert.Equal(t, 5, rec.Filtered)
	assert.Equal(t, 40.0, rec.TotalStake)
	assert.Equal(t, 1.8, rec.ExpectedProfit)
}

func TestBestBetSelector_MaxBets(t *testing.T) {
	profile := moderate(t)
	profile.MaxBets = 2

	opps := []Opportunity{
		testOpp("c", "p3", "e3", 0.7, 0.8, 0.05, RiskLow, 10),
		testOpp("a", "p1", "e1", 0.9, 0.8, 0.05, RiskLow, 10),
		testOpp("b", "p2", "e2", 0.8, 0.8, 0.05, RiskLow, 10),
	}

	rec := NewBestBetSelector(1000).Select(opps, profile)
	assert.Equal(t, []string{"a", "b"}, ids(rec.Bets))
}

func TestBestBetSelector_ExposureCap(t *testing.T) {
	profile := moderate(t)
	profile.MaxExposurePct = 0.05

	opps := []Opportunity{
		testOpp("a", "p1", "e1", 0.9, 0.8, 0.05, RiskLow, 30),
		testOpp("b", "p2", "e2", 0.8, 0.8, 0.05, RiskLow, 30),
		testOpp("c", "p3", "e3", 0.7, 0.8, 0.05, RiskLow, 30),
	}

	rec := NewBestBetSelector(1000).Select(opps, profile)
	require.Len(t, rec.Bets, 3)
	for _, b := range rec.Bets {
		assert.Equal(t, 16.66, b.Stake)
		assert.Contains(t, b.Warnings, "stake scaled to respect exposure limit")
	}
	assert.Equal(t, 49.98, rec.TotalStake)
	assert.LessOrEqual(t, rec.TotalStake, 50.0)
}

func TestBestBetSelector_Empty(t *testing.T) {
	rec := NewBestBetSelector(1000).Select(nil, moderate(t))
	assert.NotNil(t, rec.Bets)
	assert.Empty(t, rec.Bets)
	assert.Zero(t, rec.TotalStake)
}
