package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

func TestArbitrageFinder_Moneyline(t *testing.T) {
	odds := map[string][]betting.OddsLine{
		"e1": {
			{EventID: "e1", Bookmaker: "a", Market: "h2h", Outcome: "Home", Price: 110},
			{EventID: "e1", Bookmaker: "a", Market: "h2h", Outcome: "Away", Price: -130},
			{EventID: "e1", Bookmaker: "b", Market: "h2h", Outcome: "Home", Price: -130},
			{EventID: "e1", Bookmaker: "b", Market: "h2h", Outcome: "Away", Price: 110},
		},
		"e2": {
			{EventID: "e2", Bookmaker: "a", Market: "h2h", Outcome: "Home", Price: -110},
			{EventID: "e2", Bookmaker: "b", Market: "h2h", Outcome: "Away", Price: -110},
		},
	}

	arbs := NewArbitrageFinder().Find(odds, 100)
	require.Len(t, arbs, 1)

	arb := arbs[0]
	assert.Equal(t, "e1", arb.EventID)
	assert.InDelta(t, 0.95238, arb.ImpliedSum, 1e-4)
	assert.InDelta(t, 5.0, arb.ProfitPct, 1e-6)
	assert.Equal(t, 5.0, arb.GuaranteedProfit)
	require.Len(t, arb.Legs, 2)
	assert.Equal(t, "Away", arb.Legs[0].Outcome)
	assert.Equal(t, "b", arb.Legs[0].Bookmaker)
	assert.Equal(t, 50.0, arb.Legs[0].Stake)
	assert.Equal(t, "a", arb.Legs[1].Bookmaker)
}

func TestArbitrageFinder_SpreadsPairOppositePoints(t *testing.T) {
	odds := map[string][]betting.OddsLine{
		"e1": {
			{EventID: "e1", HomeTeam: "Lakers", AwayTeam: "Celtics", Bookmaker: "a", Market: "spreads", Outcome: "Lakers", Point: point(-3.5), Price: 105},
			{EventID: "e1", HomeTeam: "Lakers", AwayTeam: "Celtics", Bookmaker: "b", Market: "spreads", Outcome: "Celtics", Point: point(3.5), Price: 105},
			{EventID: "e1", HomeTeam: "Lakers", AwayTeam: "Celtics", Bookmaker: "b", Market: "spreads", Outcome: "Celtics", Point: point(4.5), Price: 300},
		},
	}

	arbs := NewArbitrageFinder().Find(odds, 200)
	require.Len(t, arbs, 1)
	assert.Equal(t, "spreads", arbs[0].Market)
	require.NotNil(t, arbs[0].Point)
	assert.Equal(t, -3.5, *arbs[0].Point)
	assert.Len(t, arbs[0].Legs, 2)
}

func TestArbitrageFinder_NoArbitrage(t *testing.T) {
	odds := map[string][]betting.OddsLine{
		"e1": {
			{EventID: "e1", Bookmaker: "a", Market: "totals", Outcome: "Over", Point: point(220.5), Price: -110},
			{EventID: "e1", Bookmaker: "b", Market: "totals", Outcome: "Under", Point: point(220.5), Price: -105},
		},
	}
	assert.Empty(t, NewArbitrageFinder().Find(odds, 100))
}
