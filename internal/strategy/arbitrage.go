package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// ArbitrageLeg is one side of an arbitrage
type ArbitrageLeg struct {
	Outcome     string  `json:"outcome"`
	Bookmaker   string  `json:"bookmaker"`
	Price       int     `json:"price"`
	DecimalOdds float64 `json:"decimal_odds"`
	Stake       float64 `json:"stake"`
}

// Arbitrage is a set of prices across books that guarantees a profit
type Arbitrage struct {
	EventID          string         `json:"event_id"`
	Sport            betting.Sport  `json:"sport"`
	Market           string         `json:"market"`
	Point            *float64       `json:"point,omitempty"`
	Legs             []ArbitrageLeg `json:"legs"`
	ImpliedSum       float64        `json:"implied_sum"`
	ProfitPct        float64        `json:"profit_pct"`
	TotalStake       float64        `json:"total_stake"`
	GuaranteedProfit float64        `json:"guaranteed_profit"`
}

// ArbitrageFinder scans odds for cross-book arbitrage
type ArbitrageFinder struct{}

func NewArbitrageFinder() *ArbitrageFinder {
	return &ArbitrageFinder{}
}

type arbGroup struct {
	eventID string
	sport   betting.Sport
	market  string
	point   *float64
	best    map[string]betting.OddsLine
}

// Find returns every market whose best prices imply less than 100%,
// with stakes splitting totalStake so each outcome returns the same amount.
func (f *ArbitrageFinder) Find(odds map[string][]betting.OddsLine, totalStake float64) []Arbitrage {
	groups := make(map[string]*arbGroup)
	for eventID, lines := range odds {
		for _, l := range lines {
			if l.Price == 0 {
				continue
			}
			key, point := arbKey(eventID, l)
			g, ok := groups[key]
			if !ok {
				g = &arbGroup{eventID: eventID, sport: l.Sport, market: l.Market, point: point, best: make(map[string]betting.OddsLine)}
				groups[key] = g
			}
			if cur, ok := g.best[l.Outcome]; !ok || l.Decimal() > cur.Decimal() {
				g.best[l.Outcome] = l
			}
		}
	}

	var out []Arbitrage
	for _, g := range groups {
		if len(g.best) < 2 {
			continue
		}
		if arb, ok := buildArbitrage(g, totalStake); ok {
			out = append(out, arb)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProfitPct != out[j].ProfitPct {
			return out[i].ProfitPct > out[j].ProfitPct
		}
		return out[i].EventID+out[i].Market < out[j].EventID+out[j].Market
	})
	return out
}

// arbKey groups lines that are opposite sides of the same proposition.
// Spread points are keyed from the home side so +3.5 away pairs with -3.5 home.
func arbKey(eventID string, l betting.OddsLine) (string, *float64) {
	parts := []string{eventID, l.Market, l.Participant}
	var point *float64
	if l.Point != nil {
		p := *l.Point
		if l.Market == "spreads" && l.Outcome != l.HomeTeam {
			p = -p
		}
		point = &p
		parts = append(parts, fmt.Sprintf("%.2f", p))
	}
	return strings.Join(parts, "|"), point
}

func buildArbitrage(g *arbGroup, totalStake float64) (Arbitrage, bool) {
	outcomes := make([]string, 0, len(g.best))
	for o := range g.best {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	sum := 0.0
	for _, o := range outcomes {
		sum += 1 / g.best[o].Decimal()
	}
	if sum >= 1 {
		return Arbitrage{}, false
	}

	arb := Arbitrage{
		EventID:    g.eventID,
		Sport:      g.sport,
		Market:     g.market,
		Point:      g.point,
		ImpliedSum: sum,
		ProfitPct:  (1/sum - 1) * 100,
		TotalStake: totalStake,
	}
	total := decimal.NewFromFloat(totalStake)
	for _, o := range outcomes {
		l := g.best[o]
		share := (1 / l.Decimal()) / sum
		arb.Legs = append(arb.Legs, ArbitrageLeg{
			Outcome:     o,
			Bookmaker:   l.Bookmaker,
			Price:       l.Price,
			DecimalOdds: l.Decimal(),
			Stake:       total.Mul(decimal.NewFromFloat(share)).Round(2).InexactFloat64(),
		})
	}
	arb.GuaranteedProfit = RoundMoney(totalStake/sum - totalStake)
	return arb, true
}
