package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// KellyResult is the stake sizing for one bet
type KellyResult struct {
	Probability float64 `json:"probability"`
	DecimalOdds float64 `json:"decimal_odds"`
	Edge        float64 `json:"edge"`
	FullKelly   float64 `json:"full_kelly"`
	Fraction    float64 `json:"fraction"`
	Stake       float64 `json:"stake"`
	FullStake   float64 `json:"full_stake"`
	CappedAtMax bool    `json:"capped_at_max"`
	NoEdge      bool    `json:"no_edge"`
}

// Kelly sizes a bet with fractional Kelly capped at maxPct of bankroll.
// A non-positive edge yields a zero stake rather than an error.
func Kelly(prob float64, american int, fraction, maxPct, bankroll float64) (KellyResult, error) {
	if prob <= 0 || prob >= 1 {
		return KellyResult{}, ErrInvalidProbability
	}
	if fraction <= 0 || fraction > 1 {
		return KellyResult{}, fmt.Errorf("kelly fraction must be in (0, 1], got %v", fraction)
	}
	if bankroll <= 0 {
		return KellyResult{}, fmt.Errorf("bankroll must be positive, got %v", bankroll)
	}
	dec, err := AmericanToDecimal(american)
	if err != nil {
		return KellyResult{}, err
	}

	b := dec - 1.0
	q := 1.0 - prob
	full := (b*prob - q) / b

	result := KellyResult{
		Probability: prob,
		DecimalOdds: dec,
		Edge:        prob*dec - 1.0,
		FullKelly:   full,
	}
	if full <= 0 {
		result.FullKelly = 0
		result.NoEdge = true
		return result, nil
	}

	f := full * fraction
	if maxPct > 0 && f > maxPct {
		f = maxPct
		result.CappedAtMax = true
	}
	result.Fraction = f
	result.Stake = RoundMoney(bankroll * f)
	result.FullStake = RoundMoney(bankroll * full)
	return result, nil
}

// RoundMoney rounds an amount to cents
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// SumMoney adds amounts without float drift
func SumMoney(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}
