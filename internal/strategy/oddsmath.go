package strategy

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidOdds        = errors.New("invalid odds")
	ErrInvalidProbability = errors.New("probability must be between 0 and 1")
	ErrNoVig              = errors.New("no vig detected: probabilities sum to <= 1.0")
)

// AmericanToDecimal converts American odds to decimal odds
// +150 → 2.50, -150 → 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 || (american > -100 && american < 100) {
		return 0, fmt.Errorf("%w: American odds %d", ErrInvalidOdds, american)
	}
	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}
	return 100.0/float64(-american) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to American odds
func DecimalToAmerican(dec float64) (int, error) {
	if dec <= 1.0 || math.IsNaN(dec) || math.IsInf(dec, 0) {
		return 0, fmt.Errorf("%w: decimal odds %v", ErrInvalidOdds, dec)
	}
	if dec >= 2.0 {
		return int(math.Round((dec - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (dec - 1.0))), nil
}

// ImpliedProbability converts American odds to the bookmaker's implied probability
func ImpliedProbability(american int) (float64, error) {
	dec, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return 1.0 / dec, nil
}

// ProbabilityToAmerican returns the fair American price for a probability
func ProbabilityToAmerican(p float64) (int, error) {
	if p <= 0 || p >= 1 {
		return 0, ErrInvalidProbability
	}
	return DecimalToAmerican(1.0 / p)
}

// RemoveVigMultiplicative normalizes implied probabilities so they sum to 1
func RemoveVigMultiplicative(probs []float64) ([]float64, error) {
	total, err := overround(probs)
	if err != nil {
		return nil, err
	}
	fair := make([]float64, len(probs))
	for i, p := range probs {
		fair[i] = p / total
	}
	return fair, nil
}

// RemoveVigAdditive subtracts an equal share of the overround from each outcome
func RemoveVigAdditive(probs []float64) ([]float64, error) {
	total, err := overround(probs)
	if err != nil {
		return nil, err
	}
	share := (total - 1.0) / float64(len(probs))
	fair := make([]float64, len(probs))
	for i, p := range probs {
		fair[i] = p - share
	}
	return fair, nil
}

func overround(probs []float64) (float64, error) {
	if len(probs) < 2 {
		return 0, fmt.Errorf("need at least 2 outcomes, got %d", len(probs))
	}
	total := 0.0
	for _, p := range probs {
		if p <= 0 || p >= 1 {
			return 0, ErrInvalidProbability
		}
		total += p
	}
	if total <= 1.0 {
		return 0, ErrNoVig
	}
	return total, nil
}

// ExpectedValue is the expected profit per unit staked at decimal odds
func ExpectedValue(prob, dec float64) float64 {
	return prob*(dec-1.0) - (1.0 - prob)
}

// Edge is fair probability over implied probability, minus one
func Edge(fair, implied float64) (float64, error) {
	if fair <= 0 || fair >= 1 || implied <= 0 || implied >= 1 {
		return 0, ErrInvalidProbability
	}
	return fair/implied - 1.0, nil
}
