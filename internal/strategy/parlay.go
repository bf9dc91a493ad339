package strategy

import (
	"errors"
	"sort"
)

var ErrInvalidLegCount = errors.New("parlay legs must be between 2 and 6")

const (
	minParlayLegs       = 2
	maxParlayLegs       = 6
	maxParlayCandidates = 12
)

// Parlay is a combination of independent opportunities
type Parlay struct {
	Legs          []Opportunity `json:"legs"`
	Probability   float64       `json:"probability"`
	DecimalOdds   float64       `json:"decimal_odds"`
	Price         int           `json:"price"`
	ExpectedValue float64       `json:"expected_value"`
}

// ParlayBuilder combines top opportunities into parlays
type ParlayBuilder struct{}

func NewParlayBuilder() *ParlayBuilder {
	return &ParlayBuilder{}
}

// Build returns up to maxParlays parlays of exactly legs legs, best expected value
// first. Legs never share an event or a player and are treated as independent.
func (b *ParlayBuilder) Build(opps []Opportunity, legs, maxParlays int) ([]Parlay, error) {
	if legs < minParlayLegs || legs > maxParlayLegs {
		return nil, ErrInvalidLegCount
	}
	if maxParlays <= 0 {
		maxParlays = 10
	}

	candidates := make([]Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.ExpectedValue > 0 && o.Probability > 0 && o.DecimalOdds > 1 {
			candidates = append(candidates, o)
		}
	}
	sortOpportunities(candidates)
	if len(candidates) > maxParlayCandidates {
		candidates = candidates[:maxParlayCandidates]
	}

	var parlays []Parlay
	combo := make([]Opportunity, 0, legs)
	var walk func(start int)
	walk = func(start int) {
		if len(combo) == legs {
			parlays = append(parlays, newParlay(combo))
			return
		}
		for i := start; i < len(candidates); i++ {
			if conflicts(combo, candidates[i]) {
				continue
			}
			combo = append(combo, candidates[i])
			walk(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0)

	sort.SliceStable(parlays, func(i, j int) bool {
		return parlays[i].ExpectedValue > parlays[j].ExpectedValue
	})
	if len(parlays) > maxParlays {
		parlays = parlays[:maxParlays]
	}
	return parlays, nil
}

func conflicts(combo []Opportunity, o Opportunity) bool {
	for _, c := range combo {
		if o.EventID != "" && c.EventID == o.EventID {
			return true
		}
		if o.PlayerID != "" && c.PlayerID == o.PlayerID {
			return true
		}
	}
	return false
}

func newParlay(combo []Opportunity) Parlay {
	p := Parlay{
		Legs:        append([]Opportunity(nil), combo...),
		Probability: 1,
		DecimalOdds: 1,
	}
	for _, leg := range combo {
		p.Probability *= leg.Probability
		p.DecimalOdds *= leg.DecimalOdds
	}
	p.ExpectedValue = p.Probability*p.DecimalOdds - 1
	if price, err := DecimalToAmerican(p.DecimalOdds); err == nil {
		p.Price = price
	}
	return p
}
