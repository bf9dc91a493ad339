package strategy

import (
	"time"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// Prediction is the enhanced estimate for one player stat
type Prediction struct {
	PlayerID       string               `json:"player_id"`
	PlayerName     string               `json:"player_name"`
	Team           string               `json:"team,omitempty"`
	Sport          betting.Sport        `json:"sport"`
	EventID        string               `json:"event_id,omitempty"`
	StatType       string               `json:"stat_type"`
	BaseProjection float64              `json:"base_projection"`
	Mean           float64              `json:"mean"`
	StdDev         float64              `json:"std_dev"`
	Sources        int                  `json:"sources"`
	Consistency    float64              `json:"consistency"`
	Sentiment      float64              `json:"sentiment"`
	InjuryStatus   betting.InjuryStatus `json:"injury_status"`
	Trend          float64              `json:"trend"`
	Confidence     float64              `json:"confidence"`
}

// CoefficientOfVariation is StdDev relative to Mean, 1 when Mean is not positive
func (p Prediction) CoefficientOfVariation() float64 {
	if p.Mean <= 0 {
		return 1
	}
	return p.StdDev / p.Mean
}

// Analysis is the prediction output the strategy engine consumes
type Analysis struct {
	SnapshotID  string       `json:"snapshot_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Predictions []Prediction `json:"predictions"`
}

// Lookup finds the prediction for a player stat
func (a *Analysis) Lookup(playerID, statType string) (Prediction, bool) {
	if a == nil {
		return Prediction{}, false
	}
	for _, p := range a.Predictions {
		if p.PlayerID == playerID && p.StatType == statType {
			return p, true
		}
	}
	return Prediction{}, false
}

// ForPlayer returns every prediction for a player
func (a *Analysis) ForPlayer(playerID string) []Prediction {
	if a == nil {
		return nil
	}
	var out []Prediction
	for _, p := range a.Predictions {
		if p.PlayerID == playerID {
			out = append(out, p)
		}
	}
	return out
}

// OpportunityKind distinguishes player props from market value bets
type OpportunityKind string

const (
	KindProp  OpportunityKind = "prop"
	KindValue OpportunityKind = "value"
)

// Opportunity is a scored betting opportunity
type Opportunity struct {
	ID                 string          `json:"id"`
	Kind               OpportunityKind `json:"kind"`
	Sport              betting.Sport   `json:"sport"`
	EventID            string          `json:"event_id,omitempty"`
	PlayerID           string          `json:"player_id,omitempty"`
	PlayerName         string          `json:"player_name,omitempty"`
	StatType           string          `json:"stat_type,omitempty"`
	Market             string          `json:"market"`
	Selection          string          `json:"selection"`
	Line               float64         `json:"line,omitempty"`
	Bookmaker          string          `json:"bookmaker"`
	Price              int             `json:"price"`
	DecimalOdds        float64         `json:"decimal_odds"`
	Probability        float64         `json:"probability"`
	ImpliedProbability float64         `json:"implied_probability"`
	ExpectedValue      float64         `json:"expected_value"`
	Confidence         float64         `json:"confidence"`
	Score              float64         `json:"score"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	KellyFraction      float64         `json:"kelly_fraction"`
	Stake              float64         `json:"stake"`
	Warnings           []string        `json:"warnings,omitempty"`
	Reasoning          []string        `json:"reasoning,omitempty"`
}

// exclusivityKey is the key on which only one bet is kept
func (o Opportunity) exclusivityKey() string {
	if o.Kind == KindProp && o.PlayerID != "" {
		return "player:" + o.PlayerID
	}
	return "event:" + o.EventID
}

// Recommendation is the final bet slip for one risk profile
type Recommendation struct {
	Profile        string        `json:"profile"`
	SnapshotID     string        `json:"snapshot_id"`
	GeneratedAt    time.Time     `json:"generated_at"`
	Bankroll       float64       `json:"bankroll"`
	Bets           []Opportunity `json:"bets"`
	TotalStake     float64       `json:"total_stake"`
	ExpectedProfit float64       `json:"expected_profit"`
	Considered     int           `json:"considered"`
	Filtered       int           `json:"filtered"`
}
