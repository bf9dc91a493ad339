package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// BestBetSelector narrows opportunities to a bet slip for one profile
type BestBetSelector struct {
	bankroll float64
	now      func() time.Time
}

// NewBestBetSelector creates a selector sizing against bankroll
func NewBestBetSelector(bankroll float64) *BestBetSelector {
	return &BestBetSelector{bankroll: bankroll, now: time.Now}
}

// Select filters by the profile thresholds, keeps one bet per player or event,
// caps the count at MaxBets and scales stakes down to the exposure limit.
func (s *BestBetSelector) Select(opps []Opportunity, profile RiskProfile) Recommendation {
	rec := Recommendation{
		Profile:     profile.Name,
		GeneratedAt: s.now().UTC(),
		Bankroll:    s.bankroll,
		Considered:  len(opps),
		Bets:        []Opportunity{},
	}

	eligible := make([]Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.Confidence < profile.MinConfidence ||
			o.ExpectedValue < profile.MinExpectedValue ||
			!profile.Allows(o.RiskLevel) ||
			o.Stake <= 0 {
			continue
		}
		eligible = append(eligible, o)
	}
	sortOpportunities(eligible)

	seen := make(map[string]bool)
	for _, o := range eligible {
		if profile.MaxBets > 0 && len(rec.Bets) >= profile.MaxBets {
			break
		}
		key := o.exclusivityKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		rec.Bets = append(rec.Bets, o)
	}
	rec.Filtered = len(opps) - len(rec.Bets)

	s.applyExposureCap(rec.Bets, profile.MaxExposurePct)

	total := decimal.Zero
	profit := decimal.Zero
	for _, b := range rec.Bets {
		stake := decimal.NewFromFloat(b.Stake)
		total = total.Add(stake)
		profit = profit.Add(stake.Mul(decimal.NewFromFloat(b.ExpectedValue)))
	}
	rec.TotalStake = total.Round(2).InexactFloat64()
	rec.ExpectedProfit = profit.Round(2).InexactFloat64()
	return rec
}

// applyExposureCap scales stakes proportionally so their sum stays within
// maxPct of the bankroll. Scaled stakes round down to cents.
func (s *BestBetSelector) applyExposureCap(bets []Opportunity, maxPct float64) {
	if maxPct <= 0 || len(bets) == 0 {
		return
	}
	limit := decimal.NewFromFloat(s.bankroll).Mul(decimal.NewFromFloat(maxPct))
	total := decimal.Zero
	for _, b := range bets {
		total = total.Add(decimal.NewFromFloat(b.Stake))
	}
	if total.LessThanOrEqual(limit) {
		return
	}
	for i := range bets {
		scaled := decimal.NewFromFloat(bets[i].Stake).Mul(limit).Div(total).RoundDown(2)
		bets[i].Stake = scaled.InexactFloat64()
		bets[i].Warnings = append(bets[i].Warnings, "stake scaled to respect exposure limit")
	}
}
