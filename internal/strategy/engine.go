package strategy

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// EngineConfig tunes opportunity generation
type EngineConfig struct {
	Bankroll             float64
	DefaultPickPrice     int
	MinStdDevRatio       float64
	MinBooksForConsensus int
	FullEdge             float64
}

// StrategyEngine turns a snapshot plus analysis into scored opportunities
type StrategyEngine struct {
	cfg    EngineConfig
	logger *logrus.Logger
}

// NewStrategyEngine creates an engine, filling unset config with defaults
func NewStrategyEngine(cfg EngineConfig, logger *logrus.Logger) *StrategyEngine {
	if cfg.Bankroll <= 0 {
		cfg.Bankroll = 1000
	}
	if cfg.DefaultPickPrice == 0 {
		cfg.DefaultPickPrice = -119
	}
	if cfg.MinStdDevRatio <= 0 {
		cfg.MinStdDevRatio = 0.15
	}
	if cfg.MinBooksForConsensus <= 0 {
		cfg.MinBooksForConsensus = 2
	}
	if cfg.FullEdge <= 0 {
		cfg.FullEdge = 0.10
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &StrategyEngine{cfg: cfg, logger: logger}
}

// Bankroll returns the bankroll stakes are sized against
func (e *StrategyEngine) Bankroll() float64 {
	return e.cfg.Bankroll
}

// Generate scores every positive expected value opportunity in the snapshot
func (e *StrategyEngine) Generate(data *betting.IntegratedData, analysis *Analysis, profile RiskProfile) ([]Opportunity, error) {
	if data == nil {
		return nil, betting.ErrNoData
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	var opps []Opportunity
	if analysis != nil {
		opps = append(opps, e.bookProps(data, analysis, profile)...)
		opps = append(opps, e.pickemProps(data, analysis, profile)...)
	}
	opps = append(opps, e.valueBets(data, profile)...)

	sortOpportunities(opps)

	e.logger.WithFields(logrus.Fields{
		"component":     "strategy_engine",
		"snapshot_id":   data.ID,
		"profile":       profile.Name,
		"opportunities": len(opps),
	}).Debug("Generated opportunities")

	return opps, nil
}

type propKey struct {
	player string
	stat   string
	side   string
	line   float64
}

// bookProps prices player props offered by sportsbooks, best price per side and line
func (e *StrategyEngine) bookProps(data *betting.IntegratedData, analysis *Analysis, profile RiskProfile) []Opportunity {
	best := make(map[propKey]betting.OddsLine)
	for _, lines := range data.Odds {
		for _, l := range lines {
			if !strings.HasPrefix(l.Market, "player_") || l.Participant == "" || l.Point == nil {
				continue
			}
			side := strings.ToLower(l.Outcome)
			if side != "over" && side != "under" {
				continue
			}
			k := propKey{player: l.PlayerID(), stat: strings.TrimPrefix(l.Market, "player_"), side: side, line: *l.Point}
			if cur, ok := best[k]; !ok || l.Decimal() > cur.Decimal() {
				best[k] = l
			}
		}
	}

	var opps []Opportunity
	for k, l := range best {
		pred, ok := analysis.Lookup(k.player, k.stat)
		if !ok {
			continue
		}
		if opp, ok := e.scoreProp(pred, k.side, k.line, l.Price, l.Bookmaker, l.Market, l.EventID, false, data, profile); ok {
			opps = append(opps, opp)
		}
	}
	return opps
}

// pickemProps prices pick'em lines at the default pick'em price
func (e *StrategyEngine) pickemProps(data *betting.IntegratedData, analysis *Analysis, profile RiskProfile) []Opportunity {
	var opps []Opportunity
	for playerID, projections := range data.Projections {
		for _, p := range projections {
			if !p.IsPropLine() {
				continue
			}
			pred, ok := analysis.Lookup(playerID, p.StatType)
			if !ok {
				continue
			}
			for _, side := range []string{"over", "under"} {
				if opp, ok := e.scoreProp(pred, side, p.Line, e.cfg.DefaultPickPrice, p.Source, "pickem_"+p.StatType, p.EventID, true, data, profile); ok {
					opps = append(opps, opp)
				}
			}
		}
	}
	return opps
}

func (e *StrategyEngine) scoreProp(pred Prediction, side string, line float64, price int, book, market, eventID string, pickem bool, data *betting.IntegratedData, profile RiskProfile) (Opportunity, bool) {
	std := math.Max(pred.StdDev, pred.Mean*e.cfg.MinStdDevRatio)
	if pred.Mean <= 0 || std <= 0 {
		return Opportunity{}, false
	}
	dec, err := AmericanToDecimal(price)
	if err != nil {
		return Opportunity{}, false
	}

	dist := distuv.Normal{Mu: pred.Mean, Sigma: std}
	pOver := 1 - dist.CDF(line)
	prob := pOver
	if side == "under" {
		prob = 1 - pOver
	}
	prob = betting.Clamp(prob, 0.01, 0.99)

	ev := ExpectedValue(prob, dec)
	if ev <= 0 {
		return Opportunity{}, false
	}

	sentiment := (pred.Sentiment + 1) / 2
	injury := pred.InjuryStatus.AvailabilityFactor()
	if pred.InjuryStatus == "" {
		injury = 1
	}
	if side == "under" {
		sentiment = 1 - sentiment
		injury = 1
	}
	edgeScore := betting.Clamp01(ev / e.cfg.FullEdge)
	confidence := weightedConfidence(profile.Weights, edgeScore, pred.Consistency, betting.Clamp01(float64(pred.Sources)/3), sentiment, injury)

	selection := "Over"
	if side == "under" {
		selection = "Under"
	}
	if eventID == "" {
		eventID = pred.EventID
	}

	opp := Opportunity{
		Kind:               KindProp,
		Sport:              pred.Sport,
		EventID:            eventID,
		PlayerID:           pred.PlayerID,
		PlayerName:         pred.PlayerName,
		StatType:           pred.StatType,
		Market:             market,
		Selection:          selection,
		Line:               line,
		Bookmaker:          book,
		Price:              price,
		DecimalOdds:        dec,
		Probability:        prob,
		ImpliedProbability: 1 / dec,
		ExpectedValue:      ev,
		Confidence:         confidence,
		Score:              betting.Clamp01(0.6*confidence + 0.4*edgeScore),
		RiskLevel:          propRisk(confidence, pred.CoefficientOfVariation(), dec, pred.InjuryStatus),
		Reasoning: []string{
			fmt.Sprintf("projection %.1f vs line %.1f (std %.1f)", pred.Mean, line, std),
			fmt.Sprintf("model %.1f%% vs implied %.1f%%", prob*100, 100/dec),
		},
	}

	opp.ID = opportunityID(opp)
	if pickem {
		opp.Warnings = append(opp.Warnings, fmt.Sprintf("pick'em line priced at %+d", price))
	}
	if status := pred.InjuryStatus; status != "" && status != betting.InjuryActive {
		opp.Warnings = append(opp.Warnings, fmt.Sprintf("%s listed as %s", pred.PlayerName, status))
	}
	if report, ok := data.Injuries[pred.PlayerID]; ok && report.Detail != "" && pred.InjuryStatus != betting.InjuryActive {
		opp.Reasoning = append(opp.Reasoning, "injury: "+report.Detail)
	}
	e.size(&opp, profile)
	return opp, true
}

// valueBets compares each book's moneyline against the no-vig consensus of all books
func (e *StrategyEngine) valueBets(data *betting.IntegratedData, profile RiskProfile) []Opportunity {
	var opps []Opportunity
	for eventID, lines := range data.Odds {
		books := make(map[string]map[string]betting.OddsLine)
		for _, l := range lines {
			if l.Market != "h2h" {
				continue
			}
			if books[l.Bookmaker] == nil {
				books[l.Bookmaker] = make(map[string]betting.OddsLine)
			}
			books[l.Bookmaker][l.Outcome] = l
		}

		fairByOutcome := make(map[string][]float64)
		for _, outcomes := range books {
			if len(outcomes) < 2 {
				continue
			}
			names := sortedOutcomes(outcomes)
			probs := make([]float64, len(names))
			for i, name := range names {
				probs[i] = outcomes[name].ImpliedProbability()
			}
			fair, err := RemoveVigMultiplicative(probs)
			if err != nil {
				continue
			}
			for i, name := range names {
				fairByOutcome[name] = append(fairByOutcome[name], fair[i])
			}
		}

		for outcome, fairs := range fairByOutcome {
			if len(fairs) < e.cfg.MinBooksForConsensus {
				continue
			}
			consensus := stat.Mean(fairs, nil)
			dispersion := stat.StdDev(fairs, nil)
			for book, outcomes := range books {
				l, ok := outcomes[outcome]
				if !ok {
					continue
				}
				dec := l.Decimal()
				ev := ExpectedValue(consensus, dec)
				if ev <= 0 {
					continue
				}
				edgeScore := betting.Clamp01(ev / e.cfg.FullEdge)
				agreement := betting.Clamp01(1 - dispersion*10)
				confidence := weightedConfidence(profile.Weights, edgeScore, agreement, betting.Clamp01(float64(len(fairs))/3), 0.5, 1)

				opp := Opportunity{
					Kind:               KindValue,
					Sport:              l.Sport,
					EventID:            eventID,
					Market:             l.Market,
					Selection:          outcome,
					Bookmaker:          book,
					Price:              l.Price,
					DecimalOdds:        dec,
					Probability:        consensus,
					ImpliedProbability: 1 / dec,
					ExpectedValue:      ev,
					Confidence:         confidence,
					Score:              betting.Clamp01(0.6*confidence + 0.4*edgeScore),
					RiskLevel:          marketRisk(confidence, dispersion/consensus, dec),
					Reasoning: []string{
						fmt.Sprintf("%s %+d vs no-vig consensus %.1f%% across %d books", book, l.Price, consensus*100, len(fairs)),
						fmt.Sprintf("%s vs %s", l.AwayTeam, l.HomeTeam),
					},
				}
				opp.ID = opportunityID(opp)
				e.size(&opp, profile)
				opps = append(opps, opp)
			}
		}
	}
	return opps
}

// opportunityNamespace scopes the name-based opportunity IDs
var opportunityNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a10-b2c4d6e8f0a1")

// opportunityID derives a stable ID from what the bet is, so the same bet
// found in successive syncs keeps its ID. Price and probability are excluded.
func opportunityID(o Opportunity) string {
	key := strings.Join([]string{
		string(o.Kind),
		o.EventID,
		o.PlayerID,
		o.StatType,
		o.Market,
		o.Selection,
		strconv.FormatFloat(o.Line, 'f', -1, 64),
		o.Bookmaker,
	}, "|")
	return uuid.NewSHA1(opportunityNamespace, []byte(key)).String()
}

// size applies fractional Kelly for the profile
func (e *StrategyEngine) size(opp *Opportunity, profile RiskProfile) {
	k, err := Kelly(opp.Probability, opp.Price, profile.KellyFraction, profile.MaxStakePct, e.cfg.Bankroll)
	if err != nil {
		opp.Warnings = append(opp.Warnings, "stake sizing failed: "+err.Error())
		return
	}
	opp.KellyFraction = k.Fraction
	opp.Stake = k.Stake
	if k.CappedAtMax {
		opp.Warnings = append(opp.Warnings, fmt.Sprintf("stake capped at %.0f%% of bankroll", profile.MaxStakePct*100))
	}
	if opp.Probability > 0.75 {
		opp.Warnings = append(opp.Warnings, "model probability above 75%, verify inputs")
	}
}

// weightedConfidence is the weighted mean of [0,1] components, clamped to [0,1]
func weightedConfidence(w ConfidenceWeights, edge, consistency, sources, sentiment, injury float64) float64 {
	total := w.total()
	if total <= 0 {
		return 0
	}
	sum := w.Edge*betting.Clamp01(edge) +
		w.Consistency*betting.Clamp01(consistency) +
		w.Sources*betting.Clamp01(sources) +
		w.Sentiment*betting.Clamp01(sentiment) +
		w.Injury*betting.Clamp01(injury)
	return betting.Clamp01(sum / total)
}

func propRisk(confidence, cv, dec float64, status betting.InjuryStatus) RiskLevel {
	switch status {
	case betting.InjuryDoubtful, betting.InjuryQuestionable, betting.InjuryDayToDay, betting.InjuryOut:
		return RiskHigh
	}
	if confidence < 0.5 || cv > 0.5 || dec >= 3.0 {
		return RiskHigh
	}
	if confidence >= 0.7 && cv <= 0.25 && dec < 2.5 {
		return RiskLow
	}
	return RiskMedium
}

func marketRisk(confidence, dispersion, dec float64) RiskLevel {
	if confidence < 0.5 || dispersion > 0.1 || dec >= 3.0 {
		return RiskHigh
	}
	if confidence >= 0.7 && dec < 2.5 {
		return RiskLow
	}
	return RiskMedium
}

func sortedOutcomes(outcomes map[string]betting.OddsLine) []string {
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortOpportunities orders by score, then expected value, then a stable key
func sortOpportunities(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].Score != opps[j].Score {
			return opps[i].Score > opps[j].Score
		}
		if opps[i].ExpectedValue != opps[j].ExpectedValue {
			return opps[i].ExpectedValue > opps[j].ExpectedValue
		}
		return opps[i].exclusivityKey()+opps[i].Selection+opps[i].Bookmaker < opps[j].exclusivityKey()+opps[j].Selection+opps[j].Bookmaker
	})
}
