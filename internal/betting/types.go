package betting

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ErrNoData is returned when a source or snapshot holds nothing usable.
var ErrNoData = errors.New("no data available")

// Sport represents the sport type
type Sport string

const (
	SportNBA Sport = "nba"
	SportNFL Sport = "nfl"
	SportMLB Sport = "mlb"
	SportNHL Sport = "nhl"
)

// ParseSport maps loose sport names to a Sport.
func ParseSport(raw string) (Sport, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "nba", "basketball", "basketball_nba":
		return SportNBA, true
	case "nfl", "football", "americanfootball_nfl":
		return SportNFL, true
	case "mlb", "baseball", "baseball_mlb":
		return SportMLB, true
	case "nhl", "hockey", "icehockey_nhl":
		return SportNHL, true
	default:
		return "", false
	}
}

// DataType is the kind of data an adapter contributes
type DataType string

const (
	DataProjections DataType = "projections"
	DataSentiment   DataType = "sentiment"
	DataOdds        DataType = "odds"
	DataInjuries    DataType = "injuries"
)

// Projection is a stat projection for a player. Line > 0 marks a pick'em prop line.
type Projection struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Team       string    `json:"team,omitempty"`
	Position   string    `json:"position,omitempty"`
	Sport      Sport     `json:"sport"`
	EventID    string    `json:"event_id,omitempty"`
	StatType   string    `json:"stat_type"`
	Value      float64   `json:"value"`
	Line       float64   `json:"line,omitempty"`
	Salary     int       `json:"salary,omitempty"`
	Source     string    `json:"source"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsPropLine reports whether the projection carries a market line
func (p Projection) IsPropLine() bool {
	return p.Line > 0
}

// SentimentScore aggregates social chatter about a player
type SentimentScore struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Score      float64   `json:"score"` // -1 (negative) .. 1 (positive)
	Volume     int       `json:"volume"`
	Positive   int       `json:"positive"`
	Negative   int       `json:"negative"`
	Source     string    `json:"source"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OddsLine is one bookmaker price for one outcome of a market
type OddsLine struct {
	EventID      string    `json:"event_id"`
	Sport        Sport     `json:"sport"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
	Bookmaker    string    `json:"bookmaker"`
	Market       string    `json:"market"`  // "h2h", "spreads", "totals", "player_points"
	Outcome      string    `json:"outcome"` // team name, "Over", "Under"
	Participant  string    `json:"participant,omitempty"`
	Point        *float64  `json:"point,omitempty"`
	Price        int       `json:"price"` // American odds
	UpdatedAt    time.Time `json:"updated_at"`
}

// Decimal returns the decimal odds, 0 for an invalid price
func (o OddsLine) Decimal() float64 {
	switch {
	case o.Price > 0:
		return float64(o.Price)/100.0 + 1.0
	case o.Price < 0:
		return 100.0/float64(-o.Price) + 1.0
	default:
		return 0
	}
}

// ImpliedProbability returns 1/decimal, 0 for an invalid price
func (o OddsLine) ImpliedProbability() float64 {
	d := o.Decimal()
	if d <= 0 {
		return 0
	}
	return 1.0 / d
}

// PlayerID returns the normalized participant key for player prop markets
func (o OddsLine) PlayerID() string {
	if o.Participant == "" {
		return ""
	}
	return PlayerKey(o.Participant)
}

// InjuryStatus is a normalized availability designation
type InjuryStatus string

const (
	InjuryOut          InjuryStatus = "out"
	InjuryDoubtful     InjuryStatus = "doubtful"
	InjuryQuestionable InjuryStatus = "questionable"
	InjuryProbable     InjuryStatus = "probable"
	InjuryDayToDay     InjuryStatus = "day-to-day"
	InjuryActive       InjuryStatus = "active"
)

// ParseInjuryStatus normalizes provider status strings
func ParseInjuryStatus(raw string) InjuryStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "out"), strings.Contains(s, "injured reserve"), s == "ir", strings.Contains(s, "suspend"):
		return InjuryOut
	case strings.Contains(s, "doubt"):
		return InjuryDoubtful
	case strings.Contains(s, "question"), s == "gtd", strings.Contains(s, "game-time"):
		return InjuryQuestionable
	case strings.Contains(s, "probable"):
		return InjuryProbable
	case strings.Contains(s, "day"):
		return InjuryDayToDay
	default:
		return InjuryActive
	}
}

// AvailabilityFactor is the expected share of normal production
func (s InjuryStatus) AvailabilityFactor() float64 {
	switch s {
	case InjuryOut:
		return 0
	case InjuryDoubtful:
		return 0.25
	case InjuryQuestionable:
		return 0.8
	case InjuryDayToDay:
		return 0.85
	case InjuryProbable:
		return 0.95
	default:
		return 1
	}
}

// InjuryReport is the latest injury designation for a player
type InjuryReport struct {
	PlayerID   string       `json:"player_id"`
	PlayerName string       `json:"player_name"`
	Team       string       `json:"team,omitempty"`
	Status     InjuryStatus `json:"status"`
	Detail     string       `json:"detail,omitempty"`
	Source     string       `json:"source"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Trend is the change for a player between two consecutive snapshots
type Trend struct {
	PlayerID        string  `json:"player_id"`
	ProjectionDelta float64 `json:"projection_delta"`
	SentimentDelta  float64 `json:"sentiment_delta"`
	Direction       string  `json:"direction"` // "up", "down", "flat"
}

// SourcePayload is what a single adapter fetch yields
type SourcePayload struct {
	Source      string           `json:"source"`
	FetchedAt   time.Time        `json:"fetched_at"`
	Projections []Projection     `json:"projections,omitempty"`
	Sentiment   []SentimentScore `json:"sentiment,omitempty"`
	Odds        []OddsLine       `json:"odds,omitempty"`
	Injuries    []InjuryReport   `json:"injuries,omitempty"`
}

// Len is the number of records in the payload
func (p *SourcePayload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Projections) + len(p.Sentiment) + len(p.Odds) + len(p.Injuries)
}

// Adapter wraps one external data provider
type Adapter interface {
	Name() string
	DataType() DataType
	Fetch(ctx context.Context) (*SourcePayload, error)
}

// IntegratedData is the merged view of every adapter's latest data
type IntegratedData struct {
	ID            string                    `json:"id"`
	Timestamp     time.Time                 `json:"timestamp"`
	Projections   map[string][]Projection   `json:"projections"` // by player ID
	Sentiment     map[string]SentimentScore `json:"sentiment"`   // by player ID
	Odds          map[string][]OddsLine     `json:"odds"`        // by event ID
	Injuries      map[string]InjuryReport   `json:"injuries"`    // by player ID
	Trends        map[string]Trend          `json:"trends"`      // by player ID
	Sources       []string                  `json:"sources"`
	FailedSources []string                  `json:"failed_sources"`
}

// NewIntegratedData returns an empty snapshot
func NewIntegratedData(id string, ts time.Time) *IntegratedData {
	return &IntegratedData{
		ID:          id,
		Timestamp:   ts,
		Projections: make(map[string][]Projection),
		Sentiment:   make(map[string]SentimentScore),
		Odds:        make(map[string][]OddsLine),
		Injuries:    make(map[string]InjuryReport),
		Trends:      make(map[string]Trend),
	}
}

// Counts returns entity counts for logging and summaries
func (d *IntegratedData) Counts() map[string]int {
	if d == nil {
		return map[string]int{}
	}
	oddsLines := 0
	for _, lines := range d.Odds {
		oddsLines += len(lines)
	}
	return map[string]int{
		"players":    len(d.Projections),
		"sentiment":  len(d.Sentiment),
		"events":     len(d.Odds),
		"odds_lines": oddsLines,
		"injuries":   len(d.Injuries),
		"trends":     len(d.Trends),
	}
}

// Clone returns a deep copy safe to hand to other goroutines
func (d *IntegratedData) Clone() *IntegratedData {
	if d == nil {
		return nil
	}
	out := NewIntegratedData(d.ID, d.Timestamp)
	for k, v := range d.Projections {
		out.Projections[k] = append([]Projection(nil), v...)
	}
	for k, v := range d.Sentiment {
		out.Sentiment[k] = v
	}
	for k, v := range d.Odds {
		out.Odds[k] = append([]OddsLine(nil), v...)
	}
	for k, v := range d.Injuries {
		out.Injuries[k] = v
	}
	for k, v := range d.Trends {
		out.Trends[k] = v
	}
	out.Sources = append([]string(nil), d.Sources...)
	out.FailedSources = append([]string(nil), d.FailedSources...)
	return out
}

// PlayerIDs returns every player with projections, sorted
func (d *IntegratedData) PlayerIDs() []string {
	ids := make([]string, 0, len(d.Projections))
	for id := range d.Projections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SourceMetrics are the moving-average health numbers for one source
type SourceMetrics struct {
	Source      string    `json:"source"`
	Reliability float64   `json:"reliability"` // EMA of fetch success, 0..1
	LatencyMs   float64   `json:"latency_ms"`  // EMA of fetch latency
	Fetches     int64     `json:"fetches"`
	Failures    int64     `json:"failures"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// PlayerKey normalizes a player name into the cross-source player ID
func PlayerKey(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case r == '.' || r == '\'':
			// "P.J." and "De'Aaron" collapse without separators
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Clamp01 clamps x to [0, 1], mapping NaN to 0
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}

// Clamp clamps x to [lo, hi], mapping NaN to lo
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}
