package providers

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// TheOddsAdapter fetches bookmaker prices from The Odds API v4
type TheOddsAdapter struct {
	*baseAdapter
	apiKey        string
	regions       string
	markets       []string
	propMarkets   []string
	maxPropEvents int
}

// TheOddsOptions extends Options with market selection
type TheOddsOptions struct {
	Options
	Regions       string
	Markets       []string
	PropMarkets   []string
	MaxPropEvents int
}

// The Odds API response structures
type oddsOutcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point"`
}

type oddsMarket struct {
	Key        string        `json:"key"`
	LastUpdate time.Time     `json:"last_update"`
	Outcomes   []oddsOutcome `json:"outcomes"`
}

type oddsBookmaker struct {
	Key     string       `json:"key"`
	Title   string       `json:"title"`
	Markets []oddsMarket `json:"markets"`
}

type oddsGame struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []oddsBookmaker `json:"bookmakers"`
}

var oddsSportKeys = map[betting.Sport]string{
	betting.SportNBA: "basketball_nba",
	betting.SportNFL: "americanfootball_nfl",
	betting.SportMLB: "baseball_mlb",
	betting.SportNHL: "icehockey_nhl",
}

// NewTheOddsAdapter creates the odds adapter
func NewTheOddsAdapter(opts TheOddsOptions) *TheOddsAdapter {
	if opts.Regions == "" {
		opts.Regions = "us"
	}
	if len(opts.Markets) == 0 {
		opts.Markets = []string{"h2h", "spreads", "totals"}
	}
	if opts.MaxPropEvents == 0 {
		opts.MaxPropEvents = 5
	}
	return &TheOddsAdapter{
		baseAdapter:   newBaseAdapter("theodds", betting.DataOdds, opts.Options, nil),
		apiKey:        opts.APIKey,
		regions:       opts.Regions,
		markets:       opts.Markets,
		propMarkets:   opts.PropMarkets,
		maxPropEvents: opts.MaxPropEvents,
	}
}

// Fetch returns game and player prop prices for every configured sport
func (a *TheOddsAdapter) Fetch(ctx context.Context) (*betting.SourcePayload, error) {
	return a.fetchCached(ctx, a.load)
}

func (a *TheOddsAdapter) load(ctx context.Context) (*betting.SourcePayload, error) {
	payload := &betting.SourcePayload{}
	var lastErr error
	for _, sport := range a.sports {
		key, ok := oddsSportKeys[sport]
		if !ok {
			continue
		}

		var games []oddsGame
		query := url.Values{
			"apiKey":     {a.apiKey},
			"regions":    {a.regions},
			"markets":    {strings.Join(a.markets, ",")},
			"oddsFormat": {"american"},
		}
		if err := a.client.GetJSON(ctx, fmt.Sprintf("/v4/sports/%s/odds", key), query, &games); err != nil {
			lastErr = err
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"sport":     sport,
			}).WithError(err).Warn("Failed to fetch odds")
			continue
		}

		for _, game := range games {
			payload.Odds = append(payload.Odds, a.flatten(sport, game)...)
		}

		if len(a.propMarkets) > 0 {
			payload.Odds = append(payload.Odds, a.fetchProps(ctx, sport, key, games)...)
		}
	}
	if len(payload.Odds) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return payload, nil
}

// fetchProps loads player prop markets for the first maxPropEvents games
func (a *TheOddsAdapter) fetchProps(ctx context.Context, sport betting.Sport, sportKey string, games []oddsGame) []betting.OddsLine {
	var lines []betting.OddsLine
	for i, game := range games {
		if i >= a.maxPropEvents {
			break
		}
		var event oddsGame
		query := url.Values{
			"apiKey":     {a.apiKey},
			"regions":    {a.regions},
			"markets":    {strings.Join(a.propMarkets, ",")},
			"oddsFormat": {"american"},
		}
		path := fmt.Sprintf("/v4/sports/%s/events/%s/odds", sportKey, game.ID)
		if err := a.client.GetJSON(ctx, path, query, &event); err != nil {
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"event_id":  game.ID,
			}).WithError(err).Debug("Failed to fetch player props")
			continue
		}
		lines = append(lines, a.flatten(sport, event)...)
	}
	return lines
}

func (a *TheOddsAdapter) flatten(sport betting.Sport, game oddsGame) []betting.OddsLine {
	var lines []betting.OddsLine
	for _, book := range game.Bookmakers {
		for _, market := range book.Markets {
			for _, outcome := range market.Outcomes {
				price := int(math.Round(outcome.Price))
				if price == 0 {
					continue
				}
				line := betting.OddsLine{
					EventID:      game.ID,
					Sport:        sport,
					HomeTeam:     game.HomeTeam,
					AwayTeam:     game.AwayTeam,
					CommenceTime: game.CommenceTime,
					Bookmaker:    book.Key,
					Market:       market.Key,
					Outcome:      outcome.Name,
					Point:        outcome.Point,
					Price:        price,
					UpdatedAt:    market.LastUpdate,
				}
				if strings.HasPrefix(market.Key, "player_") {
					line.Participant = outcome.Description
				}
				lines = append(lines, line)
			}
		}
	}
	return lines
}
