package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// SportsRadarAdapter turns SportsRadar seasonal per-game averages into projections
type SportsRadarAdapter struct {
	*baseAdapter
	apiKey     string
	accessTier string
	season     string
}

// SportsRadar response structures
type sportsRadarAveragesResponse struct {
	Season struct {
		Year int    `json:"year"`
		Type string `json:"type"`
	} `json:"season"`
	Players []struct {
		ID              string `json:"id"`
		FullName        string `json:"full_name"`
		PrimaryPosition string `json:"primary_position"`
		Team            struct {
			Alias string `json:"alias"`
		} `json:"team"`
		Average map[string]float64 `json:"average"`
	} `json:"players"`
}

// sportsRadarStats maps provider stat keys onto our stat types
var sportsRadarStats = map[string]string{
	"points":            "points",
	"rebounds":          "rebounds",
	"assists":           "assists",
	"three_points_made": "threes",
	"steals":            "steals",
	"blocks":            "blocks",
	"passing_yards":     "passing_yards",
	"rushing_yards":     "rushing_yards",
	"receiving_yards":   "receiving_yards",
	"hits":              "hits",
	"strikeouts":        "strikeouts",
	"goals":             "goals",
	"shots":             "shots_on_goal",
}

// NewSportsRadarAdapter creates the projections adapter
func NewSportsRadarAdapter(opts Options) *SportsRadarAdapter {
	return &SportsRadarAdapter{
		baseAdapter: newBaseAdapter("sportsradar", betting.DataProjections, opts, nil),
		apiKey:      opts.APIKey,
		accessTier:  "trial",
	}
}

// Fetch returns per-game average projections for every configured sport
func (a *SportsRadarAdapter) Fetch(ctx context.Context) (*betting.SourcePayload, error) {
	return a.fetchCached(ctx, a.load)
}

func (a *SportsRadarAdapter) load(ctx context.Context) (*betting.SourcePayload, error) {
	payload := &betting.SourcePayload{}
	var lastErr error
	for _, sport := range a.sports {
		projections, err := a.fetchSport(ctx, sport)
		if err != nil {
			lastErr = err
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"sport":     sport,
			}).WithError(err).Warn("Failed to fetch SportsRadar averages")
			continue
		}
		payload.Projections = append(payload.Projections, projections...)
	}
	if len(payload.Projections) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return payload, nil
}

func (a *SportsRadarAdapter) fetchSport(ctx context.Context, sport betting.Sport) ([]betting.Projection, error) {
	path := fmt.Sprintf("/%s/%s/v8/en/seasons/%s/REG/players/averages.json", sport, a.accessTier, a.seasonFor(sport))
	query := url.Values{"api_key": {a.apiKey}}

	var resp sportsRadarAveragesResponse
	if err := a.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	now := a.now()
	var projections []betting.Projection
	for _, player := range resp.Players {
		if player.FullName == "" {
			continue
		}
		for key, statType := range sportsRadarStats {
			value, ok := player.Average[key]
			if !ok {
				continue
			}
			projections = append(projections, betting.Projection{
				PlayerID:   betting.PlayerKey(player.FullName),
				PlayerName: player.FullName,
				Team:       player.Team.Alias,
				Position:   player.PrimaryPosition,
				Sport:      sport,
				StatType:   statType,
				Value:      value,
				Source:     a.name,
				UpdatedAt:  now,
			})
		}
	}
	return projections, nil
}

// seasonFor returns the season year; leagues that start in autumn use the starting year
func (a *SportsRadarAdapter) seasonFor(sport betting.Sport) string {
	if a.season != "" {
		return a.season
	}
	now := a.now()
	year := now.Year()
	switch sport {
	case betting.SportNBA, betting.SportNHL:
		if now.Month() < time.September {
			year--
		}
	case betting.SportNFL:
		if now.Month() < time.March {
			year--
		}
	}
	return strconv.Itoa(year)
}
