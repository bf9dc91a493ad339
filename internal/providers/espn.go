package providers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// ESPNAdapter reads league injury reports from the public ESPN site API
type ESPNAdapter struct {
	*baseAdapter
}

// ESPN API response structures
type espnInjuriesResponse struct {
	Injuries []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Injuries    []struct {
			Status       string `json:"status"`
			ShortComment string `json:"shortComment"`
			Date         string `json:"date"`
			Athlete      struct {
				DisplayName string `json:"displayName"`
				Team        struct {
					Abbreviation string `json:"abbreviation"`
				} `json:"team"`
			} `json:"athlete"`
			Type struct {
				Description string `json:"description"`
			} `json:"type"`
		} `json:"injuries"`
	} `json:"injuries"`
}

// NewESPNAdapter creates the injuries adapter
func NewESPNAdapter(opts Options) *ESPNAdapter {
	return &ESPNAdapter{
		baseAdapter: newBaseAdapter("espn", betting.DataInjuries, opts, nil),
	}
}

// Fetch returns current injury designations for every configured sport
func (a *ESPNAdapter) Fetch(ctx context.Context) (*betting.SourcePayload, error) {
	return a.fetchCached(ctx, a.load)
}

func (a *ESPNAdapter) load(ctx context.Context) (*betting.SourcePayload, error) {
	payload := &betting.SourcePayload{}
	var lastErr error
	for _, sport := range a.sports {
		path := espnInjuriesPath(sport)
		if path == "" {
			continue
		}
		var resp espnInjuriesResponse
		if err := a.client.GetJSON(ctx, path, nil, &resp); err != nil {
			lastErr = err
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"sport":     sport,
			}).WithError(err).Warn("Failed to fetch ESPN injuries")
			continue
		}

		now := a.now()
		for _, team := range resp.Injuries {
			for _, injury := range team.Injuries {
				name := injury.Athlete.DisplayName
				if name == "" {
					continue
				}
				detail := injury.ShortComment
				if detail == "" {
					detail = injury.Type.Description
				}
				payload.Injuries = append(payload.Injuries, betting.InjuryReport{
					PlayerID:   betting.PlayerKey(name),
					PlayerName: name,
					Team:       injury.Athlete.Team.Abbreviation,
					Status:     betting.ParseInjuryStatus(injury.Status),
					Detail:     detail,
					Source:     a.name,
					UpdatedAt:  now,
				})
			}
		}
	}
	if len(payload.Injuries) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return payload, nil
}

// espnInjuriesPath returns the injuries path for a sport
func espnInjuriesPath(sport betting.Sport) string {
	const base = "/apis/site/v2/sports"
	switch sport {
	case betting.SportNBA:
		return fmt.Sprintf("%s/basketball/nba/injuries", base)
	case betting.SportNFL:
		return fmt.Sprintf("%s/football/nfl/injuries", base)
	case betting.SportMLB:
		return fmt.Sprintf("%s/baseball/mlb/injuries", base)
	case betting.SportNHL:
		return fmt.Sprintf("%s/hockey/nhl/injuries", base)
	default:
		return ""
	}
}
