package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// DailyFantasyAdapter reads DFS slate projections with salaries from SportsDataIO
type DailyFantasyAdapter struct {
	*baseAdapter
}

type dailyFantasyProjection struct {
	PlayerID                int     `json:"PlayerID"`
	Name                    string  `json:"Name"`
	Team                    string  `json:"Team"`
	Position                string  `json:"Position"`
	GameID                  int     `json:"GameID"`
	FantasyPointsDraftKings float64 `json:"FantasyPointsDraftKings"`
	DraftKingsSalary        int     `json:"DraftKingsSalary"`
	Points                  float64 `json:"Points"`
	Rebounds                float64 `json:"Rebounds"`
	Assists                 float64 `json:"Assists"`
}

// NewDailyFantasyAdapter creates the DFS projections adapter
func NewDailyFantasyAdapter(opts Options) *DailyFantasyAdapter {
	headers := map[string]string{"Ocp-Apim-Subscription-Key": opts.APIKey}
	return &DailyFantasyAdapter{
		baseAdapter: newBaseAdapter("dailyfantasy", betting.DataProjections, opts, headers),
	}
}

// Fetch returns today's slate projections for every configured sport
func (a *DailyFantasyAdapter) Fetch(ctx context.Context) (*betting.SourcePayload, error) {
	return a.fetchCached(ctx, a.load)
}

func (a *DailyFantasyAdapter) load(ctx context.Context) (*betting.SourcePayload, error) {
	payload := &betting.SourcePayload{}
	date := strings.ToUpper(a.now().Format("2006-Jan-02"))

	var lastErr error
	for _, sport := range a.sports {
		var rows []dailyFantasyProjection
		path := fmt.Sprintf("/api/%s/fantasy/json/PlayerGameProjectionStatsByDate/%s", sport, date)
		if err := a.client.GetJSON(ctx, path, nil, &rows); err != nil {
			lastErr = err
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"sport":     sport,
			}).WithError(err).Warn("Failed to fetch DFS projections")
			continue
		}
		payload.Projections = append(payload.Projections, a.convert(sport, rows)...)
	}
	if len(payload.Projections) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return payload, nil
}

func (a *DailyFantasyAdapter) convert(sport betting.Sport, rows []dailyFantasyProjection) []betting.Projection {
	now := a.now()
	var projections []betting.Projection
	for _, row := range rows {
		if row.Name == "" {
			continue
		}
		base := betting.Projection{
			PlayerID:   betting.PlayerKey(row.Name),
			PlayerName: row.Name,
			Team:       row.Team,
			Position:   row.Position,
			Sport:      sport,
			Source:     a.name,
			UpdatedAt:  now,
		}
		if row.GameID != 0 {
			base.EventID = strconv.Itoa(row.GameID)
		}

		fp := base
		fp.StatType = "fantasy_points"
		fp.Value = row.FantasyPointsDraftKings
		fp.Salary = row.DraftKingsSalary
		projections = append(projections, fp)

		for statType, value := range map[string]float64{
			"points":   row.Points,
			"rebounds": row.Rebounds,
			"assists":  row.Assists,
		} {
			if value <= 0 {
				continue
			}
			p := base
			p.StatType = statType
			p.Value = value
			projections = append(projections, p)
		}
	}
	return projections
}
