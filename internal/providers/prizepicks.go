package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// PrizePicksAdapter reads pick'em prop lines from the PrizePicks JSON:API feed
type PrizePicksAdapter struct {
	*baseAdapter
	perPage int
}

type prizePicksRelation struct {
	Data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

type prizePicksResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			LineScore   float64   `json:"line_score"`
			StatType    string    `json:"stat_type"`
			StartTime   time.Time `json:"start_time"`
			Description string    `json:"description"`
			GameID      string    `json:"game_id"`
		} `json:"attributes"`
		Relationships struct {
			NewPlayer prizePicksRelation `json:"new_player"`
		} `json:"relationships"`
	} `json:"data"`
	Included []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Name     string `json:"name"`
			Team     string `json:"team"`
			Position string `json:"position"`
		} `json:"attributes"`
	} `json:"included"`
}

var prizePicksLeagues = map[betting.Sport]int{
	betting.SportNBA: 7,
	betting.SportNFL: 9,
	betting.SportMLB: 2,
	betting.SportNHL: 8,
}

// NewPrizePicksAdapter creates the pick'em lines adapter
func NewPrizePicksAdapter(opts Options) *PrizePicksAdapter {
	return &PrizePicksAdapter{
		baseAdapter: newBaseAdapter("prizepicks", betting.DataProjections, opts, nil),
		perPage:     250,
	}
}

// Fetch returns prop lines as projections with Line set
func (a *PrizePicksAdapter) Fetch(ctx context.Context) (*betting.SourcePayload, error) {
	return a.fetchCached(ctx, a.load)
}

func (a *PrizePicksAdapter) load(ctx context.Context) (*betting.SourcePayload, error) {
	payload := &betting.SourcePayload{}
	var lastErr error
	for _, sport := range a.sports {
		league, ok := prizePicksLeagues[sport]
		if !ok {
			continue
		}
		query := url.Values{
			"league_id":   {strconv.Itoa(league)},
			"per_page":    {strconv.Itoa(a.perPage)},
			"single_stat": {"true"},
		}
		var resp prizePicksResponse
		if err := a.client.GetJSON(ctx, "/projections", query, &resp); err != nil {
			lastErr = err
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"sport":     sport,
			}).WithError(err).Warn("Failed to fetch PrizePicks lines")
			continue
		}
		payload.Projections = append(payload.Projections, a.convert(sport, resp)...)
	}
	if len(payload.Projections) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return payload, nil
}

func (a *PrizePicksAdapter) convert(sport betting.Sport, resp prizePicksResponse) []betting.Projection {
	type player struct{ name, team, position string }
	players := make(map[string]player, len(resp.Included))
	for _, inc := range resp.Included {
		if inc.Type != "new_player" {
			continue
		}
		players[inc.ID] = player{name: inc.Attributes.Name, team: inc.Attributes.Team, position: inc.Attributes.Position}
	}

	now := a.now()
	var projections []betting.Projection
	for _, item := range resp.Data {
		if item.Type != "projection" || item.Attributes.LineScore <= 0 {
			continue
		}
		p, ok := players[item.Relationships.NewPlayer.Data.ID]
		if !ok || p.name == "" {
			continue
		}
		projections = append(projections, betting.Projection{
			PlayerID:   betting.PlayerKey(p.name),
			PlayerName: p.name,
			Team:       p.team,
			Position:   p.position,
			Sport:      sport,
			EventID:    item.Attributes.GameID,
			StatType:   normalizeStatType(item.Attributes.StatType),
			Value:      item.Attributes.LineScore,
			Line:       item.Attributes.LineScore,
			Source:     a.name,
			UpdatedAt:  now,
		})
	}
	return projections
}

// normalizeStatType maps display stat names like "3-PT Made" to our keys
func normalizeStatType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "points", "pts":
		return "points"
	case "rebounds", "rebs":
		return "rebounds"
	case "assists", "asts":
		return "assists"
	case "3-pt made", "3-pointers made", "threes":
		return "threes"
	case "pts+rebs+asts":
		return "pra"
	case "fantasy score":
		return "fantasy_points"
	case "shots on goal":
		return "shots_on_goal"
	case "pitcher strikeouts":
		return "strikeouts"
	}
	return strings.NewReplacer(" ", "_", "-", "_", "+", "_").Replace(s)
}
