package providers

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// SocialSentimentAdapter aggregates social mentions into per-player scores
type SocialSentimentAdapter struct {
	*baseAdapter
}

type sentimentResponse struct {
	Players []struct {
		Name     string   `json:"name"`
		Team     string   `json:"team"`
		Mentions int      `json:"mentions"`
		Positive int      `json:"positive"`
		Negative int      `json:"negative"`
		Score    *float64 `json:"score"`
	} `json:"players"`
}

// NewSocialSentimentAdapter creates the sentiment adapter
func NewSocialSentimentAdapter(opts Options) *SocialSentimentAdapter {
	headers := map[string]string{"Authorization": "Bearer " + opts.APIKey}
	return &SocialSentimentAdapter{
		baseAdapter: newBaseAdapter("social_sentiment", betting.DataSentiment, opts, headers),
	}
}

// Fetch returns sentiment scores for every configured sport
func (a *SocialSentimentAdapter) Fetch(ctx context.Context) (*betting.SourcePayload, error) {
	return a.fetchCached(ctx, a.load)
}

func (a *SocialSentimentAdapter) load(ctx context.Context) (*betting.SourcePayload, error) {
	payload := &betting.SourcePayload{}
	var lastErr error
	for _, sport := range a.sports {
		var resp sentimentResponse
		if err := a.client.GetJSON(ctx, "/v1/sentiment/players", url.Values{"sport": {string(sport)}}, &resp); err != nil {
			lastErr = err
			a.logger.WithFields(logrus.Fields{
				"component": "adapter",
				"source":    a.name,
				"sport":     sport,
			}).WithError(err).Warn("Failed to fetch sentiment")
			continue
		}

		now := a.now()
		for _, p := range resp.Players {
			if p.Name == "" {
				continue
			}
			volume := p.Mentions
			if volume == 0 {
				volume = p.Positive + p.Negative
			}
			payload.Sentiment = append(payload.Sentiment, betting.SentimentScore{
				PlayerID:   betting.PlayerKey(p.Name),
				PlayerName: p.Name,
				Score:      sentimentScore(p.Score, p.Positive, p.Negative),
				Volume:     volume,
				Positive:   p.Positive,
				Negative:   p.Negative,
				Source:     a.name,
				UpdatedAt:  now,
			})
		}
	}
	if len(payload.Sentiment) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return payload, nil
}

// sentimentScore prefers the provider score and falls back to the
// positive/negative balance, always within [-1, 1]
func sentimentScore(score *float64, positive, negative int) float64 {
	if score != nil {
		return betting.Clamp(*score, -1, 1)
	}
	total := positive + negative
	if total == 0 {
		return 0
	}
	return betting.Clamp(float64(positive-negative)/float64(total), -1, 1)
}
