package providers

import (
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/pkg/config"
)

// BuildAdapters creates every adapter that has the credentials it needs.
// Skipped adapters are logged and left out.
func BuildAdapters(cfg *config.Config, breaker Breaker, bus events.Publisher, logger *logrus.Logger) []betting.Adapter {
	var sports []betting.Sport
	for _, raw := range cfg.SupportedSports {
		if sport, ok := betting.ParseSport(raw); ok {
			sports = append(sports, sport)
		} else {
			logger.WithField("sport", raw).Warn("Ignoring unsupported sport")
		}
	}

	base := func(baseURL, apiKey string) Options {
		return Options{
			BaseURL:           baseURL,
			APIKey:            apiKey,
			Sports:            sports,
			CacheTTL:          cfg.AdapterCacheTTL,
			Timeout:           cfg.AdapterTimeout,
			RequestsPerSecond: cfg.ProviderRateLimit,
			Breaker:           breaker,
			Bus:               bus,
			Logger:            logger,
		}
	}

	skip := func(name, reason string) {
		logger.WithFields(logrus.Fields{
			"component": "adapter",
			"source":    name,
			"reason":    reason,
		}).Warn("Adapter not registered")
	}

	var adapters []betting.Adapter

	if cfg.SportsRadarAPIKey != "" {
		adapters = append(adapters, NewSportsRadarAdapter(base(cfg.SportsRadarBaseURL, cfg.SportsRadarAPIKey)))
	} else {
		skip("sportsradar", "SPORTSRADAR_API_KEY not set")
	}

	if cfg.TheOddsAPIKey != "" {
		adapters = append(adapters, NewTheOddsAdapter(TheOddsOptions{
			Options:     base(cfg.TheOddsBaseURL, cfg.TheOddsAPIKey),
			Regions:     cfg.TheOddsRegions,
			PropMarkets: []string{"player_points", "player_rebounds", "player_assists"},
		}))
	} else {
		skip("theodds", "THEODDS_API_KEY not set")
	}

	if cfg.PrizePicksEnabled {
		adapters = append(adapters, NewPrizePicksAdapter(base(cfg.PrizePicksBaseURL, "")))
	} else {
		skip("prizepicks", "PRIZEPICKS_ENABLED is false")
	}

	if cfg.DailyFantasyAPIKey != "" {
		adapters = append(adapters, NewDailyFantasyAdapter(base(cfg.DailyFantasyBaseURL, cfg.DailyFantasyAPIKey)))
	} else {
		skip("dailyfantasy", "DAILYFANTASY_API_KEY not set")
	}

	if cfg.ESPNEnabled {
		adapters = append(adapters, NewESPNAdapter(base(cfg.ESPNBaseURL, "")))
	} else {
		skip("espn", "ESPN_ENABLED is false")
	}

	if cfg.SentimentAPIKey != "" && cfg.SentimentBaseURL != "" {
		adapters = append(adapters, NewSocialSentimentAdapter(base(cfg.SentimentBaseURL, cfg.SentimentAPIKey)))
	} else {
		skip("social_sentiment", "SENTIMENT_API_KEY or SENTIMENT_BASE_URL not set")
	}

	return adapters
}

// AdapterNames lists the names of adapters, in order
func AdapterNames(adapters []betting.Adapter) []string {
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	return names
}
