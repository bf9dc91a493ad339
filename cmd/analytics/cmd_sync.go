package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/internal/features"
	"github.com/jstittsworth/bet-analytics/internal/providers"
	"github.com/jstittsworth/bet-analytics/internal/services"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
)

type syncOutput struct {
	Summary         services.SnapshotSummary            `json:"summary"`
	DurationMs      int64                               `json:"duration_ms"`
	Sources         []betting.SourceMetrics             `json:"sources"`
	Recommendations map[string]*strategy.Recommendation `json:"recommendations,omitempty"`
}

func (a *cli) newSyncCmd() *cobra.Command {
	var (
		profile string
		timeout time.Duration
		noRecs  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Integrate every configured source once and print recommendations",
		Long: `Fetch all configured adapters, build a snapshot and run the strategy
pipeline for one profile or every profile.

Examples:
  analytics sync
  analytics sync --profile conservative
  analytics sync --no-recommendations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			profiles, err := a.profiles()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			bus := events.NewBus(a.logger)
			breakers := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout, a.logger)
			hub := services.NewDataIntegrationHub(services.HubConfig{
				AdapterTimeout: cfg.AdapterTimeout,
				EMAAlpha:       cfg.SourceEMAAlpha,
				HistoryLength:  cfg.HistoryLength,
			}, bus, nil, nil, a.logger)
			for _, adapter := range providers.BuildAdapters(cfg, breakers, bus, a.logger) {
				if err := hub.Register(adapter); err != nil {
					return err
				}
			}

			result, err := hub.Sync(ctx)
			if err != nil {
				return err
			}
			out := syncOutput{
				Summary:    result.Summary,
				DurationMs: result.Duration.Milliseconds(),
				Sources:    hub.SourceMetrics(),
			}
			if noRecs {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			fe := features.NewFeatureEngineeringService(a.logger)
			recs := services.NewRecommendationService(services.RecommendationDeps{
				Snapshots:   hub,
				Predictions: services.NewPredictionService(hub, fe, a.logger),
				Engine: strategy.NewStrategyEngine(strategy.EngineConfig{
					Bankroll:         cfg.Bankroll,
					DefaultPickPrice: cfg.DefaultPickPrice,
				}, a.logger),
				Profiles: profiles,
				Bus:      bus,
				Logger:   a.logger,
			})

			syncID := uuid.New()
			if profile != "" {
				rec, err := recs.Recommend(ctx, profile, syncID)
				if err != nil {
					return err
				}
				out.Recommendations = map[string]*strategy.Recommendation{profile: rec}
			} else {
				out.Recommendations, err = recs.RecommendAll(ctx, syncID)
				if err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Only recommend for this risk profile")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall sync timeout")
	cmd.Flags().BoolVar(&noRecs, "no-recommendations", false, "Print only the snapshot summary")
	return cmd
}
