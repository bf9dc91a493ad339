package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/internal/metrics"
	"github.com/jstittsworth/bet-analytics/internal/models"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

// ErrPersistenceDisabled is returned for history queries without a database
var ErrPersistenceDisabled = errors.New("recommendation history requires a database")

const recommendationCacheTTL = 15 * time.Minute

// SnapshotSource provides the latest integrated snapshot
type SnapshotSource interface {
	Snapshot() *betting.IntegratedData
}

// RecommendationDeps wires the recommendation service. DB, Cache, Bus and Monitor are optional.
type RecommendationDeps struct {
	Snapshots   SnapshotSource
	Predictions *PredictionService
	Engine      *strategy.StrategyEngine
	Profiles    *strategy.ProfileManager
	DB          *database.DB
	Cache       Cache
	Bus         events.Publisher
	Monitor     *metrics.PerformanceMonitor
	Logger      *logrus.Logger
}

// RecommendationService runs analysis, strategy and selection for risk profiles
type RecommendationService struct {
	deps     RecommendationDeps
	selector *strategy.BestBetSelector
	arbs     *strategy.ArbitrageFinder
	parlays  *strategy.ParlayBuilder
	logger   *logrus.Logger

	mu       sync.RWMutex
	latest   map[string]*strategy.Recommendation
	analysis *strategy.Analysis
}

func NewRecommendationService(deps RecommendationDeps) *RecommendationService {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Profiles == nil {
		deps.Profiles = strategy.NewProfileManager()
	}
	if deps.Engine == nil {
		deps.Engine = strategy.NewStrategyEngine(strategy.EngineConfig{}, deps.Logger)
	}
	if deps.Predictions == nil {
		deps.Predictions = NewPredictionService(nil, nil, deps.Logger)
	}
	return &RecommendationService{
		deps:     deps,
		selector: strategy.NewBestBetSelector(deps.Engine.Bankroll()),
		arbs:     strategy.NewArbitrageFinder(),
		parlays:  strategy.NewParlayBuilder(),
		logger:   deps.Logger,
		latest:   make(map[string]*strategy.Recommendation),
	}
}

// Profiles exposes the profile manager
func (s *RecommendationService) Profiles() *strategy.ProfileManager {
	return s.deps.Profiles
}

func (s *RecommendationService) snapshot() (*betting.IntegratedData, error) {
	if s.deps.Snapshots == nil {
		return nil, betting.ErrNoData
	}
	data := s.deps.Snapshots.Snapshot()
	if data == nil {
		return nil, betting.ErrNoData
	}
	return data, nil
}

// Analysis returns predictions for the current snapshot, reusing the last
// result while the snapshot is unchanged
func (s *RecommendationService) Analysis(ctx context.Context) (*strategy.Analysis, error) {
	data, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return s.analysisFor(ctx, data)
}

func (s *RecommendationService) analysisFor(ctx context.Context, data *betting.IntegratedData) (*strategy.Analysis, error) {
	s.mu.RLock()
	cached := s.analysis
	s.mu.RUnlock()
	if cached != nil && cached.SnapshotID == data.ID {
		return cached, nil
	}

	analysis, err := s.deps.Predictions.Analyze(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.analysis = analysis
	s.mu.Unlock()

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, AnalysisCacheKey(data.ID), analysis, recommendationCacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache analysis")
		}
	}
	return analysis, nil
}

// Opportunities scores every opportunity in the current snapshot for a profile
func (s *RecommendationService) Opportunities(ctx context.Context, profileName string) ([]strategy.Opportunity, error) {
	profile, err := s.deps.Profiles.Get(profileName)
	if err != nil {
		return nil, err
	}
	data, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	analysis, err := s.analysisFor(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.deps.Engine.Generate(data, analysis, profile)
}

// Recommend builds, stores and publishes a bet slip for one profile
func (s *RecommendationService) Recommend(ctx context.Context, profileName string, syncID uuid.UUID) (*strategy.Recommendation, error) {
	profile, err := s.deps.Profiles.Get(profileName)
	if err != nil {
		return nil, err
	}
	data, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	analysis, err := s.analysisFor(ctx, data)
	if err != nil {
		return nil, err
	}
	opps, err := s.deps.Engine.Generate(data, analysis, profile)
	if err != nil {
		return nil, err
	}

	rec := s.selector.Select(opps, profile)
	rec.SnapshotID = data.ID

	s.mu.Lock()
	s.latest[profile.Name] = &rec
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"component":     "recommendation",
		"profile":       profile.Name,
		"snapshot_id":   data.ID,
		"opportunities": len(opps),
		"bets":          len(rec.Bets),
		"total_stake":   rec.TotalStake,
	}).Info("Recommendations generated")

	s.persist(ctx, syncID, rec)
	s.record(opps, rec)
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(events.TopicStrategyRecommendations, "recommendation", rec)
	}
	return &rec, nil
}

// RecommendAll runs Recommend for every profile. A profile failure is logged
// and skipped; the error is returned only when every profile failed.
func (s *RecommendationService) RecommendAll(ctx context.Context, syncID uuid.UUID) (map[string]*strategy.Recommendation, error) {
	out := make(map[string]*strategy.Recommendation)
	var lastErr error
	for _, p := range s.deps.Profiles.List() {
		rec, err := s.Recommend(ctx, p.Name, syncID)
		if err != nil {
			lastErr = err
			s.logger.WithError(err).WithField("profile", p.Name).Warn("Recommendation failed")
			continue
		}
		out[p.Name] = rec
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (s *RecommendationService) persist(ctx context.Context, syncID uuid.UUID, rec strategy.Recommendation) {
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, RecommendationsCacheKey(rec.Profile), rec, recommendationCacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache recommendations")
		}
	}
	if s.deps.DB == nil || len(rec.Bets) == 0 {
		return
	}
	rows, err := models.RecommendationsFrom(syncID, rec)
	if err == nil {
		err = models.SaveRecommendations(s.deps.DB, rows)
	}
	if err != nil {
		s.logger.WithError(err).WithField("profile", rec.Profile).Error("Failed to persist recommendations")
	}
}

func (s *RecommendationService) record(opps []strategy.Opportunity, rec strategy.Recommendation) {
	if s.deps.Monitor == nil {
		return
	}
	byKind := make(map[string]int)
	for _, o := range opps {
		byKind[string(o.Kind)]++
	}
	byRisk := make(map[string]int)
	for _, b := range rec.Bets {
		byRisk[string(b.RiskLevel)]++
	}
	s.deps.Monitor.RecordOpportunities(rec.Profile, byKind)
	s.deps.Monitor.RecordRecommendation(rec.Profile, byRisk, rec.TotalStake)
}

// Latest returns the most recent recommendation for a profile, falling back to the cache
func (s *RecommendationService) Latest(ctx context.Context, profileName string) (*strategy.Recommendation, error) {
	s.mu.RLock()
	rec, ok := s.latest[profileName]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}
	if s.deps.Cache != nil {
		var cached strategy.Recommendation
		if err := s.deps.Cache.Get(ctx, RecommendationsCacheKey(profileName), &cached); err == nil {
			return &cached, nil
		}
	}
	return nil, fmt.Errorf("%w: no recommendations for %s yet", betting.ErrNoData, profileName)
}

// History returns persisted recommendations, newest first
func (s *RecommendationService) History(profileName string, limit int) ([]models.Recommendation, error) {
	if s.deps.DB == nil {
		return nil, ErrPersistenceDisabled
	}
	return models.ListRecommendations(s.deps.DB, profileName, limit)
}

// Arbitrage scans the current snapshot's odds
func (s *RecommendationService) Arbitrage(totalStake float64) ([]strategy.Arbitrage, error) {
	data, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return s.arbs.Find(data.Odds, totalStake), nil
}

// Parlays combines a profile's opportunities into parlays
func (s *RecommendationService) Parlays(ctx context.Context, profileName string, legs, maxParlays int) ([]strategy.Parlay, error) {
	opps, err := s.Opportunities(ctx, profileName)
	if err != nil {
		return nil, err
	}
	return s.parlays.Build(opps, legs, maxParlays)
}
