package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/internal/metrics"
)

var (
	ErrNoAdapters       = errors.New("no adapters registered")
	ErrAllSourcesFailed = errors.New("every source failed")
	ErrDuplicateAdapter = errors.New("adapter already registered")
)

// Direction thresholds for trend classification
const (
	projectionTrendThreshold = 0.1
	sentimentTrendThreshold  = 0.05
)

// HubConfig tunes the integration hub
type HubConfig struct {
	AdapterTimeout time.Duration
	EMAAlpha       float64
	HistoryLength  int
	CacheTTL       time.Duration
}

// HistoryPoint is one sync's per-stat average projection and sentiment for a player
type HistoryPoint struct {
	Timestamp   time.Time          `json:"timestamp"`
	Projections map[string]float64 `json:"projections"`
	Sentiment   *float64           `json:"sentiment,omitempty"`
}

// SnapshotSummary is the payload of integration.snapshot events
type SnapshotSummary struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	DurationMs    int64          `json:"duration_ms"`
	Counts        map[string]int `json:"counts"`
	Sources       []string       `json:"sources"`
	FailedSources []string       `json:"failed_sources"`
}

// SyncResult is what one Sync produced
type SyncResult struct {
	Snapshot *betting.IntegratedData
	Summary  SnapshotSummary
	Duration time.Duration
}

// fetchResult is the outcome of one adapter fetch
type fetchResult struct {
	index   int
	source  string
	payload *betting.SourcePayload
	latency time.Duration
	err     error
}

// DataIntegrationHub fans out to every adapter, merges the results into one
// snapshot and tracks per-source health
type DataIntegrationHub struct {
	cfg      HubConfig
	bus      events.Publisher
	cache    Cache
	monitor  *metrics.PerformanceMonitor
	logger   *logrus.Logger
	now      func() time.Time
	syncMu   sync.Mutex
	mu       sync.RWMutex
	adapters []betting.Adapter
	snapshot *betting.IntegratedData
	sources  map[string]*betting.SourceMetrics
	history  map[string][]HistoryPoint
	lastSync time.Time
}

// NewDataIntegrationHub creates a hub. bus, cache and monitor may be nil.
func NewDataIntegrationHub(cfg HubConfig, bus events.Publisher, cache Cache, monitor *metrics.PerformanceMonitor, logger *logrus.Logger) *DataIntegrationHub {
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 20 * time.Second
	}
	if cfg.EMAAlpha <= 0 || cfg.EMAAlpha > 1 {
		cfg.EMAAlpha = 0.2
	}
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = 48
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &DataIntegrationHub{
		cfg:     cfg,
		bus:     bus,
		cache:   cache,
		monitor: monitor,
		logger:  logger,
		now:     time.Now,
		sources: make(map[string]*betting.SourceMetrics),
		history: make(map[string][]HistoryPoint),
	}
}

// Register adds an adapter. Later registrations win key conflicts when merging.
func (h *DataIntegrationHub) Register(adapter betting.Adapter) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.adapters {
		if a.Name() == adapter.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateAdapter, adapter.Name())
		}
	}
	h.adapters = append(h.adapters, adapter)
	h.sources[adapter.Name()] = &betting.SourceMetrics{Source: adapter.Name()}
	return nil
}

// Adapters returns the registered adapter names in registration order
func (h *DataIntegrationHub) Adapters() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.adapters))
	for _, a := range h.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Invalidator is implemented by adapters that memoize their last payload
type Invalidator interface {
	Invalidate()
}

// InvalidateCaches drops every adapter's memoized payload so the next Sync
// refetches, returning how many adapters were cleared
func (h *DataIntegrationHub) InvalidateCaches() int {
	h.mu.RLock()
	adapters := append([]betting.Adapter(nil), h.adapters...)
	h.mu.RUnlock()

	cleared := 0
	for _, a := range adapters {
		if inv, ok := a.(Invalidator); ok {
			inv.Invalidate()
			cleared++
		}
	}
	return cleared
}

// Sync fetches every adapter concurrently and rebuilds the snapshot. When every
// source fails the previous snapshot is kept and ErrAllSourcesFailed returned.
func (h *DataIntegrationHub) Sync(ctx context.Context) (*SyncResult, error) {
	h.syncMu.Lock()
	defer h.syncMu.Unlock()

	h.mu.RLock()
	adapters := append([]betting.Adapter(nil), h.adapters...)
	previous := h.snapshot
	h.mu.RUnlock()

	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}

	started := h.now()
	results := h.fetchAll(ctx, adapters)
	duration := h.now().Sub(started)

	snapshot := betting.NewIntegratedData(uuid.New().String(), started.UTC())
	for _, r := range results {
		h.recordSource(r)
		if r.err != nil {
			snapshot.FailedSources = append(snapshot.FailedSources, r.source)
			continue
		}
		snapshot.Sources = append(snapshot.Sources, r.source)
		mergePayload(snapshot, r.payload)
	}

	if len(snapshot.Sources) == 0 {
		if h.monitor != nil {
			h.monitor.RecordSync(duration, len(adapters), len(adapters))
		}
		h.logger.WithFields(logrus.Fields{
			"component": "integration_hub",
			"failed":    snapshot.FailedSources,
		}).Error("Every source failed, keeping previous snapshot")
		return nil, ErrAllSourcesFailed
	}

	snapshot.Trends = computeTrends(previous, snapshot)

	h.mu.Lock()
	h.snapshot = snapshot
	h.lastSync = started
	h.appendHistory(snapshot)
	h.mu.Unlock()

	summary := SnapshotSummary{
		ID:            snapshot.ID,
		Timestamp:     snapshot.Timestamp,
		DurationMs:    duration.Milliseconds(),
		Counts:        snapshot.Counts(),
		Sources:       snapshot.Sources,
		FailedSources: snapshot.FailedSources,
	}

	h.logger.WithFields(logrus.Fields{
		"component":   "integration_hub",
		"snapshot_id": snapshot.ID,
		"duration_ms": summary.DurationMs,
		"counts":      summary.Counts,
		"failed":      snapshot.FailedSources,
	}).Info("Integration sync complete")

	if h.monitor != nil {
		h.monitor.RecordSync(duration, len(adapters), len(snapshot.FailedSources))
		h.monitor.SetSnapshotCounts(summary.Counts)
	}
	if h.cache != nil {
		if err := h.cacheSnapshot(ctx, snapshot); err != nil {
			h.logger.WithError(err).Warn("Failed to cache snapshot")
		}
		if err := h.cache.Set(ctx, SourceMetricsCacheKey(), h.SourceMetrics(), h.cfg.CacheTTL); err != nil {
			h.logger.WithError(err).Warn("Failed to cache source metrics")
		}
	}
	if h.bus != nil {
		h.bus.Publish(events.TopicIntegrationSnapshot, "integration_hub", summary)
	}

	return &SyncResult{Snapshot: snapshot.Clone(), Summary: summary, Duration: duration}, nil
}

// fetchAll runs every adapter in parallel and returns results in registration order
func (h *DataIntegrationHub) fetchAll(ctx context.Context, adapters []betting.Adapter) []fetchResult {
	var wg sync.WaitGroup
	results := make(chan fetchResult, len(adapters))

	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter betting.Adapter) {
			defer wg.Done()
			results <- h.fetchOne(ctx, i, adapter)
		}(i, adapter)
	}

	// Close results channel when all fetches complete
	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]fetchResult, len(adapters))
	for r := range results {
		if r.err != nil {
			h.logger.WithFields(logrus.Fields{
				"component": "integration_hub",
				"source":    r.source,
			}).WithError(r.err).Warn("Source fetch failed")
		}
		ordered[r.index] = r
	}
	return ordered
}

func (h *DataIntegrationHub) fetchOne(ctx context.Context, i int, adapter betting.Adapter) (result fetchResult) {
	result = fetchResult{index: i, source: adapter.Name()}
	fetchCtx, cancel := context.WithTimeout(ctx, h.cfg.AdapterTimeout)
	defer cancel()

	start := h.now()
	defer func() {
		if rec := recover(); rec != nil {
			result.err = fmt.Errorf("adapter %s panicked: %v", adapter.Name(), rec)
		}
		result.latency = h.now().Sub(start)
	}()

	payload, err := adapter.Fetch(fetchCtx)
	if err == nil && payload == nil {
		err = betting.ErrNoData
	}
	result.payload = payload
	result.err = err
	return result
}

// recordSource folds one fetch into the source's moving averages.
// The first observation seeds both averages.
func (h *DataIntegrationHub) recordSource(r fetchResult) {
	success := 0.0
	if r.err == nil {
		success = 1.0
	}
	latencyMs := float64(r.latency) / float64(time.Millisecond)

	h.mu.Lock()
	m, ok := h.sources[r.source]
	if !ok {
		m = &betting.SourceMetrics{Source: r.source}
		h.sources[r.source] = m
	}
	if m.Fetches == 0 {
		m.Reliability = success
		m.LatencyMs = latencyMs
	} else {
		alpha := h.cfg.EMAAlpha
		m.Reliability = alpha*success + (1-alpha)*m.Reliability
		m.LatencyMs = alpha*latencyMs + (1-alpha)*m.LatencyMs
	}
	m.Fetches++
	if r.err != nil {
		m.Failures++
		m.LastError = r.err.Error()
	} else {
		m.LastSuccess = h.now().UTC()
	}
	reliability, latency := m.Reliability, m.LatencyMs
	h.mu.Unlock()

	if h.monitor != nil {
		h.monitor.RecordAdapterFetch(r.source, r.latency, r.err)
		h.monitor.SetSourceHealth(r.source, reliability, latency)
	}
}

// mergePayload folds one source into the snapshot. Projections and odds are
// appended; sentiment and injuries are last-write-wins per player.
func mergePayload(dst *betting.IntegratedData, p *betting.SourcePayload) {
	for _, proj := range p.Projections {
		id := proj.PlayerID
		if id == "" {
			id = betting.PlayerKey(proj.PlayerName)
		}
		if id == "" {
			continue
		}
		proj.PlayerID = id
		if proj.Source == "" {
			proj.Source = p.Source
		}
		dst.Projections[id] = append(dst.Projections[id], proj)
	}
	for _, s := range p.Sentiment {
		id := s.PlayerID
		if id == "" {
			id = betting.PlayerKey(s.PlayerName)
		}
		if id == "" {
			continue
		}
		s.PlayerID = id
		dst.Sentiment[id] = s
	}
	for _, o := range p.Odds {
		if o.EventID == "" {
			continue
		}
		dst.Odds[o.EventID] = append(dst.Odds[o.EventID], o)
	}
	for _, inj := range p.Injuries {
		id := inj.PlayerID
		if id == "" {
			id = betting.PlayerKey(inj.PlayerName)
		}
		if id == "" {
			continue
		}
		inj.PlayerID = id
		dst.Injuries[id] = inj
	}
}

// statMeans averages a player's projection values per stat, ignoring pick'em lines
func statMeans(projections []betting.Projection) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range projections {
		if p.IsPropLine() {
			continue
		}
		sums[p.StatType] += p.Value
		counts[p.StatType]++
	}
	means := make(map[string]float64, len(sums))
	for stat, sum := range sums {
		means[stat] = sum / float64(counts[stat])
	}
	return means
}

// computeTrends compares each player against the previous snapshot. The
// projection delta is the mean change across stats present in both.
func computeTrends(prev, curr *betting.IntegratedData) map[string]betting.Trend {
	trends := make(map[string]betting.Trend)
	if prev == nil {
		return trends
	}

	players := make(map[string]bool)
	for id := range curr.Projections {
		players[id] = true
	}
	for id := range curr.Sentiment {
		players[id] = true
	}

	for id := range players {
		var t betting.Trend
		t.PlayerID = id
		compared := false

		before, after := statMeans(prev.Projections[id]), statMeans(curr.Projections[id])
		shared := 0
		for stat, v := range after {
			if old, ok := before[stat]; ok {
				t.ProjectionDelta += v - old
				shared++
			}
		}
		if shared > 0 {
			t.ProjectionDelta /= float64(shared)
			compared = true
		}

		if s, ok := curr.Sentiment[id]; ok {
			if old, ok := prev.Sentiment[id]; ok {
				t.SentimentDelta = s.Score - old.Score
				compared = true
			}
		}
		if !compared {
			continue
		}
		t.Direction = trendDirection(t.ProjectionDelta, t.SentimentDelta)
		trends[id] = t
	}
	return trends
}

func trendDirection(projectionDelta, sentimentDelta float64) string {
	switch {
	case math.Abs(projectionDelta) >= projectionTrendThreshold:
		if projectionDelta > 0 {
			return "up"
		}
		return "down"
	case math.Abs(sentimentDelta) >= sentimentTrendThreshold:
		if sentimentDelta > 0 {
			return "up"
		}
		return "down"
	default:
		return "flat"
	}
}

// appendHistory records the snapshot into each player's capped history. Caller holds mu.
func (h *DataIntegrationHub) appendHistory(snapshot *betting.IntegratedData) {
	for id, projections := range snapshot.Projections {
		means := statMeans(projections)
		if len(means) == 0 {
			continue
		}
		point := HistoryPoint{Timestamp: snapshot.Timestamp, Projections: means}
		if s, ok := snapshot.Sentiment[id]; ok {
			score := s.Score
			point.Sentiment = &score
		}
		series := append(h.history[id], point)
		if len(series) > h.cfg.HistoryLength {
			series = series[len(series)-h.cfg.HistoryLength:]
		}
		h.history[id] = series
	}
}

// Snapshot returns a copy of the latest snapshot, nil before the first sync
func (h *DataIntegrationHub) Snapshot() *betting.IntegratedData {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot.Clone()
}

// retryingCache is implemented by caches that retry failed writes
type retryingCache interface {
	SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error
}

const snapshotCacheRetries = 3

// cacheSnapshot writes the snapshot, retrying when the cache supports it.
// The snapshot is what RestoreSnapshot reads on startup, so it gets retries
// where source metrics do not.
func (h *DataIntegrationHub) cacheSnapshot(ctx context.Context, snapshot *betting.IntegratedData) error {
	if rc, ok := h.cache.(retryingCache); ok {
		return rc.SetWithRetry(ctx, SnapshotCacheKey(), snapshot, h.cfg.CacheTTL, snapshotCacheRetries)
	}
	return h.cache.Set(ctx, SnapshotCacheKey(), snapshot, h.cfg.CacheTTL)
}

// SetSnapshot installs a snapshot, e.g. one restored from cache at startup
func (h *DataIntegrationHub) SetSnapshot(data *betting.IntegratedData) {
	if data == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = data.Clone()
	h.lastSync = data.Timestamp
}

// RestoreSnapshot loads the cached snapshot when the hub has none yet
func (h *DataIntegrationHub) RestoreSnapshot(ctx context.Context) error {
	if h.cache == nil {
		return ErrCacheMiss
	}
	var data betting.IntegratedData
	if err := h.cache.Get(ctx, SnapshotCacheKey(), &data); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snapshot == nil {
		h.snapshot = &data
		h.lastSync = data.Timestamp
	}
	return nil
}

// SourceMetrics returns per-source health sorted by source name
func (h *DataIntegrationHub) SourceMetrics() []betting.SourceMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]betting.SourceMetrics, 0, len(h.sources))
	for _, m := range h.sources {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// History returns a copy of a player's history, oldest first
func (h *DataIntegrationHub) History(playerID string) []HistoryPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]HistoryPoint(nil), h.history[playerID]...)
}

// LastSync returns when the current snapshot was taken
func (h *DataIntegrationHub) LastSync() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSync
}
