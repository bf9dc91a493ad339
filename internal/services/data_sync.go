package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/models"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/database"
	"github.com/jstittsworth/bet-analytics/pkg/logger"
)

var ErrSyncInProgress = errors.New("sync already in progress")

// SyncRunner produces a fresh snapshot
type SyncRunner interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

// Recommender builds recommendations for every profile after a sync
type Recommender interface {
	RecommendAll(ctx context.Context, syncID uuid.UUID) (map[string]*strategy.Recommendation, error)
}

// Pruner trims stored model versions
type Pruner interface {
	PruneAll() (int, error)
}

// SyncConfig schedules the sync service
type SyncConfig struct {
	Interval        time.Duration
	Retention       time.Duration
	SkipInitialSync bool
}

// SyncStatus is the observable state of the scheduler
type SyncStatus struct {
	IsRunning      bool      `json:"is_running"`
	Syncing        bool      `json:"syncing"`
	Interval       string    `json:"interval"`
	Runs           int64     `json:"runs"`
	Failures       int64     `json:"failures"`
	LastRun        time.Time `json:"last_run,omitempty"`
	LastSnapshotID string    `json:"last_snapshot_id,omitempty"`
	LastDurationMs int64     `json:"last_duration_ms"`
	LastError      string    `json:"last_error,omitempty"`
}

// JobInfo describes one scheduled job
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
}

type job struct {
	name     string
	schedule string
	id       cron.EntryID
}

// DataSyncService runs the integration sync and recommendations on a schedule
// and cleans up old records nightly
type DataSyncService struct {
	cfg      SyncConfig
	hub      SyncRunner
	recs     Recommender
	registry Pruner
	db       *database.DB
	logger   *logrus.Logger
	cron     *cron.Cron

	mu        sync.Mutex
	isRunning bool
	jobs      []job
	status    SyncStatus
	syncing   int32
}

// NewDataSyncService creates the scheduler. recs, registry and db may be nil.
func NewDataSyncService(cfg SyncConfig, hub SyncRunner, recs Recommender, registry Pruner, db *database.DB, log *logrus.Logger) *DataSyncService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if log == nil {
		log = logrus.New()
	}
	return &DataSyncService{
		cfg:      cfg,
		hub:      hub,
		recs:     recs,
		registry: registry,
		db:       db,
		logger:   log,
		cron:     cron.New(),
		status:   SyncStatus{Interval: cfg.Interval.String()},
	}
}

// Start begins the scheduled syncs
func (s *DataSyncService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("data sync service is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.cfg.Interval.String())
	if err := s.addJob("integration_sync", schedule, s.scheduledSync); err != nil {
		return err
	}
	// Nightly cleanup at 3 AM
	if err := s.addJob("cleanup", "0 3 * * *", s.cleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.status.IsRunning = true

	if !s.cfg.SkipInitialSync {
		go s.scheduledSync()
	}

	s.logger.WithField("interval", s.cfg.Interval.String()).Info("Data sync service started")
	return nil
}

func (s *DataSyncService) addJob(name, schedule string, fn func()) error {
	id, err := s.cron.AddFunc(schedule, fn)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.jobs = append(s.jobs, job{name: name, schedule: schedule, id: id})
	return nil
}

// Stop halts the scheduler and waits for running jobs
func (s *DataSyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.status.IsRunning = false
	s.logger.Info("Data sync service stopped")
}

func (s *DataSyncService) scheduledSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
	defer cancel()
	if _, err := s.TriggerSync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
		s.logger.WithError(err).Warn("Scheduled sync failed")
	}
}

// TriggerSync runs one sync and recommendation pass now. Overlapping calls
// return ErrSyncInProgress.
func (s *DataSyncService) TriggerSync(ctx context.Context) (*SyncResult, error) {
	if !atomic.CompareAndSwapInt32(&s.syncing, 0, 1) {
		return nil, ErrSyncInProgress
	}
	defer atomic.StoreInt32(&s.syncing, 0)

	started := time.Now()
	result, err := s.hub.Sync(ctx)

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRun = started.UTC()
	s.status.LastDurationMs = time.Since(started).Milliseconds()
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
		s.status.LastSnapshotID = result.Snapshot.ID
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	syncID := uuid.New()
	log := logger.WithSyncID(s.logger, syncID.String())
	log.WithFields(logrus.Fields{
		"snapshot_id": result.Snapshot.ID,
		"sources":     len(result.Snapshot.Sources),
		"failed":      len(result.Snapshot.FailedSources),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Sync completed")

	if s.db != nil {
		run, err := models.NewSyncRun(result.Snapshot, result.Duration)
		if err == nil {
			run.ID = syncID
			err = models.RecordSyncRun(s.db, run)
		}
		if err != nil {
			log.WithError(err).Error("Failed to record sync run")
		}
	}

	if s.recs != nil {
		if _, err := s.recs.RecommendAll(ctx, syncID); err != nil {
			log.WithError(err).Warn("Recommendations failed after sync")
		}
	}
	return result, nil
}

// cleanup removes old sync runs and recommendations and prunes model versions
func (s *DataSyncService) cleanup() {
	s.logger.Info("Starting daily cleanup of old data")

	if s.db != nil {
		cutoff := time.Now().Add(-s.cfg.Retention)
		removed, err := models.DeleteOlderThan(s.db, cutoff)
		if err != nil {
			s.logger.Errorf("Failed to cleanup old records: %v", err)
		} else {
			s.logger.Infof("Cleaned up %d old records", removed)
		}
	}

	if s.registry != nil {
		pruned, err := s.registry.PruneAll()
		if err != nil {
			s.logger.Errorf("Failed to prune model versions: %v", err)
		} else if pruned > 0 {
			s.logger.Infof("Pruned %d model versions", pruned)
		}
	}
}

// GetStatus returns the current status of the scheduler
func (s *DataSyncService) GetStatus() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.status
	status.Syncing = atomic.LoadInt32(&s.syncing) == 1
	return status
}

// Jobs lists scheduled jobs with their next and previous run times
func (s *DataSyncService) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.id)
		out = append(out, JobInfo{
			Name:     j.name,
			Schedule: j.schedule,
			Next:     entry.Next,
			Prev:     entry.Prev,
		})
	}
	return out
}
