package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

// SyncRun records one integration sync
type SyncRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SnapshotID    string         `gorm:"size:64;index" json:"snapshot_id"`
	StartedAt     time.Time      `gorm:"not null;index" json:"started_at"`
	DurationMs    int64          `json:"duration_ms"`
	Sources       StringArray    `json:"sources"`
	FailedSources StringArray    `json:"failed_sources"`
	Counts        datatypes.JSON `json:"counts"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewSyncRun summarizes a snapshot for persistence
func NewSyncRun(data *betting.IntegratedData, duration time.Duration) (*SyncRun, error) {
	counts, err := json.Marshal(data.Counts())
	if err != nil {
		return nil, err
	}
	return &SyncRun{
		ID:            uuid.New(),
		SnapshotID:    data.ID,
		StartedAt:     data.Timestamp,
		DurationMs:    duration.Milliseconds(),
		Sources:       StringArray(data.Sources),
		FailedSources: StringArray(data.FailedSources),
		Counts:        datatypes.JSON(counts),
	}, nil
}

// RecordSyncRun inserts a sync run
func RecordSyncRun(db *database.DB, run *SyncRun) error {
	return db.Create(run).Error
}

// ListSyncRuns returns the most recent sync runs first
func ListSyncRuns(db *database.DB, limit int) ([]SyncRun, error) {
	var runs []SyncRun
	query := db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}
