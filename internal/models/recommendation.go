package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

// Recommendation is one selected bet from a recommendation run
type Recommendation struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SyncID        uuid.UUID      `gorm:"type:uuid;index" json:"sync_id"`
	SnapshotID    string         `gorm:"size:64;index" json:"snapshot_id"`
	Profile       string         `gorm:"size:50;not null;index:idx_profile_created" json:"profile"`
	Kind          string         `gorm:"size:20;not null" json:"kind"`
	Sport         string         `gorm:"size:10" json:"sport"`
	PlayerID      string         `gorm:"size:100;index" json:"player_id,omitempty"`
	EventID       string         `gorm:"size:100" json:"event_id,omitempty"`
	Market        string         `gorm:"size:50" json:"market"`
	Selection     string         `gorm:"size:100" json:"selection"`
	StatType      string         `gorm:"size:50" json:"stat_type,omitempty"`
	Line          float64        `json:"line"`
	Bookmaker     string         `gorm:"size:50" json:"bookmaker"`
	Price         int            `json:"price"`
	Probability   float64        `json:"probability"`
	ExpectedValue float64        `json:"expected_value"`
	Confidence    float64        `json:"confidence"`
	RiskLevel     string         `gorm:"size:10" json:"risk_level"`
	Stake         float64        `json:"stake"`
	Warnings      StringArray    `json:"warnings"`
	Payload       datatypes.JSON `json:"payload"`
	CreatedAt     time.Time      `gorm:"index:idx_profile_created" json:"created_at"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

func (r *Recommendation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecommendationsFrom flattens a bet slip into rows
func RecommendationsFrom(syncID uuid.UUID, rec strategy.Recommendation) ([]Recommendation, error) {
	rows := make([]Recommendation, 0, len(rec.Bets))
	for _, bet := range rec.Bets {
		payload, err := json.Marshal(bet)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Recommendation{
			ID:            uuid.New(),
			SyncID:        syncID,
			SnapshotID:    rec.SnapshotID,
			Profile:       rec.Profile,
			Kind:          string(bet.Kind),
			Sport:         string(bet.Sport),
			PlayerID:      bet.PlayerID,
			EventID:       bet.EventID,
			Market:        bet.Market,
			Selection:     bet.Selection,
			StatType:      bet.StatType,
			Line:          bet.Line,
			Bookmaker:     bet.Bookmaker,
			Price:         bet.Price,
			Probability:   bet.Probability,
			ExpectedValue: bet.ExpectedValue,
			Confidence:    bet.Confidence,
			RiskLevel:     string(bet.RiskLevel),
			Stake:         bet.Stake,
			Warnings:      StringArray(bet.Warnings),
			Payload:       datatypes.JSON(payload),
			CreatedAt:     rec.GeneratedAt,
		})
	}
	return rows, nil
}

// SaveRecommendations inserts rows in one transaction
func SaveRecommendations(db *database.DB, rows []Recommendation) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 100).Error
	})
}

// ListRecommendations returns the newest recommendations, optionally for one profile
func ListRecommendations(db *database.DB, profile string, limit int) ([]Recommendation, error) {
	var rows []Recommendation
	query := db.Order("created_at DESC")
	if profile != "" {
		query = query.Where("profile = ?", profile)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// DeleteOlderThan removes sync runs and recommendations created before cutoff
func DeleteOlderThan(db *database.DB, cutoff time.Time) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("created_at < ?", cutoff).Delete(&Recommendation{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		res = tx.Where("created_at < ?", cutoff).Delete(&SyncRun{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		return nil
	})
	return removed, err
}
