package models

import (
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

// All lists every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&SyncRun{},
		&Recommendation{},
	}
}

// AutoMigrate creates or updates the tables
func AutoMigrate(db *database.DB) error {
	return db.AutoMigrate(All()...)
}

// DropAll drops the tables in reverse order
func DropAll(db *database.DB) error {
	models := All()
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return err
		}
	}
	return nil
}
