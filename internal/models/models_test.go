package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection("sqlite://:memory:", false)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSyncRuns(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		data := betting.NewIntegratedData("snap-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		data.Sources = []string{"espn", "theodds"}
		data.FailedSources = []string{"sportsradar"}

		run, err := NewSyncRun(data, 1500*time.Millisecond)
		require.NoError(t, err)
		require.NoError(t, RecordSyncRun(db, run))
	}

	runs, err := ListSyncRuns(db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "snap-c", runs[0].SnapshotID)
	assert.Equal(t, int64(1500), runs[0].DurationMs)
	assert.Equal(t, StringArray{"espn", "theodds"}, runs[0].Sources)
	assert.Equal(t, StringArray{"sportsradar"}, runs[0].FailedSources)
	assert.JSONEq(t, `{"players":0,"sentiment":0,"events":0,"odds_lines":0,"injuries":0,"trends":0}`, string(runs[0].Counts))
}

func TestRecommendations(t *testing.T) {
	db := setupTestDB(t)

	generated := time.Now().UTC().Add(-48 * time.Hour)
	rec := strategy.Recommendation{
		Profile:     "moderate",
		SnapshotID:  "snap-1",
		GeneratedAt: generated,
		Bets: []strategy.Opportunity{
			{
				Kind: strategy.KindProp, Sport: betting.SportNBA, PlayerID: "lebron-james",
				Market: "player_points", Selection: "Over", StatType: "points", Line: 25.5,
				Bookmaker: "fanduel", Price: 100, Probability: 0.84, ExpectedValue: 0.68,
				Confidence: 0.93, RiskLevel: strategy.RiskLow, Stake: 50,
				Warnings: []string{"stake capped at 5% of bankroll"},
			},
			{
				Kind: strategy.KindValue, EventID: "evt-1", Market: "h2h", Selection: "Away",
				Bookmaker: "c", Price: 155, Probability: 0.41, ExpectedValue: 0.04,
				Confidence: 0.66, RiskLevel: strategy.RiskMedium, Stake: 12.5,
			},
		},
	}

	rows, err := RecommendationsFrom(uuid.New(), rec)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, SaveRecommendations(db, rows))
	require.NoError(t, SaveRecommendations(db, nil))

	other, err := RecommendationsFrom(uuid.New(), strategy.Recommendation{
		Profile:     "aggressive",
		GeneratedAt: time.Now().UTC(),
		Bets:        []strategy.Opportunity{{Kind: strategy.KindValue, EventID: "evt-2", Stake: 5}},
	})
	require.NoError(t, err)
	require.NoError(t, SaveRecommendations(db, other))

	moderate, err := ListRecommendations(db, "moderate", 10)
	require.NoError(t, err)
	require.Len(t, moderate, 2)

	var prop Recommendation
	for _, r := range moderate {
		if r.Kind == "prop" {
			prop = r
		}
	}
	assert.Equal(t, "lebron-james", prop.PlayerID)
	assert.Equal(t, StringArray{"stake capped at 5% of bankroll"}, prop.Warnings)
	assert.Contains(t, string(prop.Payload), `"selection":"Over"`)

	all, err := ListRecommendations(db, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	removed, err := DeleteOlderThan(db, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	all, err = ListRecommendations(db, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "aggressive", all[0].Profile)
}

func TestDropAll(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, DropAll(db))
	assert.False(t, db.Migrator().HasTable(&SyncRun{}))
	assert.False(t, db.Migrator().HasTable(&Recommendation{}))
}
