package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/events"
)

func newTestRegistry(t *testing.T, maxVersions int) (*Registry, *events.Bus) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := events.NewBus(logger)

	r, err := New(t.TempDir(), maxVersions, bus, logger)
	require.NoError(t, err)

	clock := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r, bus
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r, _ := newTestRegistry(t, 5)

	meta, err := r.RegisterModel("points-model", "NBA points", "gonum", []string{"nba"})
	require.NoError(t, err)
	assert.Equal(t, "points-model", meta.Name)
	assert.FileExists(t, filepath.Join(r.Root(), "points-model", "metadata.json"))
	assert.DirExists(t, filepath.Join(r.Root(), "points-model", "versions"))

	_, err = r.RegisterModel("points-model", "", "", nil)
	assert.ErrorIs(t, err, ErrModelExists)

	_, err = r.RegisterModel("../escape", "", "", nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	got, err := r.GetModel("points-model")
	require.NoError(t, err)
	assert.Equal(t, "NBA points", got.Description)
	assert.Equal(t, []string{"nba"}, got.Tags)

	_, err = r.GetModel("missing")
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = r.RegisterModel("assists-model", "", "", nil)
	require.NoError(t, err)
	models, err := r.ListModels()
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "assists-model", models[0].Name)
}

func TestRegistry_SaveVersionPrunesOldest(t *testing.T) {
	r, bus := newTestRegistry(t, 3)
	var saved []events.Event
	bus.Subscribe(events.TopicRegistryVersionSaved, func(e events.Event) { saved = append(saved, e) })

	_, err := r.RegisterModel("points-model", "", "", nil)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		v, err := r.SaveVersion("points-model", VersionInput{Metrics: map[string]float64{"mae": float64(5 - i)}})
		require.NoError(t, err)
		assert.Equal(t, i+1, v.Number)
		ids = append(ids, v.ID)
	}
	assert.Len(t, saved, 5)

	versions, err := r.ListVersions("points-model")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{versions[0].Number, versions[1].Number, versions[2].Number})

	_, err = r.GetVersion("points-model", ids[0])
	assert.ErrorIs(t, err, ErrVersionNotFound)

	meta, err := r.GetModel("points-model")
	require.NoError(t, err)
	assert.Equal(t, ids[4], meta.ActiveVersion)
	assert.Equal(t, 5, meta.LatestNumber)
	assert.Equal(t, 3, meta.VersionCount)

	latest, err := r.LatestVersion("points-model")
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Number)
	assert.Equal(t, 1.0, latest.Metrics["mae"])
}

func TestRegistry_ActivatePinsVersion(t *testing.T) {
	r, _ := newTestRegistry(t, 2)
	_, err := r.RegisterModel("points-model", "", "", nil)
	require.NoError(t, err)

	first, err := r.SaveVersion("points-model", VersionInput{Notes: "baseline"})
	require.NoError(t, err)

	meta, err := r.Activate("points-model", first.ID)
	require.NoError(t, err)
	assert.True(t, meta.Pinned)

	for i := 0; i < 3; i++ {
		_, err := r.SaveVersion("points-model", VersionInput{})
		require.NoError(t, err)
	}

	active, err := r.ActiveVersion("points-model")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, "baseline", active.Notes)

	versions, err := r.ListVersions("points-model")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Number)
	assert.Equal(t, 4, versions[1].Number)

	_, err = r.Activate("points-model", "6f1c2a9e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestRegistry_DeleteActiveVersionFallsBackToLatest(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	_, err := r.RegisterModel("points-model", "", "", nil)
	require.NoError(t, err)

	v1, err := r.SaveVersion("points-model", VersionInput{})
	require.NoError(t, err)
	v2, err := r.SaveVersion("points-model", VersionInput{})
	require.NoError(t, err)

	_, err = r.Activate("points-model", v2.ID)
	require.NoError(t, err)
	require.NoError(t, r.DeleteVersion("points-model", v2.ID))

	meta, err := r.GetModel("points-model")
	require.NoError(t, err)
	assert.False(t, meta.Pinned)
	assert.Equal(t, v1.ID, meta.ActiveVersion)
	assert.Equal(t, 1, meta.VersionCount)

	assert.ErrorIs(t, r.DeleteVersion("points-model", v2.ID), ErrVersionNotFound)
}

func TestRegistry_Prune(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	_, err := r.RegisterModel("points-model", "", "", nil)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := r.SaveVersion("points-model", VersionInput{})
		require.NoError(t, err)
	}

	_, err = r.Prune("points-model", 0)
	assert.Error(t, err)

	removed, err := r.Prune("points-model", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	// disabled cap
	removed, err = r.PruneAll()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRegistry_PruneAllUsesCap(t *testing.T) {
	r, _ := newTestRegistry(t, 2)
	_, err := r.RegisterModel("points-model", "", "", nil)
	require.NoError(t, err)

	// versions written outside the cap, e.g. by an older process
	r.maxVersions = 0
	for i := 0; i < 4; i++ {
		_, err := r.SaveVersion("points-model", VersionInput{})
		require.NoError(t, err)
	}
	r.maxVersions = 2

	removed, err := r.PruneAll()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestRegistry_CorruptMetadata(t *testing.T) {
	r, _ := newTestRegistry(t, 2)
	_, err := r.RegisterModel("points-model", "", "", nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(r.Root(), "points-model", "metadata.json"), []byte("{"), 0o644))
	_, err = r.GetModel("points-model")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}
