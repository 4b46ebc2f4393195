package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	// The migrated schema accepts inserts into every table.
	_, err := db.Exec(`INSERT INTO cluster_runs
		(run_id, algorithm, solver, requested_clusters, effective_clusters, created_at_ns)
		VALUES ('r1', 'kmeans', 'greedy', 10, 10, 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO busmap_entries (run_id, bus_id, cluster) VALUES ('r1', 'a', 'DE0 0')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO linemap_entries (run_id, line_id, new_line) VALUES ('r1', 'l1', 'removed')`)
	require.NoError(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A second open on a migrated database must not fail on ErrNoChange.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRunStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db)

	rec := &Run{
		Algorithm:         "louvain",
		Solver:            "greedy",
		RequestedClusters: 40,
		EffectiveClusters: 38,
		ParamsJSON:        json.RawMessage(`{"seed":7}`),
	}
	require.NoError(t, runs.InsertRun(rec))
	assert.NotEmpty(t, rec.RunID, "empty run id gets generated")
	assert.NotZero(t, rec.CreatedAtNs)

	got, err := runs.GetRun(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Algorithm, got.Algorithm)
	assert.Equal(t, rec.RequestedClusters, got.RequestedClusters)
	assert.Equal(t, rec.EffectiveClusters, got.EffectiveClusters)
	assert.JSONEq(t, `{"seed":7}`, string(got.ParamsJSON))

	busmap := map[string]string{"a": "DE0 0", "b": "DE0 0", "c": "DE0 1"}
	require.NoError(t, runs.SaveBusmap(rec.RunID, busmap))
	gotBusmap, err := runs.GetBusmap(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, busmap, gotBusmap)

	linemap := map[string]string{"l1": "0", "l2": "removed"}
	require.NoError(t, runs.SaveLinemap(rec.RunID, linemap))
	gotLinemap, err := runs.GetLinemap(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, linemap, gotLinemap)
}

func TestRunStoreNullParams(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db)

	rec := &Run{Algorithm: "kmeans", Solver: "greedy", RequestedClusters: 5, EffectiveClusters: 5}
	require.NoError(t, runs.InsertRun(rec))

	got, err := runs.GetRun(rec.RunID)
	require.NoError(t, err)
	assert.Empty(t, got.ParamsJSON)
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db)

	older := &Run{Algorithm: "kmeans", Solver: "greedy", RequestedClusters: 5, EffectiveClusters: 5, CreatedAtNs: 100}
	newer := &Run{Algorithm: "hac", Solver: "greedy", RequestedClusters: 9, EffectiveClusters: 9, CreatedAtNs: 200}
	require.NoError(t, runs.InsertRun(older))
	require.NoError(t, runs.InsertRun(newer))

	list, err := runs.ListRuns()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.RunID, list[0].RunID, "newest first")
	assert.Equal(t, older.RunID, list[1].RunID)
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	_, err := NewRunStore(db).GetRun("nope")
	require.Error(t, err)
}
