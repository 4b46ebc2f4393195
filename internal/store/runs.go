package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run records one clustering run: its parameters and the requested and
// effective cluster counts (these differ when the resolution-search
// strategy misses a group target).
type Run struct {
	RunID             string          `json:"run_id"`
	Algorithm         string          `json:"algorithm"`
	Solver            string          `json:"solver"`
	RequestedClusters int             `json:"requested_clusters"`
	EffectiveClusters int             `json:"effective_clusters"`
	ParamsJSON        json.RawMessage `json:"params_json,omitempty"`
	CreatedAtNs       int64           `json:"created_at_ns"`
}

// RunStore provides persistence for clustering runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun creates a run row. If run.RunID is empty a new UUID is
// generated and written back to the struct.
func (s *RunStore) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}
	_, err := s.db.Exec(`
		INSERT INTO cluster_runs (
			run_id, algorithm, solver, requested_clusters,
			effective_clusters, params_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Algorithm, run.Solver, run.RequestedClusters,
		run.EffectiveClusters, nullableString(string(run.ParamsJSON)), run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, algorithm, solver, requested_clusters,
		       effective_clusters, params_json, created_at_ns
		FROM cluster_runs WHERE run_id = ?`, runID)

	var run Run
	var params sql.NullString
	err := row.Scan(&run.RunID, &run.Algorithm, &run.Solver, &run.RequestedClusters,
		&run.EffectiveClusters, &params, &run.CreatedAtNs)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if params.Valid {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (s *RunStore) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, algorithm, solver, requested_clusters,
		       effective_clusters, params_json, created_at_ns
		FROM cluster_runs ORDER BY created_at_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var params sql.NullString
		if err := rows.Scan(&run.RunID, &run.Algorithm, &run.Solver, &run.RequestedClusters,
			&run.EffectiveClusters, &params, &run.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if params.Valid {
			run.ParamsJSON = json.RawMessage(params.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveBusmap stores the busmap rows of a run in one transaction.
func (s *RunStore) SaveBusmap(runID string, busmap map[string]string) error {
	return s.saveEntries(runID, busmap,
		`INSERT INTO busmap_entries (run_id, bus_id, cluster) VALUES (?, ?, ?)`)
}

// SaveLinemap stores the linemap rows of a run in one transaction.
func (s *RunStore) SaveLinemap(runID string, linemap map[string]string) error {
	return s.saveEntries(runID, linemap,
		`INSERT INTO linemap_entries (run_id, line_id, new_line) VALUES (?, ?, ?)`)
}

func (s *RunStore) saveEntries(runID string, entries map[string]string, query string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for id, value := range entries {
		if _, err := stmt.Exec(runID, id, value); err != nil {
			return fmt.Errorf("insert entry %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// GetBusmap reloads the busmap of a run.
func (s *RunStore) GetBusmap(runID string) (map[string]string, error) {
	return s.loadEntries(runID,
		`SELECT bus_id, cluster FROM busmap_entries WHERE run_id = ?`)
}

// GetLinemap reloads the linemap of a run.
func (s *RunStore) GetLinemap(runID string) (map[string]string, error) {
	return s.loadEntries(runID,
		`SELECT line_id, new_line FROM linemap_entries WHERE run_id = ?`)
}

func (s *RunStore) loadEntries(runID, query string) (map[string]string, error) {
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries[id] = value
	}
	return entries, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
