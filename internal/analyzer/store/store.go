// Package store persists cohort snapshots to PostgreSQL so a restarted
// analyzer resumes from the last saved cohort instead of an empty one.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/analyzer"
	"github.com/evidencelab/symptom-signal-platform/pkg/postgres"
)

// Store persists cohort snapshots in PostgreSQL.
//
// It requires a `cohort_snapshots` table:
//
//	CREATE TABLE cohort_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    version     BIGINT NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a cohort persistence store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "cohort-store"),
	}
}

// SaveSnapshot persists a cohort snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, state analyzer.CohortState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling cohort state: %w", err)
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO cohort_snapshots (data, version, captured_at) VALUES ($1, $2, $3)`,
		data, state.Version, state.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("saving cohort snapshot: %w", err)
	}

	s.logger.Info("cohort snapshot saved",
		"posts", len(state.Posts),
		"papers", len(state.Papers),
		"version", state.Version,
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot. Returns nil, nil if no
// snapshots exist yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analyzer.CohortState, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM cohort_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var state analyzer.CohortState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &state, nil
}

// PruneSnapshots deletes all but the newest keep snapshots.
func (s *Store) PruneSnapshots(ctx context.Context, keep int) error {
	_, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM cohort_snapshots
		 WHERE id NOT IN (
		     SELECT id FROM cohort_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1
		 )`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	return nil
}

// StartPeriodicSave launches a goroutine that snapshots the aggregator at the
// given interval and once more on shutdown. Snapshots are skipped while the
// cohort version is unchanged.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analyzer.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastSaved int64 = -1
		for {
			select {
			case <-ticker.C:
				if agg.Version() == lastSaved {
					continue
				}
				state := agg.State()
				if err := s.SaveSnapshot(ctx, state); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
					continue
				}
				lastSaved = state.Version
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				state := agg.State()
				if state.Version == lastSaved {
					return
				}
				if err := s.SaveSnapshot(shutdownCtx, state); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
