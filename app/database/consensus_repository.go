package database

import (
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `id, window_start, window_end, direction, contested, tally,
	       dimensions, themes, outliers, assessment_count, total_weight,
	       document_count, excluded_count, rejected_count, duplicate_count,
	       unclassified_count, out_of_scope_count, triggered_by, created_at`

// ConsensusRepo handles database operations for consensus runs. Runs are
// never updated or deleted.
type ConsensusRepo struct {
	db *DB
}

func NewConsensusRepository(db *DB) *ConsensusRepo {
	return &ConsensusRepo{db: db}
}

func (r *ConsensusRepo) InsertRun(run ConsensusRun) error {
	_, err := r.db.Exec(`
		INSERT INTO consensus_runs (
			id, window_start, window_end, direction, contested, tally,
			dimensions, themes, outliers, assessment_count, total_weight,
			document_count, excluded_count, rejected_count, duplicate_count,
			unclassified_count, out_of_scope_count, triggered_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, run.ID, run.WindowStart, run.WindowEnd, run.Direction, run.Contested, run.Tally,
		run.Dimensions, run.Themes, run.Outliers, run.AssessmentCount, run.TotalWeight,
		run.DocumentCount, run.ExcludedCount, run.RejectedCount, run.DuplicateCount,
		run.UnclassifiedCount, run.OutOfScopeCount, run.Trigger)

	if err != nil {
		return fmt.Errorf("failed to insert consensus run: %w", err)
	}

	return nil
}

// GetLatestRun returns the most recent run for a window, or nil when the
// window has never been synthesized.
func (r *ConsensusRepo) GetLatestRun(windowStart time.Time) (*ConsensusRun, error) {
	var run ConsensusRun
	err := r.db.QueryRow(`
		SELECT `+runColumns+`
		FROM consensus_runs
		WHERE window_start = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, windowStart).Scan(
		&run.ID, &run.WindowStart, &run.WindowEnd, &run.Direction, &run.Contested, &run.Tally,
		&run.Dimensions, &run.Themes, &run.Outliers, &run.AssessmentCount, &run.TotalWeight,
		&run.DocumentCount, &run.ExcludedCount, &run.RejectedCount, &run.DuplicateCount,
		&run.UnclassifiedCount, &run.OutOfScopeCount, &run.Trigger, &run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest consensus run: %w", err)
	}

	return &run, nil
}

// GetRuns returns the full run history of a window, newest first.
func (r *ConsensusRepo) GetRuns(windowStart time.Time) ([]ConsensusRun, error) {
	rows, err := r.db.Query(`
		SELECT `+runColumns+`
		FROM consensus_runs
		WHERE window_start = $1
		ORDER BY created_at DESC
	`, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get consensus runs: %w", err)
	}
	defer rows.Close()

	var runs []ConsensusRun
	for rows.Next() {
		var run ConsensusRun
		err := rows.Scan(
			&run.ID, &run.WindowStart, &run.WindowEnd, &run.Direction, &run.Contested, &run.Tally,
			&run.Dimensions, &run.Themes, &run.Outliers, &run.AssessmentCount, &run.TotalWeight,
			&run.DocumentCount, &run.ExcludedCount, &run.RejectedCount, &run.DuplicateCount,
			&run.UnclassifiedCount, &run.OutOfScopeCount, &run.Trigger, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consensus run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating consensus run rows: %w", err)
	}

	return runs, nil
}

func (r *ConsensusRepo) GetRunCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM consensus_runs").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get consensus run count: %w", err)
	}
	return count, nil
}
