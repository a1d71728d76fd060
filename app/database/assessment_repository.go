package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const assessmentColumns = `id, document_id, source_id, schema_version, scores, direction,
	       theses, weight, status, reject_reason, published_at, created_at`

// AssessmentRepo handles database operations for per-document assessments
type AssessmentRepo struct {
	db *DB
}

func NewAssessmentRepository(db *DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// UpsertAssessment stores an assessment, replacing any previous one for the
// same document. Re-analysis under a newer extraction schema overwrites.
func (r *AssessmentRepo) UpsertAssessment(a Assessment) error {
	scores, err := json.Marshal(a.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	theses, err := json.Marshal(a.Theses)
	if err != nil {
		return fmt.Errorf("failed to encode theses: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO assessments (
			id, document_id, source_id, schema_version, scores, direction,
			theses, weight, status, reject_reason, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (document_id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			scores = EXCLUDED.scores,
			direction = EXCLUDED.direction,
			theses = EXCLUDED.theses,
			weight = EXCLUDED.weight,
			status = EXCLUDED.status,
			reject_reason = EXCLUDED.reject_reason,
			created_at = NOW()
	`, a.ID, a.DocumentID, a.SourceID, a.SchemaVersion, scores, a.Direction,
		theses, a.Weight, a.Status, a.RejectReason, a.PublishedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert assessment: %w", err)
	}

	return nil
}

func (r *AssessmentRepo) GetAssessment(documentID string) (*Assessment, error) {
	row := r.db.QueryRow(`
		SELECT `+assessmentColumns+`
		FROM assessments
		WHERE document_id = $1
	`, documentID)

	a, err := scanAssessment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return a, nil
}

// GetValidAssessmentsInWindow returns synthesizable assessments for documents
// published inside [start, end), ordered by document ID.
func (r *AssessmentRepo) GetValidAssessmentsInWindow(start, end time.Time) ([]Assessment, error) {
	return r.assessmentsInWindow(start, end, true)
}

// GetAssessmentsInWindow returns all assessments for the window, rejected
// ones included.
func (r *AssessmentRepo) GetAssessmentsInWindow(start, end time.Time) ([]Assessment, error) {
	return r.assessmentsInWindow(start, end, false)
}

func (r *AssessmentRepo) assessmentsInWindow(start, end time.Time, validOnly bool) ([]Assessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE published_at >= $1 AND published_at < $2
	`
	args := []interface{}{start, end}
	if validOnly {
		query += ` AND status = $3`
		args = append(args, "valid")
	}
	query += ` ORDER BY document_id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessments in window: %w", err)
	}
	defer rows.Close()

	var assessments []Assessment
	for rows.Next() {
		a, err := scanAssessment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment row: %w", err)
		}
		assessments = append(assessments, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assessment rows: %w", err)
	}

	return assessments, nil
}

func (r *AssessmentRepo) GetAssessmentCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM assessments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get assessment count: %w", err)
	}
	return count, nil
}

func scanAssessment(scan func(dest ...interface{}) error) (*Assessment, error) {
	var a Assessment
	var scores, theses []byte

	err := scan(
		&a.ID, &a.DocumentID, &a.SourceID, &a.SchemaVersion, &scores, &a.Direction,
		&theses, &a.Weight, &a.Status, &a.RejectReason, &a.PublishedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(scores, &a.Scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}
	if err := json.Unmarshal(theses, &a.Theses); err != nil {
		return nil, fmt.Errorf("failed to decode theses: %w", err)
	}

	return &a, nil
}
