package database

import (
	"database/sql"
	"fmt"
	"time"
)

const documentColumns = `id, source_id, title, raw_text, category, declared_category,
	       status, status_reason, fingerprint, duplicate_of, read_count,
	       published_at, created_at, updated_at`

// DocumentRepo handles database operations for ingested documents
type DocumentRepo struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) InsertDocument(doc Document) error {
	_, err := r.db.Exec(`
		INSERT INTO documents (
			id, source_id, title, raw_text, category, declared_category,
			status, status_reason, fingerprint, duplicate_of, read_count, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, doc.ID, doc.SourceID, doc.Title, doc.RawText, doc.Category, doc.DeclaredCategory,
		doc.Status, doc.StatusReason, doc.Fingerprint, doc.DuplicateOf, doc.ReadCount,
		doc.PublishedAt)

	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

func (r *DocumentRepo) GetDocument(id string) (*Document, error) {
	var doc Document
	err := r.db.QueryRow(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1
	`, id).Scan(
		&doc.ID, &doc.SourceID, &doc.Title, &doc.RawText, &doc.Category, &doc.DeclaredCategory,
		&doc.Status, &doc.StatusReason, &doc.Fingerprint, &doc.DuplicateOf, &doc.ReadCount,
		&doc.PublishedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// GetDocumentsInWindow returns documents published inside [start, end),
// ordered by ID so downstream aggregation sees a stable order.
func (r *DocumentRepo) GetDocumentsInWindow(start, end time.Time) ([]Document, error) {
	rows, err := r.db.Query(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE published_at >= $1 AND published_at < $2
		ORDER BY id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents in window: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// GetRecentDocuments returns non-duplicate documents published after the
// cutoff. Used to rebuild the in-memory dedup index on startup.
func (r *DocumentRepo) GetRecentDocuments(since time.Time) ([]Document, error) {
	rows, err := r.db.Query(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE published_at >= $1
		  AND status != $2
		ORDER BY published_at
	`, since, DocumentStatusDuplicate)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (r *DocumentRepo) GetPendingCount(start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM documents
		WHERE published_at >= $1 AND published_at < $2 AND status = $3
	`, start, end, DocumentStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

func (r *DocumentRepo) GetDocumentCountInWindow(start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM documents
		WHERE published_at >= $1 AND published_at < $2
	`, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get document count: %w", err)
	}
	return count, nil
}

func (r *DocumentRepo) GetDocumentStats() (DocumentStats, error) {
	var stats DocumentStats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'analyzed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'duplicate' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'unclassified' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'out_of_scope' THEN 1 ELSE 0 END), 0)
		FROM documents
	`).Scan(&stats.Total, &stats.Pending, &stats.Analyzed, &stats.Rejected,
		&stats.Duplicate, &stats.Unclassified, &stats.OutOfScope)

	if err != nil {
		return DocumentStats{}, fmt.Errorf("failed to get document stats: %w", err)
	}

	return stats, nil
}

// GetStatusCountsInWindow breaks the documents published inside [start, end)
// down by status.
func (r *DocumentRepo) GetStatusCountsInWindow(start, end time.Time) (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT status, COUNT(*)
		FROM documents
		WHERE published_at >= $1 AND published_at < $2
		GROUP BY status
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get window status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status count rows: %w", err)
	}

	return counts, nil
}

// GetWindowsNeedingSynthesis returns the start of every UTC day window whose
// documents have all reached a terminal status but whose latest consensus run
// is missing or saw a different document count. Late arrivals to long-closed
// windows surface here, newest window first.
func (r *DocumentRepo) GetWindowsNeedingSynthesis(limit int) ([]time.Time, error) {
	rows, err := r.db.Query(`
		WITH window_documents AS (
			SELECT date_trunc('day', published_at AT TIME ZONE 'UTC') AT TIME ZONE 'UTC' AS window_start,
			       COUNT(*) AS document_count,
			       COUNT(*) FILTER (WHERE status = 'pending') AS pending_count
			FROM documents
			GROUP BY 1
		), latest_runs AS (
			SELECT DISTINCT ON (window_start) window_start, document_count
			FROM consensus_runs
			ORDER BY window_start, created_at DESC
		)
		SELECT d.window_start
		FROM window_documents d
		LEFT JOIN latest_runs r ON r.window_start = d.window_start
		WHERE d.pending_count = 0
		  AND (r.document_count IS NULL OR r.document_count <> d.document_count)
		ORDER BY d.window_start DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get windows needing synthesis: %w", err)
	}
	defer rows.Close()

	var windows []time.Time
	for rows.Next() {
		var windowStart time.Time
		if err := rows.Scan(&windowStart); err != nil {
			return nil, fmt.Errorf("failed to scan window row: %w", err)
		}
		windows = append(windows, windowStart.UTC())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating window rows: %w", err)
	}

	return windows, nil
}

func (r *DocumentRepo) UpdateDocumentStatus(id string, status string, reason string) error {
	_, err := r.db.Exec(`
		UPDATE documents
		SET status = $2, status_reason = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, reason)

	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	return nil
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var doc Document
		err := rows.Scan(
			&doc.ID, &doc.SourceID, &doc.Title, &doc.RawText, &doc.Category, &doc.DeclaredCategory,
			&doc.Status, &doc.StatusReason, &doc.Fingerprint, &doc.DuplicateOf, &doc.ReadCount,
			&doc.PublishedAt, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}
