package database

import (
	"time"
)

type DocumentRepository interface {
	InsertDocument(doc Document) error
	GetDocument(id string) (*Document, error)
	GetDocumentsInWindow(start, end time.Time) ([]Document, error)
	GetRecentDocuments(since time.Time) ([]Document, error)
	GetPendingCount(start, end time.Time) (int, error)
	GetDocumentCountInWindow(start, end time.Time) (int, error)
	GetStatusCountsInWindow(start, end time.Time) (map[string]int, error)
	GetWindowsNeedingSynthesis(limit int) ([]time.Time, error)
	GetDocumentStats() (DocumentStats, error)

	UpdateDocumentStatus(id string, status string, reason string) error
}

type AssessmentRepository interface {
	UpsertAssessment(a Assessment) error
	GetAssessment(documentID string) (*Assessment, error)
	GetValidAssessmentsInWindow(start, end time.Time) ([]Assessment, error)
	GetAssessmentsInWindow(start, end time.Time) ([]Assessment, error)
	GetAssessmentCount() (int, error)
}

type ConsensusRepository interface {
	InsertRun(run ConsensusRun) error
	GetLatestRun(windowStart time.Time) (*ConsensusRun, error)
	GetRuns(windowStart time.Time) ([]ConsensusRun, error)
	GetRunCount() (int, error)
}
