package database

import (
	"time"
)

// Document lifecycle statuses. Pending is the only non-terminal status: a
// window is synthesizable once none of its documents are pending.
const (
	DocumentStatusPending      = "pending"
	DocumentStatusAnalyzed     = "analyzed"
	DocumentStatusRejected     = "rejected"
	DocumentStatusDuplicate    = "duplicate"
	DocumentStatusUnclassified = "unclassified"
	DocumentStatusOutOfScope   = "out_of_scope"
)

// Consensus run triggers.
const (
	RunTriggerScheduled = "scheduled"
	RunTriggerManual    = "manual"
)

type Document struct {
	ID               string // Database UUID, assigned at ingest
	SourceID         string // Institution identifier from source configuration
	Title            string
	RawText          string
	Category         string // Classifier verdict
	DeclaredCategory string // Category claimed by the submitter, may be empty
	Status           string
	StatusReason     string
	Fingerprint      string
	DuplicateOf      *string // Document ID of the first-seen copy
	ReadCount        int
	PublishedAt      time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Assessment struct {
	ID            string
	DocumentID    string
	SourceID      string
	SchemaVersion string
	Scores        map[string]float64 // jsonb
	Direction     string
	Theses        []string // jsonb
	Weight        float64
	Status        string
	RejectReason  string
	PublishedAt   time.Time
	CreatedAt     time.Time
}

// ConsensusRun is one synthesis of a window. Runs are append-only: a late
// arrival never mutates an existing run, it earns the window a fresh one.
type ConsensusRun struct {
	ID              string
	WindowStart     time.Time
	WindowEnd       time.Time
	Direction       string
	Contested       bool
	Tally           []byte // jsonb, []synthesizer.DirectionShare
	Dimensions      []byte // jsonb, map[string]synthesizer.DimensionAggregate
	Themes          []byte // jsonb, []synthesizer.Theme
	Outliers        []byte // jsonb, []synthesizer.Outlier
	AssessmentCount int
	TotalWeight     float64
	DocumentCount   int // In-window documents at run time, drives re-run detection
	ExcludedCount   int // Documents excluded from synthesis, sum of the breakdown below

	// Exclusion breakdown by document status, so analysts can see how much
	// input was discarded and why.
	RejectedCount     int
	DuplicateCount    int
	UnclassifiedCount int
	OutOfScopeCount   int

	Trigger   string
	CreatedAt time.Time
}

// DocumentStats breaks the corpus down by status.
type DocumentStats struct {
	Total        int
	Pending      int
	Analyzed     int
	Rejected     int
	Duplicate    int
	Unclassified int
	OutOfScope   int
}
