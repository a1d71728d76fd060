package api

import (
	"time"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/classifier"
	"github.com/bondlens/bondlens/app/database"
	"github.com/bondlens/bondlens/app/sources"
	"github.com/bondlens/bondlens/app/synthesizer"
	"github.com/bondlens/bondlens/app/tasks"
)

type Handler struct {
	configCache    *sources.ConfigCache
	classifier     *classifier.Classifier
	analyzer       *analyzer.Analyzer
	synthesizer    *synthesizer.Synthesizer
	documentRepo   database.DocumentRepository
	assessmentRepo database.AssessmentRepository
	consensusRepo  database.ConsensusRepository
	scheduler      tasks.TaskSchedulerInterface
	windowHours    int
}

// Document dispositions reported by the ingest endpoint.
const (
	DispositionAccepted     = "accepted"
	DispositionDuplicate    = "duplicate"
	DispositionUnclassified = "unclassified"
	DispositionOutOfScope   = "out_of_scope"
	DispositionMalformed    = "malformed"
)

type IngestDocument struct {
	SourceID         string    `json:"source_id" binding:"required"`
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	PublishedAt      time.Time `json:"published_at"`
	DeclaredCategory string    `json:"declared_category"`
	ReadCount        int       `json:"read_count"`
}

type IngestRequest struct {
	Documents []IngestDocument `json:"documents" binding:"required"`
}

type IngestResult struct {
	ID          string  `json:"id,omitempty"`
	Disposition string  `json:"disposition"`
	Category    string  `json:"category,omitempty"`
	DuplicateOf *string `json:"duplicate_of,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}
