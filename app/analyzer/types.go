package analyzer

import (
	"errors"
	"time"
)

// ErrRejectedAssessment marks a document whose LLM response failed validation
// after the single stricter retry. The document is excluded from synthesis;
// scores are never defaulted to neutral, which would bias the consensus.
var ErrRejectedAssessment = errors.New("rejected assessment")

// Directional labels an article can take on rates. Closed enum; the synthesis
// outcome "mixed" is not a per-article label and lives in the synthesizer.
const (
	DirectionUp          = "up"
	DirectionDown        = "down"
	DirectionOscillating = "oscillating"
)

// Assessment statuses.
const (
	StatusValid    = "valid"
	StatusRejected = "rejected"
)

// ArticleAssessment is the structured result of analyzing one document.
// Immutable once created; it back-references its document by ID only.
type ArticleAssessment struct {
	DocumentID    string
	SourceID      string
	SchemaVersion string
	Scores        map[string]float64
	Direction     string
	Theses        []string
	Weight        float64
	Status        string
	RejectReason  string
	PublishedAt   time.Time // document publication time, used for windowing
	CreatedAt     time.Time
}
