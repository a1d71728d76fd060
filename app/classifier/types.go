package classifier

import (
	"errors"
	"time"
)

// ErrMalformedDocument marks input that cannot enter the pipeline. Callers skip
// the document and continue; a malformed document never aborts a run.
var ErrMalformedDocument = errors.New("malformed document")

// Document is the raw unit of input handed over by the acquisition collaborator.
// It is annotated by classification and never mutated afterwards.
type Document struct {
	ID               string
	SourceID         string
	Title            string
	RawText          string
	PublishedAt      time.Time
	DeclaredCategory string // as declared upstream, "" or "unknown" when absent
	ReadCount        int    // optional engagement signal, 0 when unavailable
}

// Document categories. Only fixed income documents proceed to analysis;
// unmatched documents are marked unclassified rather than guessed.
const (
	CategoryFixedIncome  = "fixed_income"
	CategoryEquity       = "equity"
	CategoryMacro        = "macro"
	CategoryUnclassified = "unclassified"
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryFixedIncome, CategoryEquity, CategoryMacro:
		return true
	}
	return false
}

// Result is the classification outcome for one document.
type Result struct {
	Category    string
	Reason      string
	Duplicate   bool
	DuplicateOf string // document ID of the first-seen original
	Fingerprint string
}
