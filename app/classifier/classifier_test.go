package classifier

import (
	"errors"
	"testing"
	"time"
)

func testIndex() *Index {
	return NewIndex(ShingleSimilarity, 0.6, 72*time.Hour)
}

func testDoc(id, text string) Document {
	return Document{
		ID:          id,
		SourceID:    "alpha-research",
		Title:       "Daily note",
		RawText:     text,
		PublishedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestClassifier_Run_FixedIncomeKeywords(t *testing.T) {
	c := NewClassifier(testIndex())

	doc := testDoc("doc-1", "Treasury bond yields fell 5 basis points as the yield curve flattened; duration positioning remains defensive.")

	result, err := c.Run(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryFixedIncome {
		t.Errorf("Expected category %s, got %s (%s)", CategoryFixedIncome, result.Category, result.Reason)
	}
	if result.Duplicate {
		t.Error("First document should not be a duplicate")
	}
	if result.Fingerprint == "" {
		t.Error("Expected non-empty fingerprint")
	}
}

func TestClassifier_Run_EquityKeywords(t *testing.T) {
	c := NewClassifier(testIndex())

	doc := testDoc("doc-1", "Stock valuations look stretched; equities rallied into earnings with the index futures pointing higher and dividend names lagging.")

	result, err := c.Run(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryEquity {
		t.Errorf("Expected category %s, got %s (%s)", CategoryEquity, result.Category, result.Reason)
	}
}

func TestClassifier_Run_NoSignalIsUnclassified(t *testing.T) {
	c := NewClassifier(testIndex())

	doc := testDoc("doc-1", "Quarterly highlights from our travel desk: the best restaurants near the exchange district.")

	result, err := c.Run(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryUnclassified {
		t.Errorf("Expected unclassified, got %s (%s)", result.Category, result.Reason)
	}
}

func TestClassifier_Run_BoilerplateExcluded(t *testing.T) {
	c := NewClassifier(testIndex())

	// Bond vocabulary does not rescue recruiting boilerplate.
	doc := testDoc("doc-1", "We are hiring! Join our treasury bond trading desk, competitive pay, yield curve experience a plus.")

	result, err := c.Run(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryUnclassified {
		t.Errorf("Expected unclassified for boilerplate, got %s", result.Category)
	}
	if result.Reason == "" {
		t.Error("Expected exclusion reason to be recorded")
	}
}

func TestClassifier_Run_CategoryHintPins(t *testing.T) {
	c := NewClassifier(testIndex())

	doc := testDoc("doc-1", "Short commentary with no obvious vocabulary at all beyond general market remarks.")

	result, err := c.Run(doc, CategoryFixedIncome)
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryFixedIncome {
		t.Errorf("Expected hint to pin category, got %s", result.Category)
	}
}

func TestClassifier_Run_DeclaredCategoryUsed(t *testing.T) {
	c := NewClassifier(testIndex())

	doc := testDoc("doc-1", "General commentary without strong category vocabulary in the body text itself.")
	doc.DeclaredCategory = CategoryMacro

	result, err := c.Run(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryMacro {
		t.Errorf("Expected declared category to be used, got %s", result.Category)
	}
}

func TestClassifier_Run_MalformedDocuments(t *testing.T) {
	c := NewClassifier(testIndex())

	tests := []struct {
		name string
		doc  Document
	}{
		{"empty text", Document{ID: "d1", SourceID: "s", PublishedAt: time.Now(), RawText: "   "}},
		{"missing source", Document{ID: "d2", RawText: "treasury bond yields", PublishedAt: time.Now()}},
		{"missing timestamp", Document{ID: "d3", SourceID: "s", RawText: "treasury bond yields"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Run(tt.doc, "")
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("Expected ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestClassifier_Run_HTMLBody(t *testing.T) {
	c := NewClassifier(testIndex())

	doc := testDoc("doc-1", `<html><body><div><p>Treasury bond yields fell as the yield curve flattened and duration demand returned.</p></div></body></html>`)

	result, err := c.Run(doc, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Category != CategoryFixedIncome {
		t.Errorf("Expected HTML body to classify as fixed income, got %s", result.Category)
	}
}
