package classifier

import (
	"fmt"
	"strings"
	"time"
)

// categoryRule holds the deterministic keyword signal for one category.
// Strong keywords count double; the per-category weight compensates for
// vocabulary overlap between categories (macro terms leak into everything).
type categoryRule struct {
	strong []string
	weak   []string
	weight float64
}

var categoryRules = map[string]categoryRule{
	CategoryFixedIncome: {
		strong: []string{
			"bond", "treasury", "gilt", "duration", "convexity", "credit spread",
			"yield curve", "fixed income", "coupon", "govvies", "sovereign debt",
			"municipal", "corporate credit", "investment grade", "high yield",
			"convertible", "mbs", "securitization",
		},
		weak: []string{
			"yield", "rates", "basis points", "bps", "repo", "liquidity",
			"central bank", "policy rate", "open market", "term premium",
			"curve steepening", "curve flattening", "funding", "10y", "5y", "2y",
		},
		weight: 1.5,
	},
	CategoryEquity: {
		strong: []string{
			"stock", "equities", "equity market", "shares", "ipo", "earnings per share",
			"small cap", "large cap", "sector rotation", "index futures",
		},
		weak: []string{
			"valuation", "p/e", "dividend", "buyback", "earnings", "price target",
			"upgrade", "downgrade", "momentum", "technical analysis",
		},
		weight: 1.0,
	},
	CategoryMacro: {
		strong: []string{
			"gdp", "macroeconomic", "inflation", "unemployment", "trade war",
			"business cycle", "industrial policy", "economic data",
		},
		weak: []string{
			"cpi", "ppi", "pmi", "retail sales", "industrial production",
			"consumption", "exports", "imports", "fiscal policy", "money supply",
			"m1", "m2", "fixed asset investment",
		},
		weight: 1.5,
	},
}

// institutionHints add weight when the publishing desk's name signals a category.
var institutionHints = map[string][]string{
	CategoryFixedIncome: {"fixed income", "rates", "credit", "bond", "fi research"},
	CategoryEquity:      {"equity", "equities", "stock", "quant"},
	CategoryMacro:       {"macro", "economics", "economic research"},
}

// excludeKeywords mark non-research boilerplate (recruiting, events, legal
// notices) that should never reach analysis regardless of vocabulary.
var excludeKeywords = []string{
	"we are hiring", "job opening", "recruitment", "advertisement", "sponsored",
	"webinar registration", "conference agenda", "annual meeting notice",
	"tender announcement", "clarification statement", "disclaimer update",
}

// minCategoryScore is the floor below which a document stays unclassified.
const minCategoryScore = 2.0

const (
	strongMatchScore = 2.0
	weakMatchScore   = 1.0
	hintMatchScore   = 1.5
)

// Classifier tags documents with a category and a duplicate flag. Category
// assignment is a deterministic rule set; no LLM call is made here.
type Classifier struct {
	index     *Index
	extractor *Extractor
}

func NewClassifier(index *Index) *Classifier {
	return &Classifier{
		index:     index,
		extractor: NewExtractor(),
	}
}

// Run validates, fingerprints and categorizes a single document. The category
// hint, when non-empty, pins the category for single-desk sources and skips
// keyword scoring. Returns ErrMalformedDocument for unusable input.
func (c *Classifier) Run(doc Document, categoryHint string) (Result, error) {
	if err := c.validate(doc); err != nil {
		return Result{}, err
	}

	text := c.extractor.Run(doc.RawText)
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: no usable text in document from %s", ErrMalformedDocument, doc.SourceID)
	}

	category, reason := c.categorize(doc, text, categoryHint)

	fingerprint := Fingerprint(text)
	duplicateOf, duplicate := c.index.CheckAndInsert(Entry{
		DocumentID:  doc.ID,
		Fingerprint: fingerprint,
		Text:        text,
		PublishedAt: doc.PublishedAt,
	})

	return Result{
		Category:    category,
		Reason:      reason,
		Duplicate:   duplicate,
		DuplicateOf: duplicateOf,
		Fingerprint: fingerprint,
	}, nil
}

// Forget removes a previously classified document from the duplicate index.
// Callers use it when the document could not be persisted after Run admitted
// its fingerprint, so a resubmission is not treated as a duplicate of a
// document that does not exist.
func (c *Classifier) Forget(documentID string) {
	c.index.Remove(documentID)
}

func (c *Classifier) validate(doc Document) error {
	if strings.TrimSpace(doc.RawText) == "" {
		return fmt.Errorf("%w: empty text", ErrMalformedDocument)
	}
	if doc.SourceID == "" {
		return fmt.Errorf("%w: missing source identifier", ErrMalformedDocument)
	}
	if doc.PublishedAt.Equal(time.Time{}) {
		return fmt.Errorf("%w: missing publication timestamp", ErrMalformedDocument)
	}
	return nil
}

func (c *Classifier) categorize(doc Document, text, categoryHint string) (string, string) {
	fullText := strings.ToLower(doc.Title + " " + text)

	for _, keyword := range excludeKeywords {
		if strings.Contains(fullText, keyword) {
			return CategoryUnclassified, fmt.Sprintf("excluded by boilerplate filter: contains '%s'", keyword)
		}
	}

	if categoryHint != "" {
		return categoryHint, "pinned by source category hint"
	}

	if ValidCategory(doc.DeclaredCategory) {
		return doc.DeclaredCategory, "declared upstream"
	}

	scores := make(map[string]float64, len(categoryRules))
	sourceName := strings.ToLower(doc.SourceID)

	for category, rule := range categoryRules {
		var score float64
		for _, keyword := range rule.strong {
			if strings.Contains(fullText, keyword) {
				score += strongMatchScore * rule.weight
			}
		}
		for _, keyword := range rule.weak {
			if strings.Contains(fullText, keyword) {
				score += weakMatchScore * rule.weight
			}
		}
		for _, hint := range institutionHints[category] {
			if strings.Contains(sourceName, hint) {
				score += hintMatchScore
			}
		}
		scores[category] = score
	}

	best, bestScore := CategoryUnclassified, 0.0
	// Fixed iteration order keeps classification deterministic when scores tie.
	for _, category := range []string{CategoryFixedIncome, CategoryMacro, CategoryEquity} {
		if scores[category] > bestScore {
			best, bestScore = category, scores[category]
		}
	}

	if bestScore < minCategoryScore {
		return CategoryUnclassified, "no category signal above threshold"
	}

	return best, fmt.Sprintf("keyword score %.1f", bestScore)
}
