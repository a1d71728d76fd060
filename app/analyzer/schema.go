package analyzer

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaVersion identifies the extraction contract embedded in every prompt
// and stored on every assessment. Bump on any change to dimensions, bounds,
// the label enum or the thesis cap: assessments produced under different
// versions are not comparable and must not be aggregated together.
const SchemaVersion = "v1"

// Analytical dimensions scored for every article. The names are part of the
// extraction contract; the scale bounds are configuration.
const (
	DimFundamentals = "fundamentals"
	DimFunding      = "funding"
	DimPolicy       = "policy"
	DimSentiment    = "sentiment"
)

var dimensionOrder = []string{DimFundamentals, DimFunding, DimPolicy, DimSentiment}

var dimensionPrompts = map[string]string{
	DimFundamentals: "growth and inflation fundamentals",
	DimFunding:      "funding and liquidity conditions",
	DimPolicy:       "monetary and fiscal policy stance",
	DimSentiment:    "institutional positioning and market sentiment",
}

// Schema is the fixed extraction contract sent to the LLM collaborator.
type Schema struct {
	Version      string
	ScaleMin     float64
	ScaleMax     float64
	ThesisMax    int
	ThesisMaxLen int
}

func NewSchema(scaleMin, scaleMax float64, thesisMax, thesisMaxLen int) Schema {
	return Schema{
		Version:      SchemaVersion,
		ScaleMin:     scaleMin,
		ScaleMax:     scaleMax,
		ThesisMax:    thesisMax,
		ThesisMaxLen: thesisMaxLen,
	}
}

// Dimensions returns the score dimensions in their canonical order.
func Dimensions() []string {
	dims := make([]string, len(dimensionOrder))
	copy(dims, dimensionOrder)
	return dims
}

// contract renders the response-format section of the prompt. Dimension order
// is fixed so two otherwise-identical documents see byte-identical requests.
func (s Schema) contract() string {
	var b strings.Builder

	b.WriteString("Respond with a single JSON object and nothing else, no markdown fences:\n{\n")
	b.WriteString(`  "scores": {`)
	for i, dim := range dimensionOrder {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `"%s": <number>`, dim)
	}
	b.WriteString("},\n")
	fmt.Fprintf(&b, "  \"direction\": \"%s\" | \"%s\" | \"%s\",\n", DirectionUp, DirectionDown, DirectionOscillating)
	fmt.Fprintf(&b, "  \"theses\": [\"...\"]  // 1 to %d entries, each at most %d characters\n", s.ThesisMax, s.ThesisMaxLen)
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "Every score rates the article's view of the named dimension on a %.0f (most bond-bearish) to %.0f (most bond-bullish) scale:\n", s.ScaleMin, s.ScaleMax)
	for _, dim := range dimensionOrder {
		fmt.Fprintf(&b, "- %s: %s\n", dim, dimensionPrompts[dim])
	}
	fmt.Fprintf(&b, "\"direction\" is the article's stance on government bond yields: %s when it argues yields rise, %s when it argues yields fall, %s when it argues for range-bound trading.\n", DirectionUp, DirectionDown, DirectionOscillating)
	b.WriteString("\"theses\" are the article's key arguments, one short sentence each, most important first.")

	return b.String()
}

// directionSynonyms normalizes common label phrasings before enum validation.
// An unmappable label is a validation failure, never a guess.
var directionSynonyms = map[string]string{
	"up": DirectionUp, "upward": DirectionUp, "higher": DirectionUp, "rising": DirectionUp,
	"down": DirectionDown, "downward": DirectionDown, "lower": DirectionDown, "falling": DirectionDown, "declining": DirectionDown,
	"oscillating": DirectionOscillating, "sideways": DirectionOscillating, "range-bound": DirectionOscillating, "rangebound": DirectionOscillating, "range bound": DirectionOscillating,
}

func normalizeDirection(raw string) (string, bool) {
	direction, ok := directionSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return direction, ok
}

// validate checks a decoded response against the contract. Out-of-bound or
// missing values are rejected outright, never clamped.
func (s Schema) validate(raw *rawAssessment) error {
	if raw == nil {
		return fmt.Errorf("empty response")
	}

	if len(raw.Scores) != len(dimensionOrder) {
		got := make([]string, 0, len(raw.Scores))
		for dim := range raw.Scores {
			got = append(got, dim)
		}
		sort.Strings(got)
		return fmt.Errorf("expected %d dimension scores, got %d (%s)", len(dimensionOrder), len(raw.Scores), strings.Join(got, ", "))
	}

	for _, dim := range dimensionOrder {
		score, ok := raw.Scores[dim]
		if !ok {
			return fmt.Errorf("missing mandatory dimension %q", dim)
		}
		if score < s.ScaleMin || score > s.ScaleMax {
			return fmt.Errorf("dimension %q score %.2f outside bounds [%.2f, %.2f]", dim, score, s.ScaleMin, s.ScaleMax)
		}
	}

	direction, ok := normalizeDirection(raw.Direction)
	if !ok {
		return fmt.Errorf("direction %q not in enum", raw.Direction)
	}
	raw.Direction = direction

	if len(raw.Theses) == 0 {
		return fmt.Errorf("thesis list is empty")
	}
	if len(raw.Theses) > s.ThesisMax {
		return fmt.Errorf("thesis list has %d entries, cap is %d", len(raw.Theses), s.ThesisMax)
	}
	for i, thesis := range raw.Theses {
		if strings.TrimSpace(thesis) == "" {
			return fmt.Errorf("thesis %d is blank", i)
		}
		if len([]rune(thesis)) > s.ThesisMaxLen {
			return fmt.Errorf("thesis %d exceeds %d characters", i, s.ThesisMaxLen)
		}
	}

	return nil
}
