package synthesizer

import "errors"

// ErrEmptyWindow is returned when a window contains no valid assessments to
// aggregate. Callers distinguish it from transient failures: an empty window
// is a final answer, not something to retry.
var ErrEmptyWindow = errors.New("no valid assessments in window")

// DirectionMixed is the consensus label when the top directions tie. It never
// appears on individual assessments.
const DirectionMixed = "mixed"

// DirectionShare is one row of the direction tally. Share is the weight
// fraction of the window total, so shares across the tally sum to 1. Sources
// lists the distinct institutions behind the bucket, sorted, so the report
// assembler can name who holds each view.
type DirectionShare struct {
	Direction string   `json:"direction"`
	Weight    float64  `json:"weight"`
	Share     float64  `json:"share"`
	Count     int      `json:"count"`
	Sources   []string `json:"sources"`
}

// DimensionAggregate holds the weighted mean and weighted standard deviation
// of one score dimension across the window, with the sample count behind them.
type DimensionAggregate struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// Outlier flags an assessment score far from the window mean. Outliers stay
// in the aggregates; flagging is advisory.
type Outlier struct {
	DocumentID string  `json:"document_id"`
	Dimension  string  `json:"dimension"`
	Score      float64 `json:"score"`
	Deviation  float64 `json:"deviation"`
}

// Theme is a cluster of similar theses ranked by the cumulative weight of the
// assessments that contributed them.
type Theme struct {
	Representative string  `json:"representative"`
	Weight         float64 `json:"weight"`
	ArticleCount   int     `json:"article_count"`
}

// ConsensusResult is the synthesized view of one window.
type ConsensusResult struct {
	Direction       string                        `json:"direction"`
	Contested       bool                          `json:"contested"`
	Tally           []DirectionShare              `json:"tally"`
	Dimensions      map[string]DimensionAggregate `json:"dimensions"`
	Outliers        []Outlier                     `json:"outliers"`
	Themes          []Theme                       `json:"themes"`
	AssessmentCount int                           `json:"assessment_count"`
	TotalWeight     float64                       `json:"total_weight"`
}
