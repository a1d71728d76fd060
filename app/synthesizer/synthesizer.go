package synthesizer

import (
	"log/slog"
	"math"
	"sort"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/classifier"
)

// Synthesizer aggregates the valid assessments of a window into a single
// consensus view. Given the same set of assessments it always produces the
// same result: inputs are sorted by document ID before any aggregation, so
// arrival order never leaks into the output.
type Synthesizer struct {
	similarity      classifier.SimilarityFunc
	contestedMargin float64
	tieEpsilon      float64
	outlierSigma    float64
	themeThreshold  float64
	themeTopN       int
}

func NewSynthesizer(similarity classifier.SimilarityFunc, contestedMargin, tieEpsilon, outlierSigma, themeThreshold float64, themeTopN int) *Synthesizer {
	return &Synthesizer{
		similarity:      similarity,
		contestedMargin: contestedMargin,
		tieEpsilon:      tieEpsilon,
		outlierSigma:    outlierSigma,
		themeThreshold:  themeThreshold,
		themeTopN:       themeTopN,
	}
}

// Run synthesizes a consensus from the valid assessments of a window.
// Rejected assessments must be filtered out by the caller; they are counted
// in the run's exclusion stats, not here. An empty input returns
// ErrEmptyWindow.
func (s *Synthesizer) Run(assessments []analyzer.ArticleAssessment) (*ConsensusResult, error) {
	if len(assessments) == 0 {
		return nil, ErrEmptyWindow
	}

	sorted := make([]analyzer.ArticleAssessment, len(assessments))
	copy(sorted, assessments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DocumentID < sorted[j].DocumentID })

	totalWeight := 0.0
	for i := range sorted {
		totalWeight += sorted[i].Weight
	}

	result := &ConsensusResult{
		Tally:           s.tally(sorted, totalWeight),
		Dimensions:      map[string]DimensionAggregate{},
		Themes:          s.themes(sorted),
		AssessmentCount: len(sorted),
		TotalWeight:     totalWeight,
	}
	result.Direction, result.Contested = s.resolveDirection(result.Tally)

	for _, dim := range analyzer.Dimensions() {
		agg, outliers := s.aggregateDimension(sorted, dim, totalWeight)
		result.Dimensions[dim] = agg
		result.Outliers = append(result.Outliers, outliers...)
	}

	slog.Debug("Consensus synthesized",
		"assessments", result.AssessmentCount, "direction", result.Direction,
		"contested", result.Contested, "themes", len(result.Themes), "outliers", len(result.Outliers))

	return result, nil
}

// tally sums assessment weights per direction. Rows are ordered by share
// descending, direction ascending on ties, so equal inputs yield equal output.
func (s *Synthesizer) tally(sorted []analyzer.ArticleAssessment, totalWeight float64) []DirectionShare {
	byDirection := map[string]*DirectionShare{}
	sources := map[string]map[string]struct{}{}
	for i := range sorted {
		row, ok := byDirection[sorted[i].Direction]
		if !ok {
			row = &DirectionShare{Direction: sorted[i].Direction}
			byDirection[sorted[i].Direction] = row
			sources[sorted[i].Direction] = map[string]struct{}{}
		}
		row.Weight += sorted[i].Weight
		row.Count++
		sources[sorted[i].Direction][sorted[i].SourceID] = struct{}{}
	}

	tally := make([]DirectionShare, 0, len(byDirection))
	for direction, row := range byDirection {
		if totalWeight > 0 {
			row.Share = row.Weight / totalWeight
		}
		for source := range sources[direction] {
			row.Sources = append(row.Sources, source)
		}
		sort.Strings(row.Sources)
		tally = append(tally, *row)
	}

	sort.Slice(tally, func(i, j int) bool {
		if tally[i].Share != tally[j].Share {
			return tally[i].Share > tally[j].Share
		}
		return tally[i].Direction < tally[j].Direction
	})

	return tally
}

// resolveDirection picks the dominant direction from the tally. A tie within
// tieEpsilon between the top two shares resolves to mixed; a lead smaller
// than contestedMargin keeps the leader but marks the window contested.
func (s *Synthesizer) resolveDirection(tally []DirectionShare) (string, bool) {
	if len(tally) == 1 {
		return tally[0].Direction, false
	}

	lead := tally[0].Share - tally[1].Share
	if lead <= s.tieEpsilon {
		return DirectionMixed, true
	}
	return tally[0].Direction, lead < s.contestedMargin
}

// aggregateDimension computes the weighted mean and weighted standard
// deviation of one dimension and flags scores further than outlierSigma
// standard deviations from the mean. Outliers are flagged, never excluded.
func (s *Synthesizer) aggregateDimension(sorted []analyzer.ArticleAssessment, dim string, totalWeight float64) (DimensionAggregate, []Outlier) {
	if totalWeight <= 0 {
		return DimensionAggregate{}, nil
	}

	count := 0
	mean := 0.0
	for i := range sorted {
		if _, ok := sorted[i].Scores[dim]; ok {
			count++
		}
		mean += sorted[i].Weight * sorted[i].Scores[dim]
	}
	mean /= totalWeight

	variance := 0.0
	for i := range sorted {
		d := sorted[i].Scores[dim] - mean
		variance += sorted[i].Weight * d * d
	}
	stdDev := math.Sqrt(variance / totalWeight)

	var outliers []Outlier
	if stdDev > 0 {
		for i := range sorted {
			deviation := math.Abs(sorted[i].Scores[dim]-mean) / stdDev
			if deviation > s.outlierSigma {
				outliers = append(outliers, Outlier{
					DocumentID: sorted[i].DocumentID,
					Dimension:  dim,
					Score:      sorted[i].Scores[dim],
					Deviation:  deviation,
				})
			}
		}
	}

	return DimensionAggregate{Mean: mean, StdDev: stdDev, Count: count}, outliers
}
