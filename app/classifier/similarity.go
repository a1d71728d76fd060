package classifier

import (
	"strings"
)

// SimilarityFunc scores how alike two texts are on [0, 1]. It is a pure
// function so the threshold and algorithm can be tuned and tested
// independently of the pipeline. Both document deduplication and thesis
// clustering use the same mechanism.
type SimilarityFunc func(a, b string) float64

const shingleSize = 3

// ShingleSimilarity computes Jaccard overlap of token shingles over
// normalized text. Texts shorter than one shingle fall back to exact match.
func ShingleSimilarity(a, b string) float64 {
	sa := shingles(normalizeText(a))
	sb := shingles(normalizeText(b))

	if len(sa) == 0 || len(sb) == 0 {
		if normalizeText(a) == normalizeText(b) && normalizeText(a) != "" {
			return 1.0
		}
		return 0.0
	}

	intersection := 0
	for s := range sa {
		if _, ok := sb[s]; ok {
			intersection++
		}
	}

	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}

func shingles(normalized string) map[string]struct{} {
	tokens := strings.Fields(normalized)
	if len(tokens) < shingleSize {
		return nil
	}

	set := make(map[string]struct{}, len(tokens)-shingleSize+1)
	for i := 0; i+shingleSize <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+shingleSize], " ")] = struct{}{}
	}
	return set
}
