package analyzer

import "math"

// WeightConfig derives an assessment's weight from source credibility and
// engagement. The engagement boost is logarithmic and capped so a single
// viral article cannot dominate synthesis regardless of read-count outliers.
type WeightConfig struct {
	ReadCountCeiling int
	ReadCountBoost   float64
}

// tierWeights maps credibility tier (1 most credible) to base weight.
var tierWeights = map[int]float64{
	1: 3.0,
	2: 2.0,
	3: 1.0,
}

// Weight is always positive and bounded by tierWeights[1] * (1 + ReadCountBoost).
func (w WeightConfig) Weight(credibilityTier, readCount int) float64 {
	base, ok := tierWeights[credibilityTier]
	if !ok {
		base = tierWeights[3]
	}

	return base * (1 + w.readBoost(readCount))
}

func (w WeightConfig) readBoost(readCount int) float64 {
	if readCount <= 0 || w.ReadCountBoost <= 0 || w.ReadCountCeiling <= 0 {
		return 0
	}

	scaled := math.Log10(1+float64(readCount)) / math.Log10(1+float64(w.ReadCountCeiling))
	if scaled > 1 {
		scaled = 1
	}
	return w.ReadCountBoost * scaled
}
