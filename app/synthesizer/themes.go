package synthesizer

import (
	"sort"

	"github.com/bondlens/bondlens/app/analyzer"
)

type themeCluster struct {
	representative string
	weight         float64
	documents      map[string]bool
}

// themes clusters theses greedily: each thesis joins the first existing
// cluster whose representative is similar enough, otherwise it starts a new
// one. The same similarity function as dedup keeps the two notions of
// "saying the same thing" consistent. Input is already sorted by document ID,
// so cluster representatives are stable across runs.
func (s *Synthesizer) themes(sorted []analyzer.ArticleAssessment) []Theme {
	var clusters []*themeCluster

	for i := range sorted {
		for _, thesis := range sorted[i].Theses {
			cluster := s.findCluster(clusters, thesis)
			if cluster == nil {
				cluster = &themeCluster{representative: thesis, documents: map[string]bool{}}
				clusters = append(clusters, cluster)
			}
			cluster.weight += sorted[i].Weight
			cluster.documents[sorted[i].DocumentID] = true
		}
	}

	themes := make([]Theme, 0, len(clusters))
	for _, c := range clusters {
		themes = append(themes, Theme{
			Representative: c.representative,
			Weight:         c.weight,
			ArticleCount:   len(c.documents),
		})
	}

	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Weight != themes[j].Weight {
			return themes[i].Weight > themes[j].Weight
		}
		return themes[i].Representative < themes[j].Representative
	})

	if len(themes) > s.themeTopN {
		themes = themes[:s.themeTopN]
	}

	return themes
}

func (s *Synthesizer) findCluster(clusters []*themeCluster, thesis string) *themeCluster {
	for _, c := range clusters {
		if s.similarity(c.representative, thesis) >= s.themeThreshold {
			return c
		}
	}
	return nil
}
