package grading

import (
	"math"

	"site_auditor/internal/domain/models"
)

// DimensionScores turns analyzer results into integer dimension scores. Missing
// or degraded modules count as the neutral score.
func DimensionScores(results map[models.Module]*models.AnalyzerResult) map[models.Dimension]int {
	scores := make(map[models.Dimension]int, len(models.AllDimensions))
	for _, d := range models.AllDimensions {
		scores[d] = models.NeutralScore
	}
	for m, res := range results {
		if res == nil || res.Degraded {
			continue
		}
		scores[models.DimensionOf(m)] = clamp(int(math.Round(res.Score)))
	}
	return scores
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func weightedAverage(scores map[models.Dimension]int, weights map[models.Dimension]float64) float64 {
	var sum float64
	for d, w := range weights {
		score, ok := scores[d]
		if !ok {
			score = models.NeutralScore
		}
		sum += w * float64(score)
	}
	return sum
}
