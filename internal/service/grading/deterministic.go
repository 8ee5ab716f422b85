package grading

import (
	"math"

	"site_auditor/internal/domain/models"
)

// Bonus and penalty points of the deterministic grade.
const (
	httpsBonus         = 2.0
	mobileBonus        = 3.0
	noHTTPSPenalty     = -5.0
	notMobilePenalty   = -3.0
	quickWinAllowance  = 3
	quickWinPenalty    = -1.0
	maxQuickWinPenalty = -5.0
)

// DefaultWeights are the fixed dimension weights. They sum to 1.
func DefaultWeights() map[models.Dimension]float64 {
	return map[models.Dimension]float64{
		models.DimensionDesign:        0.30,
		models.DimensionSEO:           0.30,
		models.DimensionPerformance:   0.20,
		models.DimensionContent:       0.10,
		models.DimensionAccessibility: 0.05,
		models.DimensionSocial:        0.05,
	}
}

// Deterministic computes the weighted composite with the fixed bonus and penalty
// rules.
func Deterministic(in Input) *models.GradeResult {
	weights := DefaultWeights()
	res := &models.GradeResult{
		Weights:  weights,
		Scores:   in.Scores,
		Strategy: models.GradingDeterministicWeighted,
	}

	if in.Signals.HTTPS {
		res.Bonuses = append(res.Bonuses, models.Adjustment{Reason: `served over HTTPS`, Points: httpsBonus})
	} else {
		res.Penalties = append(res.Penalties, models.Adjustment{Reason: `not served over HTTPS`, Points: noHTTPSPenalty})
	}
	if in.Signals.MobileFriendly {
		res.Bonuses = append(res.Bonuses, models.Adjustment{Reason: `mobile friendly`, Points: mobileBonus})
	} else {
		res.Penalties = append(res.Penalties, models.Adjustment{Reason: `not mobile friendly`, Points: notMobilePenalty})
	}
	if extra := in.QuickWins - quickWinAllowance; extra > 0 {
		points := math.Max(float64(extra)*quickWinPenalty, maxQuickWinPenalty)
		res.Penalties = append(res.Penalties, models.Adjustment{Reason: `unaddressed quick wins`, Points: points})
	}

	total := weightedAverage(in.Scores, weights)
	for _, a := range res.Bonuses {
		total += a.Points
	}
	for _, a := range res.Penalties {
		total += a.Points
	}
	res.Score = clamp(int(math.Round(total)))
	res.Letter = models.LetterGrade(res.Score)
	return res
}
