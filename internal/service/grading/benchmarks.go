package grading

import (
	"strings"

	"site_auditor/internal/domain/models"
)

// Benchmark is the typical profile of sites in one industry.
type Benchmark struct {
	Name     string
	Keywords []string
	Averages map[models.Dimension]int
	// TopQuartile is the composite score of the best quarter of sites.
	TopQuartile int
}

var genericBenchmark = Benchmark{
	Name: `small business (general)`,
	Averages: map[models.Dimension]int{
		models.DimensionDesign: 62, models.DimensionSEO: 58, models.DimensionPerformance: 60,
		models.DimensionContent: 60, models.DimensionAccessibility: 55, models.DimensionSocial: 50,
	},
	TopQuartile: 75,
}

var benchmarks = []Benchmark{
	{
		Name:     `home services`,
		Keywords: []string{`plumb`, `electric`, `hvac`, `roof`, `landscap`, `clean`, `construction`, `contractor`},
		Averages: map[models.Dimension]int{
			models.DimensionDesign: 55, models.DimensionSEO: 52, models.DimensionPerformance: 58,
			models.DimensionContent: 54, models.DimensionAccessibility: 50, models.DimensionSocial: 45,
		},
		TopQuartile: 70,
	},
	{
		Name:     `professional services`,
		Keywords: []string{`law`, `legal`, `account`, `consult`, `financ`, `insurance`, `real estate`},
		Averages: map[models.Dimension]int{
			models.DimensionDesign: 65, models.DimensionSEO: 62, models.DimensionPerformance: 62,
			models.DimensionContent: 66, models.DimensionAccessibility: 58, models.DimensionSocial: 48,
		},
		TopQuartile: 78,
	},
	{
		Name:     `health and wellness`,
		Keywords: []string{`dental`, `dentist`, `clinic`, `medical`, `health`, `chiro`, `physio`, `spa`, `fitness`, `gym`},
		Averages: map[models.Dimension]int{
			models.DimensionDesign: 63, models.DimensionSEO: 60, models.DimensionPerformance: 59,
			models.DimensionContent: 61, models.DimensionAccessibility: 60, models.DimensionSocial: 55,
		},
		TopQuartile: 76,
	},
	{
		Name:     `hospitality`,
		Keywords: []string{`restaurant`, `cafe`, `bar`, `hotel`, `catering`, `bakery`, `food`},
		Averages: map[models.Dimension]int{
			models.DimensionDesign: 66, models.DimensionSEO: 54, models.DimensionPerformance: 55,
			models.DimensionContent: 57, models.DimensionAccessibility: 50, models.DimensionSocial: 62,
		},
		TopQuartile: 74,
	},
	{
		Name:     `retail and e-commerce`,
		Keywords: []string{`retail`, `shop`, `store`, `boutique`, `e-commerce`, `ecommerce`},
		Averages: map[models.Dimension]int{
			models.DimensionDesign: 68, models.DimensionSEO: 64, models.DimensionPerformance: 56,
			models.DimensionContent: 60, models.DimensionAccessibility: 54, models.DimensionSocial: 60,
		},
		TopQuartile: 79,
	},
}

// MatchBenchmark picks the benchmark whose keywords appear in industry, or the
// general small business profile.
func MatchBenchmark(industry string) Benchmark {
	industry = strings.ToLower(industry)
	if industry == `` {
		return genericBenchmark
	}
	for _, b := range benchmarks {
		for _, k := range b.Keywords {
			if strings.Contains(industry, k) {
				return b
			}
		}
	}
	return genericBenchmark
}
