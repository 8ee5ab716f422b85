package models

// Dimension is a graded aspect of the site. Each analyzer module feeds one dimension.
type Dimension string

const (
	DimensionDesign        Dimension = "design"
	DimensionSEO           Dimension = "seo"
	DimensionPerformance   Dimension = "performance"
	DimensionContent       Dimension = "content"
	DimensionAccessibility Dimension = "accessibility"
	DimensionSocial        Dimension = "social"
)

var AllDimensions = []Dimension{
	DimensionDesign,
	DimensionSEO,
	DimensionPerformance,
	DimensionContent,
	DimensionAccessibility,
	DimensionSocial,
}

// DimensionOf maps an analyzer module to the dimension it scores.
func DimensionOf(m Module) Dimension {
	switch m {
	case ModuleVisual:
		return DimensionDesign
	case ModuleSEO:
		return DimensionSEO
	case ModulePerformance:
		return DimensionPerformance
	case ModuleContent:
		return DimensionContent
	case ModuleAccessibility:
		return DimensionAccessibility
	case ModuleSocial:
		return DimensionSocial
	}
	return Dimension(m)
}

type GradingStrategy string

const (
	GradingAIComparative         GradingStrategy = "ai-comparative"
	GradingDeterministicWeighted GradingStrategy = "deterministic-weighted"
)

type Adjustment struct {
	Reason string  `json:"reason"`
	Points float64 `json:"points"`
}

type GradeResult struct {
	Score     int                   `json:"score"`
	Letter    string                `json:"letter"`
	Weights   map[Dimension]float64 `json:"weights"`
	Scores    map[Dimension]int     `json:"scores"`
	Bonuses   []Adjustment          `json:"bonuses,omitempty"`
	Penalties []Adjustment          `json:"penalties,omitempty"`
	Strategy  GradingStrategy       `json:"strategy"`
	Benchmark string                `json:"benchmark,omitempty"`
	Rationale string                `json:"rationale,omitempty"`
	Usage     JudgmentUsage         `json:"usage"`
}

// LetterGrade maps a composite score to A-F.
func LetterGrade(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

type LeadTier string

const (
	LeadHot  LeadTier = "hot"
	LeadWarm LeadTier = "warm"
	LeadCold LeadTier = "cold"
)

type LeadDimensions struct {
	Pain       int `json:"pain"`
	Budget     int `json:"budget"`
	Urgency    int `json:"urgency"`
	Fit        int `json:"fit"`
	Size       int `json:"size"`
	Engagement int `json:"engagement"`
}

type LeadScore struct {
	Tier       LeadTier        `json:"tier"`
	Priority   int             `json:"priority"`
	Dimensions *LeadDimensions `json:"dimensions,omitempty"`
	Reasoning  string          `json:"reasoning"`
	Strategy   string          `json:"strategy"`
	Usage      JudgmentUsage   `json:"usage"`
}

// TierFor maps a 0-100 priority to a lead tier.
func TierFor(priority int) LeadTier {
	switch {
	case priority >= 70:
		return LeadHot
	case priority >= 45:
		return LeadWarm
	default:
		return LeadCold
	}
}
