// Package appeal builds the two statistical appeal cases (market value and
// uniformity), decides the filing strategy through an ordered gate table, and
// collapses the analysis into a single opportunity score.  Every function is
// pure: identical inputs produce identical output, and no wall clock is read.
package appeal

// ─────────────────────────────────────────────────────────────────────────────
// Shared enumerations
// ─────────────────────────────────────────────────────────────────────────────

// Strength classifies how defensible a case is before a Board of Review.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// Methodology labels identify the evidentiary basis of a case.
const (
	MethodologySalesComparison = "sales comparison"
	MethodologyAssessedValue   = "assessed value comparison"
	MethodologyUniformity      = "assessment uniformity"
	MethodologyNone            = "none"
)

// Strategy is the filing recommendation.
type Strategy string

const (
	StrategyFileMV    Strategy = "file_mv"
	StrategyFileUNI   Strategy = "file_uni"
	StrategyFileBoth  Strategy = "file_both"
	StrategyDoNotFile Strategy = "do_not_file"
)

// PrimaryCase names which case anchors the filing.
type PrimaryCase string

const (
	PrimaryMarketValue PrimaryCase = "market_value"
	PrimaryUniformity  PrimaryCase = "uniformity"
	PrimaryNone        PrimaryCase = "none"
)

// ImpactLevel tags how much a factor contributed to a do-not-file outcome.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// ConfidenceLabel is the qualitative band for an opportunity score.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// ─────────────────────────────────────────────────────────────────────────────
// Case objects
// ─────────────────────────────────────────────────────────────────────────────

// SalesSummary reports the sales evidence behind a market-value case.
type SalesSummary struct {
	SaleCount            int      `json:"sale_count"`
	MedianSalePrice      float64  `json:"median_sale_price"`
	PredictedMarketValue float64  `json:"predicted_market_value"`
	Sources              []string `json:"sources"`
}

// MarketValueCase argues the assessment exceeds true market value.
type MarketValueCase struct {
	Strength           Strength     `json:"strength"`
	TargetValue        float64      `json:"target_value"`
	PotentialReduction float64      `json:"potential_reduction"`
	Confidence         float64      `json:"confidence"`
	Methodology        string       `json:"methodology"`
	Rationale          []string     `json:"rationale"`
	Sales              SalesSummary `json:"sales_summary"`
	RiskFlags          []string     `json:"risk_flags"`
}

// UniformityCase argues the subject is assessed disproportionately relative
// to its peers, regardless of absolute market value.
type UniformityCase struct {
	Strength           Strength `json:"strength"`
	TargetValue        float64  `json:"target_value"`
	PotentialReduction float64  `json:"potential_reduction"`
	Confidence         float64  `json:"confidence"`
	Methodology        string   `json:"methodology"`
	Rationale          []string `json:"rationale"`
	RiskFlags          []string `json:"risk_flags"`

	// SubjectPercentile is the subject's rank in the assessed-value
	// distribution (0–100); TargetPercentile is where the appeal argues it
	// should sit.
	SubjectPercentile float64 `json:"subject_percentile"`
	TargetPercentile  float64 `json:"target_percentile"`

	// ValueAtTargetPercentile is the interpolated distribution value at the
	// target percentile, in distribution units (per square foot when the
	// comparison is size-adjusted).  TargetValue carries the dollar figure.
	ValueAtTargetPercentile float64 `json:"value_at_target_percentile"`

	// ComparablesBelowSubject counts comparables assessed below the subject
	// in the distribution unit.
	ComparablesBelowSubject int `json:"comparables_below_subject"`

	// CoefficientOfDispersion is the mean absolute deviation from the median
	// divided by the median, as a percent.  High dispersion undermines any
	// single uniformity claim.
	CoefficientOfDispersion float64 `json:"coefficient_of_dispersion"`

	// PricingRatio is assessed value over estimated market value, 0 when no
	// sale evidence exists to estimate one.
	PricingRatio float64 `json:"pricing_ratio"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Decision objects
// ─────────────────────────────────────────────────────────────────────────────

// StrategyDecision is the filing recommendation with its audit trail.
type StrategyDecision struct {
	Strategy         Strategy    `json:"strategy"`
	PrimaryCase      PrimaryCase `json:"primary_case"`
	Reasons          []string    `json:"reasons"`
	TargetValue      float64     `json:"target_value"`
	EstimatedSavings float64     `json:"estimated_savings"`
	RiskFlags        []string    `json:"risk_flags"`
	GatesFired       []string    `json:"gates_fired"`
	Confidence       float64     `json:"confidence"`

	// Summary is derived purely from the structured fields above so rendered
	// text can never disagree with the numbers.
	Summary string `json:"summary"`
}

// Factor is one contributor to a do-not-file outcome.
type Factor struct {
	Description string      `json:"description"`
	Impact      ImpactLevel `json:"impact"`
}

// NoAppealExplanation tells the caller why filing is not worthwhile and what
// would strengthen a future case.  Populated only for do_not_file decisions.
type NoAppealExplanation struct {
	MainReason  string   `json:"main_reason"`
	Factors     []Factor `json:"factors"`
	Suggestions []string `json:"suggestions"`
}

// OpportunityScore is the single 0–100 figure the UI consumes.
type OpportunityScore struct {
	Score            int             `json:"score"`
	ConfidenceLabel  ConfidenceLabel `json:"confidence_label"`
	EstimatedSavings float64         `json:"estimated_savings"`
}
