package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Wire types — requests
// ---------------------------------------------------------------------------

// Property is one parcel record on the wire.  Zero means "unknown" for
// numeric fields; the sale pair is optional.
type Property struct {
	ParcelID           string     `json:"parcel_id"`
	Address            string     `json:"address,omitempty"`
	Latitude           float64    `json:"latitude"`
	Longitude          float64    `json:"longitude"`
	Township           string     `json:"township,omitempty"`
	PropertyClass      string     `json:"property_class,omitempty"`
	SquareFeet         float64    `json:"square_feet"`
	YearBuilt          int        `json:"year_built"`
	Bedrooms           int        `json:"bedrooms"`
	Bathrooms          float64    `json:"bathrooms"`
	AssessedValue      float64    `json:"assessed_value"`
	PriorAssessedValue float64    `json:"prior_assessed_value"`
	LastSalePrice      float64    `json:"last_sale_price"`
	LastSaleDate       *time.Time `json:"last_sale_date,omitempty"`
}

// OptionOverrides tunes engine knobs per request; nil fields keep the
// server's deployment defaults.
type OptionOverrides struct {
	MaxComparables         *int     `json:"max_comparables,omitempty"`
	MaxDistanceMiles       *float64 `json:"max_distance_miles,omitempty"`
	RecentSaleWindowMonths *int     `json:"recent_sale_window_months,omitempty"`
	MinDollarFloor         *float64 `json:"min_dollar_floor,omitempty"`
	AssessmentRatio        *float64 `json:"assessment_ratio,omitempty"`
}

// AnalyzeRequest is the input for a single-property analysis.
type AnalyzeRequest struct {
	RequestID     string           `json:"request_id,omitempty"`
	Subject       Property         `json:"subject"`
	Pool          []Property       `json:"pool"`
	ValuationDate time.Time        `json:"valuation_date"`
	Options       *OptionOverrides `json:"options,omitempty"`
}

// BatchItem is one property in a batch analysis.
type BatchItem struct {
	RequestID string     `json:"request_id,omitempty"`
	Subject   Property   `json:"subject"`
	Pool      []Property `json:"pool"`
}

// BatchRequest analyses many properties against one valuation date.
type BatchRequest struct {
	Items         []BatchItem      `json:"items"`
	ValuationDate time.Time        `json:"valuation_date"`
	Options       *OptionOverrides `json:"options,omitempty"`
	Concurrency   int              `json:"concurrency,omitempty"`
}

// ---------------------------------------------------------------------------
// Wire types — results
// ---------------------------------------------------------------------------

// Strategy values returned in StrategyDecision.
const (
	StrategyFileMV    = "file_mv"
	StrategyFileUNI   = "file_uni"
	StrategyFileBoth  = "file_both"
	StrategyDoNotFile = "do_not_file"
)

// Strength values returned on cases.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"
)

// Comparable is one selected comparable with its similarity facts.
type Comparable struct {
	Property

	DistanceMiles float64  `json:"distance_miles"`
	SqftDelta     float64  `json:"sqft_delta"`
	SqftDeltaPct  float64  `json:"sqft_delta_pct"`
	AgeDelta      int      `json:"age_delta"`
	ClassMatch    bool     `json:"class_match"`
	QualityScore  float64  `json:"quality_score"`
	Reasons       []string `json:"reasons"`
}

// QualityBreakdown summarises the selected comparable set.
type QualityBreakdown struct {
	AvgDistanceMiles float64 `json:"avg_distance_miles"`
	AvgSqftDeltaPct  float64 `json:"avg_sqft_delta_pct"`
	AvgAgeDelta      float64 `json:"avg_age_delta"`
	MissingDataPct   float64 `json:"missing_data_pct"`
}

// ComparableQuality is the aggregate verdict on the selected set.
type ComparableQuality struct {
	Score       float64          `json:"score"`
	Assessment  string           `json:"assessment"`
	Breakdown   QualityBreakdown `json:"breakdown"`
	Comparables []Comparable     `json:"comparables"`
}

// SalesSummary reports the sales evidence behind a market-value case.
type SalesSummary struct {
	SaleCount            int      `json:"sale_count"`
	MedianSalePrice      float64  `json:"median_sale_price"`
	PredictedMarketValue float64  `json:"predicted_market_value"`
	Sources              []string `json:"sources"`
}

// MarketValueCase argues the assessment exceeds true market value.
type MarketValueCase struct {
	Strength           string       `json:"strength"`
	TargetValue        float64      `json:"target_value"`
	PotentialReduction float64      `json:"potential_reduction"`
	Confidence         float64      `json:"confidence"`
	Methodology        string       `json:"methodology"`
	Rationale          []string     `json:"rationale"`
	Sales              SalesSummary `json:"sales_summary"`
	RiskFlags          []string     `json:"risk_flags"`
}

// UniformityCase argues the subject is assessed above its peers.
type UniformityCase struct {
	Strength           string   `json:"strength"`
	TargetValue        float64  `json:"target_value"`
	PotentialReduction float64  `json:"potential_reduction"`
	Confidence         float64  `json:"confidence"`
	Methodology        string   `json:"methodology"`
	Rationale          []string `json:"rationale"`
	RiskFlags          []string `json:"risk_flags"`

	SubjectPercentile       float64 `json:"subject_percentile"`
	TargetPercentile        float64 `json:"target_percentile"`
	ValueAtTargetPercentile float64 `json:"value_at_target_percentile"`
	ComparablesBelowSubject int     `json:"comparables_below_subject"`
	CoefficientOfDispersion float64 `json:"coefficient_of_dispersion"`
	PricingRatio            float64 `json:"pricing_ratio"`
}

// StrategyDecision is the filing recommendation with its audit trail.
type StrategyDecision struct {
	Strategy         string   `json:"strategy"`
	PrimaryCase      string   `json:"primary_case"`
	Reasons          []string `json:"reasons"`
	TargetValue      float64  `json:"target_value"`
	EstimatedSavings float64  `json:"estimated_savings"`
	RiskFlags        []string `json:"risk_flags"`
	GatesFired       []string `json:"gates_fired"`
	Confidence       float64  `json:"confidence"`
	Summary          string   `json:"summary"`
}

// Factor is one contributor to a do-not-file outcome.
type Factor struct {
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// NoAppealExplanation says why filing is not worthwhile.
type NoAppealExplanation struct {
	MainReason  string   `json:"main_reason"`
	Factors     []Factor `json:"factors"`
	Suggestions []string `json:"suggestions"`
}

// OpportunityScore is the single 0-100 figure plus its confidence band.
type OpportunityScore struct {
	Score            int     `json:"score"`
	ConfidenceLabel  string  `json:"confidence_label"`
	EstimatedSavings float64 `json:"estimated_savings"`
}

// AnalysisResult is the full analysis of one property.
type AnalysisResult struct {
	AnalysisID        string    `json:"analysis_id"`
	RequestID         string    `json:"request_id,omitempty"`
	ParcelID          string    `json:"parcel_id"`
	ThresholdsVersion string    `json:"thresholds_version"`
	ValuationDate     time.Time `json:"valuation_date"`

	Subject     Property             `json:"subject"`
	Quality     ComparableQuality    `json:"comparable_quality"`
	MarketValue MarketValueCase      `json:"market_value_case"`
	Uniformity  UniformityCase       `json:"uniformity_case"`
	Decision    StrategyDecision     `json:"strategy_decision"`
	NoAppeal    *NoAppealExplanation `json:"no_appeal_explanation,omitempty"`
	Opportunity OpportunityScore     `json:"opportunity_score"`

	GeneratedAt time.Time `json:"generated_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// ShouldFile reports whether the decision recommends filing any case.
func (r *AnalysisResult) ShouldFile() bool {
	return r != nil && r.Decision.Strategy != StrategyDoNotFile && r.Decision.Strategy != ""
}

// BatchItemResult is the outcome for one batch entry; exactly one of Result
// and Error is populated.
type BatchItemResult struct {
	RequestID string          `json:"request_id,omitempty"`
	ParcelID  string          `json:"parcel_id"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total             int            `json:"total"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	ByStrategy        map[string]int `json:"by_strategy"`
	FilingRecommended int            `json:"filing_recommended"`
	AverageScore      float64        `json:"average_score"`
}

// BatchResult is the output of a batch analysis, in submission order.
type BatchResult struct {
	Results     []BatchItemResult `json:"results"`
	Summary     BatchSummary      `json:"summary"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// AnalysisComparison diffs two analyses of the same parcel.
type AnalysisComparison struct {
	ParcelID          string `json:"parcel_id"`
	PriorAnalysisID   string `json:"prior_analysis_id"`
	CurrentAnalysisID string `json:"current_analysis_id"`

	PriorScore       int `json:"prior_score"`
	CurrentScore     int `json:"current_score"`
	OpportunityDelta int `json:"opportunity_delta"`

	AssessmentDelta float64 `json:"assessment_delta"`
	SavingsDelta    float64 `json:"savings_delta"`

	PriorStrategy   string `json:"prior_strategy"`
	CurrentStrategy string `json:"current_strategy"`
	StrategyChanged bool   `json:"strategy_changed"`

	Trend string   `json:"trend"`
	Notes []string `json:"notes"`
}

// HealthStatus is the liveness probe body.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ---------------------------------------------------------------------------
// API methods
// ---------------------------------------------------------------------------

// Analyze runs the full pipeline for one property.
func (c *Client) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalysisResult, error) {
	if req == nil {
		return nil, fmt.Errorf("client: analyze request is required")
	}
	return postEnvelope[AnalysisResult](ctx, c, "/api/v1/analyses", req)
}

// AnalyzeBatch analyses many properties in one call.
func (c *Client) AnalyzeBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("client: batch request is required")
	}
	return postEnvelope[BatchResult](ctx, c, "/api/v1/analyses/batch", req)
}

// Compare diffs a prior and a current analysis of the same parcel.
func (c *Client) Compare(ctx context.Context, prior, current *AnalysisResult) (*AnalysisComparison, error) {
	if prior == nil || current == nil {
		return nil, fmt.Errorf("client: both a prior and a current analysis are required")
	}
	body := struct {
		Prior   *AnalysisResult `json:"prior"`
		Current *AnalysisResult `json:"current"`
	}{Prior: prior, Current: current}
	return postEnvelope[AnalysisComparison](ctx, c, "/api/v1/analyses/compare", &body)
}

// Export serializes a completed result on the server and returns the raw
// document bytes ("json" or "csv").
func (c *Client) Export(ctx context.Context, result *AnalysisResult, format string) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("client: an analysis result is required for export")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	body := struct {
		Result *AnalysisResult `json:"result"`
		Format string          `json:"format"`
	}{Result: result, Format: format}
	return c.do(ctx, http.MethodPost, "/api/v1/analyses/export", &body)
}

// Thresholds fetches the decision-constant table currently in effect, as raw
// JSON so SDK consumers stay decoupled from its exact shape.
func (c *Client) Thresholds(ctx context.Context) (json.RawMessage, error) {
	data, err := getEnvelope[json.RawMessage](ctx, c, "/api/v1/thresholds")
	if err != nil {
		return nil, err
	}
	return *data, nil
}

// Health checks the server's liveness probe.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, err
	}
	var status HealthStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("client: decode health response: %w", err)
	}
	return &status, nil
}
