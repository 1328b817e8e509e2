package appeal

import (
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Thresholds table
// ─────────────────────────────────────────────────────────────────────────────

// QualityDiscounts scale a case's confidence by the comparable-set
// assessment before it becomes the decision confidence.
type QualityDiscounts struct {
	Excellent float64 `json:"excellent" mapstructure:"excellent"`
	Good      float64 `json:"good" mapstructure:"good"`
	Adequate  float64 `json:"adequate" mapstructure:"adequate"`
	Poor      float64 `json:"poor" mapstructure:"poor"`
}

// For returns the discount for an assessment bucket.
func (d QualityDiscounts) For(a comps.Assessment) float64 {
	switch a {
	case comps.AssessmentExcellent:
		return d.Excellent
	case comps.AssessmentGood:
		return d.Good
	case comps.AssessmentAdequate:
		return d.Adequate
	default:
		return d.Poor
	}
}

// Thresholds is the versioned constants table every strength, quality, and
// percentile judgment reads from.  Passing it in explicitly keeps golden
// tests reproducible across tuning changes; the version string travels with
// every analysis result.
type Thresholds struct {
	Version string `json:"version" mapstructure:"version"`

	// Comparable selection.
	Selector       comps.Weights `json:"selector_weights" mapstructure:"selector_weights"`
	QualityBuckets comps.Buckets `json:"quality_buckets" mapstructure:"quality_buckets"`
	MinUsableComps int           `json:"min_usable_comps" mapstructure:"min_usable_comps"`

	// Market-value case.
	MVMinSalesForSalesBasis   int     `json:"mv_min_sales_for_sales_basis" mapstructure:"mv_min_sales_for_sales_basis"`
	MVStrongMinReductionPct   float64 `json:"mv_strong_min_reduction_pct" mapstructure:"mv_strong_min_reduction_pct"`
	MVModerateMinReductionPct float64 `json:"mv_moderate_min_reduction_pct" mapstructure:"mv_moderate_min_reduction_pct"`
	MVFallbackConfidenceCap   float64 `json:"mv_fallback_confidence_cap" mapstructure:"mv_fallback_confidence_cap"`

	// Shared confidence ceiling when the comparable set is poor.
	PoorQualityConfidenceCap float64 `json:"poor_quality_confidence_cap" mapstructure:"poor_quality_confidence_cap"`

	// Uniformity case.
	UNITargetPercentile      float64 `json:"uni_target_percentile" mapstructure:"uni_target_percentile"`
	UNIStrongMinPercentile   float64 `json:"uni_strong_min_percentile" mapstructure:"uni_strong_min_percentile"`
	UNIModerateMinPercentile float64 `json:"uni_moderate_min_percentile" mapstructure:"uni_moderate_min_percentile"`
	UNIMaxCODForStrong       float64 `json:"uni_max_cod_strong" mapstructure:"uni_max_cod_strong"`
	UNIMaxCODForModerate     float64 `json:"uni_max_cod_moderate" mapstructure:"uni_max_cod_moderate"`
	UNIMinCOD                float64 `json:"uni_min_cod" mapstructure:"uni_min_cod"`
	UNIMinCompsPerSqft       int     `json:"uni_min_comps_per_sqft" mapstructure:"uni_min_comps_per_sqft"`

	// Strategy decision.
	QualityDiscounts QualityDiscounts `json:"quality_discounts" mapstructure:"quality_discounts"`

	// Opportunity score.
	FilingThresholdScore int     `json:"filing_threshold_score" mapstructure:"filing_threshold_score"`
	HighScoreBand        int     `json:"high_score_band" mapstructure:"high_score_band"`
	MediumScoreBand      int     `json:"medium_score_band" mapstructure:"medium_score_band"`
	OpportunityDecay     float64 `json:"opportunity_decay" mapstructure:"opportunity_decay"`

	// Savings conversion (Cook County: state equalization factor times a
	// typical composite tax rate).
	StateEqualizer   float64 `json:"state_equalizer" mapstructure:"state_equalizer"`
	EffectiveTaxRate float64 `json:"effective_tax_rate" mapstructure:"effective_tax_rate"`
}

// DefaultThresholds returns the 2025.1 table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Version: "2025.1",

		Selector:       comps.DefaultWeights(),
		QualityBuckets: comps.DefaultBuckets(),
		MinUsableComps: 3,

		MVMinSalesForSalesBasis:   2,
		MVStrongMinReductionPct:   8,
		MVModerateMinReductionPct: 3,
		MVFallbackConfidenceCap:   0.5,

		PoorQualityConfidenceCap: 0.4,

		UNITargetPercentile:      50,
		UNIStrongMinPercentile:   75,
		UNIModerateMinPercentile: 60,
		UNIMaxCODForStrong:       15,
		UNIMaxCODForModerate:     25,
		UNIMinCOD:                2,
		UNIMinCompsPerSqft:       3,

		QualityDiscounts: QualityDiscounts{
			Excellent: 1.0,
			Good:      0.95,
			Adequate:  0.85,
			Poor:      0.70,
		},

		FilingThresholdScore: 40,
		HighScoreBand:        70,
		MediumScoreBand:      40,
		OpportunityDecay:     0.12,

		StateEqualizer:   3.0163,
		EffectiveTaxRate: 0.0705,
	}
}

// SelectorParams adapts the per-analysis options and this table into the
// comparable selector's parameter set.
func (t Thresholds) SelectorParams(opts Options) comps.Params {
	return comps.Params{
		MaxComparables:   opts.MaxComparables,
		MaxDistanceMiles: opts.MaxDistanceMiles,
		Weights:          t.Selector,
		Buckets:          t.QualityBuckets,
		MinUsable:        t.MinUsableComps,
	}
}

// Validate rejects tables that would make the engine judge nonsense.
func (t Thresholds) Validate() error {
	if t.Version == "" {
		return errors.New(errors.ErrCodeThresholdsInvalid, "thresholds table has no version")
	}
	if t.Selector.Distance <= 0 || t.Selector.Sqft < 0 || t.Selector.Age < 0 || t.Selector.MissingData < 0 {
		return errors.New(errors.ErrCodeThresholdsInvalid, "selector weights must be non-negative with a positive distance weight")
	}
	if !(t.QualityBuckets.Excellent > t.QualityBuckets.Good && t.QualityBuckets.Good > t.QualityBuckets.Adequate && t.QualityBuckets.Adequate > 0) {
		return errors.Newf(errors.ErrCodeThresholdsInvalid,
			"quality buckets must descend: excellent %.1f > good %.1f > adequate %.1f > 0",
			t.QualityBuckets.Excellent, t.QualityBuckets.Good, t.QualityBuckets.Adequate)
	}
	if t.MinUsableComps < 1 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "min usable comps must be at least 1, got %d", t.MinUsableComps)
	}
	if t.MVMinSalesForSalesBasis < 1 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "mv min sales must be at least 1, got %d", t.MVMinSalesForSalesBasis)
	}
	if t.MVStrongMinReductionPct <= t.MVModerateMinReductionPct {
		return errors.Newf(errors.ErrCodeThresholdsInvalid,
			"mv strong reduction pct %.1f must exceed moderate %.1f",
			t.MVStrongMinReductionPct, t.MVModerateMinReductionPct)
	}
	if t.MVFallbackConfidenceCap <= 0 || t.MVFallbackConfidenceCap > 1 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "mv fallback confidence cap must be in (0, 1], got %.2f", t.MVFallbackConfidenceCap)
	}
	if t.PoorQualityConfidenceCap <= 0 || t.PoorQualityConfidenceCap > 1 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "poor quality confidence cap must be in (0, 1], got %.2f", t.PoorQualityConfidenceCap)
	}
	if t.UNITargetPercentile < 0 || t.UNITargetPercentile > 100 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "uni target percentile must be in [0, 100], got %.1f", t.UNITargetPercentile)
	}
	if t.UNIStrongMinPercentile <= t.UNIModerateMinPercentile {
		return errors.Newf(errors.ErrCodeThresholdsInvalid,
			"uni strong percentile %.1f must exceed moderate %.1f",
			t.UNIStrongMinPercentile, t.UNIModerateMinPercentile)
	}
	if t.UNIMaxCODForStrong >= t.UNIMaxCODForModerate {
		return errors.Newf(errors.ErrCodeThresholdsInvalid,
			"uni strong COD ceiling %.1f must sit below moderate %.1f",
			t.UNIMaxCODForStrong, t.UNIMaxCODForModerate)
	}
	if t.UNIMinCOD < 0 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "uni min COD cannot be negative, got %.2f", t.UNIMinCOD)
	}
	d := t.QualityDiscounts
	if !(d.Excellent >= d.Good && d.Good >= d.Adequate && d.Adequate >= d.Poor && d.Poor > 0 && d.Excellent <= 1) {
		return errors.New(errors.ErrCodeThresholdsInvalid,
			"quality discounts must descend from at most 1.0 and stay positive")
	}
	if t.FilingThresholdScore < 1 || t.FilingThresholdScore > 99 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "filing threshold score must be in [1, 99], got %d", t.FilingThresholdScore)
	}
	if t.HighScoreBand <= t.MediumScoreBand {
		return errors.Newf(errors.ErrCodeThresholdsInvalid,
			"high score band %d must exceed medium %d", t.HighScoreBand, t.MediumScoreBand)
	}
	if t.OpportunityDecay <= 0 {
		return errors.Newf(errors.ErrCodeThresholdsInvalid, "opportunity decay must be positive, got %.3f", t.OpportunityDecay)
	}
	if t.StateEqualizer <= 0 || t.EffectiveTaxRate <= 0 {
		return errors.New(errors.ErrCodeThresholdsInvalid, "savings constants must be positive")
	}
	return nil
}
