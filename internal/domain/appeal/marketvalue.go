package appeal

import (
	"fmt"
	"math"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

// Risk flag strings are fixed constants so golden files and downstream
// renderers can match on them.
const (
	RiskInsufficientMarketData    = "insufficient market data"
	RiskAssessedValueBasis        = "based on assessed values, not arms-length sales"
	RiskSizeAdjustmentUnavailable = "size adjustment unavailable; compared raw values"
)

// Evidence source labels for the sales summary.
const (
	sourceRecordedSales  = "recorded arms-length sales"
	sourceAssessedValues = "comparable assessed values"
)

// BuildMarketValueCase argues the subject's assessment against market
// evidence from the selected comparables.
//
// With enough recent sales the predicted market value is the median sale
// price per square foot scaled to the subject's size; otherwise the builder
// falls back to comparable assessed values divided by the assessment ratio
// and flags the weaker basis.  The target assessed value is the predicted
// market value at the jurisdiction ratio, never above the current
// assessment.
func BuildMarketValueCase(subject property.Record, quality comps.Quality, opts Options, th Thresholds) MarketValueCase {
	usable := quality.Comparables
	if len(usable) == 0 {
		return marketValueNoEvidence(subject)
	}

	sales := recentSales(usable, opts)
	valued := assessedComparables(usable)

	salesBasis := len(sales) >= th.MVMinSalesForSalesBasis
	if !salesBasis && len(valued) == 0 {
		return marketValueNoEvidence(subject)
	}

	mv := MarketValueCase{
		Rationale: []string{},
		RiskFlags: []string{},
		Sales: SalesSummary{
			SaleCount: len(sales),
			Sources:   []string{},
		},
	}
	if len(sales) > 0 {
		mv.Sales.MedianSalePrice = median(salePrices(sales))
	}

	var predicted float64
	if salesBasis {
		mv.Methodology = MethodologySalesComparison
		mv.Sales.Sources = append(mv.Sales.Sources, sourceRecordedSales)
		mv.Rationale = append(mv.Rationale,
			fmt.Sprintf("%s among %d comparables within %d months of the valuation date",
				saleCountPhrase(len(sales)), len(usable), opts.RecentSaleWindowMonths))

		salesWithSqft := withSqft(sales)
		if subject.HasSquareFeet() && len(salesWithSqft) >= th.MVMinSalesForSalesBasis {
			psf := median(salePricesPerSqft(salesWithSqft))
			predicted = psf * subject.SquareFeet
			mv.Rationale = append(mv.Rationale,
				fmt.Sprintf("median sale price of $%.0f per square foot implies a market value of $%.0f", psf, predicted))
		} else {
			predicted = mv.Sales.MedianSalePrice
			mv.RiskFlags = append(mv.RiskFlags, RiskSizeAdjustmentUnavailable)
			mv.Rationale = append(mv.Rationale,
				fmt.Sprintf("median comparable sale price of $%.0f used without size adjustment", predicted))
		}
	} else {
		mv.Methodology = MethodologyAssessedValue
		mv.Sales.Sources = append(mv.Sales.Sources, sourceAssessedValues)
		mv.RiskFlags = append(mv.RiskFlags, RiskAssessedValueBasis)
		mv.Rationale = append(mv.Rationale,
			fmt.Sprintf("%s among %d comparables; compared assessed values instead",
				saleCountPhrase(len(sales)), len(usable)))

		valuedWithSqft := withSqft(valued)
		if subject.HasSquareFeet() && len(valuedWithSqft) > 0 {
			avPSF := median(assessedPerSqft(valuedWithSqft))
			predicted = avPSF * subject.SquareFeet / opts.AssessmentRatio
			mv.Rationale = append(mv.Rationale,
				fmt.Sprintf("median comparable assessment of $%.2f per square foot implies a market value of $%.0f", avPSF, predicted))
		} else {
			medAssessed := median(assessedValues(valued))
			predicted = medAssessed / opts.AssessmentRatio
			mv.RiskFlags = append(mv.RiskFlags, RiskSizeAdjustmentUnavailable)
			mv.Rationale = append(mv.Rationale,
				fmt.Sprintf("median comparable assessed value of $%.0f implies a market value of $%.0f", medAssessed, predicted))
		}
	}

	mv.Sales.PredictedMarketValue = predicted
	mv.TargetValue = math.Min(subject.AssessedValue, predicted*opts.AssessmentRatio)
	mv.PotentialReduction = math.Max(0, subject.AssessedValue-mv.TargetValue)

	if mv.PotentialReduction > 0 {
		mv.Rationale = append(mv.Rationale,
			fmt.Sprintf("supports reducing the assessment from $%.0f to $%.0f (%.1f%%)",
				subject.AssessedValue, mv.TargetValue, mv.PotentialReduction/subject.AssessedValue*100))
	} else {
		mv.Rationale = append(mv.Rationale,
			"the current assessment already sits at or below the market-implied target")
	}

	mv.Strength = mvStrength(salesBasis, len(sales), mv.PotentialReduction, subject.AssessedValue, th)
	mv.Confidence = mvConfidence(salesBasis, len(sales), quality, th)
	return mv
}

// marketValueNoEvidence is the degraded case when nothing usable survives:
// no claim, zero confidence, and an explicit flag rather than an error.
func marketValueNoEvidence(subject property.Record) MarketValueCase {
	return MarketValueCase{
		Strength:           StrengthWeak,
		TargetValue:        subject.AssessedValue,
		PotentialReduction: 0,
		Confidence:         0,
		Methodology:        MethodologyNone,
		Rationale:          []string{"no usable comparables with market evidence"},
		Sales:              SalesSummary{Sources: []string{}},
		RiskFlags:          []string{RiskInsufficientMarketData},
	}
}

// mvStrength classifies the case.  Strong demands genuine sales evidence and
// a material reduction; any evidence with a smaller reduction is moderate.
func mvStrength(salesBasis bool, saleCount int, reduction, assessed float64, th Thresholds) Strength {
	if reduction <= 0 || assessed <= 0 {
		return StrengthWeak
	}
	pct := reduction / assessed * 100
	if salesBasis && saleCount >= th.MVMinSalesForSalesBasis && pct >= th.MVStrongMinReductionPct {
		return StrengthStrong
	}
	if pct >= th.MVModerateMinReductionPct {
		return StrengthModerate
	}
	return StrengthWeak
}

// mvConfidence scales with sales evidence and inversely with missing data.
//
// Formula:
//
//	0.7 × min(saleCount/5, 1) + 0.3 × (1 − missingDataFraction)
//
// capped by the fallback ceiling when the case rests on assessed values and
// by the poor-quality ceiling when the comparable set is poor.
func mvConfidence(salesBasis bool, saleCount int, quality comps.Quality, th Thresholds) float64 {
	conf := 0.7*math.Min(float64(saleCount)/5, 1) + 0.3*(1-quality.MissingDataFraction())
	if !salesBasis && conf > th.MVFallbackConfidenceCap {
		conf = th.MVFallbackConfidenceCap
	}
	if quality.IsPoor() && conf > th.PoorQualityConfidenceCap {
		conf = th.PoorQualityConfidenceCap
	}
	return clamp01(conf)
}

// ─────────────────────────────────────────────────────────────────────────────
// Comparable slicing helpers
// ─────────────────────────────────────────────────────────────────────────────

func recentSales(cands []comps.Candidate, opts Options) []comps.Candidate {
	out := make([]comps.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.SaleWithin(opts.ValuationDate, opts.RecentSaleWindowMonths) {
			out = append(out, c)
		}
	}
	return out
}

func assessedComparables(cands []comps.Candidate) []comps.Candidate {
	out := make([]comps.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.AssessedValue > 0 {
			out = append(out, c)
		}
	}
	return out
}

func withSqft(cands []comps.Candidate) []comps.Candidate {
	out := make([]comps.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.HasSquareFeet() {
			out = append(out, c)
		}
	}
	return out
}

func salePrices(cands []comps.Candidate) []float64 {
	out := make([]float64, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.LastSalePrice)
	}
	return out
}

func salePricesPerSqft(cands []comps.Candidate) []float64 {
	out := make([]float64, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.SalePricePerSqft())
	}
	return out
}

func assessedValues(cands []comps.Candidate) []float64 {
	out := make([]float64, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.AssessedValue)
	}
	return out
}

func assessedPerSqft(cands []comps.Candidate) []float64 {
	out := make([]float64, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.AssessedPerSqft())
	}
	return out
}

func saleCountPhrase(n int) string {
	if n == 1 {
		return "1 recent sale"
	}
	return fmt.Sprintf("%d recent sales", n)
}
