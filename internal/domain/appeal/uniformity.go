package appeal

import (
	"fmt"
	"math"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

const (
	RiskSizeUnadjusted             = "size-unadjusted comparison"
	RiskNoAssessmentVariance       = "no assessment variance in comparable set"
	RiskInsufficientComparableData = "insufficient comparable data"
)

// BuildUniformityCase argues the subject is assessed out of line with its
// peers.  Sales are irrelevant here except for the pricing-ratio metric; the
// evidence is the distribution of assessed values (per square foot when the
// sample supports it) across the comparables plus the subject.
func BuildUniformityCase(subject property.Record, quality comps.Quality, opts Options, th Thresholds) UniformityCase {
	uni := UniformityCase{
		Methodology:      MethodologyUniformity,
		TargetPercentile: th.UNITargetPercentile,
		Rationale:        []string{},
		RiskFlags:        []string{},
	}

	usable := assessedComparables(quality.Comparables)
	if len(usable) == 0 {
		uni.Strength = StrengthWeak
		uni.TargetValue = subject.AssessedValue
		uni.Rationale = append(uni.Rationale, "no comparables with assessed values to compare against")
		uni.RiskFlags = append(uni.RiskFlags, RiskInsufficientComparableData)
		return uni
	}

	// Normalise for size when the subject and enough comparables carry
	// square footage; otherwise compare raw assessments and flag it.
	sized := withSqft(usable)
	perSqft := subject.HasSquareFeet() && len(sized) >= th.UNIMinCompsPerSqft

	var (
		used       []comps.Candidate
		dist       []float64
		subjectVal float64
	)
	if perSqft {
		used = sized
		dist = assessedPerSqft(sized)
		subjectVal = subject.AssessedPerSqft()
		uni.Rationale = append(uni.Rationale,
			fmt.Sprintf("compared assessed value per square foot across %d comparables", len(used)))
	} else {
		used = usable
		dist = assessedValues(usable)
		subjectVal = subject.AssessedValue
		uni.RiskFlags = append(uni.RiskFlags, RiskSizeUnadjusted)
		uni.Rationale = append(uni.Rationale,
			fmt.Sprintf("compared raw assessed values across %d comparables", len(used)))
	}

	// The subject joins its own peer distribution.
	dist = append(dist, subjectVal)

	uni.SubjectPercentile = percentileRank(dist, subjectVal)
	uni.CoefficientOfDispersion = coefficientOfDispersion(dist)
	for _, v := range dist[:len(dist)-1] {
		if v < subjectVal {
			uni.ComparablesBelowSubject++
		}
	}
	uni.PricingRatio = pricingRatio(subject, usable, opts)

	uni.Rationale = append(uni.Rationale,
		fmt.Sprintf("subject is assessed above %d of %d comparables (percentile %.0f)",
			uni.ComparablesBelowSubject, len(used), uni.SubjectPercentile))

	// A distribution with essentially no spread cannot support a uniformity
	// argument: everyone is assessed alike, including the subject.
	if uni.CoefficientOfDispersion < th.UNIMinCOD {
		uni.Strength = StrengthWeak
		uni.Confidence = 0
		uni.TargetValue = subject.AssessedValue
		uni.RiskFlags = append(uni.RiskFlags, RiskNoAssessmentVariance)
		uni.Rationale = append(uni.Rationale,
			fmt.Sprintf("assessment dispersion %.1f%% is below the %.1f%% floor; comparables are assessed essentially identically",
				uni.CoefficientOfDispersion, th.UNIMinCOD))
		return uni
	}

	uni.Rationale = append(uni.Rationale,
		fmt.Sprintf("coefficient of dispersion %.1f%%", uni.CoefficientOfDispersion))

	uni.ValueAtTargetPercentile = valueAtPercentile(dist, th.UNITargetPercentile)
	target := uni.ValueAtTargetPercentile
	if perSqft {
		target *= subject.SquareFeet
	}
	// The target never argues for raising the assessment.
	uni.TargetValue = math.Min(subject.AssessedValue, target)
	uni.PotentialReduction = math.Max(0, subject.AssessedValue-uni.TargetValue)

	if uni.PotentialReduction > 0 {
		uni.Rationale = append(uni.Rationale,
			fmt.Sprintf("reassessing the subject at percentile %.0f reduces the assessment from $%.0f to $%.0f",
				th.UNITargetPercentile, subject.AssessedValue, uni.TargetValue))
	} else {
		uni.Rationale = append(uni.Rationale,
			"the subject already sits at or below the target percentile")
	}

	uni.Strength = uniStrength(uni.SubjectPercentile, uni.CoefficientOfDispersion, uni.PotentialReduction, th)
	uni.Confidence = uniConfidence(len(used), uni.SubjectPercentile, uni.CoefficientOfDispersion, quality, th)
	return uni
}

// uniStrength demands both a high percentile and a coherent comparable set:
// high dispersion undermines the argument even when the subject ranks high.
func uniStrength(percentile, cod, reduction float64, th Thresholds) Strength {
	if reduction <= 0 {
		return StrengthWeak
	}
	if percentile >= th.UNIStrongMinPercentile && cod <= th.UNIMaxCODForStrong {
		return StrengthStrong
	}
	if percentile >= th.UNIModerateMinPercentile && cod <= th.UNIMaxCODForModerate {
		return StrengthModerate
	}
	return StrengthWeak
}

// uniConfidence blends sample size, how far the subject sits above the
// target percentile, and assessment coherence.
//
// Formula:
//
//	0.40 × min(n/8, 1)
//	+ 0.35 × clamp01((subjectPercentile − targetPercentile)/50)
//	+ 0.25 × clamp01(1 − COD/codModerateCeiling)
//
// capped by the poor-quality ceiling.
func uniConfidence(n int, percentile, cod float64, quality comps.Quality, th Thresholds) float64 {
	conf := 0.40*math.Min(float64(n)/8, 1) +
		0.35*clamp01((percentile-th.UNITargetPercentile)/50) +
		0.25*clamp01(1-cod/th.UNIMaxCODForModerate)
	if quality.IsPoor() && conf > th.PoorQualityConfidenceCap {
		conf = th.PoorQualityConfidenceCap
	}
	return clamp01(conf)
}

// pricingRatio is assessed value over market value: the subject's own recent
// sale when it has one, otherwise the median assessed-to-sale ratio across
// comparables with recent sales, otherwise 0.
func pricingRatio(subject property.Record, cands []comps.Candidate, opts Options) float64 {
	if subject.SaleWithin(opts.ValuationDate, opts.RecentSaleWindowMonths) {
		return subject.AssessedValue / subject.LastSalePrice
	}
	ratios := make([]float64, 0, len(cands))
	for _, c := range recentSales(cands, opts) {
		if c.AssessedValue > 0 {
			ratios = append(ratios, c.AssessedValue/c.LastSalePrice)
		}
	}
	if len(ratios) == 0 {
		return 0
	}
	return median(ratios)
}
