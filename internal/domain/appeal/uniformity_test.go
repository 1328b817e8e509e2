package appeal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
)

func TestBuildUniformityCasePerSqftStrong(t *testing.T) {
	subject := testSubject() // $25.00 per sqft
	// Eight peers between $20.00 and $23.50 per sqft: the subject tops the
	// distribution with tight dispersion.
	quality := qualityWith(comps.AssessmentGood, 0,
		assessedComp("19-01-100-002-0000", 24000, 1200),
		assessedComp("19-01-100-003-0000", 24600, 1200),
		assessedComp("19-01-100-004-0000", 25200, 1200),
		assessedComp("19-01-100-005-0000", 25800, 1200),
		assessedComp("19-01-100-006-0000", 26400, 1200),
		assessedComp("19-01-100-007-0000", 27000, 1200),
		assessedComp("19-01-100-008-0000", 27600, 1200),
		assessedComp("19-01-100-009-0000", 28200, 1200),
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.Equal(t, MethodologyUniformity, uni.Methodology)
	assert.Equal(t, 8, uni.ComparablesBelowSubject)
	assert.InDelta(t, 94.44, uni.SubjectPercentile, 0.01)
	assert.InDelta(t, 5.556, uni.CoefficientOfDispersion, 0.01)
	assert.NotContains(t, uni.RiskFlags, RiskSizeUnadjusted)

	// Median of the nine-value distribution is $22.00/sqft → $26,400 on the
	// subject's 1,200 sqft.
	assert.InDelta(t, 22.0, uni.ValueAtTargetPercentile, 1e-9)
	assert.InDelta(t, 26400, uni.TargetValue, 1e-6)
	assert.InDelta(t, 3600, uni.PotentialReduction, 1e-6)

	assert.Equal(t, StrengthStrong, uni.Strength)
	// 0.40×(8/8) + 0.35×((94.44−50)/50) + 0.25×(1−5.556/25)
	assert.InDelta(t, 0.9056, uni.Confidence, 1e-3)
}

func TestBuildUniformityCaseRawWithoutSubjectSqft(t *testing.T) {
	subject := testSubject()
	subject.SquareFeet = 0

	quality := qualityWith(comps.AssessmentGood, 0,
		assessedComp("19-01-100-002-0000", 24000, 1150),
		assessedComp("19-01-100-003-0000", 25000, 1200),
		assessedComp("19-01-100-004-0000", 26000, 1250),
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.Contains(t, uni.RiskFlags, RiskSizeUnadjusted)
	assert.Equal(t, 3, uni.ComparablesBelowSubject)
	assert.InDelta(t, 87.5, uni.SubjectPercentile, 1e-9)

	// Raw distribution {24000, 25000, 26000, 30000}: the interpolated median
	// is $25,500 and the target is dollars, not per-sqft units.
	assert.InDelta(t, 25500, uni.ValueAtTargetPercentile, 1e-9)
	assert.InDelta(t, 25500, uni.TargetValue, 1e-9)
	assert.InDelta(t, 4500, uni.PotentialReduction, 1e-9)
	assert.Equal(t, StrengthStrong, uni.Strength)
}

func TestBuildUniformityCaseFewSizedCompsFallBackToRaw(t *testing.T) {
	subject := testSubject()
	// Only two comparables carry square footage, below the three needed for
	// a size-adjusted distribution.
	quality := qualityWith(comps.AssessmentGood, 50,
		assessedComp("19-01-100-002-0000", 24000, 1150),
		assessedComp("19-01-100-003-0000", 25000, 1200),
		assessedComp("19-01-100-004-0000", 26000, 0),
		assessedComp("19-01-100-005-0000", 27000, 0),
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.Contains(t, uni.RiskFlags, RiskSizeUnadjusted)
	assert.Equal(t, 4, uni.ComparablesBelowSubject, "raw basis keeps the unsized comparables")
}

func TestBuildUniformityCaseModerate(t *testing.T) {
	subject := testSubject() // $25.00 per sqft
	// The subject ranks 64th percentile: above the moderate bar, short of
	// the strong one.
	quality := qualityWith(comps.AssessmentGood, 0,
		assessedComp("19-01-100-002-0000", 26400, 1200), // 22.0
		assessedComp("19-01-100-003-0000", 27600, 1200), // 23.0
		assessedComp("19-01-100-004-0000", 28800, 1200), // 24.0
		assessedComp("19-01-100-005-0000", 29400, 1200), // 24.5
		assessedComp("19-01-100-006-0000", 30600, 1200), // 25.5
		assessedComp("19-01-100-007-0000", 31200, 1200), // 26.0
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.InDelta(t, 64.29, uni.SubjectPercentile, 0.01)
	assert.Equal(t, StrengthModerate, uni.Strength)
	assert.InDelta(t, 29400, uni.TargetValue, 1e-6)
	assert.InDelta(t, 600, uni.PotentialReduction, 1e-6)
}

func TestBuildUniformityCaseHighDispersionIsWeak(t *testing.T) {
	subject := testSubject() // $25.00 per sqft
	// The subject tops the distribution, but with a 28.6% coefficient of
	// dispersion no single comparison is credible.
	quality := qualityWith(comps.AssessmentGood, 0,
		assessedComp("19-01-100-002-0000", 12000, 1200), // 10.0
		assessedComp("19-01-100-003-0000", 14400, 1200), // 12.0
		assessedComp("19-01-100-004-0000", 18000, 1200), // 15.0
		assessedComp("19-01-100-005-0000", 24000, 1200), // 20.0
		assessedComp("19-01-100-006-0000", 26400, 1200), // 22.0
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.Greater(t, uni.SubjectPercentile, DefaultThresholds().UNIStrongMinPercentile)
	assert.InDelta(t, 28.57, uni.CoefficientOfDispersion, 0.01)
	assert.Greater(t, uni.PotentialReduction, 0.0)
	assert.Equal(t, StrengthWeak, uni.Strength)
}

func TestBuildUniformityCaseNoVariance(t *testing.T) {
	subject := testSubject() // $25.00 per sqft
	// Everyone is assessed identically: there is no uniformity argument to
	// make, and the dispersion floor stops the builder before it invents one.
	quality := qualityWith(comps.AssessmentGood, 0,
		assessedComp("19-01-100-002-0000", 30000, 1200),
		assessedComp("19-01-100-003-0000", 30000, 1200),
		assessedComp("19-01-100-004-0000", 30000, 1200),
		assessedComp("19-01-100-005-0000", 30000, 1200),
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.Equal(t, StrengthWeak, uni.Strength)
	assert.Zero(t, uni.Confidence)
	assert.Equal(t, subject.AssessedValue, uni.TargetValue)
	assert.Zero(t, uni.PotentialReduction)
	assert.Contains(t, uni.RiskFlags, RiskNoAssessmentVariance)
	assert.InDelta(t, 50, uni.SubjectPercentile, 1e-9, "a five-way tie centres the subject")
}

func TestBuildUniformityCaseNoComparables(t *testing.T) {
	subject := testSubject()

	tests := []struct {
		name    string
		quality comps.Quality
	}{
		{name: "empty set", quality: qualityWith(comps.AssessmentPoor, 0)},
		{
			name: "no assessed values",
			quality: qualityWith(comps.AssessmentPoor, 100,
				assessedComp("19-01-100-002-0000", 0, 1200),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uni := BuildUniformityCase(subject, tt.quality, testOptions(), DefaultThresholds())

			assert.Equal(t, StrengthWeak, uni.Strength)
			assert.Zero(t, uni.Confidence)
			assert.Equal(t, subject.AssessedValue, uni.TargetValue)
			assert.Contains(t, uni.RiskFlags, RiskInsufficientComparableData)
		})
	}
}

func TestBuildUniformityCaseSubjectBelowPeers(t *testing.T) {
	subject := testSubject() // $25.00 per sqft
	// Peers are assessed higher: the 50th percentile sits above the subject,
	// and the target must not argue for raising the assessment.
	quality := qualityWith(comps.AssessmentGood, 0,
		assessedComp("19-01-100-002-0000", 32400, 1200), // 27.0
		assessedComp("19-01-100-003-0000", 33600, 1200), // 28.0
		assessedComp("19-01-100-004-0000", 34800, 1200), // 29.0
		assessedComp("19-01-100-005-0000", 36000, 1200), // 30.0
	)

	uni := BuildUniformityCase(subject, quality, testOptions(), DefaultThresholds())

	assert.Equal(t, subject.AssessedValue, uni.TargetValue)
	assert.Zero(t, uni.PotentialReduction)
	assert.Equal(t, StrengthWeak, uni.Strength)
	assert.Zero(t, uni.ComparablesBelowSubject)
}

func TestPricingRatio(t *testing.T) {
	opts := testOptions()

	t.Run("subject's own recent sale wins", func(t *testing.T) {
		subject := testSubject()
		saleDate := testValuationDate.AddDate(0, -6, 0)
		subject.LastSalePrice = 280000
		subject.LastSaleDate = &saleDate

		got := pricingRatio(subject, []comps.Candidate{
			saleComp("19-01-100-002-0000", 200000, 3, 1200),
		}, opts)
		assert.InDelta(t, 30000.0/280000, got, 1e-9)
	})

	t.Run("median comparable ratio otherwise", func(t *testing.T) {
		cands := []comps.Candidate{
			saleComp("19-01-100-002-0000", 200000, 3, 1200),
			saleComp("19-01-100-003-0000", 240000, 9, 1200),
			saleComp("19-01-100-004-0000", 260000, 15, 1200),
		}
		got := pricingRatio(testSubject(), cands, opts)
		assert.InDelta(t, 0.10, got, 1e-9)
	})

	t.Run("stale subject sale falls through to comparables", func(t *testing.T) {
		subject := testSubject()
		saleDate := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
		subject.LastSalePrice = 280000
		subject.LastSaleDate = &saleDate

		got := pricingRatio(subject, []comps.Candidate{
			saleComp("19-01-100-002-0000", 200000, 3, 1200),
		}, opts)
		assert.InDelta(t, 0.10, got, 1e-9)
	})

	t.Run("no sale evidence anywhere", func(t *testing.T) {
		got := pricingRatio(testSubject(), []comps.Candidate{
			assessedComp("19-01-100-002-0000", 24000, 1200),
		}, opts)
		assert.Zero(t, got)
	})
}

func TestUniStrength(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name       string
		percentile float64
		cod        float64
		reduction  float64
		want       Strength
	}{
		{name: "no reduction is weak regardless", percentile: 95, cod: 5, reduction: 0, want: StrengthWeak},
		{name: "strong at both boundaries", percentile: 75, cod: 15, reduction: 1000, want: StrengthStrong},
		{name: "just under strong percentile", percentile: 74.9, cod: 10, reduction: 1000, want: StrengthModerate},
		{name: "moderate at both boundaries", percentile: 60, cod: 25, reduction: 1000, want: StrengthModerate},
		{name: "below moderate percentile", percentile: 59.9, cod: 10, reduction: 1000, want: StrengthWeak},
		{name: "high percentile with mid dispersion", percentile: 90, cod: 15.1, reduction: 1000, want: StrengthModerate},
		{name: "high percentile with high dispersion", percentile: 90, cod: 25.1, reduction: 1000, want: StrengthWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniStrength(tt.percentile, tt.cod, tt.reduction, th)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniConfidencePoorQualityCap(t *testing.T) {
	th := DefaultThresholds()
	poor := qualityWith(comps.AssessmentPoor, 0)

	// Eight comparables at the 95th percentile with tight dispersion would
	// blend well above the ceiling.
	got := uniConfidence(8, 95, 5, poor, th)
	assert.InDelta(t, th.PoorQualityConfidenceCap, got, 1e-9)
}
