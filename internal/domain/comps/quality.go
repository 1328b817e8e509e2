package comps

import "math"

// Aggregate score component weights.  The three penalties sum to at most 100
// so a set at the radius edge with wildly mismatched sizes and no data scores
// zero.
const (
	aggDistanceWeight = 40.0
	aggSqftWeight     = 30.0
	aggMissingWeight  = 30.0

	// aggSqftSpanFrac is the mean size-difference fraction at which the size
	// penalty saturates.
	aggSqftSpanFrac = 0.5
)

// Assessment is the qualitative bucket for a comparable set.
type Assessment string

const (
	AssessmentExcellent Assessment = "excellent"
	AssessmentGood      Assessment = "good"
	AssessmentAdequate  Assessment = "adequate"
	AssessmentPoor      Assessment = "poor"
)

// AssessmentFromScore maps an aggregate score to its bucket using the given
// cutoffs.
func AssessmentFromScore(score float64, b Buckets) Assessment {
	switch {
	case score >= b.Excellent:
		return AssessmentExcellent
	case score >= b.Good:
		return AssessmentGood
	case score >= b.Adequate:
		return AssessmentAdequate
	default:
		return AssessmentPoor
	}
}

// Breakdown summarises the selected set for explainability.  Percent fields
// are 0–100.
type Breakdown struct {
	AvgDistanceMiles float64 `json:"avg_distance_miles"`
	AvgSqftDeltaPct  float64 `json:"avg_sqft_delta_pct"`
	AvgAgeDelta      float64 `json:"avg_age_delta"`
	MissingDataPct   float64 `json:"missing_data_pct"`
}

// Quality is the aggregate verdict on a selected comparable set.  Downstream
// case builders treat a poor assessment as a confidence ceiling.
type Quality struct {
	Score       float64     `json:"score"`
	Assessment  Assessment  `json:"assessment"`
	Breakdown   Breakdown   `json:"breakdown"`
	Comparables []Candidate `json:"comparables"`
}

// MissingDataFraction returns the share of selected comparables missing key
// attributes, as a 0–1 fraction.
func (q Quality) MissingDataFraction() float64 {
	return q.Breakdown.MissingDataPct / 100
}

// IsPoor reports whether the set carries the forced-ceiling assessment.
func (q Quality) IsPoor() bool {
	return q.Assessment == AssessmentPoor
}

// scoreQuality computes the aggregate quality of an already-ranked selection.
//
// Score:
//
//	100 − 40 × min(meanDistance/maxDistance, 1)
//	    − 30 × min(meanSqftDeltaFraction/0.5, 1)
//	    − 30 × missingDataFraction
//
// Fewer than MinUsable survivors force the assessment to poor regardless of
// the numeric score; an empty selection scores zero.
func scoreQuality(selected []Candidate, p Params) Quality {
	q := Quality{Comparables: selected}

	if len(selected) == 0 {
		q.Assessment = AssessmentPoor
		return q
	}

	var (
		distSum    float64
		sqftPctSum float64
		sqftPairs  int
		ageSum     float64
		agePairs   int
		missing    int
	)
	for _, c := range selected {
		distSum += c.DistanceMiles
		if c.sqftMeasured {
			sqftPctSum += c.SqftDeltaPct
			sqftPairs++
		}
		if c.ageMeasured {
			ageSum += float64(c.AgeDelta)
			agePairs++
		}
		if c.MissingData() {
			missing++
		}
	}

	n := float64(len(selected))
	q.Breakdown.AvgDistanceMiles = distSum / n
	if sqftPairs > 0 {
		q.Breakdown.AvgSqftDeltaPct = sqftPctSum / float64(sqftPairs)
	}
	if agePairs > 0 {
		q.Breakdown.AvgAgeDelta = ageSum / float64(agePairs)
	}
	q.Breakdown.MissingDataPct = float64(missing) / n * 100

	distFrac := math.Min(q.Breakdown.AvgDistanceMiles/p.MaxDistanceMiles, 1)
	sqftFrac := math.Min(q.Breakdown.AvgSqftDeltaPct/100/aggSqftSpanFrac, 1)
	missFrac := float64(missing) / n

	q.Score = clampScore(100 - aggDistanceWeight*distFrac - aggSqftWeight*sqftFrac - aggMissingWeight*missFrac)

	q.Assessment = AssessmentFromScore(q.Score, p.Buckets)
	if len(selected) < p.MinUsable {
		q.Assessment = AssessmentPoor
	}
	return q
}
