package appeal

import (
	"math"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

// Scoring weights.  Filed decisions lean on the decision confidence, which
// already carries the quality discount; unfiled decisions lean on the raw
// relief that was left on the table, since that is what a re-run might
// recover.
const (
	filingConfidenceWeight = 0.55
	filingReductionWeight  = 0.45

	doNotFileReductionWeight  = 0.60
	doNotFileConfidenceWeight = 0.40

	// thresholdStandoff keeps the unfiled band from ever touching the
	// filing threshold, so the score alone tells a reader which side of
	// the decision a property landed on.
	thresholdStandoff = 5.0
)

// ScoreOpportunity maps a finished analysis onto a 0-100 scale for ranking
// a portfolio.  Filed decisions start at the filing threshold and climb
// with confidence and relative reduction; unfiled decisions stay strictly
// below it, graded by the best case the gates rejected.
func ScoreOpportunity(d StrategyDecision, mv MarketValueCase, uni UniformityCase, subject property.Record, th Thresholds) OpportunityScore {
	var raw float64
	if d.Strategy == StrategyDoNotFile {
		bestProp := math.Max(
			reductionProportion(mv.PotentialReduction, subject.AssessedValue),
			reductionProportion(uni.PotentialReduction, subject.AssessedValue),
		)
		bestConf := math.Max(mv.Confidence, uni.Confidence)
		ceiling := float64(th.FilingThresholdScore) - thresholdStandoff
		if ceiling < 0 {
			ceiling = 0
		}
		raw = ceiling * (doNotFileReductionWeight*reductionGain(bestProp, th.OpportunityDecay) +
			doNotFileConfidenceWeight*bestConf)
	} else {
		prop := reductionProportion(subject.AssessedValue-d.TargetValue, subject.AssessedValue)
		span := float64(100 - th.FilingThresholdScore)
		raw = float64(th.FilingThresholdScore) +
			span*(filingConfidenceWeight*d.Confidence+filingReductionWeight*reductionGain(prop, th.OpportunityDecay))
	}

	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return OpportunityScore{
		Score:            score,
		ConfidenceLabel:  labelForScore(score, th),
		EstimatedSavings: d.EstimatedSavings,
	}
}

// reductionGain saturates a relative reduction so the first percentage
// points of relief move the score more than the last.
//
// Formula:
//
//	g(p) = 1 − e^(−p / decay)
//
// With the default decay a 10% reduction already earns about 0.57 of the
// full gain and a 25% reduction about 0.88.
func reductionGain(proportion, decay float64) float64 {
	if proportion <= 0 || decay <= 0 {
		return 0
	}
	return 1 - math.Exp(-proportion/decay)
}

func reductionProportion(reduction, assessed float64) float64 {
	if reduction <= 0 || assessed <= 0 {
		return 0
	}
	return reduction / assessed
}

func labelForScore(score int, th Thresholds) ConfidenceLabel {
	switch {
	case score >= th.HighScoreBand:
		return ConfidenceHigh
	case score >= th.MediumScoreBand:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
