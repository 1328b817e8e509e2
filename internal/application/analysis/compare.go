package analysis

import (
	"fmt"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// Trend classifies how a parcel's appeal opportunity moved between analyses.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendBand is the opportunity-score movement, in points, below which two
// analyses count as stable.
const trendBand = 5

// AnalysisComparison diffs two analyses of the same parcel, typically across
// reassessment cycles.
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

	Trend Trend    `json:"trend"`
	Notes []string `json:"notes"`
}

// CompareAnalyses diffs a prior and a current analysis of the same parcel.
// Analyses of different parcels are a contract violation.
func (s *serviceImpl) CompareAnalyses(prior, current *AnalysisResult) (*AnalysisComparison, error) {
	if prior == nil || current == nil {
		return nil, errors.Validation("both a prior and a current analysis are required")
	}
	if prior.ParcelID != current.ParcelID {
		return nil, errors.Newf(errors.ErrCodeComparisonMismatch,
			"cannot compare analyses of different parcels: %s vs %s",
			prior.ParcelID, current.ParcelID)
	}

	delta := current.Opportunity.Score - prior.Opportunity.Score
	trend := TrendStable
	switch {
	case delta > trendBand:
		trend = TrendImproving
	case delta < -trendBand:
		trend = TrendDeclining
	}

	cmp := &AnalysisComparison{
		ParcelID:          current.ParcelID,
		PriorAnalysisID:   prior.AnalysisID,
		CurrentAnalysisID: current.AnalysisID,
		PriorScore:        prior.Opportunity.Score,
		CurrentScore:      current.Opportunity.Score,
		OpportunityDelta:  delta,
		AssessmentDelta:   current.Subject.AssessedValue - prior.Subject.AssessedValue,
		SavingsDelta:      current.Opportunity.EstimatedSavings - prior.Opportunity.EstimatedSavings,
		PriorStrategy:     string(prior.Decision.Strategy),
		CurrentStrategy:   string(current.Decision.Strategy),
		StrategyChanged:   prior.Decision.Strategy != current.Decision.Strategy,
		Trend:             trend,
	}
	cmp.Notes = comparisonNotes(cmp)
	return cmp, nil
}

// comparisonNotes derives human-readable observations from the structured
// deltas, never the other way around.
func comparisonNotes(c *AnalysisComparison) []string {
	notes := make([]string, 0, 4)
	switch {
	case c.OpportunityDelta == 0:
		notes = append(notes, "opportunity score is unchanged")
	default:
		notes = append(notes, fmt.Sprintf("opportunity score moved %+d points to %d", c.OpportunityDelta, c.CurrentScore))
	}
	if c.StrategyChanged {
		notes = append(notes, fmt.Sprintf("recommended strategy changed from %s to %s", c.PriorStrategy, c.CurrentStrategy))
	}
	switch {
	case c.AssessmentDelta > 0:
		notes = append(notes, fmt.Sprintf("assessment rose by $%.0f since the prior analysis", c.AssessmentDelta))
	case c.AssessmentDelta < 0:
		notes = append(notes, fmt.Sprintf("assessment fell by $%.0f since the prior analysis", -c.AssessmentDelta))
	}
	switch {
	case c.SavingsDelta > 0:
		notes = append(notes, fmt.Sprintf("estimated annual savings rose by $%.0f", c.SavingsDelta))
	case c.SavingsDelta < 0:
		notes = append(notes, fmt.Sprintf("estimated annual savings fell by $%.0f", -c.SavingsDelta))
	}
	return notes
}
