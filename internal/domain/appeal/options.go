package appeal

import (
	"fmt"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// Options are the per-analysis knobs the caller passes alongside the records.
// Everything except ValuationDate has a deployment-wide default; the
// valuation date is always explicit so re-running an analysis months later
// reproduces the original answer.
type Options struct {
	// MaxComparables caps the selected comparable set.
	MaxComparables int `json:"max_comparables"`

	// MaxDistanceMiles is the comparable search radius.
	MaxDistanceMiles float64 `json:"max_distance_miles"`

	// RecentSaleWindowMonths bounds how old a sale may be and still count as
	// market evidence, measured back from ValuationDate.
	RecentSaleWindowMonths int `json:"recent_sale_window_months"`

	// MinDollarFloor is the smallest assessed-value reduction worth a
	// filing; below it the strategy gates force do_not_file.
	MinDollarFloor float64 `json:"min_dollar_floor"`

	// AssessmentRatio is the jurisdiction's legally required ratio of
	// assessed value to market value (0.10 for Cook County residential).
	AssessmentRatio float64 `json:"assessment_ratio"`

	// ValuationDate anchors every "recent" judgment.  The engine reads no
	// wall clock.
	ValuationDate time.Time `json:"valuation_date"`
}

// DefaultOptions returns the Cook County residential defaults.  The zero
// ValuationDate is deliberate: callers must supply one.
func DefaultOptions() Options {
	return Options{
		MaxComparables:         12,
		MaxDistanceMiles:       1.5,
		RecentSaleWindowMonths: 24,
		MinDollarFloor:         2500,
		AssessmentRatio:        0.10,
	}
}

// Validate rejects option sets the engine cannot analyse with.
func (o Options) Validate() error {
	if o.MaxComparables < 1 {
		return errors.InvalidParam(fmt.Sprintf("max comparables must be at least 1, got %d", o.MaxComparables))
	}
	if o.MaxDistanceMiles <= 0 {
		return errors.InvalidParam(fmt.Sprintf("max distance must be positive, got %.2f", o.MaxDistanceMiles))
	}
	if o.RecentSaleWindowMonths < 1 {
		return errors.InvalidParam(fmt.Sprintf("recent sale window must be at least 1 month, got %d", o.RecentSaleWindowMonths))
	}
	if o.MinDollarFloor < 0 {
		return errors.InvalidParam(fmt.Sprintf("dollar floor cannot be negative, got %.2f", o.MinDollarFloor))
	}
	if o.AssessmentRatio <= 0 || o.AssessmentRatio > 1 {
		return errors.InvalidParam(fmt.Sprintf("assessment ratio must be in (0, 1], got %.4f", o.AssessmentRatio))
	}
	if o.ValuationDate.IsZero() {
		return errors.New(errors.ErrCodeValuationDateRequired,
			"valuation date is required; the engine reads no wall clock")
	}
	return nil
}
