package comps

import (
	"fmt"
	"sort"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Tuning types
// ─────────────────────────────────────────────────────────────────────────────

// Weights are the per-candidate similarity penalty weights.  Distance matters
// most, then size, then age; missing data costs a smaller penalty and a class
// mismatch adds a flat surcharge.
type Weights struct {
	Distance      float64 `json:"distance" mapstructure:"distance"`
	Sqft          float64 `json:"sqft" mapstructure:"sqft"`
	Age           float64 `json:"age" mapstructure:"age"`
	MissingData   float64 `json:"missing_data" mapstructure:"missing_data"`
	ClassMismatch float64 `json:"class_mismatch" mapstructure:"class_mismatch"`
}

// DefaultWeights returns the standard penalty weights.
func DefaultWeights() Weights {
	return Weights{
		Distance:      45,
		Sqft:          30,
		Age:           15,
		MissingData:   10,
		ClassMismatch: 20,
	}
}

// Buckets are the aggregate-score cutoffs for the qualitative assessment.
// A set scoring at or above Excellent is "excellent", and so on; anything
// below Adequate is "poor".
type Buckets struct {
	Excellent float64 `json:"excellent" mapstructure:"excellent"`
	Good      float64 `json:"good" mapstructure:"good"`
	Adequate  float64 `json:"adequate" mapstructure:"adequate"`
}

// DefaultBuckets returns the standard assessment cutoffs.
func DefaultBuckets() Buckets {
	return Buckets{Excellent: 70, Good: 50, Adequate: 30}
}

// Params bundles everything SelectComparables needs beyond the records
// themselves.  Callers typically derive it from the engine options and the
// versioned thresholds table.
type Params struct {
	// MaxComparables caps the selected set size.
	MaxComparables int

	// MaxDistanceMiles is the search radius; candidates beyond it are
	// excluded outright.
	MaxDistanceMiles float64

	// Weights tune the per-candidate similarity penalty.
	Weights Weights

	// Buckets map the aggregate score to a qualitative assessment.
	Buckets Buckets

	// MinUsable is the smallest selected set that escapes a forced "poor"
	// assessment.
	MinUsable int
}

func (p Params) validate() error {
	if p.MaxComparables < 1 {
		return errors.InvalidParam(fmt.Sprintf("max comparables must be at least 1, got %d", p.MaxComparables))
	}
	if p.MaxDistanceMiles <= 0 {
		return errors.InvalidParam(fmt.Sprintf("max distance must be positive, got %.2f", p.MaxDistanceMiles))
	}
	if p.MinUsable < 1 {
		return errors.InvalidParam(fmt.Sprintf("min usable comparables must be at least 1, got %d", p.MinUsable))
	}
	sum := p.Weights.Distance + p.Weights.Sqft + p.Weights.Age + p.Weights.MissingData
	if sum <= 0 {
		return errors.InvalidParam("selector weights must sum to a positive value")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

// SelectComparables filters, ranks, and scores the candidate pool against the
// subject, returning the top-N comparables and an aggregate quality metric
// for the set.
//
// It is a pure function: identical inputs produce identical output, and ties
// in the similarity penalty are broken by parcel ID so ordering never depends
// on pool order.
//
// Errors are contract violations only: a malformed subject, an empty pool, or
// unusable params.  Degraded evidence (missing attributes, few survivors) is
// reflected in the quality metric, never raised as an error.
func SelectComparables(subject property.Record, pool []property.Record, p Params) (Quality, error) {
	if err := subject.ValidateAsSubject(); err != nil {
		return Quality{}, err
	}
	if len(pool) == 0 {
		return Quality{}, errors.EmptyCandidatePool(
			fmt.Sprintf("no candidate records supplied for subject %s", subject.ParcelID))
	}
	if err := p.validate(); err != nil {
		return Quality{}, err
	}

	candidates := make([]Candidate, 0, len(pool))
	for _, record := range pool {
		if c, ok := evaluate(subject, record, p.Weights, p.MaxDistanceMiles); ok {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].penalty != candidates[j].penalty {
			return candidates[i].penalty < candidates[j].penalty
		}
		return candidates[i].ParcelID < candidates[j].ParcelID
	})

	if len(candidates) > p.MaxComparables {
		candidates = candidates[:p.MaxComparables]
	}

	return scoreQuality(candidates, p), nil
}
