// Package comps selects and scores comparable properties for a subject
// parcel.  Given a raw candidate pool it filters, ranks by multi-factor
// similarity, and produces an aggregate quality metric for the selected set
// that downstream case builders treat as a confidence ceiling.
package comps

import (
	"fmt"
	"math"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

// Penalty normalisation spans.  A candidate at the search radius edge, 50%
// size difference, or 50 years of age difference takes the full weighted
// penalty for that factor.
const (
	sqftPenaltySpanPct = 50.0
	agePenaltySpanYrs  = 50.0
)

// missingAttrCount is the number of attributes that feed the data-quality
// penalty (square footage and year built).
const missingAttrCount = 2

// ─────────────────────────────────────────────────────────────────────────────
// Candidate
// ─────────────────────────────────────────────────────────────────────────────

// Candidate is a pool record enriched with similarity facts relative to one
// subject.  Candidates are created fresh per analysis request and never
// persisted.
type Candidate struct {
	property.Record

	// DistanceMiles is the great-circle distance from the subject.
	DistanceMiles float64 `json:"distance_miles"`

	// SqftDelta and SqftDeltaPct describe the size difference; both are 0
	// when either record lacks square footage.  SqftDeltaPct is a percent of
	// the subject's size (8.3 means 8.3%).
	SqftDelta    float64 `json:"sqft_delta"`
	SqftDeltaPct float64 `json:"sqft_delta_pct"`

	// AgeDelta is |subject year built − candidate year built|, 0 when either
	// year is unknown.
	AgeDelta int `json:"age_delta"`

	// ClassMatch is true when both records carry the same property class.
	ClassMatch bool `json:"class_match"`

	// QualityScore is 100 minus the weighted similarity penalty, clamped to
	// [0, 100].
	QualityScore float64 `json:"quality_score"`

	// Reasons lists the qualifying facts that justify inclusion, in a fixed
	// order: distance, size, age, class.
	Reasons []string `json:"reasons"`

	// penalty is the raw weighted similarity penalty used for ranking.
	penalty float64

	// missingAttrs counts absent data attributes (0–2).
	missingAttrs int

	// sqftMeasured and ageMeasured distinguish a genuine zero delta from an
	// unmeasurable pair when averaging the breakdown.
	sqftMeasured bool
	ageMeasured  bool
}

// MissingData reports whether the candidate lacks square footage or year
// built.  Such candidates are penalised, not excluded, since sparse data is
// common and silent exclusion would bias the sample.
func (c Candidate) MissingData() bool {
	return c.missingAttrs > 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Per-candidate evaluation
// ─────────────────────────────────────────────────────────────────────────────

// evaluate derives similarity facts and the weighted penalty for one pool
// record.  It returns ok=false when the record cannot be used at all: same
// parcel as the subject, no coordinates to place it, or outside the search
// radius.
//
// Penalty:
//
//	distance     w.Distance      × min(miles/maxDistance, 1)
//	size         w.Sqft          × min(deltaPct/50, 1)
//	age          w.Age           × min(deltaYears/50, 1)
//	missing data w.MissingData   × missingAttrs/2
//	class        w.ClassMismatch when both classes are known and differ
func evaluate(subject, record property.Record, w Weights, maxDistanceMiles float64) (Candidate, bool) {
	if record.ParcelID == subject.ParcelID {
		return Candidate{}, false
	}

	dist := property.DistanceMiles(subject, record)
	if dist < 0 || dist > maxDistanceMiles {
		return Candidate{}, false
	}

	c := Candidate{Record: record, DistanceMiles: dist}
	c.penalty = w.Distance * (dist / maxDistanceMiles)
	c.Reasons = append(c.Reasons, fmt.Sprintf("%.1f mi away", dist))

	// Size: measurable only when both records carry square footage.
	if subject.HasSquareFeet() && record.HasSquareFeet() {
		c.sqftMeasured = true
		c.SqftDelta = math.Abs(record.SquareFeet - subject.SquareFeet)
		c.SqftDeltaPct = c.SqftDelta / subject.SquareFeet * 100
		c.penalty += w.Sqft * math.Min(c.SqftDeltaPct/sqftPenaltySpanPct, 1)
		switch {
		case c.SqftDelta == 0:
			c.Reasons = append(c.Reasons, "same recorded size")
		case c.SqftDeltaPct <= 25:
			c.Reasons = append(c.Reasons, fmt.Sprintf("within %d%% of subject size", int(math.Ceil(c.SqftDeltaPct))))
		}
	}

	// Age: measurable only when both years are known.
	if subject.HasYearBuilt() && record.HasYearBuilt() {
		c.ageMeasured = true
		c.AgeDelta = subject.YearBuilt - record.YearBuilt
		if c.AgeDelta < 0 {
			c.AgeDelta = -c.AgeDelta
		}
		c.penalty += w.Age * math.Min(float64(c.AgeDelta)/agePenaltySpanYrs, 1)
		switch {
		case c.AgeDelta == 0:
			c.Reasons = append(c.Reasons, "built the same year")
		case c.AgeDelta <= 15:
			c.Reasons = append(c.Reasons, fmt.Sprintf("built within %d years of subject", c.AgeDelta))
		}
	}

	// Data quality: missing attributes on the candidate cost a share of the
	// missing-data weight each.
	if !record.HasSquareFeet() {
		c.missingAttrs++
	}
	if !record.HasYearBuilt() {
		c.missingAttrs++
	}
	c.penalty += w.MissingData * float64(c.missingAttrs) / missingAttrCount

	// Class: a flat penalty when both classes are known and differ.
	if subject.PropertyClass != "" && record.PropertyClass != "" {
		if record.PropertyClass == subject.PropertyClass {
			c.ClassMatch = true
			c.Reasons = append(c.Reasons, "same property class")
		} else {
			c.penalty += w.ClassMismatch
		}
	}

	c.QualityScore = clampScore(100 - c.penalty)
	return c, true
}

// clampScore clamps a score into [0, 100].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
