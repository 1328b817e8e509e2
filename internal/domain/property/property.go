// Package property defines the immutable parcel records the appeal analysis
// engine consumes, together with the contract checks and geographic helpers
// shared by every case builder.  Records are owned by the caller and passed
// by value; nothing in this package mutates them.
package property

import (
	"fmt"
	"strings"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Record
// ─────────────────────────────────────────────────────────────────────────────

// Record describes one parcel as of an assessment year.  It serves both as
// the subject of an analysis and as a raw comparable candidate; the caller is
// responsible for fetching it and for pre-filtering candidate pools by taxing
// district and class.
//
// Numeric fields use 0 as "unknown" so the wire form never carries nulls.
// The sale pair is optional: a record without a recorded arms-length sale has
// LastSalePrice 0 and a nil LastSaleDate.
type Record struct {
	ParcelID           string     `json:"parcel_id"`
	Address            string     `json:"address,omitempty"`
	Latitude           float64    `json:"latitude"`
	Longitude          float64    `json:"longitude"`
	Township           string     `json:"township,omitempty"`
	PropertyClass      string     `json:"property_class,omitempty"`
	SquareFeet         float64    `json:"square_feet"`
	YearBuilt          int        `json:"year_built"`
	Bedrooms           int        `json:"bedrooms"`
	Bathrooms          float64    `json:"bathrooms"`
	AssessedValue      float64    `json:"assessed_value"`
	PriorAssessedValue float64    `json:"prior_assessed_value"`
	LastSalePrice      float64    `json:"last_sale_price"`
	LastSaleDate       *time.Time `json:"last_sale_date,omitempty"`
}

// HasCoordinates reports whether the record carries a usable latitude and
// longitude pair.  The zero pair (0, 0) is treated as unset; no Cook County
// parcel sits in the Gulf of Guinea.
func (r Record) HasCoordinates() bool {
	return r.Latitude != 0 || r.Longitude != 0
}

// HasSquareFeet reports whether building square footage is known.
func (r Record) HasSquareFeet() bool {
	return r.SquareFeet > 0
}

// HasYearBuilt reports whether the construction year is known.
func (r Record) HasYearBuilt() bool {
	return r.YearBuilt > 0
}

// AssessedPerSqft returns the assessed value divided by square footage, or 0
// when the size is unknown.
func (r Record) AssessedPerSqft() float64 {
	if r.SquareFeet <= 0 {
		return 0
	}
	return r.AssessedValue / r.SquareFeet
}

// SaleWithin reports whether the record has an arms-length sale recorded in
// the windowMonths ending at asOf.  Sales dated after asOf do not count; the
// valuation date is an explicit input so analyses are reproducible.
func (r Record) SaleWithin(asOf time.Time, windowMonths int) bool {
	if r.LastSalePrice <= 0 || r.LastSaleDate == nil {
		return false
	}
	sale := *r.LastSaleDate
	if sale.After(asOf) {
		return false
	}
	return !sale.Before(asOf.AddDate(0, -windowMonths, 0))
}

// SalePricePerSqft returns the last sale price divided by square footage, or
// 0 when either figure is unknown.
func (r Record) SalePricePerSqft() float64 {
	if r.SquareFeet <= 0 || r.LastSalePrice <= 0 {
		return 0
	}
	return r.LastSalePrice / r.SquareFeet
}

// ─────────────────────────────────────────────────────────────────────────────
// Contract validation
// ─────────────────────────────────────────────────────────────────────────────

// ValidateAsSubject checks the contract a subject record must satisfy before
// analysis can start: a parcel ID, usable coordinates, and a positive
// assessed value.  Candidate records are filtered rather than rejected, so
// these checks apply only to the subject.
func (r Record) ValidateAsSubject() error {
	if strings.TrimSpace(r.ParcelID) == "" {
		return errors.New(errors.ErrCodeSubjectMissingParcelID,
			"subject record has no parcel ID")
	}
	if !r.HasCoordinates() {
		return errors.New(errors.ErrCodeSubjectMissingLocation,
			fmt.Sprintf("subject %s has no usable coordinates", r.ParcelID))
	}
	if r.AssessedValue <= 0 {
		return errors.New(errors.ErrCodeSubjectInvalidAssessment,
			fmt.Sprintf("subject %s has assessed value %.2f; a positive current assessment is required", r.ParcelID, r.AssessedValue))
	}
	return nil
}
