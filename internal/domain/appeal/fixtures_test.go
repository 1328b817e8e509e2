package appeal

import (
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

// Shared fixtures for the case-builder, strategy, and scorer tests.  The
// subject is a plausible Cook County bungalow: assessed at $30,000, which at
// the 10% residential ratio implies a $300,000 market value.

var testValuationDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testSubject() property.Record {
	return property.Record{
		ParcelID:      "19-01-100-001-0000",
		Address:       "5200 S Rockwell St",
		Latitude:      41.75,
		Longitude:     -87.68,
		Township:      "Lake",
		PropertyClass: "2-03",
		SquareFeet:    1200,
		YearBuilt:     1955,
		AssessedValue: 30000,
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ValuationDate = testValuationDate
	return opts
}

// saleComp builds a comparable with a recorded arms-length sale.  monthsAgo
// is measured back from the test valuation date.
func saleComp(parcelID string, salePrice float64, monthsAgo int, sqft float64) comps.Candidate {
	date := testValuationDate.AddDate(0, -monthsAgo, 0)
	return comps.Candidate{
		Record: property.Record{
			ParcelID:      parcelID,
			Latitude:      41.751,
			Longitude:     -87.681,
			PropertyClass: "2-03",
			SquareFeet:    sqft,
			YearBuilt:     1957,
			AssessedValue: salePrice * 0.10,
			LastSalePrice: salePrice,
			LastSaleDate:  &date,
		},
	}
}

// assessedComp builds a comparable with an assessment but no recorded sale.
func assessedComp(parcelID string, assessed, sqft float64) comps.Candidate {
	return comps.Candidate{
		Record: property.Record{
			ParcelID:      parcelID,
			Latitude:      41.749,
			Longitude:     -87.679,
			PropertyClass: "2-03",
			SquareFeet:    sqft,
			YearBuilt:     1953,
			AssessedValue: assessed,
		},
	}
}

// qualityWith wraps candidates in a Quality verdict without re-running the
// selector, so case-builder tests control their inputs exactly.
func qualityWith(assessment comps.Assessment, missingDataPct float64, cands ...comps.Candidate) comps.Quality {
	score := 85.0
	if assessment == comps.AssessmentPoor {
		score = 20.0
	}
	return comps.Quality{
		Score:      score,
		Assessment: assessment,
		Breakdown: comps.Breakdown{
			AvgDistanceMiles: 0.4,
			MissingDataPct:   missingDataPct,
		},
		Comparables: cands,
	}
}
