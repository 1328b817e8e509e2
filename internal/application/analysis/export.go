package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat converts a user-supplied format string.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case ExportJSON:
		return ExportJSON, nil
	case ExportCSV:
		return ExportCSV, nil
	default:
		return "", errors.Newf(errors.ErrCodeExportFormatInvalid,
			"unsupported export format %q; expected json or csv", s)
	}
}

// ExportAnalysis serializes a result into the requested format.  CSV carries
// a key/value summary block followed by the comparable table; JSON is the
// full result, indented.
func (s *serviceImpl) ExportAnalysis(result *AnalysisResult, format ExportFormat) ([]byte, error) {
	if result == nil {
		return nil, errors.Validation("an analysis result is required for export")
	}
	switch format {
	case ExportJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal analysis to JSON")
		}
		return data, nil
	case ExportCSV:
		return exportCSV(result)
	default:
		return nil, errors.Newf(errors.ErrCodeExportFormatInvalid,
			"unsupported export format %q; expected json or csv", format)
	}
}

func exportCSV(result *AnalysisResult) ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	// Summary block.
	summary := [][]string{
		{"field", "value"},
		{"analysis_id", result.AnalysisID},
		{"parcel_id", result.ParcelID},
		{"address", result.Subject.Address},
		{"assessed_value", fmt.Sprintf("%.0f", result.Subject.AssessedValue)},
		{"strategy", string(result.Decision.Strategy)},
		{"primary_case", string(result.Decision.PrimaryCase)},
		{"target_value", fmt.Sprintf("%.0f", result.Decision.TargetValue)},
		{"estimated_savings", fmt.Sprintf("%.2f", result.Decision.EstimatedSavings)},
		{"confidence", fmt.Sprintf("%.2f", result.Decision.Confidence)},
		{"opportunity_score", fmt.Sprintf("%d", result.Opportunity.Score)},
		{"confidence_label", string(result.Opportunity.ConfidenceLabel)},
		{"comparable_quality", string(result.Quality.Assessment)},
		{"quality_score", fmt.Sprintf("%.1f", result.Quality.Score)},
		{"market_value_strength", string(result.MarketValue.Strength)},
		{"uniformity_strength", string(result.Uniformity.Strength)},
		{"thresholds_version", result.ThresholdsVersion},
		{"valuation_date", result.ValuationDate.Format("2006-01-02")},
		{"generated_at", result.GeneratedAt.Format(time.RFC3339)},
	}
	for _, row := range summary {
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "write CSV summary")
		}
	}

	// Blank row separates the summary from the comparable table.
	if err := w.Write([]string{""}); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "write CSV separator")
	}

	header := []string{
		"comparable_parcel_id", "distance_miles", "quality_score",
		"assessed_value", "sale_price", "sale_date", "sqft_delta_pct", "class_match",
	}
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "write CSV header")
	}
	for _, c := range result.Quality.Comparables {
		if err := w.Write(comparableRow(c)); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "write CSV comparable row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "flush CSV")
	}
	return []byte(buf.String()), nil
}

func comparableRow(c comps.Candidate) []string {
	salePrice := ""
	if c.LastSalePrice > 0 {
		salePrice = fmt.Sprintf("%.0f", c.LastSalePrice)
	}
	saleDate := ""
	if c.LastSaleDate != nil {
		saleDate = c.LastSaleDate.Format("2006-01-02")
	}
	return []string{
		c.ParcelID,
		fmt.Sprintf("%.2f", c.DistanceMiles),
		fmt.Sprintf("%.1f", c.QualityScore),
		fmt.Sprintf("%.0f", c.AssessedValue),
		salePrice,
		saleDate,
		fmt.Sprintf("%.1f", c.SqftDeltaPct),
		fmt.Sprintf("%t", c.ClassMatch),
	}
}
