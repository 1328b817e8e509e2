package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/application/analysis"
)

func newAnalyzeCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one property and recommend an appeal strategy",
		Long: "analyze runs the full pipeline for a single property: comparable\n" +
			"selection, the market-value and uniformity cases, the strategy decision,\n" +
			"and the opportunity score.  The request file carries the subject record,\n" +
			"the candidate pool, and the valuation date; use \"-\" to read from stdin.",
		Example: "  appealctl analyze -i request.json\n" +
			"  cat request.json | appealctl analyze -i - -o json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := loadAnalyzeRequest(cmd, inputPath)
			if err != nil {
				return err
			}
			svc, err := newLocalService(cliCtx)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			result, err := svc.AnalyzeProperty(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, analysisRenderer{result})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "request file (JSON), or - for stdin")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// analysisRenderer adapts an analysis result for the three output formats.
// The embedded pointer keeps -o json byte-identical to the API envelope's
// data field.
type analysisRenderer struct {
	*analysis.AnalysisResult
}

func (r analysisRenderer) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Parcel %s (analysis %s)\n", r.ParcelID, r.AnalysisID)
	fmt.Fprintf(&sb, "  Valuation date:    %s (thresholds %s)\n",
		r.ValuationDate.Format("2006-01-02"), r.ThresholdsVersion)
	fmt.Fprintf(&sb, "  Strategy:          %s (primary case: %s)\n",
		r.Decision.Strategy, r.Decision.PrimaryCase)
	fmt.Fprintf(&sb, "  Opportunity score: %d/100 (confidence %s)\n",
		r.Opportunity.Score, r.Opportunity.ConfidenceLabel)
	fmt.Fprintf(&sb, "  Estimated savings: %s\n", usd(r.Opportunity.EstimatedSavings))
	fmt.Fprintf(&sb, "  Comparables:       %d selected, %s quality (score %.1f)\n",
		len(r.Quality.Comparables), r.Quality.Assessment, r.Quality.Score)
	fmt.Fprintf(&sb, "  Market value case: %s, target %s, reduction %s\n",
		r.MarketValue.Strength, usd(r.MarketValue.TargetValue), usd(r.MarketValue.PotentialReduction))
	fmt.Fprintf(&sb, "  Uniformity case:   %s, target %s, reduction %s\n",
		r.Uniformity.Strength, usd(r.Uniformity.TargetValue), usd(r.Uniformity.PotentialReduction))
	if r.Decision.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Decision.Summary)
	}
	if r.NoAppeal != nil {
		fmt.Fprintf(&sb, "\nNot recommended: %s\n", r.NoAppeal.MainReason)
		for _, s := range r.NoAppeal.Suggestions {
			fmt.Fprintf(&sb, "  - %s\n", s)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r analysisRenderer) TableHeaders() []string {
	return []string{"Field", "Value"}
}

func (r analysisRenderer) TableRows() [][]string {
	return [][]string{
		{"parcel_id", r.ParcelID},
		{"strategy", string(r.Decision.Strategy)},
		{"primary_case", string(r.Decision.PrimaryCase)},
		{"opportunity_score", strconv.Itoa(r.Opportunity.Score)},
		{"confidence", string(r.Opportunity.ConfidenceLabel)},
		{"estimated_savings", usd(r.Decision.EstimatedSavings)},
		{"target_value", usd(r.Decision.TargetValue)},
		{"comparables", strconv.Itoa(len(r.Quality.Comparables))},
		{"comparable_quality", fmt.Sprintf("%s (%.1f)", r.Quality.Assessment, r.Quality.Score)},
		{"market_value_case", string(r.MarketValue.Strength)},
		{"uniformity_case", string(r.Uniformity.Strength)},
		{"thresholds_version", r.ThresholdsVersion},
	}
}

// usd renders a dollar amount for terminal output.
func usd(v float64) string {
	return fmt.Sprintf("$%.0f", v)
}
