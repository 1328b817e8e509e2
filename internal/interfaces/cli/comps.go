package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
)

func newCompsCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "comps",
		Short: "Select and score comparables for a property",
		Long: "comps runs comparable selection against the candidate pool and prints\n" +
			"the ranked set with per-comparable similarity scores and the aggregate\n" +
			"quality verdict.  It takes the same request file as analyze.",
		Example: "  appealctl comps -i request.json\n" +
			"  appealctl comps -i request.json -o table",
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
			return PrintResult(cmd, compsRenderer{
				ParcelID: result.ParcelID,
				Quality:  result.Quality,
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "request file (JSON), or - for stdin")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// compsRenderer narrows an analysis down to the comparable set.
type compsRenderer struct {
	ParcelID string        `json:"parcel_id"`
	Quality  comps.Quality `json:"comparable_quality"`
}

func (r compsRenderer) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d comparables selected for %s: %s quality (score %.1f)\n",
		len(r.Quality.Comparables), r.ParcelID, r.Quality.Assessment, r.Quality.Score)
	fmt.Fprintf(&sb, "avg distance %.2f mi, avg size delta %.1f%%, avg age delta %.1f yr, missing data %.0f%%\n\n",
		r.Quality.Breakdown.AvgDistanceMiles, r.Quality.Breakdown.AvgSqftDeltaPct,
		r.Quality.Breakdown.AvgAgeDelta, r.Quality.Breakdown.MissingDataPct)
	sb.WriteString(FormatTable(r.TableHeaders(), r.TableRows()))
	return strings.TrimRight(sb.String(), "\n")
}

func (r compsRenderer) TableHeaders() []string {
	return []string{"Parcel", "Dist Mi", "SqFt Pct", "Age Yrs", "Class", "AV", "Score"}
}

func (r compsRenderer) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Quality.Comparables))
	for _, c := range r.Quality.Comparables {
		rows = append(rows, []string{
			c.ParcelID,
			fmt.Sprintf("%.2f", c.DistanceMiles),
			fmt.Sprintf("%.1f", c.SqftDeltaPct),
			strconv.Itoa(c.AgeDelta),
			c.PropertyClass,
			fmt.Sprintf("%.0f", c.AssessedValue),
			fmt.Sprintf("%.1f", c.QualityScore),
		})
	}
	return rows
}
