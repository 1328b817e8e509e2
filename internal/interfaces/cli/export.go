package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/application/analysis"
)

func newExportCmd() *cobra.Command {
	var (
		inputPath  string
		format     string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Analyze a property and export the result as JSON or CSV",
		Long: "export runs the analysis and writes the export document instead of the\n" +
			"rendered result.  CSV carries a field/value summary block followed by\n" +
			"the comparable table; JSON is the full analysis, indented.",
		Example: "  appealctl export -i request.json -f csv --file analysis.csv\n" +
			"  appealctl export -i request.json -f json > analysis.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			// Reject a bad format before the analysis runs.
			exportFormat, err := analysis.ParseExportFormat(format)
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
			data, err := svc.ExportAnalysis(result, exportFormat)
			if err != nil {
				return err
			}

			if outputFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "request file (JSON), or - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format (json, csv)")
	cmd.Flags().StringVar(&outputFile, "file", "", "write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
