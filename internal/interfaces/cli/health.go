package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/client"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running API server's liveness probe",
		Long: "health calls the server's liveness endpoint and reports its version and\n" +
			"uptime.  The target defaults to " + defaultServerAddr + "; override it\n" +
			"with --server.",
		Example: "  appealctl health\n" +
			"  appealctl health --server http://appeal.internal:8080 -o json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			api, err := cliCtx.APIClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			status, err := api.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check against %s failed: %w", api.BaseURL(), err)
			}
			return PrintResult(cmd, healthRenderer{status})
		},
	}
	return cmd
}

type healthRenderer struct {
	*client.HealthStatus
}

func (r healthRenderer) String() string {
	return fmt.Sprintf("server %s (version %s, uptime %s)", r.Status, r.Version, r.Uptime)
}

func (r healthRenderer) TableHeaders() []string {
	return []string{"Status", "Version", "Uptime"}
}

func (r healthRenderer) TableRows() [][]string {
	return [][]string{{r.Status, r.Version, r.Uptime}}
}
