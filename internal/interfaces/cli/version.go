package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, buildInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
			})
		},
	}
}

type buildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

func (b buildInfo) String() string {
	return fmt.Sprintf("appealctl %s (commit: %s, built: %s)", b.Version, b.GitCommit, b.BuildDate)
}
