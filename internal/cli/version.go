package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Tatenda/fullstori/internal/version"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if a.jsonOutput() {
				return writeJSON(a.out, info)
			}
			fmt.Fprintf(a.out, "fullstori\n")
			fmt.Fprintf(a.out, "  Version:    %s\n", info.Version)
			fmt.Fprintf(a.out, "  Commit:     %s\n", info.GitCommit)
			fmt.Fprintf(a.out, "  Built:      %s\n", info.BuildTime)
			fmt.Fprintf(a.out, "  Go version: %s\n", runtime.Version())
			return nil
		},
	}
}
