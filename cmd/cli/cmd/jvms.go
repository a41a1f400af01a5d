package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dump-analysis/internal/provider"
	"github.com/dump-analysis/pkg/errors"
)

// jvmsCmd represents the jvms command
var jvmsCmd = &cobra.Command{
	Use:   "jvms",
	Short: "List running JVMs that can be sampled with --pid",
	Args:  configArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		processes, err := provider.DiscoverJavaProcesses(cmd.Context(), provider.ExecRunner{})
		if err != nil {
			return errors.Wrap(errors.CodeCollectionError, "failed to list JVMs", err)
		}

		out := cmd.OutOrStdout()
		if len(processes) == 0 {
			fmt.Fprintln(out, "no running JVMs found")
			return nil
		}
		for _, p := range processes {
			fmt.Fprintf(out, "%d\t%s\n", p.PID, p.MainClass)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jvmsCmd)
}
