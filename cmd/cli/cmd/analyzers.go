package cmd

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dump-analysis/internal/analyzer"
)

// analyzersCmd represents the analyzers command
var analyzersCmd = &cobra.Command{
	Use:   "analyzers",
	Short: "List the available analyzers and their options",
	Args:  configArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl := table.NewWriter()
		tbl.SetOutputMirror(cmd.OutOrStdout())
		tbl.SetStyle(table.StyleLight)
		tbl.AppendHeader(table.Row{"Name", "Aliases", "Dumps", "Default", "Options", "Description"})

		factory := analyzer.NewFactory(nil)
		for _, info := range analyzer.AllAnalyzers() {
			a, err := factory.Create(info.Name)
			if err != nil {
				return err
			}
			keys := make([]string, 0)
			for _, k := range a.SupportedOptions() {
				keys = append(keys, string(k))
			}
			def := ""
			if info.Default {
				def = "yes"
			}
			tbl.AppendRow(table.Row{
				info.Name,
				strings.Join(info.Aliases, ", "),
				info.Requirement.String(),
				def,
				strings.Join(keys, ", "),
				info.Description,
			})
		}
		tbl.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzersCmd)
}
