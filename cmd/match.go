// cmd/match.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeepinbird/autoftp/pkg/pattern"
)

var matchCmd = &cobra.Command{
	Use:   "match <expression> <name>...",
	Short: "Test a filter expression against file names",
	Long: `Prints, for each name, whether the filter expression selects it.

Examples:
  autoftp match '*.pdf' report.pdf report.pdf.bak
  autoftp match 'scan-??.tif' scan-01.tif scan-1.tif`,
	Args:        cobra.MinimumNArgs(2),
	Annotations: map[string]string{annotationNoStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		m := pattern.Compile(args[0])
		out := cmd.OutOrStdout()
		for _, name := range args[1:] {
			verdict := "no match"
			if m.Matches(name) {
				verdict = "match"
			}
			fmt.Fprintf(out, "%s\t%s\n", verdict, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
