package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvlens/internal/analysis"
)

var (
	corrLoad   loadFlags
	corrTarget string
	corrWith   []string
	corrJSON   bool
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Pearson correlation between a target and up to four other numeric columns",
	Long: `Compares --target with each --with column (at most max_candidates of them)
using the rows where both values are present. Each coefficient is labelled
strong, moderate, weak or negligible using the configured thresholds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := corrLoad.load(args[0])
		if err != nil {
			return err
		}
		res, err := analysis.Correlate(ds, corrTarget, corrWith, currentConfig().AnalysisOptions())
		if err != nil {
			return err
		}
		if corrJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Target: %s\n\n", res.Target)
		table := newTable(cmd.OutOrStdout(), "VARIABLE", "R", "N", "STRENGTH")
		for _, c := range res.Coefficients {
			table.Append([]string{c.Variable, analysis.FormatCoefficient(c.R), strconv.Itoa(c.N), c.Strength.Label()})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	corrLoad.register(correlateCmd)
	correlateCmd.Flags().StringVarP(&corrTarget, "target", "t", "", "numeric target column")
	correlateCmd.Flags().StringSliceVarP(&corrWith, "with", "w", nil, "columns to compare with the target (repeatable or comma-separated)")
	correlateCmd.Flags().BoolVar(&corrJSON, "json", false, "emit JSON")
}
