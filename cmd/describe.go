package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvlens/internal/analysis"
)

var (
	descLoad    loadFlags
	descColumns []string
	descJSON    bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Descriptive statistics for numeric columns",
	Long: `Prints count, mean, standard deviation, min, quartiles and max for the
selected numeric columns (all numeric columns when --columns is omitted).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := descLoad.load(args[0])
		if err != nil {
			return err
		}
		var stats []analysis.ColumnStats
		if len(descColumns) == 0 {
			stats, err = analysis.DescribeAll(ds)
		} else {
			stats, err = analysis.Describe(ds, descColumns)
		}
		if err != nil {
			return err
		}
		if descJSON {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		fmt.Fprint(cmd.OutOrStdout(), analysis.StatsTable(stats))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	descLoad.register(describeCmd)
	describeCmd.Flags().StringSliceVarP(&descColumns, "columns", "c", nil, "numeric columns to describe (repeatable or comma-separated)")
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "emit JSON")
}
