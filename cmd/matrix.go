package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvlens/internal/analysis"
)

var (
	matLoad    loadFlags
	matColumns []string
	matTop     int
	matJSON    bool
)

var matrixCmd = &cobra.Command{
	Use:   "matrix <file>",
	Short: "Correlation matrix across numeric columns, with the strongest pairs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := matLoad.load(args[0])
		if err != nil {
			return err
		}
		m, err := analysis.FullMatrix(ds, matColumns)
		if err != nil {
			return err
		}
		t := currentConfig().Thresholds()
		pairs := m.TopPairs(matTop, t)
		if matJSON {
			return printJSON(cmd.OutOrStdout(), struct {
				Matrix   *analysis.CorrMatrix `json:"matrix"`
				TopPairs []analysis.PairCorr  `json:"top_pairs"`
			}{m, pairs})
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, analysis.MatrixTable(m))
		if len(pairs) > 0 {
			fmt.Fprintln(out, "\nStrongest pairs:")
			for _, p := range pairs {
				fmt.Fprintf(out, "- %s ~ %s: r=%.3f (%s)\n", p.A, p.B, p.R, p.Strength)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matrixCmd)
	matLoad.register(matrixCmd)
	matrixCmd.Flags().StringSliceVarP(&matColumns, "columns", "c", nil, "numeric columns to include (default: all)")
	matrixCmd.Flags().IntVar(&matTop, "top", 10, "number of strongest pairs to list (0 = all)")
	matrixCmd.Flags().BoolVar(&matJSON, "json", false, "emit JSON")
}
