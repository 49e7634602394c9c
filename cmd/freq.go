package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvlens/internal/analysis"
)

var (
	freqLoad   loadFlags
	freqColumn string
	freqTop    int
	freqJSON   bool
)

var freqCmd = &cobra.Command{
	Use:   "freq <file>",
	Short: "Value counts for a categorical column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := freqLoad.load(args[0])
		if err != nil {
			return err
		}
		ft, err := analysis.Frequencies(ds, freqColumn)
		if err != nil {
			return err
		}
		if freqJSON {
			return printJSON(cmd.OutOrStdout(), ft)
		}
		table := newTable(cmd.OutOrStdout(), "VALUE", "COUNT", "SHARE")
		top := ft.Top(freqTop)
		for _, e := range top {
			table.Append([]string{e.Value, strconv.Itoa(e.Count), fmt.Sprintf("%.1f%%", 100*float64(e.Count)/float64(ft.Total))})
		}
		if rest := len(ft.Entries) - len(top); rest > 0 {
			table.Append([]string{fmt.Sprintf("(%d more)", rest), "", ""})
		}
		if ft.Missing > 0 {
			table.Append([]string{"(missing)", strconv.Itoa(ft.Missing), ""})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(freqCmd)
	freqLoad.register(freqCmd)
	freqCmd.Flags().StringVarP(&freqColumn, "column", "c", "", "categorical column to count")
	freqCmd.Flags().IntVar(&freqTop, "top", 0, "show only the N most frequent values (0 = all)")
	freqCmd.Flags().BoolVar(&freqJSON, "json", false, "emit JSON")
}
