package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/utils"
)

var (
	anaLoad       loadFlags
	anaOutputPath string
	anaJSON       bool
	anaSampleRows int
	anaTopPairs   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarize a CSV: schema, statistics, correlations and sample rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := anaLoad.load(args[0])
		if err != nil {
			return err
		}
		opt := currentConfig().AnalysisOptions()
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = anaSampleRows
		}
		if anaTopPairs > 0 {
			opt.TopPairs = anaTopPairs
		}
		out, err := renderReport(analysis.BuildReport(ds, opt), opt, anaJSON)
		if err != nil {
			return err
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func renderReport(rep *analysis.Report, opt analysis.Options, asJSON bool) ([]byte, error) {
	if asJSON {
		return utils.PrettyJSON(rep)
	}
	return []byte(rep.Markdown(opt)), nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit the report as JSON instead of Markdown")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeCmd.Flags().IntVar(&anaTopPairs, "top-pairs", 0, "number of correlation pairs to list (0 = config default)")
}
