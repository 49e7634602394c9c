package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/charts"
	"github.com/KaramelBytes/csvlens/internal/dataset"
	"github.com/KaramelBytes/csvlens/internal/render"
	"github.com/KaramelBytes/csvlens/internal/utils"
)

var chartKinds = []string{"scatter", "histogram", "box", "bar", "pie", "correlation"}

var (
	chLoad   loadFlags
	chOut    string
	chX      string
	chY      string
	chColumn string
	chTarget string
	chWith   []string
	chBins   int
	chWidth  int
	chHeight int
	chJSON   bool
)

var chartCmd = &cobra.Command{
	Use:   "chart <kind> <file>",
	Short: "Render a chart as PNG (scatter, histogram, box, bar, pie, correlation)",
	Long: `Renders one chart for a CSV file:

  scatter      --x and --y numeric columns, with a least-squares trend line
  histogram    --column numeric, --bins (default from config)
  box          --column numeric
  bar, pie     --column categorical
  correlation  --target and optional --with columns

With --json the chart's data is printed instead of an image.`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: chartKinds,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := strings.ToLower(args[0])
		if !contains(chartKinds, kind) {
			return fmt.Errorf("unknown chart kind %q (use %s)", args[0], strings.Join(chartKinds, ", "))
		}
		if chOut == "" && !chJSON {
			return fmt.Errorf("--out is required unless --json is set")
		}
		ds, err := chLoad.load(args[1])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		data, err := drawChart(&buf, kind, ds)
		if err != nil {
			return err
		}
		if chJSON {
			return printJSON(cmd.OutOrStdout(), data)
		}
		if err := utils.SafeWriteFile(chOut, buf.Bytes()); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart to %s\n", kind, chOut)
		return nil
	},
}

// drawChart prepares the series for kind and renders it into buf, returning the series.
func drawChart(buf *bytes.Buffer, kind string, ds *dataset.Dataset) (any, error) {
	size := render.Size{Width: chWidth, Height: chHeight}
	c := currentConfig()
	switch kind {
	case "scatter":
		d, err := charts.Scatter(ds, chX, chY)
		if err != nil {
			return nil, err
		}
		return d, render.Scatter(buf, d, size)
	case "histogram":
		bins := chBins
		if bins <= 0 {
			bins = c.HistogramBins
		}
		d, err := charts.Histogram(ds, chColumn, bins)
		if err != nil {
			return nil, err
		}
		return d, render.Histogram(buf, d, size)
	case "box":
		if chColumn == "" {
			return nil, apperr.Invalid("column", "", "choose a numeric column")
		}
		st, err := analysis.Describe(ds, []string{chColumn})
		if err != nil {
			return nil, err
		}
		d, err := charts.Boxplot(st[0])
		if err != nil {
			return nil, err
		}
		return d, render.Boxplot(buf, d, size)
	case "bar", "pie":
		ft, err := analysis.Frequencies(ds, chColumn)
		if err != nil {
			return nil, err
		}
		if kind == "bar" {
			d, err := charts.Bars(ft)
			if err != nil {
				return nil, err
			}
			return d, render.Bars(buf, d, size)
		}
		d, err := charts.Pie(ft)
		if err != nil {
			return nil, err
		}
		return d, render.Pie(buf, d, size)
	default: // correlation
		res, err := analysis.Correlate(ds, chTarget, chWith, c.AnalysisOptions())
		if err != nil {
			return nil, err
		}
		d := charts.CorrelationBars(res)
		return d, render.CorrelationBars(buf, d, size)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chLoad.register(chartCmd)
	chartCmd.Flags().StringVarP(&chOut, "out", "o", "", "output PNG path")
	chartCmd.Flags().StringVar(&chX, "x", "", "scatter: x-axis column")
	chartCmd.Flags().StringVar(&chY, "y", "", "scatter: y-axis column")
	chartCmd.Flags().StringVarP(&chColumn, "column", "c", "", "histogram/box/bar/pie: column to chart")
	chartCmd.Flags().StringVarP(&chTarget, "target", "t", "", "correlation: target column")
	chartCmd.Flags().StringSliceVarP(&chWith, "with", "w", nil, "correlation: columns to compare with the target")
	chartCmd.Flags().IntVar(&chBins, "bins", 0, "histogram: number of bins (0 = config default)")
	chartCmd.Flags().IntVar(&chWidth, "width", 0, "image width in pixels (default 800)")
	chartCmd.Flags().IntVar(&chHeight, "height", 0, "image height in pixels (default 480)")
	chartCmd.Flags().BoolVar(&chJSON, "json", false, "print the chart data as JSON instead of writing an image")
}
