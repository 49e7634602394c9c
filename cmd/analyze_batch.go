package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/dataset"
	"github.com/KaramelBytes/csvlens/internal/utils"
)

var (
	abLoad       loadFlags
	abOutDir     string
	abJSON       bool
	abSampleRows int
	abJobs       int
	abQuiet      bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV files in parallel, optionally writing one summary per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		loadOpt, err := abLoad.options()
		if err != nil {
			return err
		}
		opt := currentConfig().AnalysisOptions()
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = abSampleRows
		}
		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var mu sync.Mutex
		total := len(files)
		results := make([][]byte, total)

		g := new(errgroup.Group)
		g.SetLimit(max(abJobs, 1))
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if !abQuiet {
					mu.Lock()
					fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
					mu.Unlock()
				}
				lo := loadOpt
				lo.Name = filepath.Base(path)
				ds, err := dataset.LoadFile(path, lo)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				b, err := renderReport(analysis.BuildReport(ds, opt), opt, abJSON)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results[i] = b
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Writes happen in input order so collision suffixes are stable.
		for i, path := range files {
			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(out, string(results[i]))
				}
				continue
			}
			ext := ".summary.md"
			if abJSON {
				ext = ".summary.json"
			}
			outFile, renamed := uniquePath(abOutDir, baseName(path), ext)
			if renamed && !abQuiet {
				fmt.Fprintf(out, "⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := utils.SafeWriteFile(outFile, results[i]); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, and drops duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// uniquePath returns dir/base+ext, or dir/base__N+ext for the first free N >= 2.
func uniquePath(dir, base, ext string) (string, bool) {
	outFile := filepath.Join(dir, base+ext)
	if _, err := os.Stat(outFile); err != nil {
		return outFile, false
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand, true
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abLoad.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for per-file summaries (default: print to stdout)")
	analyzeBatchCmd.Flags().BoolVar(&abJSON, "json", false, "emit reports as JSON instead of Markdown")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 4, "number of files analyzed concurrently")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
