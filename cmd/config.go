package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/csvlens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set csvlens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		for _, key := range cfgpkg.Keys {
			fmt.Fprintf(out, "%s: %s\n", key, configValue(c, key))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "listen_addr":
		return c.ListenAddr
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB)
	case "session_ttl_min":
		return strconv.Itoa(c.SessionTTLMin)
	case "strong_threshold":
		return fmt.Sprintf("%.3f", c.StrongThreshold)
	case "moderate_threshold":
		return fmt.Sprintf("%.3f", c.ModerateThreshold)
	case "weak_threshold":
		return fmt.Sprintf("%.3f", c.WeakThreshold)
	case "max_candidates":
		return strconv.Itoa(c.MaxCandidates)
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins)
	case "id_column_names":
		return strings.Join(c.IDColumnNames, ",")
	case "missing_tokens":
		return strings.Join(c.MissingTokens, ",")
	case "sample_rows":
		return strconv.Itoa(c.SampleRows)
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	}
	return ""
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi()
	case "session_ttl_min":
		c.SessionTTLMin, err = atoi()
	case "strong_threshold":
		c.StrongThreshold, err = parseFloat()
	case "moderate_threshold":
		c.ModerateThreshold, err = parseFloat()
	case "weak_threshold":
		c.WeakThreshold, err = parseFloat()
	case "max_candidates":
		c.MaxCandidates, err = atoi()
	case "histogram_bins":
		c.HistogramBins, err = atoi()
	case "id_column_names":
		c.IDColumnNames = splitCSV(val)
	case "missing_tokens":
		c.MissingTokens = splitCSV(val)
	case "sample_rows":
		c.SampleRows, err = atoi()
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
