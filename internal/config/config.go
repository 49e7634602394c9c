package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

// Global configuration structure.
type Global struct {
	// Web UI
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Correlation strength bands, inclusive lower bounds on |r|
	StrongThreshold   float64 `mapstructure:"strong_threshold" yaml:"strong_threshold"`
	ModerateThreshold float64 `mapstructure:"moderate_threshold" yaml:"moderate_threshold"`
	WeakThreshold     float64 `mapstructure:"weak_threshold" yaml:"weak_threshold"`

	MaxCandidates int      `mapstructure:"max_candidates" yaml:"max_candidates"`
	HistogramBins int      `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	IDColumnNames []string `mapstructure:"id_column_names" yaml:"id_column_names"`
	MissingTokens []string `mapstructure:"missing_tokens" yaml:"missing_tokens"`
	SampleRows    int      `mapstructure:"sample_rows" yaml:"sample_rows"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"listen_addr", "max_upload_mb", "session_ttl_min",
	"strong_threshold", "moderate_threshold", "weak_threshold",
	"max_candidates", "histogram_bins", "id_column_names", "missing_tokens",
	"sample_rows", "log_level", "log_format",
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".csvlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVLENS")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("max_upload_mb", def.MaxUploadMB)
	v.SetDefault("session_ttl_min", def.SessionTTLMin)
	v.SetDefault("strong_threshold", def.StrongThreshold)
	v.SetDefault("moderate_threshold", def.ModerateThreshold)
	v.SetDefault("weak_threshold", def.WeakThreshold)
	v.SetDefault("max_candidates", def.MaxCandidates)
	v.SetDefault("histogram_bins", def.HistogramBins)
	v.SetDefault("id_column_names", def.IDColumnNames)
	v.SetDefault("missing_tokens", def.MissingTokens)
	v.SetDefault("sample_rows", def.SampleRows)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the built-in configuration.
func Default() *Global {
	t := analysis.DefaultThresholds()
	a := analysis.DefaultOptions()
	return &Global{
		ListenAddr:        ":8080",
		MaxUploadMB:       20,
		SessionTTLMin:     60,
		StrongThreshold:   t.Strong,
		ModerateThreshold: t.Moderate,
		WeakThreshold:     t.Weak,
		MaxCandidates:     a.MaxCandidates,
		HistogramBins:     30,
		IDColumnNames:     append([]string(nil), dataset.DefaultIDColumnNames...),
		MissingTokens:     append([]string(nil), dataset.DefaultMissingTokens...),
		SampleRows:        a.SampleRows,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Validate rejects settings the analysis cannot run with.
func (c *Global) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	switch {
	case c.MaxCandidates < 1:
		return fmt.Errorf("max_candidates must be at least 1 (got %d)", c.MaxCandidates)
	case c.HistogramBins < 1:
		return fmt.Errorf("histogram_bins must be at least 1 (got %d)", c.HistogramBins)
	case c.MaxUploadMB < 1:
		return fmt.Errorf("max_upload_mb must be at least 1 (got %d)", c.MaxUploadMB)
	case c.SessionTTLMin < 1:
		return fmt.Errorf("session_ttl_min must be at least 1 (got %d)", c.SessionTTLMin)
	case c.SampleRows < 0:
		return fmt.Errorf("sample_rows must not be negative (got %d)", c.SampleRows)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	return nil
}

// Thresholds returns the configured strength bands.
func (c *Global) Thresholds() analysis.Thresholds {
	return analysis.Thresholds{Strong: c.StrongThreshold, Moderate: c.ModerateThreshold, Weak: c.WeakThreshold}
}

// AnalysisOptions projects the config onto analysis.Options.
func (c *Global) AnalysisOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	opt.Thresholds = c.Thresholds()
	opt.MaxCandidates = c.MaxCandidates
	opt.SampleRows = c.SampleRows
	return opt
}

// LoadOptions projects the config onto dataset.LoadOptions.
func (c *Global) LoadOptions() dataset.LoadOptions {
	opt := dataset.DefaultLoadOptions()
	if len(c.IDColumnNames) > 0 {
		opt.IDColumnNames = append([]string(nil), c.IDColumnNames...)
	}
	opt.MissingTokens = append([]string(nil), c.MissingTokens...)
	return opt
}
