package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/csvlens/internal/config"
	"github.com/KaramelBytes/csvlens/internal/server"
)

var (
	srvAddr    string
	srvEnvFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser UI for uploading and exploring CSV files",
	Long: `Starts an HTTP server with an upload page, statistics, correlation,
category and distribution views, a JSON API under /api, /healthz and
Prometheus metrics on /metrics. Variables from --env-file (CSVLENS_*) are
applied before the configuration is read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if srvEnvFile != "" {
			if err := godotenv.Load(srvEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load env file: %w", err)
			}
		}
		// Reload so values from the env file take effect.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		setupLogging()
		if srvAddr != "" {
			c.ListenAddr = srvAddr
		}

		s, err := server.New(c, nil)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "csvlens listening on %s (Ctrl+C to stop)\n", c.ListenAddr)
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().StringVar(&srvEnvFile, "env-file", ".env", "dotenv file to load before reading config (ignored if missing)")
}
