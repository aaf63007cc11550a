package main

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hermean/herm"
	"github.com/spf13/cobra"
)

var (
	configDir string
	logLevel  string
	frameName string

	cfg    herm.Config
	logger kitlog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "herm",
	Short: "Mercury spacecraft trajectory and boundary geometry",
	Long: `herm queries spacecraft positions around Mercury in the MSO, MSM and
aberrated frames, finds apoapses and computes the grazing angle of bow shock
and magnetopause crossings.

The configuration is read from conf.toml in --config (or $HERM_CONFIG) and
can be overridden with HERM_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg, err = herm.LoadConfig(configDir); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		logger = kitlog.With(herm.NewLogger(os.Stderr, cfg.LogLevel), "app", "herm")
		level.Debug(logger).Log("constants", cfg.Constants.Name, "source", cfg.Ephemeris.Source, "aberration", cfg.Aberration.Mode)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory of conf.toml (defaults to $"+herm.ConfigEnv+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&frameName, "frame", "MSO", "output frame: MSO, MSM, MSO' or MSM'")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
