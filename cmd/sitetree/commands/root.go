// Package commands implements the CLI commands for sitetree.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/internal/logger"
)

var (
	cfgFile   string
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "sitetree",
	Short: "Build and maintain hierarchical link trees of crawled sites",
	Long: `Sitetree turns the flat link lists produced by a crawler into a tree that
mirrors the site's path structure, and keeps that tree up to date as new
crawl results arrive.

Examples:
  # Build a tree from a crawl snapshot
  sitetree build -i snapshot.yaml -o tree.json

  # Build from a plain list of links
  sitetree build -i links.txt --root https://example.com

  # Fold a new crawl into an existing tree
  sitetree merge -t tree.json -i snapshot-2.yaml -o tree.json

  # Categorize the URLs a crawl skipped
  sitetree skipped -i snapshot.yaml --format yaml

  # Serve the tree API backed by Redis
  sitetree serve --store redis`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.sitetree.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "log in JSON format")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	configErr = config.Setup(viper.GetViper(), cfgFile)
}

// loadConfig returns the validated configuration and initializes the
// logger from it.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Options{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
