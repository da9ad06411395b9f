package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/ruler/internal/config"
	"github.com/KaramelBytes/ruler/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "ruler",
	Short: "Ruler: find association rules in transactional data",
	Long: `Ruler reads transactional data (CSV or XLSX), lets you pick the item,
transaction and date columns, and mines association rules above a confidence
threshold. Run "ruler serve" for the web UI or "ruler mine" for a headless run.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ruler/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to loading on demand and report the error
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// effectiveConfig returns the loaded configuration, loading it if the
// command runs without Execute (as in tests).
func effectiveConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	return cfgpkg.Load(cfgFile)
}

// cliLogger builds the logger for one-shot commands: warnings only unless
// --debug is set.
func cliLogger(c *cfgpkg.Global) *zap.Logger {
	lc := logger.DefaultConfig()
	lc.Level = "warn"
	if debug {
		lc.Level = "debug"
	}
	if c != nil && c.LogFormat != "" {
		lc.Format = c.LogFormat
	}
	l, err := logger.New(lc)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
