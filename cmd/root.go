package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/scoreloom-cli/internal/config"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
)

var (
	cfgFile       string
	debug         bool
	flagLogFormat string

	// cfg is loaded on first use by currentConfig.
	cfg *cfgpkg.Global
)

// transportFlags are persistent ints that replace a config value when set
// to something positive.
var transportFlags = []struct {
	name, usage string
	value       int
	target      func(*cfgpkg.Global) *int
}{
	{name: "http-timeout", usage: "model runtime timeout in seconds", target: func(g *cfgpkg.Global) *int { return &g.HTTPTimeoutSec }},
	{name: "retry-max", usage: "attempts per runtime call on 429/5xx", target: func(g *cfgpkg.Global) *int { return &g.RetryMaxAttempts }},
	{name: "retry-base-ms", usage: "first retry delay in ms", target: func(g *cfgpkg.Global) *int { return &g.RetryBaseDelayMs }},
	{name: "retry-max-ms", usage: "longest retry delay in ms", target: func(g *cfgpkg.Global) *int { return &g.RetryMaxDelayMs }},
}

var rootCmd = &cobra.Command{
	Use:   "scoreloom",
	Short: "scoreloom: statistics, charts, and an HTML report for class score tables",
	Long: `scoreloom reads a table of per-student subject scores (CSV, TSV, or XLSX),
computes per-subject statistics and rankings, draws charts, and assembles one
self-contained HTML report, optionally with an AI-written narrative.`,
	SilenceUsage: true,
}

// rootPersistentPreRunE is attached in init to avoid an initialization cycle
// (currentConfig refers to rootCmd).
func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	c, err := currentConfig()
	if err != nil {
		return err
	}
	level := c.LogLevel
	if debug {
		level = "debug"
	}
	format := c.LogFormat
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	return logging.Setup(level, format)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = rootPersistentPreRunE
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.scoreloom/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "log at debug level")
	pf.StringVar(&flagLogFormat, "log-format", "", "text or json; overrides log_format")
	for i := range transportFlags {
		tf := &transportFlags[i]
		pf.IntVar(&tf.value, tf.name, 0, tf.usage+" (overrides config)")
	}
}

func loadConfig() {
	if _, err := currentConfig(); err != nil {
		// Non-fatal here: PersistentPreRunE reports it for commands that run.
		logrus.WithError(err).Debug("config not loaded")
	}
}

// currentConfig loads the configuration once and applies CLI overrides.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, tf := range transportFlags {
		if rootCmd.PersistentFlags().Changed(tf.name) && tf.value > 0 {
			*tf.target(c) = tf.value
		}
	}
	cfg = c
	return cfg, nil
}
