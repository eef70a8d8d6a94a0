package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/KaramelBytes/scoreloom-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/scoreloom-cli/internal/config"
	"github.com/KaramelBytes/scoreloom-cli/internal/dataset"
	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/narrative"
	"github.com/KaramelBytes/scoreloom-cli/internal/parser"
	"github.com/KaramelBytes/scoreloom-cli/internal/pipeline"
	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// datasetFlags are the input parsing flags shared by analyze and analyze-batch.
type datasetFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (d *datasetFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&d.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (auto-detect if omitted)")
	fs.StringVar(&d.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&d.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	fs.StringVar(&d.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fs.IntVar(&d.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.IntVar(&d.maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
}

func (d *datasetFlags) options() (dataset.Options, error) {
	opt := dataset.Options{SheetName: d.sheetName, SheetIndex: d.sheetIndex, MaxRows: d.maxRows}
	switch d.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", d.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(d.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", d.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(d.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", d.thousands)
	}
	return opt, nil
}

// narrativeFlags choose where the report's narrative comes from.
type narrativeFlags struct {
	file     string
	noAI     bool
	provider string
	model    string
	format   string
	title    string
}

func (n *narrativeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&n.file, "narrative-file", "", "use the text in this file as the narrative instead of calling a model")
	fs.BoolVar(&n.noAI, "no-ai", false, "skip narrative generation")
	fs.StringVar(&n.provider, "provider", "", "narrative provider: openrouter|ollama|bedrock (overrides config)")
	fs.StringVar(&n.model, "model", "", "model name for the narrative (overrides config)")
	fs.StringVar(&n.format, "narrative-format", report.FormatText, "narrative format: text|markdown")
	fs.StringVar(&n.title, "title", "", "report title")
}

// reportOptions renders Markdown narrative files as Markdown unless
// --narrative-format says otherwise.
func (n *narrativeFlags) reportOptions(fs *pflag.FlagSet) report.Options {
	format := n.format
	if n.file != "" && parser.IsMarkdown(n.file) && !fs.Changed("narrative-format") {
		format = report.FormatMarkdown
	}
	return report.Options{Title: n.title, NarrativeFormat: format}
}

// narrator returns nil when the narrative is skipped.
func (n *narrativeFlags) narrator(c *cfgpkg.Global, h host.Host) (pipeline.Narrator, error) {
	switch {
	case n.noAI:
		return nil, nil
	case n.file != "":
		return pipeline.FileNarrator{Host: h, Path: n.file}, nil
	}
	rt, provider, err := buildRuntime(c, n.provider)
	if err != nil {
		return nil, err
	}
	return pipeline.RuntimeNarrator{
		Runtime:  rt,
		Provider: provider,
		Model:    selectModel(c, provider, n.model),
		Options:  narrativeOptions(c),
	}, nil
}

func buildRuntime(c *cfgpkg.Global, providerFlag string) (narrative.Runtime, string, error) {
	rc := narrative.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
	providerName := strings.ToLower(strings.TrimSpace(providerFlag))
	if c != nil {
		if c.HTTPTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
		}
		if c.RetryMaxAttempts > 0 {
			rc.RetryMax = c.RetryMaxAttempts
		}
		if c.RetryBaseDelayMs > 0 {
			rc.BaseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
		}
		if c.RetryMaxDelayMs > 0 {
			rc.MaxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
		}
		if providerName == "" {
			providerName = strings.ToLower(c.DefaultProvider)
		}
		rc.APIKey = c.APIKey
		rc.Host = c.OllamaHost
		rc.Region = c.AWSRegion
	}
	switch providerName {
	case "":
		providerName = narrative.ProviderOpenRouter
	case "local":
		providerName = narrative.ProviderOllama
	case "aws":
		providerName = narrative.ProviderBedrock
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && rc.APIKey == "" {
		rc.APIKey = v
	}
	rt, err := narrative.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return rt, providerName, nil
}

func selectModel(c *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if provider == narrative.ProviderBedrock {
		if c != nil && c.DefaultModel != "" && c.DefaultProvider == narrative.ProviderBedrock {
			return c.DefaultModel
		}
		return narrative.DefaultBedrockModel
	}
	if c != nil && c.DefaultModel != "" {
		return c.DefaultModel
	}
	return "deepseek/deepseek-chat"
}

func narrativeOptions(c *cfgpkg.Global) narrative.Options {
	opt := narrative.DefaultOptions()
	if c == nil {
		return opt
	}
	if c.MaxTokens > 0 {
		opt.MaxTokens = c.MaxTokens
	}
	if c.Temperature > 0 {
		opt.Temperature = c.Temperature
	}
	if c.TopP > 0 {
		opt.TopP = c.TopP
	}
	return opt
}

func chartOptions(c *cfgpkg.Global) chart.Options {
	if c == nil {
		return chart.DefaultOptions()
	}
	return chart.Options{Width: c.ChartWidthIn, Height: c.ChartHeightIn, Bins: c.HistogramBins}
}

// writeRecord prints the record as json or yaml.
func writeRecord(w io.Writer, rec *stats.Record, format string) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	switch format {
	case "json":
	case "yaml", "yml":
		data, err = yaml.JSONToYAML(data)
		if err != nil {
			return fmt.Errorf("convert to yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported --format: %s (use json|yaml)", format)
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	return err
}
