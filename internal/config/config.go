package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global is the user-level configuration shared by every command.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	TopP            float64 `mapstructure:"top_p" yaml:"top_p"`

	// model runtime transport
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`
	AWSRegion  string `mapstructure:"aws_region" yaml:"aws_region"`

	// run output
	OutputDir     string  `mapstructure:"output_dir" yaml:"output_dir"`
	HistogramBins int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.scoreloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".scoreloom"), nil
}

// Save persists c as YAML at cfgFile, or at ~/.scoreloom/config.yaml when
// cfgFile is empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
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

// Load merges SCORELOOM_* environment variables over the config file over
// the built-in defaults. A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SCORELOOM")
	v.AutomaticEnv()

	for _, d := range defaults {
		v.SetDefault(d.key, d.value)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.OutputDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.OutputDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

// defaults doubles as the list of keys accepted by Set, in display order.
var defaults = []struct {
	key   string
	value any
}{
	{"api_key", ""},
	{"default_provider", "openrouter"},
	{"default_model", "deepseek/deepseek-chat"},
	{"max_tokens", 2048},
	{"temperature", 0.7},
	{"top_p", 0.9},
	{"http_timeout_sec", 60},
	{"retry_max_attempts", 3},
	{"retry_base_delay_ms", 500},
	{"retry_max_delay_ms", 4000},
	{"ollama_host", "http://127.0.0.1:11434"},
	{"aws_region", "eu-north-1"},
	{"output_dir", ""},
	{"histogram_bins", 20},
	{"chart_width_in", 12.0},
	{"chart_height_in", 6.0},
	{"log_level", "info"},
	{"log_format", "text"},
}

// Keys lists the settable configuration keys.
var Keys = func() []string {
	out := make([]string, len(defaults))
	for i, d := range defaults {
		out[i] = d.key
	}
	return out
}()

// Set assigns a single key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	atof := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_provider":
		switch strings.ToLower(val) {
		case "openrouter":
			c.DefaultProvider = "openrouter"
		case "ollama", "local":
			c.DefaultProvider = "ollama"
		case "bedrock", "aws":
			c.DefaultProvider = "bedrock"
		default:
			return fmt.Errorf("invalid default_provider: %s (use openrouter, ollama, or bedrock)", val)
		}
	case "default_model":
		c.DefaultModel = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		c.Temperature, err = atof()
	case "top_p":
		c.TopP, err = atof()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "ollama_host":
		c.OllamaHost = val
	case "aws_region":
		c.AWSRegion = val
	case "output_dir":
		c.OutputDir = val
	case "histogram_bins":
		c.HistogramBins, err = atoi()
	case "chart_width_in":
		c.ChartWidthIn, err = atof()
	case "chart_height_in":
		c.ChartHeightIn, err = atof()
	case "log_level":
		c.LogLevel = val
	case "log_format":
		if val != "text" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
