package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DefaultProvider != "openrouter" || c.MaxTokens != 2048 || c.HistogramBins != 20 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.ChartWidthIn != 12 || c.ChartHeightIn != 6 {
		t.Fatalf("chart size defaults: %v x %v", c.ChartWidthIn, c.ChartHeightIn)
	}
	if filepath.Base(c.OutputDir) != "runs" {
		t.Fatalf("output dir default: %s", c.OutputDir)
	}
}

func TestSaveLoadRoundTripAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if err := c.Set("default_model", "llama3"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("histogram_bins", "10"); err != nil {
		t.Fatal(err)
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("SCORELOOM_DEFAULT_MODEL", "from-env")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.HistogramBins != 10 {
		t.Fatalf("bins not persisted: %d", got.HistogramBins)
	}
	if got.DefaultModel != "from-env" {
		t.Fatalf("env should win over file, got %q", got.DefaultModel)
	}
}

func TestSetValidation(t *testing.T) {
	var c Global
	cases := []struct {
		key, val string
		wantErr  bool
	}{
		{"default_provider", "aws", false},
		{"default_provider", "gpt", true},
		{"max_tokens", "-1", true},
		{"temperature", "0.2", false},
		{"log_format", "xml", true},
		{"nope", "x", true},
	}
	for _, tc := range cases {
		err := c.Set(tc.key, tc.val)
		if (err != nil) != tc.wantErr {
			t.Errorf("Set(%s, %s) err=%v wantErr=%v", tc.key, tc.val, err, tc.wantErr)
		}
	}
	if c.DefaultProvider != "bedrock" {
		t.Fatalf("alias not normalized: %s", c.DefaultProvider)
	}
}
