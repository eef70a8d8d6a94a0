package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/KaramelBytes/scoreloom-cli/internal/chart"
	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/metrics"
	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

const scores = "学号,姓名,math,english,physics\n1,P,90,80,70\n2,Q,80,85,60\n3,R,70,90,95\n4,S,55,40,65\n"

type narratorFunc func(ctx context.Context, rec *stats.Record) (string, error)

func (f narratorFunc) Narrate(ctx context.Context, rec *stats.Record) (string, error) {
	return f(ctx, rec)
}
func (narratorFunc) Source() string { return "test" }

func setup(t *testing.T) (Config, *host.Local) {
	t.Helper()
	in := afero.NewMemMapFs()
	if err := afero.WriteFile(in, "/data/scores.csv", []byte(scores), 0o644); err != nil {
		t.Fatal(err)
	}
	h := host.NewMem()
	logger, _ := test.NewNullLogger()
	return Config{
		Input:   in,
		Host:    h,
		Charts:  chart.Options{Width: 4, Height: 3, Bins: 5},
		Logger:  logger,
		Metrics: metrics.New(),
	}, h
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg, h := setup(t)
	cfg.Workbook = true
	cfg.Narrator = narratorFunc(func(_ context.Context, rec *stats.Record) (string, error) {
		return "Math was strongest.\n\nEnglish varied.", nil
	})

	out, err := Run(context.Background(), cfg, "run-1", "/data/scores.csv", "out/run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Failed() != 0 || len(out.Charts) != 5 {
		t.Fatalf("charts: %d failed of %d", out.Failed(), len(out.Charts))
	}
	for _, name := range []string{ResultsFile, ReportFile, NarrativeFile, WorkbookFile} {
		if _, err := h.ReadFile("out/run-1/" + name); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	data, _ := h.ReadFile(out.ResultsPath)
	rec, err := stats.ParseRecord(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Charts) != 5 || rec.Charts[0].Path != "out/run-1/charts/chart_subject_average.png" {
		t.Fatalf("chart refs not recorded: %+v", rec.Charts)
	}
	if rec.Rankings.TotalLeader == nil || rec.Rankings.TotalLeader.Name != "R" {
		t.Fatalf("total leader: %+v", rec.Rankings.TotalLeader)
	}

	html, _ := h.ReadFile(out.ReportPath)
	if !strings.Contains(string(html), "English varied.") {
		t.Fatal("narrative missing from report")
	}
	if n := strings.Count(string(html), "data:image/png;base64,"); n != 5 {
		t.Fatalf("embedded %d charts, want 5", n)
	}
	if n, err := testutil.GatherAndCount(cfg.Metrics.Registry(), "scoreloom_charts_total"); err != nil || n != 5 {
		t.Fatalf("chart metric series = %d (%v), want 5", n, err)
	}
}

func TestRunNarrativeFailureIsHard(t *testing.T) {
	cfg, h := setup(t)
	boom := errors.New("model offline")
	cfg.Narrator = narratorFunc(func(context.Context, *stats.Record) (string, error) {
		return "", boom
	})
	_, err := Run(context.Background(), cfg, "r", "/data/scores.csv", "out")
	if !errors.Is(err, boom) {
		t.Fatalf("expected narrative error, got %v", err)
	}
	if _, err := h.ReadFile("out/" + ReportFile); err == nil {
		t.Fatal("report must not be written when narrative fails")
	}
}

func TestRunMissingDataset(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := Run(context.Background(), cfg, "r", "/data/none.csv", "out"); err == nil {
		t.Fatal("expected load error")
	}
}

func TestRunLogsChartFailures(t *testing.T) {
	cfg, _ := setup(t)
	logger, hook := test.NewNullLogger()
	cfg.Logger = logger
	cfg.Host = failingCharts{Local: host.NewMem()}

	out, err := Run(context.Background(), cfg, "r", "/data/scores.csv", "out")
	if err != nil {
		t.Fatalf("chart failures must not fail the run: %v", err)
	}
	if out.Failed() != len(out.Charts) {
		t.Fatalf("expected every chart to fail, %d of %d", out.Failed(), len(out.Charts))
	}
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "charts failed") {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a chart failure warning")
	}
}

type failingCharts struct{ *host.Local }

func (f failingCharts) WriteFile(name string, data []byte) error {
	if strings.HasSuffix(name, ".png") {
		return errors.New("quota exceeded")
	}
	return f.Local.WriteFile(name, data)
}

func TestReassemble(t *testing.T) {
	cfg, h := setup(t)
	out, err := Run(context.Background(), cfg, "r", "/data/scores.csv", "out")
	if err != nil {
		t.Fatal(err)
	}
	html, err := Reassemble(h, out.ResultsPath, "Fresh words.", report.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "Fresh words.") || strings.Count(html, "data:image/png;base64,") != 5 {
		t.Fatal("reassembled report incomplete")
	}

	_ = h.WriteFile("bad.json", []byte("{"))
	if _, err := Reassemble(h, "bad.json", "", report.Options{}); !errors.Is(err, report.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestFileNarrator(t *testing.T) {
	h := host.NewMem()
	_ = h.WriteFile("notes/analysis.md", []byte("# Summary\r\n\r\n\r\nAll good."))
	n := FileNarrator{Host: h, Path: "notes/analysis.md"}
	text, err := n.Narrate(context.Background(), stats.NewRecord(0))
	if err != nil {
		t.Fatal(err)
	}
	if text != "# Summary\n\nAll good." {
		t.Fatalf("got %q", text)
	}
	if n.Source() != "file:notes/analysis.md" {
		t.Fatalf("source %q", n.Source())
	}
	if _, err := (FileNarrator{Host: h, Path: "missing.txt"}).Narrate(context.Background(), nil); err == nil {
		t.Fatal("expected read error")
	}
}
