// Package pipeline runs one dataset end to end: load, classify, analyze,
// chart, narrate, assemble, and write the run's artifacts.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/KaramelBytes/scoreloom-cli/internal/chart"
	"github.com/KaramelBytes/scoreloom-cli/internal/classify"
	"github.com/KaramelBytes/scoreloom-cli/internal/dataset"
	"github.com/KaramelBytes/scoreloom-cli/internal/export"
	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/metrics"
	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
)

// Artifact file names inside a run directory.
const (
	ResultsFile   = "results.json"
	ReportFile    = "report.html"
	NarrativeFile = "narrative.txt"
	WorkbookFile  = "scores.xlsx"
	ChartsDir     = "charts"
)

// Config wires a pipeline to its collaborators. Host and Input are required.
type Config struct {
	// Input is where datasets are read from.
	Input afero.Fs
	// Host receives every artifact of the run.
	Host     host.Host
	Dataset  dataset.Options
	Charts   chart.Options
	Report   report.Options
	Narrator Narrator
	Workbook bool
	Metrics  *metrics.Recorder
	Logger   logrus.FieldLogger
}

// Outcome describes a finished run.
type Outcome struct {
	RunID       string
	Dir         string
	Result      *stats.Result
	Charts      []chart.Artifact
	Narrative   string
	ResultsPath string
	ReportPath  string
	// WorkbookPath is empty unless Config.Workbook was set.
	WorkbookPath string
}

// Failed counts charts that did not make it into the report.
func (o *Outcome) Failed() int {
	n := 0
	for _, a := range o.Charts {
		if !a.OK() {
			n++
		}
	}
	return n
}

// Run analyzes the dataset at src and writes the artifacts under dir on the
// host. Chart failures degrade the report; every other failure aborts the run.
func Run(ctx context.Context, cfg Config, runID, src, dir string) (out *Outcome, err error) {
	if cfg.Host == nil || cfg.Input == nil {
		return nil, errors.New("pipeline: host and input filesystem are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"run_id": runID, "dataset": src})
	defer func() { cfg.Metrics.Run(err) }()

	done := cfg.Metrics.Stage("load")
	ds, err := dataset.LoadFile(cfg.Input, src, cfg.Dataset)
	done()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}

	cls := classify.Classify(ds.Columns)
	log.WithFields(logrus.Fields{
		"rows":        len(ds.Rows),
		"subjects":    cls.Subjects,
		"identifiers": cls.Identifiers,
	}).Debug("classified columns")
	cfg.Metrics.Dataset(len(ds.Rows), len(cls.Subjects))
	if len(cls.Subjects) == 0 {
		log.Warn("no subject columns found; report will be empty")
	}

	done = cfg.Metrics.Stage("stats")
	res, err := stats.Analyze(ds, cls)
	done()
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if len(res.Reserved) > 0 {
		log.WithField("columns", res.Reserved).Warn("ignoring input columns named like derived aggregates")
	}
	if res.NameFallback {
		log.WithField("column", res.NameColumn).Warn("no name column found; using positional fallback")
	}

	done = cfg.Metrics.Stage("charts")
	arts := chart.Publish(cfg.Host, path.Join(dir, ChartsDir), chart.Render(res.Derived, cfg.Charts))
	done()
	for _, a := range arts {
		cfg.Metrics.Chart(string(a.Role), a.OK())
	}
	if cerr := chart.Errors(arts); cerr != nil {
		log.WithError(cerr).Warn("some charts failed; the report will show placeholders")
	}
	res.Record.Charts = chart.Refs(arts)

	var text string
	if cfg.Narrator != nil {
		done = cfg.Metrics.Stage("narrative")
		log.WithFields(logrus.Fields{
			"source":        cfg.Narrator.Source(),
			"prompt_tokens": utils.CountTokens(res.Record.Summary()),
		}).Info("generating narrative")
		text, err = cfg.Narrator.Narrate(ctx, res.Record)
		done()
		if err != nil {
			return nil, fmt.Errorf("narrative: %w", err)
		}
	}

	done = cfg.Metrics.Stage("report")
	html, err := report.Assemble(res.Record, arts, text, cfg.Report)
	done()
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	out = &Outcome{
		RunID:       runID,
		Dir:         dir,
		Result:      res,
		Charts:      arts,
		Narrative:   text,
		ResultsPath: path.Join(dir, ResultsFile),
		ReportPath:  path.Join(dir, ReportFile),
	}
	data, err := res.Record.Marshal()
	if err != nil {
		return nil, err
	}
	if err := cfg.Host.WriteFile(out.ResultsPath, data); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}
	if err := cfg.Host.WriteFile(out.ReportPath, []byte(html)); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	if text != "" {
		if err := cfg.Host.WriteFile(path.Join(dir, NarrativeFile), []byte(text)); err != nil {
			return nil, fmt.Errorf("write narrative: %w", err)
		}
	}
	if cfg.Workbook {
		var buf bytes.Buffer
		if err := export.Write(&buf, res.Record, res.Derived); err != nil {
			return nil, fmt.Errorf("export workbook: %w", err)
		}
		out.WorkbookPath = path.Join(dir, WorkbookFile)
		if err := cfg.Host.WriteFile(out.WorkbookPath, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("write workbook: %w", err)
		}
	}
	log.WithFields(logrus.Fields{
		"students": res.Record.BasicInfo.TotalStudents,
		"charts":   len(arts),
		"failed":   out.Failed(),
	}).Info("run complete")
	return out, nil
}

// Reassemble rebuilds a report from a saved results file, reloading its
// charts from the host.
func Reassemble(h host.Host, resultsPath, narrative string, opt report.Options) (string, error) {
	data, err := h.ReadFile(resultsPath)
	if err != nil {
		return "", err
	}
	rec, err := stats.ParseRecord(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", report.ErrMalformedRecord, err)
	}
	return report.Assemble(rec, chart.Load(h, rec.Charts), narrative, opt)
}
