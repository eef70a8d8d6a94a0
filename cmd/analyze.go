package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/KaramelBytes/scoreloom-cli/internal/config"
	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/metrics"
	"github.com/KaramelBytes/scoreloom-cli/internal/pipeline"
	"github.com/KaramelBytes/scoreloom-cli/internal/store"
)

var (
	anaDataset   datasetFlags
	anaNarrative narrativeFlags
	anaOut       string
	anaFormat    string
	anaXLSX      bool
	anaMetrics   string
	anaOpen      bool
	anaBins      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a score table and write results, charts, and an HTML report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch anaFormat {
		case "", "json", "yaml", "yml":
		default:
			return fmt.Errorf("unsupported --format: %s (use json|yaml)", anaFormat)
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(afero.NewOsFs(), c.OutputDir)
		if err != nil {
			return err
		}
		h := host.NewOS()
		m := metrics.New()
		pc, err := runOptions(cmd.Flags(), c, h, &anaDataset, &anaNarrative, anaBins, anaXLSX, m)
		if err != nil {
			return err
		}
		id := store.NewID()
		dir := anaOut
		if dir == "" {
			dir = st.RunDir(id)
		}
		out, runErr := pipeline.Run(cmd.Context(), pc, id, args[0], dir)
		if anaMetrics != "" {
			if err := m.WriteTextfile(anaMetrics); err != nil {
				logrus.WithError(err).Warn("failed to write metrics file")
			}
		}
		if runErr != nil {
			return runErr
		}
		if err := st.Add(runEntry(out, args[0], pc.Narrator)); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printOutcome(w, out)
		if anaFormat != "" {
			if err := writeRecord(w, out.Result.Record, anaFormat); err != nil {
				return err
			}
		}
		if anaOpen {
			return openReport(cmd.Context(), h, out.ReportPath)
		}
		return nil
	},
}

func runEntry(out *pipeline.Outcome, src string, nar pipeline.Narrator) *store.Run {
	source := "none"
	if nar != nil {
		source = nar.Source()
	}
	rec := out.Result.Record
	return &store.Run{
		ID:        out.RunID,
		Dataset:   src,
		Dir:       out.Dir,
		Students:  rec.BasicInfo.TotalStudents,
		Subjects:  rec.BasicInfo.Subjects,
		Charts:    len(out.Charts),
		Failed:    out.Failed(),
		Narrative: source,
	}
}

func printOutcome(w io.Writer, out *pipeline.Outcome) {
	rec := out.Result.Record
	fmt.Fprintf(w, "✓ Analyzed %d students across %d subjects (run %s)\n",
		rec.BasicInfo.TotalStudents, len(rec.BasicInfo.Subjects), out.RunID)
	if n := out.Failed(); n > 0 {
		fmt.Fprintf(w, "⚠ %d of %d charts failed; placeholders are shown in the report\n", n, len(out.Charts))
	}
	fmt.Fprintf(w, "✓ Wrote results to %s\n", out.ResultsPath)
	fmt.Fprintf(w, "✓ Wrote report to %s\n", out.ReportPath)
	if out.WorkbookPath != "" {
		fmt.Fprintf(w, "✓ Wrote workbook to %s\n", out.WorkbookPath)
	}
}

// openReport hands the report to the platform's default viewer.
func openReport(ctx context.Context, h host.Host, path string) error {
	name, args := "xdg-open", []string{path}
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler", path}
	}
	if _, err := h.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	return nil
}

// runOptions is shared by analyze-batch, which builds one pipeline per file.
func runOptions(fs *pflag.FlagSet, c *cfgpkg.Global, h host.Host, d *datasetFlags, n *narrativeFlags, bins int, workbook bool, m *metrics.Recorder) (pipeline.Config, error) {
	dopt, err := d.options()
	if err != nil {
		return pipeline.Config{}, err
	}
	nar, err := n.narrator(c, h)
	if err != nil {
		return pipeline.Config{}, err
	}
	copt := chartOptions(c)
	if bins > 0 {
		copt.Bins = bins
	}
	return pipeline.Config{
		Input:    afero.NewOsFs(),
		Host:     h,
		Dataset:  dopt,
		Charts:   copt,
		Report:   n.reportOptions(fs),
		Narrator: nar,
		Workbook: workbook,
		Metrics:  m,
		Logger:   logrus.StandardLogger(),
	}, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	anaDataset.register(f)
	anaNarrative.register(f)
	f.StringVarP(&anaOut, "out", "o", "", "output directory for this run (default: <output_dir>/<run id>)")
	f.StringVar(&anaFormat, "format", "", "also print the results record to stdout: json|yaml")
	f.BoolVar(&anaXLSX, "xlsx", false, "also export statistics and rankings as scores.xlsx")
	f.StringVar(&anaMetrics, "metrics-file", "", "write run metrics in Prometheus textfile format to this path")
	f.BoolVar(&anaOpen, "open", false, "open the report in the default viewer when done")
	f.IntVar(&anaBins, "bins", 0, "histogram bins for the total-score chart (overrides config)")
}
