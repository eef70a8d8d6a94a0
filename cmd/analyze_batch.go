package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/metrics"
	"github.com/KaramelBytes/scoreloom-cli/internal/pipeline"
	"github.com/KaramelBytes/scoreloom-cli/internal/store"
)

var (
	abDataset   datasetFlags
	abNarrative narrativeFlags
	abOut       string
	abXLSX      bool
	abMetrics   string
	abBins      int
	abJobs      int
	abQuiet     bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple score tables in parallel, one run per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
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
		pc, err := runOptions(cmd.Flags(), c, h, &abDataset, &abNarrative, abBins, abXLSX, m)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		outs := make([]*pipeline.Outcome, len(files))
		errs := make([]error, len(files))
		var g errgroup.Group
		g.SetLimit(max(abJobs, 1))
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(w, "[%d/%d] Processing %s...\n", i+1, len(files), filepath.Base(path))
			}
			g.Go(func() error {
				id := store.NewID()
				dir := st.RunDir(id)
				if abOut != "" {
					dir = filepath.Join(abOut, id)
				}
				out, err := pipeline.Run(cmd.Context(), pc, id, path, dir)
				if err != nil {
					errs[i] = fmt.Errorf("%s: %w", path, err)
					return nil
				}
				outs[i] = out
				return nil
			})
		}
		_ = g.Wait()

		if abMetrics != "" {
			if err := m.WriteTextfile(abMetrics); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: failed to write metrics file: %v\n", err)
			}
		}
		// Index updates stay sequential and in input order.
		ok := 0
		for i, out := range outs {
			if out == nil {
				continue
			}
			if err := st.Add(runEntry(out, files[i], pc.Narrator)); err != nil {
				errs[i] = err
				continue
			}
			ok++
			if !abQuiet {
				printOutcome(w, out)
			}
		}
		if !abQuiet {
			fmt.Fprintf(w, "✓ %d of %d files analyzed\n", ok, len(files))
		}
		return multierr.Combine(errs...)
	},
}

// expandInputs resolves globs, keeps literal paths that exist, and dedupes.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	f := analyzeBatchCmd.Flags()
	abDataset.register(f)
	abNarrative.register(f)
	f.StringVarP(&abOut, "out", "o", "", "base directory for run outputs (default: <output_dir>)")
	f.BoolVar(&abXLSX, "xlsx", false, "also export scores.xlsx for every run")
	f.StringVar(&abMetrics, "metrics-file", "", "write batch metrics in Prometheus textfile format to this path")
	f.IntVar(&abBins, "bins", 0, "histogram bins for the total-score chart (overrides config)")
	f.IntVarP(&abJobs, "jobs", "j", 4, "number of files analyzed concurrently")
	f.BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
