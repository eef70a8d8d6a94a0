package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/pipeline"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
	"github.com/KaramelBytes/scoreloom-cli/internal/store"
)

var (
	repNarrative narrativeFlags
	repOutput    string
	repOpen      bool
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id | results.json>",
	Short: "Re-assemble the HTML report of a saved run",
	Long: `Re-assemble the HTML report from a saved results.json and its charts.
By default the run's saved narrative.txt is reused. --narrative-file replaces
it, --provider regenerates it with a model, and --no-ai drops it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		h := host.NewOS()
		results := args[0]
		if !strings.HasSuffix(results, ".json") {
			st, err := store.Open(afero.NewOsFs(), c.OutputDir)
			if err != nil {
				return err
			}
			run, err := st.Get(args[0])
			if err != nil {
				return err
			}
			results = filepath.Join(run.Dir, pipeline.ResultsFile)
		}
		dir := filepath.Dir(results)

		var text string
		if repNarrative.noAI || repNarrative.file != "" || cmd.Flags().Changed("provider") || cmd.Flags().Changed("model") {
			nar, err := repNarrative.narrator(c, h)
			if err != nil {
				return err
			}
			if nar != nil {
				data, err := h.ReadFile(results)
				if err != nil {
					return err
				}
				text, err = narrateSaved(cmd, nar, data)
				if err != nil {
					return err
				}
			}
		} else if b, err := h.ReadFile(filepath.Join(dir, pipeline.NarrativeFile)); err == nil {
			text = strings.TrimSpace(string(b))
		}

		html, err := pipeline.Reassemble(h, results, text, repNarrative.reportOptions(cmd.Flags()))
		if err != nil {
			return err
		}
		out := repOutput
		if out == "" {
			out = filepath.Join(dir, pipeline.ReportFile)
		}
		if err := h.WriteFile(out, []byte(html)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", out)
		if repOpen {
			return openReport(cmd.Context(), h, out)
		}
		return nil
	},
}

func narrateSaved(cmd *cobra.Command, nar pipeline.Narrator, data []byte) (string, error) {
	rec, err := stats.ParseRecord(data)
	if err != nil {
		return "", err
	}
	return nar.Narrate(cmd.Context(), rec)
}

func init() {
	rootCmd.AddCommand(reportCmd)
	f := reportCmd.Flags()
	repNarrative.register(f)
	f.StringVarP(&repOutput, "output", "o", "", "where to write the report (default: next to results.json)")
	f.BoolVar(&repOpen, "open", false, "open the report in the default viewer when done")
}
