package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/scoreloom-cli/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analysis runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(afero.NewOsFs(), c.OutputDir)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		runs := st.List()
		if len(runs) == 0 {
			fmt.Fprintln(w, "(no runs)")
			return nil
		}
		if historyLimit > 0 && len(runs) > historyLimit {
			runs = runs[:historyLimit]
		}
		for _, r := range runs {
			fmt.Fprintf(w, "- %s  %s  %s  %d students [%s]  charts %d/%d  narrative=%s\n",
				shortID(r.ID), r.CreatedAt.Format("2006-01-02 15:04"), r.Dataset, r.Students,
				strings.Join(r.Subjects, ", "), r.Charts-r.Failed, r.Charts, r.Narrative)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to show (0 = all)")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
