package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vmos/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace db.sqlite3",
	Short: "Summarize a trace written by run --trace-db.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := trace.NewSQLiteReader(args[0])
		if err := r.Init(); err != nil {
			return err
		}
		defer r.Close()

		runs, err := r.Runs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, run := range runs {
			kinds, err := r.Kinds(run)
			if err != nil {
				return err
			}
			procs, err := r.Processes(run)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "run %s\n", run)
			for _, k := range kinds {
				fmt.Fprintf(out, "  %-9s %d\n", k.Kind, k.Count)
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  pid\tname\tdispatches\tpage-ins\tevictions\tlast clock\tend")
			for _, p := range procs {
				fmt.Fprintf(w, "  %d\t%s\t%d\t%d\t%d\t%d\t%s\n",
					p.PID, p.Name, p.Dispatches, p.PageIns, p.Evictions, p.LastClock, p.Final)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
