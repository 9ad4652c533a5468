package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/pupiltrack/internal/store"
)

type resultsOptions struct {
	Session string
	Entity  int
	Limit   int
}

var resultsOpts resultsOptions

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List recorded sessions, or the results of one session",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if resultsOpts.Session == "" {
			return listSessions(st, cmd.OutOrStdout())
		}
		filter := store.ResultFilter{SessionID: resultsOpts.Session, Limit: resultsOpts.Limit}
		if cmd.Flags().Changed("entity") {
			filter.EntityID = &resultsOpts.Entity
		}
		return listResults(st, filter, cmd.OutOrStdout())
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsOpts.Session, "session", "", "Session id to list results for")
	resultsCmd.Flags().IntVarP(&resultsOpts.Entity, "entity", "e", 0, "Only results for this entity")
	resultsCmd.Flags().IntVarP(&resultsOpts.Limit, "limit", "n", 20, "Maximum results to print")
	rootCmd.AddCommand(resultsCmd)
}

func listSessions(st *store.Store, out io.Writer) error {
	sessions, err := st.Sessions().List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tENTITY\tSTRATEGY\tRESULTS\tSTARTED")
	fmt.Fprintln(w, "--\t------\t--------\t-------\t-------")

	for _, s := range sessions {
		n, err := st.Results().Count(s.ID)
		if err != nil {
			return fmt.Errorf("failed to count results: %w", err)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", s.ID, s.EntityID, s.Strategy, n, s.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func listResults(st *store.Store, filter store.ResultFilter, out io.Writer) error {
	recs, err := st.Results().List(filter)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(recs) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTOPIC\tCONF\tCENTER\tAXES\tDIAMETER\tNORM")
	fmt.Fprintln(w, "---------\t-----\t----\t------\t----\t--------\t----")

	for _, r := range recs {
		center, axes, diameter, norm := "-", "-", "-", "-"
		if e := r.Ellipse; e != nil {
			center = fmt.Sprintf("%.1f,%.1f", e.CenterX, e.CenterY)
			axes = fmt.Sprintf("%.1f,%.1f", e.AxisA, e.AxisB)
		}
		if r.Diameter != nil {
			diameter = fmt.Sprintf("%.1f", *r.Diameter)
		}
		if r.NormX != nil && r.NormY != nil {
			norm = fmt.Sprintf("%.3f,%.3f", *r.NormX, *r.NormY)
		}
		fmt.Fprintf(w, "%.3f\t%s\t%.0f\t%s\t%s\t%s\t%s\n", r.Timestamp, r.Topic, r.Confidence, center, axes, diameter, norm)
	}
	return w.Flush()
}
