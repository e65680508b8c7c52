package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/OFFIS-RIT/stakegraph/pkg/graph"

	"github.com/spf13/cobra"
)

type validateOutput struct {
	Nodes     int                     `json:"nodes"`
	Skipped   []skippedLabel          `json:"skipped"`
	Anomalies []graph.CapTableAnomaly `json:"anomalies"`
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report skipped labels and cap tables above 100%",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			asJSON, _ := cmd.Flags().GetBool("json")

			g, skipped, err := loadGraph(path)
			if err != nil {
				return err
			}
			anomalies := graph.CheckCapTables(g)

			out := cmd.OutOrStdout()
			if asJSON {
				if anomalies == nil {
					anomalies = []graph.CapTableAnomaly{}
				}
				return writeJSON(out, validateOutput{
					Nodes:     g.Len(),
					Skipped:   skippedLabels(skipped),
					Anomalies: anomalies,
				})
			}

			fmt.Fprintf(out, "%d nodes, %d skipped labels, %d cap table anomalies\n", g.Len(), len(skipped), len(anomalies))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if len(skipped) > 0 {
				fmt.Fprintln(w, "\nSOURCE\tTARGET\tLABEL")
				for _, s := range skipped {
					fmt.Fprintf(w, "%s\t%s\t%q\n", s.Edge.Source, s.Edge.Target, s.Edge.Label)
				}
			}
			if len(anomalies) > 0 {
				fmt.Fprintln(w, "\nNODE\tTOTAL\tOWNERS")
				for _, a := range anomalies {
					fmt.Fprintf(w, "%s\t%.2f%%\t%d\n", a.NodeID, graph.RoundPercent(a.Total), a.Owners)
				}
			}
			return w.Flush()
		},
	}
}
