package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Browse the available digital workers",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all digital workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var agents []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			PriceLabel    string `json:"price_label"`
			EstimatedTime string `json:"estimated_time"`
		}
		if err := newClient().DoJSON(cmd.Context(), http.MethodGet, endpoint("/api/agents"), nil, &agents); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRICE\tESTIMATED TIME")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.PriceLabel, a.EstimatedTime)
		}
		return w.Flush()
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show [agent-id]",
	Short: "Show a digital worker and its input form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/agents/"+url.PathEscape(args[0]), nil)
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
}
