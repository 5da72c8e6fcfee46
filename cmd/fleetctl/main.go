// Command fleetctl is a command-line client for the fleet carbon service.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-carbon/internal/handlers"
	"github.com/ukydev/fleet-carbon/internal/models"
	"github.com/ukydev/fleet-carbon/internal/summary"
)

const defaultAPIURL = "http://localhost:8080"

type options struct {
	apiURL  string
	timeout time.Duration
	asJSON  bool
	verbose bool
}

func (o *options) client() *apiClient {
	return newAPIClient(o.apiURL, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	cmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Manage the fleet and inspect its carbon footprint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			log.SetOutput(cmd.ErrOrStderr())
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", apiURL, "fleet service base URL (env API_BASE_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log API calls")

	cmd.AddCommand(
		newLookupCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newKPIsCmd(opts),
		newRecentCmd(opts),
		newChartCmd(opts),
		newSummaryCmd(opts),
	)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func emissionOf(v models.VehicleRecord) string {
	if v.Emissions == nil {
		return "-"
	}
	return formatNum(*v.Emissions)
}

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup UTTS",
		Short: "Find a vehicle in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v models.VehicleRecord
			if _, err := opts.client().get(cmd.Context(), "/api/catalog/search", url.Values{"utts": {args[0]}}, &v); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), v)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "UTTS\t%s\n", v.Identifier)
			fmt.Fprintf(w, "Plate\t%s\n", v.Plate)
			fmt.Fprintf(w, "Type\t%s\n", v.Kind())
			fmt.Fprintf(w, "Fuel\t%s\n", v.FuelType)
			fmt.Fprintf(w, "Tank\t%s\n", v.TankAmount)
			return w.Flush()
		},
	}
}

func newAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add UTTS",
		Short: "Add a catalog vehicle to the fleet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp handlers.AddVehicleResponse
			status, err := opts.client().post(cmd.Context(), "/api/fleet", handlers.AddVehicleRequest{UTTS: args[0]}, &resp)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if status == http.StatusCreated {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s ton CO₂/month)\n", resp.Vehicle.Identifier, emissionOf(resp.Vehicle))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already in the fleet\n", resp.Vehicle.Identifier)
			}
			return nil
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the fleet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fleet []models.VehicleRecord
			if _, err := opts.client().get(cmd.Context(), "/api/fleet", nil, &fleet); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), fleet)
			}
			if len(fleet) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The fleet is empty.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UTTS\tPLATE\tTYPE\tFUEL\tTANK\tCO₂ (t/month)")
			for _, v := range fleet {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", v.Identifier, v.Plate, v.Kind(), v.FuelType, v.TankAmount, emissionOf(v))
			}
			return w.Flush()
		},
	}
}

func newKPIsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Show fleet emission totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var k models.KPIs
			if _, err := opts.client().get(cmd.Context(), "/api/fleet/kpis", nil, &k); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), k)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Vehicles\t%d\n", k.VehicleCount)
			fmt.Fprintf(w, "Total emissions\t%s ton CO₂\n", formatNum(k.TotalEmissions))
			fmt.Fprintf(w, "Offset (%d%%)\t%s ton CO₂\n", k.OffsetPercentage, formatNum(k.TotalOffset))
			fmt.Fprintf(w, "Net\t%s ton CO₂\n", formatNum(k.NetDisplay))
			return w.Flush()
		},
	}
}

func newRecentCmd(opts *options) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recently added vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cards []models.RecentVehicle
			query := url.Values{"n": {strconv.Itoa(n)}}
			if _, err := opts.client().get(cmd.Context(), "/api/fleet/recent", query, &cards); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), cards)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, c := range cards {
				fmt.Fprintf(w, "%s\t%s\t%s ton CO₂\t%s\n", c.Identifier, c.Kind(), formatNum(c.Emission), c.Level)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 3, "number of vehicles")
	return cmd
}

func newChartCmd(opts *options) *cobra.Command {
	var mode, focus string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print chart data (selected, sameKind or allTypes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{"mode": {mode}}
			if focus != "" {
				query.Set("focus", focus)
			}
			var view handlers.ChartView
			if _, err := opts.client().get(cmd.Context(), "/api/charts", query, &view); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), view)
			}
			for i, tip := range view.Tooltips {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", view.Series.Colors[i], tip)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "selected", "chart mode")
	cmd.Flags().StringVar(&focus, "focus", "", "UTTS of the focus vehicle")
	return cmd
}

func newSummaryCmd(opts *options) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate an AI summary of the fleet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var state summary.State
			var err error
			if statusOnly {
				_, err = opts.client().get(cmd.Context(), "/api/summary", nil, &state)
			} else {
				_, err = opts.client().post(cmd.Context(), "/api/summary", nil, &state)
			}
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), state)
			}
			switch state.Status {
			case summary.StatusSuccess:
				fmt.Fprintln(cmd.OutOrStdout(), state.Text)
			case summary.StatusFailure:
				fmt.Fprintf(cmd.OutOrStdout(), "Summary failed: %s\n", state.Reason)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Summary is %s\n", state.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "show the last summary without generating a new one")
	return cmd
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("fleetctl failed")
		os.Exit(1)
	}
}
