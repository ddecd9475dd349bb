package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"ahagon/internal/config"
	"ahagon/internal/history"

	"github.com/spf13/cobra"
)

var deliveriesLimit int

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Show recent webhook deliveries",
	Long:  `Print the most recent deliveries recorded in the history database configured by db.file.`,
	RunE:  runDeliveries,
}

func init() {
	deliveriesCmd.Flags().IntVarP(&deliveriesLimit, "limit", "n", getEnvOrDefaultInt("AHAGON_DELIVERIES_LIMIT", 20), "Number of deliveries to show")
}

func runDeliveries(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, _, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if cfg.DB.File == "" {
		return fmt.Errorf("delivery history is disabled; set db.file in %s", path)
	}

	hist, err := history.NewHistory(cfg.DB.File)
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx := cmd.Context()
	records, err := hist.Recent(ctx, deliveriesLimit)
	if err != nil {
		return err
	}
	counts, err := hist.CountByStatus(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "accepted: %d  rejected: %d  failed: %d\n\n",
		counts[history.StatusAccepted], counts[history.StatusRejected], counts[history.StatusFailed])

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tSOURCE\tEVENT\tREPO\tSTATUS\tCODE\tDELIVERY\tREASON")
	for _, r := range records {
		reason := ""
		if r.Reason != nil {
			reason = *r.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ReceivedAt.Local().Format(time.DateTime),
			r.Source,
			dash(r.Event),
			dash(r.Repo),
			r.Status,
			r.HTTPStatus,
			r.DeliveryID,
			reason)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
