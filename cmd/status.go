package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/foodtrend/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and health alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback, _ := cmd.Flags().GetInt("lookback")
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackHours
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return err
		}
		alerts := monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap)

		if mustBool(cmd, "json") {
			return writeJSON(os.Stdout, statusResponse{Snapshot: snap, Alerts: alerts})
		}
		formatStatus(os.Stdout, snap, alerts)
		return nil
	},
}

// statusResponse is the JSON shape shared by the status command and
// endpoint.
type statusResponse struct {
	Snapshot *monitoring.MetricsSnapshot `json:"snapshot"`
	Alerts   []monitoring.Alert          `json:"alerts"`
}

func init() {
	statusCmd.Flags().Int("lookback", 0, "lookback window in hours (default from config)")
	statusCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(statusCmd)
}
