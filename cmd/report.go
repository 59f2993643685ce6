package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/insight"
	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the insights report over the latest predictions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := insight.ReportOptionsFromConfig(cfg.Report, cfg.Thresholds)
		if cmd.Flags().Changed("top") {
			opts.TopN, _ = cmd.Flags().GetInt("top")
		}

		r, err := buildReport(ctx, st, cfg, opts, time.Now().UTC())
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, r)
		}
		formatReport(os.Stdout, r)
		return nil
	},
}

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "List the latest stored predictions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Report.PredictionsLimit
		}
		preds, err := st.ListPredictions(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "list predictions")
		}

		switch {
		case mustBool(cmd, "json"):
			return writeJSON(os.Stdout, preds)
		case mustBool(cmd, "csv"):
			return writePredictionsCSV(os.Stdout, preds)
		}
		if len(preds) == 0 {
			os.Stderr.WriteString("No predictions found. Run the pipeline first.\n") //nolint:errcheck
			return nil
		}
		formatPredictions(os.Stdout, preds)
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Summarize the latest predictions per food category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		trends, err := categoryTrends(ctx, st, cfg)
		if err != nil {
			return err
		}

		if mustBool(cmd, "json") {
			return writeJSON(os.Stdout, trends)
		}
		if len(trends) == 0 {
			os.Stderr.WriteString("No categorized predictions found.\n") //nolint:errcheck
			return nil
		}
		formatCategories(os.Stdout, trends)
		return nil
	},
}

func buildReport(ctx context.Context, st store.Store, c *config.Config, opts insight.ReportOptions, now time.Time) (insight.Report, error) {
	preds, err := st.ListPredictions(ctx, c.Report.PredictionsLimit)
	if err != nil {
		return insight.Report{}, eris.Wrap(err, "report: list predictions")
	}
	r := insight.BuildReport(preds, initCategories(c), opts, now)

	// Category trends cover the wider category window, not just the listed predictions.
	r.Categories, err = categoryTrends(ctx, st, c)
	if err != nil {
		return insight.Report{}, err
	}
	return r, nil
}

func categoryTrends(ctx context.Context, st store.Store, c *config.Config) ([]model.CategoryTrend, error) {
	preds, err := st.ListPredictions(ctx, c.Report.CategoryLimit)
	if err != nil {
		return nil, eris.Wrap(err, "categories: list predictions")
	}
	opts := insight.ReportOptionsFromConfig(c.Report, c.Thresholds)
	return insight.CategoryTrends(preds, initCategories(c), opts.HighPotential), nil
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func init() {
	reportCmd.Flags().Int("top", 0, "number of top items (default from config)")
	reportCmd.Flags().Bool("json", false, "output JSON")

	predictionsCmd.Flags().Int("limit", 0, "maximum predictions (default from config)")
	predictionsCmd.Flags().Bool("json", false, "output JSON")
	predictionsCmd.Flags().Bool("csv", false, "output CSV")

	categoriesCmd.Flags().Bool("json", false, "output JSON")

	rootCmd.AddCommand(reportCmd, predictionsCmd, categoriesCmd)
}
