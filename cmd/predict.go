package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/pipeline"
)

var predictCmd = &cobra.Command{
	Use:   "predict <food>",
	Short: "Evaluate one food item against recent posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		daysBack, _ := cmd.Flags().GetInt("days-back")
		pred, err := predictItem(ctx, env.Pipeline, args[0], daysBack)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, pred)
		}
		formatItemPrediction(os.Stdout, pred)
		return nil
	},
}

// predictItem maps a missing history to the no_data response.
func predictItem(ctx context.Context, p *pipeline.Pipeline, food string, daysBack int) (*model.ItemPrediction, error) {
	pred, err := p.PredictItem(ctx, food, daysBack)
	if errors.Is(err, model.ErrInsufficientHistory) {
		return pipeline.NoData(food), nil
	}
	return pred, err
}

func init() {
	predictCmd.Flags().Int("days-back", 0, "query window in days (default from config)")
	predictCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(predictCmd)
}
