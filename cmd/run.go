package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/foodtrend/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Aggregate stored posts, score items and write predictions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := pipeline.RunOptions{
			DaysBack: cfg.Pipeline.DaysBack,
			MinScore: cfg.Pipeline.MinScore,
		}
		if cmd.Flags().Changed("days-back") {
			opts.DaysBack, _ = cmd.Flags().GetInt("days-back")
		}
		if cmd.Flags().Changed("min-score") {
			opts.MinScore, _ = cmd.Flags().GetInt("min-score")
		}

		res, err := env.Pipeline.Run(ctx, opts)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, res)
		}
		top, _ := cmd.Flags().GetInt("top")
		formatRunResult(os.Stdout, res, top)
		return nil
	},
}

func init() {
	runCmd.Flags().Int("days-back", 0, "days of posts to load (default from config)")
	runCmd.Flags().Int("min-score", 0, "minimum post score (default from config)")
	runCmd.Flags().Int("top", 20, "scored items to print")
	runCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(runCmd)
}
