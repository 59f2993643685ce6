package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/foodtrend/internal/collector"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch top posts from the configured subreddits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ext, err := initExtractor(cfg)
		if err != nil {
			return err
		}

		opts := collector.OptionsFromConfig(cfg.Collector)
		if subs, _ := cmd.Flags().GetStringSlice("subreddit"); len(subs) > 0 {
			opts.Subreddits = subs
		}
		if cmd.Flags().Changed("limit") {
			opts.PostsPerSubreddit, _ = cmd.Flags().GetInt("limit")
		}
		if cmd.Flags().Changed("min-score") {
			opts.MinScore, _ = cmd.Flags().GetInt("min-score")
		}
		if tf, _ := cmd.Flags().GetString("time-filter"); tf != "" {
			opts.TimeFilter = tf
		}

		c := collector.New(collector.NewRedditClient(cfg.Collector), st, ext, opts)
		res, err := c.Collect(ctx)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, res)
		}
		formatCollectResult(os.Stdout, res)
		return nil
	},
}

func init() {
	collectCmd.Flags().StringSlice("subreddit", nil, "subreddits to collect (default from config)")
	collectCmd.Flags().Int("limit", 0, "posts per subreddit (default from config)")
	collectCmd.Flags().Int("min-score", 0, "minimum post score (default from config)")
	collectCmd.Flags().String("time-filter", "", "listing time filter: hour, day, week, month, year, all")
	collectCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(collectCmd)
}
