package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/collector"
	"github.com/sells-group/foodtrend/internal/insight"
	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/monitoring"
	"github.com/sells-group/foodtrend/internal/pipeline"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func formatCollectResult(w io.Writer, res collector.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Subreddits:\t%d (%d failed)\n", res.Subreddits, res.Failed)
	fmt.Fprintf(tw, "Fetched:\t%d\n", res.Fetched)
	fmt.Fprintf(tw, "Below min score:\t%d\n", res.BelowMinScore)
	fmt.Fprintf(tw, "Duplicates:\t%d\n", res.Duplicates)
	fmt.Fprintf(tw, "With food mentions:\t%d\n", res.WithMentions)
	fmt.Fprintf(tw, "Stored:\t%d\n", res.Stored)
	tw.Flush() //nolint:errcheck
}

func formatRunResult(w io.Writer, res *pipeline.RunResult, top int) {
	s := res.Stats
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", res.RunID)
	fmt.Fprintf(tw, "Status:\t%s\n", res.Status)
	fmt.Fprintf(tw, "Posts:\t%d loaded, %d skipped\n", s.PostsLoaded, s.PostsSkipped)
	fmt.Fprintf(tw, "Mentions:\t%d\n", s.Mentions)
	fmt.Fprintf(tw, "Items:\t%d aggregated, %d scored\n", s.ItemsAggregated, s.ItemsScored)
	fmt.Fprintf(tw, "Trending:\t%d (threshold %.3f)\n", s.TrendingCount, s.Threshold)
	if s.LowSample {
		fmt.Fprintf(tw, "Warning:\tpopulation too small, nothing labeled\n")
	}
	fmt.Fprintf(tw, "Duration:\t%s\n", time.Duration(s.DurationMs)*time.Millisecond)
	tw.Flush() //nolint:errcheck

	if len(res.Scores) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FOOD\tSCORE\tVELOCITY\tGROWTH\tENGAGEMENT\tTRENDING")
	for i, sc := range res.Scores {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.2f\t%.2f\t%.1f\t%s\n",
			sc.Item, sc.TrendingScore, sc.Velocity, sc.GrowthRate, sc.AvgEngagement, yesNo(sc.IsTrending))
	}
	tw.Flush() //nolint:errcheck
}

func formatPredictions(w io.Writer, preds []model.Prediction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FOOD\tPROBABILITY\tPREDICTED\tSCORE\tVELOCITY\tGROWTH\tUPDATED")
	for _, p := range preds {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%.3f\t%.2f\t%.2f\t%s\n",
			p.Food, p.TrendProbability, yesNo(p.PredictedTrending), p.TrendingScore,
			p.Velocity, p.GrowthRate, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush() //nolint:errcheck
}

var predictionCSVHeader = []string{
	"food", "trend_probability", "predicted_trending", "trending_score",
	"is_trending", "velocity", "growth_rate", "run_id", "updated_at",
}

func writePredictionsCSV(w io.Writer, preds []model.Prediction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(predictionCSVHeader); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, p := range preds {
		rec := []string{
			p.Food,
			strconv.FormatFloat(p.TrendProbability, 'f', 4, 64),
			strconv.FormatBool(p.PredictedTrending),
			strconv.FormatFloat(p.TrendingScore, 'f', 4, 64),
			strconv.FormatBool(p.IsTrending),
			strconv.FormatFloat(p.Velocity, 'f', 4, 64),
			strconv.FormatFloat(p.GrowthRate, 'f', 4, 64),
			p.RunID,
			p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "write csv row %s", p.Food)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush csv")
}

func formatItemPrediction(w io.Writer, p *model.ItemPrediction) {
	if p.Status == model.ItemStatusNoData {
		fmt.Fprintf(w, "%s: %s\n", insight.Title(p.Food), p.Message)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Food:\t%s\n", insight.Title(p.Food))
	fmt.Fprintf(tw, "Probability:\t%.1f%%\n", p.TrendProbability*100)
	fmt.Fprintf(tw, "Trending:\t%s\n", yesNo(p.IsTrending))
	if m := p.Metrics; m != nil {
		fmt.Fprintf(tw, "Mentions:\t%d in %d days\n", m.MentionCount, m.WindowDays)
		fmt.Fprintf(tw, "Velocity:\t%.2f/day\n", m.Velocity)
		growth := fmt.Sprintf("%.2f", m.GrowthRate)
		if m.Placeholder {
			growth += " (no prior period)"
		}
		fmt.Fprintf(tw, "Growth:\t%s\n", growth)
		fmt.Fprintf(tw, "Engagement:\t%.1f avg\n", m.AvgEngagement)
	}
	tw.Flush() //nolint:errcheck

	if r := p.Recommendation; r != nil {
		fmt.Fprintf(w, "\n%s: %s\n", r.Level, r.Action)
		for _, s := range r.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

func formatCategories(w io.Writer, trends []model.CategoryTrend) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tAVG PROBABILITY\tTRENDING\tFOODS\tTOP FOOD\tMOMENTUM")
	for _, c := range trends {
		fmt.Fprintf(tw, "%s\t%.3f\t%d\t%d\t%s\t%.2f\n",
			insight.Title(c.Category), c.AvgProbability, c.TrendingCount, c.Foods, c.TopFood, c.GrowthMomentum)
	}
	tw.Flush() //nolint:errcheck
}

func formatReport(w io.Writer, r insight.Report) {
	fmt.Fprintf(w, "Food Trend Report (%s)\n\n", r.GeneratedAt.Format("2006-01-02"))
	if r.Empty {
		fmt.Fprintln(w, "No predictions available. Run the pipeline first.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFOOD\tCATEGORY\tPROBABILITY\tVELOCITY\tGROWTH")
	for i, t := range r.Top {
		arrow := "-"
		if t.Growing {
			arrow = "up"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f%%\t%.2f\t%s\n",
			i+1, t.Name, t.Category, t.Probability*100, t.Velocity, arrow)
	}
	tw.Flush() //nolint:errcheck

	if len(r.Categories) > 0 {
		fmt.Fprintln(w)
		formatCategories(w, r.Categories)
	}

	fmt.Fprintf(w, "\nHigh potential (%d): %s\n", r.HighPotentialCount, joinOrNone(r.HighPotential))
	fmt.Fprintf(w, "Emerging (%d): %s\n", r.EmergingCount, joinOrNone(r.Emerging))
	fmt.Fprintf(w, "In season: %s\n", joinOrNone(r.Seasonal))
}

func formatStatus(w io.Writer, snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Posts stored:\t%d\n", snap.PostsStored)
	fmt.Fprintf(tw, "Runs (last %dh):\t%d total, %d complete, %d empty, %d failed, %d running\n",
		snap.LookbackHours, snap.RunsTotal, snap.RunsComplete, snap.RunsEmpty, snap.RunsFailed, snap.RunsRunning)
	fmt.Fprintf(tw, "Failure rate:\t%.1f%%\n", snap.FailRate*100)
	fmt.Fprintf(tw, "Avg duration:\t%s\n", time.Duration(snap.AvgDuration)*time.Millisecond)
	if r := snap.LastRun; r != nil {
		fmt.Fprintf(tw, "Last run:\t%s %s (%s)\n", shortID(r.ID), r.Status, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	if r := snap.LastSuccess; r != nil {
		fmt.Fprintf(tw, "Last success:\t%s (%d items, %d trending)\n",
			r.UpdatedAt.Format("2006-01-02 15:04"), r.Stats.ItemsScored, r.Stats.TrendingCount)
	}
	tw.Flush() //nolint:errcheck

	if len(alerts) == 0 {
		fmt.Fprintln(w, "\nNo alerts.")
		return
	}
	fmt.Fprintln(w, "\nAlerts:")
	for _, a := range alerts {
		fmt.Fprintf(w, "  [%s] %s\n", a.Severity, a.Message)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
