package aggregate

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/model"
)

// Placeholder values used by single-item queries when no older-period
// mentions exist to measure growth against.
const (
	PlaceholderGrowthRate   = 0.1
	PlaceholderWeekendRatio = 0.5
)

// QueryItem builds a WindowMetrics record for one item from its mentions,
// with asOf as the window anchor. Mentions in [asOf-daysBack, asOf] are
// recent; mentions in [asOf-2*daysBack, asOf-daysBack) are the older
// baseline. Velocity divides by daysBack. When the older period is empty,
// growth rate and weekend ratio fall back to placeholders and the record is
// flagged.
func QueryItem(item string, mentions []model.Mention, daysBack int, asOf time.Time) (model.WindowMetrics, error) {
	if daysBack <= 0 {
		return model.WindowMetrics{}, eris.Errorf("aggregate: days back must be positive, got %d", daysBack)
	}

	cutoff := asOf.Add(-time.Duration(daysBack) * day)
	floor := asOf.Add(-2 * time.Duration(daysBack) * day)

	var recent []model.Mention
	older := 0
	latest := time.Time{}
	for _, m := range mentions {
		if m.Item != item || m.CreatedUTC.After(asOf) || m.CreatedUTC.Before(floor) {
			continue
		}
		if m.CreatedUTC.Before(cutoff) {
			older++
			continue
		}
		recent = append(recent, m)
		if m.CreatedUTC.After(latest) {
			latest = m.CreatedUTC
		}
	}

	if len(recent) == 0 {
		return model.WindowMetrics{}, &model.StageError{
			Stage: "query",
			ID:    item,
			Err:   eris.Wrapf(model.ErrInsufficientHistory, "no mentions in the last %d days", daysBack),
		}
	}

	wm := summarize(item, daysBack, recent, latest)
	wm.Velocity = float64(len(recent)) / float64(daysBack)
	if older == 0 {
		wm.GrowthRate = PlaceholderGrowthRate
		wm.WeekendRatio = PlaceholderWeekendRatio
		wm.Placeholder = true
	} else {
		wm.GrowthRate = GrowthRate(len(recent), older)
	}
	return wm, nil
}
