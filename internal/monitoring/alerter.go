package monitoring

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate AlertType = "failure_rate"
	AlertStaleData   AlertType = "stale_predictions"
	AlertNoPosts     AlertType = "no_posts"
	AlertLastFailed  AlertType = "last_run_failed"
)

// Alert is a single health finding.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds.
type Alerter struct {
	cfg config.MonitoringConfig
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{cfg: cfg}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt

	if snap.PostsStored == 0 {
		alerts = append(alerts, Alert{
			Type:      AlertNoPosts,
			Severity:  "high",
			Message:   "No posts stored, run collect first",
			Timestamp: now,
		})
	}

	if snap.LastRun != nil && snap.LastRun.Status == model.RunStatusFailed {
		alerts = append(alerts, Alert{
			Type:     AlertLastFailed,
			Severity: "high",
			Message:  fmt.Sprintf("Last run %s failed: %s", snap.LastRun.ID, snap.LastRun.Error),
			Details: map[string]any{
				"run_id": snap.LastRun.ID,
			},
			Timestamp: now,
		})
	}

	finished := snap.RunsComplete + snap.RunsEmpty + snap.RunsFailed
	if finished >= 3 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"fail_rate": snap.FailRate,
				"threshold": a.cfg.FailureRateThreshold,
				"failed":    snap.RunsFailed,
				"finished":  finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.StaleAfterHours > 0 {
		staleAfter := time.Duration(a.cfg.StaleAfterHours) * time.Hour
		switch {
		case snap.LastSuccess == nil:
			alerts = append(alerts, Alert{
				Type:      AlertStaleData,
				Severity:  "medium",
				Message:   "No successful run recorded",
				Timestamp: now,
			})
		case now.Sub(snap.LastSuccess.UpdatedAt) > staleAfter:
			age := now.Sub(snap.LastSuccess.UpdatedAt)
			alerts = append(alerts, Alert{
				Type:     AlertStaleData,
				Severity: "medium",
				Message: fmt.Sprintf("Predictions are %.0fh old (threshold %dh)",
					age.Hours(), a.cfg.StaleAfterHours),
				Details: map[string]any{
					"last_success": snap.LastSuccess.ID,
					"age_hours":    age.Hours(),
				},
				Timestamp: now,
			})
		}
	}

	for _, al := range alerts {
		zap.L().Debug("monitoring: alert",
			zap.String("type", string(al.Type)),
			zap.String("severity", al.Severity),
		)
	}
	return alerts
}
