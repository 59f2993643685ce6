package model

import "time"

// Scaler is the fitted z-score normalization state. It is produced by the
// batch feature preparation and reapplied to single-item predictions.
type Scaler struct {
	Version  string    `json:"version"`
	Columns  []string  `json:"columns"`
	Mean     []float64 `json:"mean"`
	Std      []float64 `json:"std"`
	Rows     int       `json:"rows"`
	FittedAt time.Time `json:"fitted_at"`
}
