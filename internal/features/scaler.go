package features

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/model"
)

// Fit computes per-column mean and population standard deviation. A column
// with zero deviation keeps a divisor of 1 so it scales to 0.
func Fit(columns []string, rows [][]float64) model.Scaler {
	k := len(columns)
	mean := make([]float64, k)
	std := make([]float64, k)
	n := float64(len(rows))

	if len(rows) > 0 {
		for _, r := range rows {
			for j := 0; j < k; j++ {
				mean[j] += r[j]
			}
		}
		for j := range mean {
			mean[j] /= n
		}
		for _, r := range rows {
			for j := 0; j < k; j++ {
				d := r[j] - mean[j]
				std[j] += d * d
			}
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / math.Max(n, 1))
		if std[j] == 0 {
			std[j] = 1
		}
	}

	sc := model.Scaler{
		Columns:  append([]string(nil), columns...),
		Mean:     mean,
		Std:      std,
		Rows:     len(rows),
		FittedAt: time.Now().UTC(),
	}
	sc.Version = Version(sc)
	return sc
}

// Version is a content hash over the columns and fitted parameters. Two fits
// of the same batch share a version.
func Version(sc model.Scaler) string {
	h := sha256.New()
	for _, c := range sc.Columns {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	var buf [8]byte
	for _, vs := range [][]float64{sc.Mean, sc.Std} {
		for _, v := range vs {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Transform scales one metrics record with a previously fitted scaler. The
// scaler must have been fitted on the current column set.
func Transform(sc *model.Scaler, wm model.WindowMetrics) ([]float64, error) {
	if sc == nil {
		return nil, eris.New("features: scaler is nil")
	}
	if len(sc.Columns) != len(Columns) || len(sc.Mean) != len(Columns) || len(sc.Std) != len(Columns) {
		return nil, eris.Errorf("features: scaler %s has %d columns, want %d", sc.Version, len(sc.Columns), len(Columns))
	}
	for i, c := range Columns {
		if sc.Columns[i] != c {
			return nil, eris.Errorf("features: scaler %s column %d is %q, want %q", sc.Version, i, sc.Columns[i], c)
		}
	}
	return apply(*sc, Row(wm)), nil
}

func apply(sc model.Scaler, raw []float64) []float64 {
	out := make([]float64, len(raw))
	for j, v := range raw {
		std := sc.Std[j]
		if std == 0 {
			std = 1
		}
		out[j] = (v - sc.Mean[j]) / std
	}
	return out
}
