package botmetrics

import (
	"sort"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

// CurvePoint is precision and recall for one score threshold, treating
// score > threshold as a removal prediction.
type CurvePoint struct {
	Threshold float64
	Precision float64
	Recall    float64
	Flags     int
}

// Curve is a precision-recall sweep for one score column.
type Curve struct {
	Model  string
	Points []CurvePoint
}

// DefaultThresholds covers the usual operating range.
var DefaultThresholds = []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99}

// ComputeCurves sweeps thresholds over every score column present in the
// records, using moderator removal as the label. Records without a removed
// status or without the given score are skipped for that column.
func ComputeCurves(records []domain.ReconciledRecord, thresholds []float64) []Curve {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}

	models := make(map[string]bool)
	for _, rec := range records {
		for model := range rec.Scores {
			models[model] = true
		}
	}

	curves := make([]Curve, 0, len(models))
	for model := range models {
		curve := Curve{Model: model}
		for _, th := range thresholds {
			var tp, fp, fn int
			for _, rec := range records {
				if rec.Status.Removed == nil {
					continue
				}
				score, ok := rec.Scores[model]
				if !ok {
					continue
				}
				flagged := score > th
				removed := *rec.Status.Removed
				switch {
				case flagged && removed:
					tp++
				case flagged && !removed:
					fp++
				case !flagged && removed:
					fn++
				}
			}
			curve.Points = append(curve.Points, CurvePoint{
				Threshold: th,
				Precision: ratio(tp, tp+fp),
				Recall:    ratio(tp, tp+fn),
				Flags:     tp + fp,
			})
		}
		curves = append(curves, curve)
	}
	sort.Slice(curves, func(i, j int) bool { return curves[i].Model < curves[j].Model })
	return curves
}
