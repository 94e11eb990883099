package aggregator

import (
	"github.com/aclements/go-moremath/stats"
)

// Summary condenses a dataset into the figures shown after a sweep point.
type Summary struct {
	Metadata
	Samples int `json:"samples"`
	// Unsuccessful counts the cycles that reserved no slot and were
	// therefore not sampled.
	Unsuccessful int64 `json:"unsuccessful"`

	MeanData   float64 `json:"mean_data"`
	StdDevData float64 `json:"stddev_data"`
	P50Data    float64 `json:"p50_data"`
	P99Data    float64 `json:"p99_data"`

	MeanRequiredRounds float64 `json:"mean_required_rounds"`
	MeanCollisions     float64 `json:"mean_collisions"`
	MeanEmptySlots     float64 `json:"mean_empty_slots"`
}

// Summarize computes a Summary of the rows recorded so far. An empty
// dataset yields zero figures.
func (d *RoundDataset) Summarize() Summary {
	records := d.Records()
	s := Summary{Metadata: d.meta, Samples: len(records), Unsuccessful: d.Unsuccessful()}
	if len(records) == 0 {
		return s
	}

	data := &stats.Sample{Xs: make([]float64, 0, len(records))}
	var rounds, collisions, empty float64
	for _, r := range records {
		data.Xs = append(data.Xs, r.Data)
		rounds += float64(r.RequiredRounds)
		collisions += float64(r.Collisions)
		empty += float64(r.EmptySlots)
	}
	data.Sort()

	n := float64(len(records))
	s.MeanData = data.Mean()
	if len(records) > 1 {
		s.StdDevData = data.StdDev()
	}
	s.P50Data = data.Quantile(0.5)
	s.P99Data = data.Quantile(0.99)
	s.MeanRequiredRounds = rounds / n
	s.MeanCollisions = collisions / n
	s.MeanEmptySlots = empty / n
	return s
}
