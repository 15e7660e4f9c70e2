package bench

import (
	"math"
	"slices"
	"time"
)

// TimingSummary aggregates one category of per-operation timings (raw
// storage, serialization, raw loading, deserialization) over a whole run.
type TimingSummary struct {
	Min         time.Duration
	Max         time.Duration
	Mean        time.Duration
	Median      time.Duration
	Stddev      time.Duration
	P95         time.Duration
	P99         time.Duration
	SampleCount int
}

// Summarize computes the summary of a set of durations. An empty input
// yields the zero summary.
func Summarize(durations []time.Duration) TimingSummary {
	if len(durations) == 0 {
		return TimingSummary{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	s := TimingSummary{
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		Median:      percentile(sorted, 50),
		P95:         percentile(sorted, 95),
		P99:         percentile(sorted, 99),
		SampleCount: len(sorted),
	}

	var sum int64
	for _, d := range sorted {
		sum += int64(d)
	}
	s.Mean = time.Duration(sum / int64(len(sorted)))

	if len(sorted) > 1 {
		var sumSquares float64
		mean := float64(s.Mean)
		for _, d := range sorted {
			diff := float64(d) - mean
			sumSquares += diff * diff
		}
		s.Stddev = time.Duration(math.Sqrt(sumSquares / float64(len(sorted)-1)))
	}

	return s
}

// IsZero reports whether the summary holds no samples.
func (s TimingSummary) IsZero() bool { return s.SampleCount == 0 }

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := float64(p) / 100 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := rank - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}
