package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Min)
	assert.Zero(t, s.Max)
	assert.Zero(t, s.Mean)
	assert.Zero(t, s.Median)
	assert.Zero(t, s.SampleCount)
	assert.True(t, s.IsZero())
}

func TestSummarize_SingleValue(t *testing.T) {
	s := Summarize([]time.Duration{10 * time.Millisecond})

	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 10*time.Millisecond, s.Max)
	assert.Equal(t, 10*time.Millisecond, s.Mean)
	assert.Equal(t, 10*time.Millisecond, s.Median)
	assert.Equal(t, 1, s.SampleCount)
	assert.Zero(t, s.Stddev)
	assert.False(t, s.IsZero())
}

func TestSummarize_MultipleValues(t *testing.T) {
	s := Summarize([]time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	})

	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 50*time.Millisecond, s.Max)
	assert.Equal(t, 30*time.Millisecond, s.Mean)
	assert.Equal(t, 30*time.Millisecond, s.Median)
	assert.Equal(t, 5, s.SampleCount)
}

func TestSummarize_Unsorted(t *testing.T) {
	s := Summarize([]time.Duration{
		50 * time.Millisecond,
		10 * time.Millisecond,
		30 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	})

	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 50*time.Millisecond, s.Max)
	assert.Equal(t, 30*time.Millisecond, s.Median)
}

func TestSummarize_Percentiles(t *testing.T) {
	durations := make([]time.Duration, 100)
	for i := range durations {
		durations[i] = time.Duration(i+1) * time.Millisecond
	}
	s := Summarize(durations)

	assert.InDelta(t, float64(95*time.Millisecond), float64(s.P95), float64(time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(s.P99), float64(time.Millisecond))
}

func TestSummarize_Stddev(t *testing.T) {
	uniform := Summarize([]time.Duration{
		100 * time.Millisecond,
		100 * time.Millisecond,
		100 * time.Millisecond,
	})
	assert.Zero(t, uniform.Stddev)

	spread := Summarize([]time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	})
	assert.Greater(t, spread.Stddev, time.Duration(0))
}
