// Package measure implements the measurement harness: warmup-then-measure
// timing, and a validity oracle that checks simulated execution against
// real chain receipts.
package measure

import (
	"time"
)

// Measurement is the outcome of MeasureExecutionTime: n calls sampled after
// warmup, with the mean duration per call.
type Measurement struct {
	Samples int
	Mean    time.Duration
	Total   time.Duration
}

// MeasureExecutionTime runs fn warmupCount times to prime caches/backends,
// then runs it measureCount more times, returning the mean duration of the
// measured (post-warmup) calls only.
func MeasureExecutionTime(warmupCount, measureCount int, fn func() error) (Measurement, error) {
	for i := 0; i < warmupCount; i++ {
		if err := fn(); err != nil {
			return Measurement{}, err
		}
	}

	start := time.Now()
	for i := 0; i < measureCount; i++ {
		if err := fn(); err != nil {
			return Measurement{}, err
		}
	}
	total := time.Since(start)

	mean := time.Duration(0)
	if measureCount > 0 {
		mean = total / time.Duration(measureCount)
	}
	return Measurement{Samples: measureCount, Mean: mean, Total: total}, nil
}
