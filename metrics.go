package qat

import "sync/atomic"

// LatencyBuckets are latency histogram upper bounds, in nanoseconds,
// covering 1us..10s with logarithmic spacing. A sample is counted only in
// the first bucket whose bound it does not exceed; samples above 10s are
// counted in no bucket.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Stats holds the per-queue-pair counters from the data model's Queue Pair
// `stats` field: enqueued/dequeued/error counts plus a latency histogram.
type Stats struct {
	Enqueued     atomic.Uint64
	Dequeued     atomic.Uint64
	EnqueueErr   atomic.Uint64
	DequeueErr   atomic.Uint64
	AuthFailures atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64
	OpCount        atomic.Uint64
	TotalLatencyNs atomic.Uint64
}

// RecordLatency adds a completion's end-to-end latency into the histogram
// and running total, used when the caller tracks enqueue→dequeue timing.
func (s *Stats) RecordLatency(latencyNs uint64) {
	s.OpCount.Add(1)
	s.TotalLatencyNs.Add(latencyNs)
	for i, bound := range LatencyBuckets {
		if latencyNs <= bound {
			s.LatencyBuckets[i].Add(1)
			return
		}
	}
}

// MeanLatencyNs returns the running mean latency, or 0 if no samples yet.
func (s *Stats) MeanLatencyNs() uint64 {
	n := s.OpCount.Load()
	if n == 0 {
		return 0
	}
	return s.TotalLatencyNs.Load() / n
}
