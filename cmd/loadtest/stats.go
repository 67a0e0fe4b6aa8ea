package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// configStats collects the outcome of requests sent under one scoring
// configuration.
type configStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	errors    int
	cacheHits int
	codes     map[int]int
}

func newConfigStats() *configStats {
	return &configStats{codes: make(map[int]int)}
}

func (s *configStats) record(d time.Duration, status int, cacheHit bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errors++
		return
	}
	s.codes[status]++
	if status < 200 || status >= 300 {
		s.errors++
		return
	}
	s.latencies = append(s.latencies, d)
	if cacheHit {
		s.cacheHits++
	}
}

type summary struct {
	Requests  int
	Errors    int
	CacheHits int
	Min       time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration
	StdDev    time.Duration
}

func (s *configStats) summarize() summary {
	s.mu.Lock()
	latencies := append([]time.Duration(nil), s.latencies...)
	sum := summary{Errors: s.errors, CacheHits: s.cacheHits}
	s.mu.Unlock()

	sum.Requests = len(latencies) + sum.Errors
	if len(latencies) == 0 {
		return sum
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	sum.Min = latencies[0]
	sum.Max = latencies[len(latencies)-1]
	sum.P50 = percentile(latencies, 50)
	sum.P95 = percentile(latencies, 95)
	sum.P99 = percentile(latencies, 99)

	var total float64
	for _, l := range latencies {
		total += float64(l)
	}
	mean := total / float64(len(latencies))
	var sq float64
	for _, l := range latencies {
		diff := float64(l) - mean
		sq += diff * diff
	}
	sum.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
	return sum
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func printReport(w io.Writer, names []string, stats map[string]*configStats, elapsed time.Duration) int {
	fmt.Fprintf(w, "%-18s %8s %7s %7s %10s %10s %10s %10s\n", "config", "requests", "errors", "cached", "p50", "p95", "p99", "max")
	total := 0
	for _, name := range names {
		s := stats[name].summarize()
		total += s.Requests
		fmt.Fprintf(w, "%-18s %8d %7d %7d %10s %10s %10s %10s\n",
			name, s.Requests, s.Errors, s.CacheHits,
			s.P50.Round(time.Microsecond), s.P95.Round(time.Microsecond),
			s.P99.Round(time.Microsecond), s.Max.Round(time.Microsecond))
	}
	if elapsed > 0 {
		fmt.Fprintf(w, "\ntotal %d requests, %.1f req/s\n", total, float64(total)/elapsed.Seconds())
	}
	return total
}
