package data

type CacheCounters struct {
	CounterHits   map[string]int `json:"counter_hits,omitempty"`
	CounterMisses map[string]int `json:"counter_misses,omitempty"`
}

// Timers holds the total and average nanoseconds spent per endpoint
type Timers struct {
	Totals   map[string]int64 `json:"totals,omitempty"`
	Averages map[string]int64 `json:"averages,omitempty"`
}
