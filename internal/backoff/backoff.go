// Package backoff provides the fixed exponential back-off table shared by
// the lifecycle supervisor's Tier 1 retry ladder and the scheduler's
// failing-job back-off.
package backoff

import "time"

// Table is the shared back-off ladder in seconds: 30s, 1m, 5m, 15m, 1h,
// then steady-state at 1h.
var Table = []int{30, 60, 300, 900, 3600}

// Seconds returns the back-off delay in seconds for the given attempt
// number (0-indexed). Attempts beyond the table length repeat the final
// (steady-state) entry.
func Seconds(attempt int) int {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(Table) {
		return Table[len(Table)-1]
	}
	return Table[attempt]
}

// Duration is Seconds as a time.Duration.
func Duration(attempt int) time.Duration {
	return time.Duration(Seconds(attempt)) * time.Second
}
