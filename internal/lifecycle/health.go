package lifecycle

import "time"

// Health loop timing constants (spec §4.1 defaults).
const (
	HealthCheckInterval = 5 * time.Second
	DeepCheckInterval   = 60 * time.Second
	HeartbeatInterval   = 10 * time.Second
	StuckThreshold      = 3 // missed heartbeats before a resource is Stuck
	MaxRetries          = 3 // Tier 1 attempts before Tier 2 fallback
)

// StuckTimeout is the maximum time a Running resource may go without a
// heartbeat before the health loop marks it Stuck.
func StuckTimeout(heartbeatInterval time.Duration, stuckThreshold int) time.Duration {
	return heartbeatInterval * time.Duration(stuckThreshold)
}
