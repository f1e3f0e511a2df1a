package scheduler

import (
	"context"

	"github.com/sprklai/mesoclaw/internal/agent"
)

// Lane names a concurrency-limited execution pool. Agent runs submitted to
// the same lane share its concurrency ceiling; runs in different lanes never
// contend with each other.
type Lane string

const (
	LaneMain     Lane = "main"     // interactive channel messages
	LaneCron     Lane = "cron"     // scheduler-fired jobs
	LaneSubagent Lane = "subagent" // in-process sub-agent delegation
	LaneDelegate Lane = "delegate" // cross-agent handoff
)

// LaneConfig is the static concurrency ceiling for one lane.
type LaneConfig struct {
	Name          Lane
	MaxConcurrent int
}

// DefaultLanes matches the gateway's default lane layout: interactive
// traffic gets the most headroom, cron and delegation are capped tighter
// since they run unattended and should not starve interactive sessions.
func DefaultLanes() []LaneConfig {
	return []LaneConfig{
		{Name: LaneMain, MaxConcurrent: 8},
		{Name: LaneCron, MaxConcurrent: 2},
		{Name: LaneSubagent, MaxConcurrent: 4},
		{Name: LaneDelegate, MaxConcurrent: 4},
	}
}

// QueueConfig bounds how many pending runs a lane may buffer before
// Schedule blocks the caller.
type QueueConfig struct {
	Capacity int
}

// DefaultQueueConfig matches the gateway's default.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Capacity: 64}
}

// ScheduleOpts overrides lane defaults for a single call.
type ScheduleOpts struct {
	// MaxConcurrent overrides the lane's configured ceiling for the
	// duration of this run's admission decision; 0 keeps the lane default.
	MaxConcurrent int
}

// RunFunc executes one agent turn. The scheduler never interprets the
// request itself — it only governs when and how many run concurrently.
type RunFunc func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error)

// Outcome is delivered on the channel returned by Schedule once a run
// completes (or fails to ever start, e.g. context cancelled while queued).
type Outcome struct {
	Result *agent.RunResult
	Err    error
}

type lane struct {
	cfg  LaneConfig
	sem  chan struct{} // capacity == effective MaxConcurrent
	jobs chan func()   // bounded pending-work queue
}

func newLane(cfg LaneConfig, queueCapacity int) *lane {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	l := &lane{
		cfg:  cfg,
		sem:  make(chan struct{}, cfg.MaxConcurrent),
		jobs: make(chan func(), queueCapacity),
	}
	go l.drain()
	return l
}

func (l *lane) drain() {
	for job := range l.jobs {
		l.sem <- struct{}{}
		go func(job func()) {
			defer func() { <-l.sem }()
			job()
		}(job)
	}
}

func (l *lane) submit(job func()) {
	l.jobs <- job
}
