package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sprklai/mesoclaw/internal/agent"
	"github.com/sprklai/mesoclaw/internal/backoff"
	"github.com/sprklai/mesoclaw/internal/sessions"
)

// Scheduler is both the lane-based agent-run dispatcher (Schedule/
// ScheduleWithOpts) and the registered-job ticker (AddJob/RemoveJob/
// StartJobLoop): the former governs *how many* agent turns run at once,
// the latter governs *when* a job's turn is submitted to it.
type Scheduler struct {
	runFunc  RunFunc
	queueCfg QueueConfig

	lanesMu sync.Mutex
	lanes   map[Lane]*lane

	sessionMu   sync.Mutex
	sessionSems map[string]chan struct{}

	cancelMu      sync.Mutex
	cancelSeq     uint64
	activeCancels map[string][]cancelHandle

	tokenEstimateFunc func(sessionKey string) (used, window int)

	jobsMu      sync.Mutex
	jobs        map[JobID]*ScheduledJob
	history     map[JobID]*historyRing
	historySize int

	jobLoopOnce sync.Once
	jobLoopStop chan struct{}

	clock func() time.Time
}

// NewScheduler creates a scheduler with the given lane layout, queue
// capacity, and the function used to actually execute an agent turn.
func NewScheduler(lanes []LaneConfig, queueCfg QueueConfig, runFunc RunFunc) *Scheduler {
	s := &Scheduler{
		runFunc:     runFunc,
		queueCfg:    queueCfg,
		lanes:         make(map[Lane]*lane, len(lanes)),
		sessionSems:   make(map[string]chan struct{}),
		activeCancels: make(map[string][]cancelHandle),
		jobs:        make(map[JobID]*ScheduledJob),
		history:     make(map[JobID]*historyRing),
		historySize: 100,
		jobLoopStop: make(chan struct{}),
		clock:       time.Now,
	}
	for _, cfg := range lanes {
		s.lanes[cfg.Name] = newLane(cfg, queueCfg.Capacity)
	}
	return s
}

// SetTokenEstimateFunc installs the adaptive-throttle hook: given a session
// key, it reports the session's estimated prompt tokens used and its
// provider's context window. When a session is close to its context limit,
// Schedule reduces that session's effective concurrency to 1 regardless of
// the caller's requested MaxConcurrent, so a summarization pass never races
// a second concurrent run against the same history.
func (s *Scheduler) SetTokenEstimateFunc(f func(sessionKey string) (used, window int)) {
	s.tokenEstimateFunc = f
}

func (s *Scheduler) laneFor(name Lane) *lane {
	s.lanesMu.Lock()
	defer s.lanesMu.Unlock()
	l, ok := s.lanes[name]
	if !ok {
		l = newLane(LaneConfig{Name: name, MaxConcurrent: 1}, s.queueCfg.Capacity)
		s.lanes[name] = l
	}
	return l
}

func (s *Scheduler) sessionSem(key string, maxConcurrent int) chan struct{} {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	sem, ok := s.sessionSems[key]
	if !ok || cap(sem) != maxConcurrent {
		sem = make(chan struct{}, maxConcurrent)
		s.sessionSems[key] = sem
	}
	return sem
}

// Schedule submits req to laneName with the lane's default concurrency and
// per-session serialization (at most one in-flight run per session key).
func (s *Scheduler) Schedule(ctx context.Context, laneName Lane, req agent.RunRequest) <-chan Outcome {
	return s.ScheduleWithOpts(ctx, laneName, req, ScheduleOpts{})
}

// ScheduleWithOpts submits req to laneName, applying opts.MaxConcurrent as
// the session-level concurrency ceiling (default 1, meaning strict
// per-session ordering) instead of the package default.
func (s *Scheduler) ScheduleWithOpts(ctx context.Context, laneName Lane, req agent.RunRequest, opts ScheduleOpts) <-chan Outcome {
	out := make(chan Outcome, 1)

	maxConcurrent := opts.MaxConcurrent
	if s.tokenEstimateFunc != nil {
		if used, window := s.tokenEstimateFunc(req.SessionKey); window > 0 && float64(used)/float64(window) > 0.8 {
			maxConcurrent = 1
		}
	}
	sem := s.sessionSem(req.SessionKey, maxConcurrent)
	l := s.laneFor(laneName)

	runCtx, cancel := context.WithCancel(ctx)
	handleID := s.registerCancel(req.SessionKey, cancel)

	l.submit(func() {
		defer s.unregisterCancel(req.SessionKey, handleID)

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-runCtx.Done():
			out <- Outcome{Err: runCtx.Err()}
			return
		}

		select {
		case <-runCtx.Done():
			out <- Outcome{Err: runCtx.Err()}
			return
		default:
		}

		result, err := s.runFunc(runCtx, req)
		out <- Outcome{Result: result, Err: err}
	})

	return out
}

// cancelHandle pairs a cancel func with a monotonic id so a single entry
// can be removed from activeCancels without relying on func comparability.
type cancelHandle struct {
	id     uint64
	cancel context.CancelFunc
}

func (s *Scheduler) registerCancel(sessionKey string, cancel context.CancelFunc) uint64 {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	s.cancelSeq++
	id := s.cancelSeq
	s.activeCancels[sessionKey] = append(s.activeCancels[sessionKey], cancelHandle{id: id, cancel: cancel})
	return id
}

func (s *Scheduler) unregisterCancel(sessionKey string, id uint64) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	handles := s.activeCancels[sessionKey]
	for i, h := range handles {
		if h.id == id {
			s.activeCancels[sessionKey] = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(s.activeCancels[sessionKey]) == 0 {
		delete(s.activeCancels, sessionKey)
	}
}

// CancelOneSession cancels the oldest active run for sessionKey (matching
// a "/stop" command). Returns false if no run is active.
func (s *Scheduler) CancelOneSession(sessionKey string) bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	handles := s.activeCancels[sessionKey]
	if len(handles) == 0 {
		return false
	}
	handles[0].cancel()
	return true
}

// CancelSession cancels every active run for sessionKey (matching a
// "/stopall" command). Returns false if none were active.
func (s *Scheduler) CancelSession(sessionKey string) bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	handles := s.activeCancels[sessionKey]
	if len(handles) == 0 {
		return false
	}
	for _, h := range handles {
		h.cancel()
	}
	return true
}

// Stop halts the job-firing loop. Lanes keep draining any work already
// queued; it does not cancel in-flight runs.
func (s *Scheduler) Stop() {
	select {
	case <-s.jobLoopStop:
	default:
		close(s.jobLoopStop)
	}
}

// AddJob registers (or replaces, if ID is already set and present) a job and
// computes its initial NextRun. Returns the assigned JobID.
func (s *Scheduler) AddJob(job ScheduledJob) (JobID, error) {
	if job.Schedule.Kind == ScheduleCron {
		if err := ValidateCronExpr(job.Schedule.Expr); err != nil {
			return "", err
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	now := s.clock()
	next, err := s.computeNextRun(job.Schedule, now)
	if err != nil {
		// Runtime-invalid cron (e.g. discovered only after parsing edge
		// cases gronx itself rejects): treat as permanently disabled per
		// the spec's runtime-invalid handling, rather than failing the add.
		job.Enabled = false
	} else {
		job.NextRun = &next
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	jobCopy := job
	s.jobs[job.ID] = &jobCopy
	if _, ok := s.history[job.ID]; !ok {
		s.history[job.ID] = newHistoryRing(s.historySize)
	}
	return job.ID, nil
}

// RemoveJob deletes a job by id. Returns true if it existed.
func (s *Scheduler) RemoveJob(id JobID) bool {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	delete(s.history, id)
	return true
}

// ListJobs returns a snapshot of every registered job.
func (s *Scheduler) ListJobs() []ScheduledJob {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	out := make([]ScheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// JobHistory returns a job's execution history, most recent first.
func (s *Scheduler) JobHistory(id JobID) []JobExecution {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	ring, ok := s.history[id]
	if !ok {
		return nil
	}
	return ring.list()
}

func (s *Scheduler) computeNextRun(sched Schedule, after time.Time) (time.Time, error) {
	switch sched.Kind {
	case ScheduleInterval:
		return after.Add(time.Duration(sched.Secs) * time.Second), nil
	case ScheduleCron:
		return NextCronRun(sched.Expr, after)
	default:
		return time.Time{}, fmt.Errorf("scheduler: unknown schedule kind")
	}
}
