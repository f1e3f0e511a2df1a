package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sprklai/mesoclaw/internal/agent"
	"github.com/sprklai/mesoclaw/internal/backoff"
	"github.com/sprklai/mesoclaw/internal/sessions"
)

// JobRunnerConfig tunes the job-firing loop.
type JobRunnerConfig struct {
	TickInterval time.Duration // spec: once per second
	SoftTimeout  time.Duration // spec: 120s soft timeout per execution
}

// DefaultJobRunnerConfig matches the spec's stated defaults.
func DefaultJobRunnerConfig() JobRunnerConfig {
	return JobRunnerConfig{TickInterval: time.Second, SoftTimeout: 120 * time.Second}
}

// JobSink receives side effects produced by the job loop: a Notify
// payload's message (destined for the event bus / a channel) and every
// completed execution record (for external persistence or a UI push).
type JobSink interface {
	Notify(job *ScheduledJob, message string)
	Recorded(job *ScheduledJob, exec JobExecution)
}

// HeartbeatPrompt loads the current HEARTBEAT.md checklist content. Nil
// disables Heartbeat-payload jobs (they are skipped, not failed).
type HeartbeatPrompt func() (string, error)

// StartJobLoop launches the background firing loop. Idempotent: a second
// call is a no-op, matching the Scheduler trait's start() semantics.
func (s *Scheduler) StartJobLoop(ctx context.Context, cfg JobRunnerConfig, heartbeat HeartbeatPrompt, sink JobSink) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.SoftTimeout <= 0 {
		cfg.SoftTimeout = 120 * time.Second
	}
	s.jobLoopOnce.Do(func() {
		go s.runJobLoop(ctx, cfg, heartbeat, sink)
	})
}

func (s *Scheduler) runJobLoop(ctx context.Context, cfg JobRunnerConfig, heartbeat HeartbeatPrompt, sink JobSink) {
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.jobLoopStop:
			return
		case <-ticker.C:
			s.fireDue(ctx, cfg, heartbeat, sink)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context, cfg JobRunnerConfig, heartbeat HeartbeatPrompt, sink JobSink) {
	now := s.clock()

	s.jobsMu.Lock()
	var due []*ScheduledJob
	for _, j := range s.jobs {
		if j.Enabled && j.NextRun != nil && !j.NextRun.After(now) {
			due = append(due, j)
		}
	}
	s.jobsMu.Unlock()

	for _, job := range due {
		go s.fireOne(ctx, job, cfg, heartbeat, sink)
	}
}

// fireOne executes one due job and reschedules it. Reads job.NextRun as the
// canonical "scheduled fire time" basis for the next computation, so
// repeated back-to-back failures produce the cumulative offsets the spec's
// back-off scenario describes instead of drifting with execution latency.
func (s *Scheduler) fireOne(ctx context.Context, job *ScheduledJob, cfg JobRunnerConfig, heartbeat HeartbeatPrompt, sink JobSink) {
	s.jobsMu.Lock()
	current, ok := s.jobs[job.ID]
	var scheduledAt time.Time
	if ok && current.NextRun != nil {
		scheduledAt = *current.NextRun
	} else {
		scheduledAt = s.clock()
	}
	s.jobsMu.Unlock()
	if !ok {
		return
	}

	started := s.clock()
	runCtx, cancel := context.WithTimeout(ctx, cfg.SoftTimeout)
	defer cancel()

	status, output := s.runPayload(runCtx, job, heartbeat, sink)

	finished := s.clock()
	exec := JobExecution{JobID: job.ID, StartedAt: started, FinishedAt: finished, Status: status, Output: output}

	s.jobsMu.Lock()
	current, ok = s.jobs[job.ID]
	if ok {
		switch status {
		case JobSuccess:
			current.ErrorCount = 0
			if next, err := s.computeNextRun(current.Schedule, scheduledAt); err == nil {
				current.NextRun = &next
			} else {
				current.Enabled = false
				current.NextRun = nil
			}
		case JobFailed, JobStuck:
			current.ErrorCount++
			next := finished.Add(backoff.Duration(int(current.ErrorCount) - 1))
			current.NextRun = &next
		case JobSkipped:
			if next, err := s.computeNextRun(current.Schedule, scheduledAt); err == nil {
				current.NextRun = &next
			}
		}
		if ring, ok := s.history[job.ID]; ok {
			ring.push(exec)
		}
	}
	s.jobsMu.Unlock()

	if sink != nil {
		sink.Recorded(job, exec)
	}
}

func (s *Scheduler) runPayload(ctx context.Context, job *ScheduledJob, heartbeat HeartbeatPrompt, sink JobSink) (JobStatus, string) {
	switch job.Payload.Kind {
	case PayloadNotify:
		if sink != nil {
			sink.Notify(job, job.Payload.Message)
		}
		return JobSuccess, job.Payload.Message

	case PayloadHeartbeat, PayloadAgentTurn:
		prompt := job.Payload.Prompt
		if job.Payload.Kind == PayloadHeartbeat {
			if heartbeat == nil {
				return JobSkipped, "no heartbeat checklist configured"
			}
			content, err := heartbeat()
			if err != nil {
				return JobFailed, err.Error()
			}
			prompt = buildHeartbeatPrompt(ParseHeartbeatItems(content))
		}

		sessionKey := sessions.BuildCronSessionKey(job.AgentID, job.ID, uuid.NewString())
		outCh := s.Schedule(ctx, LaneCron, agent.RunRequest{
			SessionKey: sessionKey,
			Message:    prompt,
			RunID:      fmt.Sprintf("cron:%s", job.ID),
			TraceName:  fmt.Sprintf("cron %s", job.Name),
			TraceTags:  []string{"cron"},
		})
		select {
		case outcome := <-outCh:
			if outcome.Err != nil {
				return JobFailed, outcome.Err.Error()
			}
			if outcome.Result != nil {
				return JobSuccess, outcome.Result.Content
			}
			return JobSuccess, ""
		case <-ctx.Done():
			return JobStuck, "soft timeout exceeded"
		}

	default:
		return JobSkipped, "unknown payload"
	}
}

func buildHeartbeatPrompt(items []string) string {
	if len(items) == 0 {
		return "Run your periodic heartbeat check. No checklist items are configured."
	}
	var b strings.Builder
	b.WriteString("Run your periodic heartbeat check against the following checklist:\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}
