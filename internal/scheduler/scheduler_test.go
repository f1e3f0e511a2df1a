package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sprklai/mesoclaw/internal/agent"
)

func TestScheduleRunsThroughRunFunc(t *testing.T) {
	called := make(chan agent.RunRequest, 1)
	sched := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		called <- req
		return &agent.RunResult{Content: "ok"}, nil
	})

	outCh := sched.Schedule(context.Background(), LaneMain, agent.RunRequest{SessionKey: "s1", Message: "hi"})

	select {
	case outcome := <-outCh:
		if outcome.Err != nil {
			t.Fatalf("unexpected error: %v", outcome.Err)
		}
		if outcome.Result.Content != "ok" {
			t.Fatalf("content = %q, want ok", outcome.Result.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outcome")
	}

	select {
	case req := <-called:
		if req.SessionKey != "s1" {
			t.Fatalf("session key = %q, want s1", req.SessionKey)
		}
	default:
		t.Fatal("runFunc was never invoked")
	}
}

func TestLaneLimitsConcurrency(t *testing.T) {
	var current, maxObserved int32
	runFunc := func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			m := atomic.LoadInt32(&maxObserved)
			if n <= m || atomic.CompareAndSwapInt32(&maxObserved, m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return &agent.RunResult{}, nil
	}

	sched := NewScheduler([]LaneConfig{{Name: LaneMain, MaxConcurrent: 2}}, DefaultQueueConfig(), runFunc)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outCh := sched.ScheduleWithOpts(context.Background(), LaneMain, agent.RunRequest{
				SessionKey: "shared-session",
			}, ScheduleOpts{MaxConcurrent: n}) // raise the session ceiling so only the lane limits concurrency
			<-outCh
		}(i)
	}
	wg.Wait()

	if atomic.LoadInt32(&maxObserved) > 2 {
		t.Errorf("observed %d concurrent runs, want at most 2 (lane ceiling)", maxObserved)
	}
}

func TestSessionSerializationDefaultsToOne(t *testing.T) {
	var current, maxObserved int32
	runFunc := func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			m := atomic.LoadInt32(&maxObserved)
			if n <= m || atomic.CompareAndSwapInt32(&maxObserved, m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return &agent.RunResult{}, nil
	}

	sched := NewScheduler(DefaultLanes(), DefaultQueueConfig(), runFunc)

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outCh := sched.Schedule(context.Background(), LaneMain, agent.RunRequest{SessionKey: "same-session"})
			<-outCh
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&maxObserved) > 1 {
		t.Errorf("observed %d concurrent runs for one session, want at most 1", maxObserved)
	}
}

func TestAddJobRemoveJobListJobs(t *testing.T) {
	sched := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		return &agent.RunResult{}, nil
	})

	id, err := sched.AddJob(ScheduledJob{Name: "every-minute", Schedule: IntervalSchedule(60), Enabled: true})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	jobs := sched.ListJobs()
	if len(jobs) != 1 || jobs[0].ID != id {
		t.Fatalf("ListJobs = %+v, want one job with id %s", jobs, id)
	}

	if !sched.RemoveJob(id) {
		t.Fatal("RemoveJob returned false for an existing job")
	}
	if sched.RemoveJob(id) {
		t.Fatal("RemoveJob returned true for an already-removed job")
	}
	if len(sched.ListJobs()) != 0 {
		t.Fatal("expected no jobs after removal")
	}
}

func TestAddJobRejectsInvalidCron(t *testing.T) {
	sched := NewScheduler(DefaultLanes(), DefaultQueueConfig(), nil)
	if _, err := sched.AddJob(ScheduledJob{Name: "bad", Schedule: CronSchedule("not a cron"), Enabled: true}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

// TestSchedulerBackoffCumulativeOffsets covers spec scenario 3: a failing
// Interval job must fire at t, t+30, t+90, t+390, t+1290, t+4890 (the
// shared back-off table applied cumulatively from the first failure).
func TestSchedulerBackoffCumulativeOffsets(t *testing.T) {
	cur := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	sched := NewScheduler(DefaultLanes(), DefaultQueueConfig(), func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
		return nil, errors.New("job always fails")
	})
	sched.clock = func() time.Time { return cur }

	jobID, err := sched.AddJob(ScheduledJob{
		Name:     "always-fails",
		Schedule: IntervalSchedule(1),
		Payload:  JobPayload{Kind: PayloadAgentTurn, Prompt: "check"},
		Enabled:  true,
		AgentID:  "test-agent",
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	cfg := DefaultJobRunnerConfig()
	offsets := []time.Duration{30 * time.Second, 60 * time.Second, 300 * time.Second, 900 * time.Second, 3600 * time.Second}

	sched.jobsMu.Lock()
	job := sched.jobs[jobID]
	sched.jobsMu.Unlock()

	var firstFire time.Time
	var cumulative time.Duration
	for i := 0; i <= len(offsets); i++ {
		sched.jobsMu.Lock()
		next := *sched.jobs[jobID].NextRun
		sched.jobsMu.Unlock()
		cur = next

		if i == 0 {
			firstFire = cur
		} else {
			want := firstFire.Add(cumulative)
			if !cur.Equal(want) {
				t.Fatalf("execution %d at %v, want %v", i, cur, want)
			}
		}

		sched.fireOne(context.Background(), job, cfg, nil, nil)

		if i < len(offsets) {
			cumulative += offsets[i]
		}
	}

	history := sched.JobHistory(jobID)
	if len(history) != len(offsets)+1 {
		t.Fatalf("history has %d entries, want %d", len(history), len(offsets)+1)
	}
	for _, exec := range history {
		if exec.Status != JobFailed {
			t.Errorf("execution status = %s, want failed", exec.Status)
		}
	}
}
