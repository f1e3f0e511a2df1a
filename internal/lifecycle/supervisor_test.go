package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/sprklai/mesoclaw/internal/bus"
)

func newTestSupervisor(t *testing.T) (*Supervisor, *bus.LifecycleEventBus) {
	t.Helper()
	eb := bus.NewLifecycleEventBus()
	cfg := SupervisorConfig{
		HeartbeatInterval:   20 * time.Millisecond,
		StuckThreshold:      2,
		HealthCheckInterval: 10 * time.Millisecond,
		DeepCheckInterval:   time.Hour, // disabled for most tests
		// MaxRetries 0 means recover() skips Tier 1's wait and goes straight
		// to Tier 2, keeping TestStuckThenTransferAgent fast; the 30s+
		// back-off floor in internal/backoff is exercised by backoff_test.go
		// and by the escalation manager's own default (3) used elsewhere.
		Escalation: EscalationConfig{MaxRetries: 0},
	}
	sup, err := NewSupervisor(cfg, eb)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	return sup, eb
}

func TestSpawnResourceEmitsStartedAndRegistersRunning(t *testing.T) {
	sup, eb := newTestSupervisor(t)
	sup.RegisterHandler(NewAgentHandler())
	sub := eb.Subscribe()
	defer sub.Unsubscribe()

	id, err := sup.SpawnResource(context.Background(), ResourceAgent, ResourceConfig{ProviderID: "openai"})
	if err != nil {
		t.Fatalf("SpawnResource: %v", err)
	}

	instance, ok := sup.Get(id)
	if !ok {
		t.Fatal("expected instance to be registered")
	}
	if instance.State != StateRunning {
		t.Fatalf("state = %s, want running", instance.State)
	}

	select {
	case ev := <-sub.Events:
		if ev.Type != bus.EventResourceStarted {
			t.Fatalf("got event %s, want resource_started", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ResourceStarted")
	}
}

func TestSpawnResourceFailsWithoutHandler(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	if _, err := sup.SpawnResource(context.Background(), ResourceChannel, ResourceConfig{}); err == nil {
		t.Fatal("expected error when no handler is registered")
	}
}

func TestRecordHeartbeatIgnoredForUnknownResource(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	sup.RecordHeartbeat(ResourceID{Type: ResourceAgent, InstanceID: "does-not-exist"})
}

func TestUpdateProgressRejectsInvalidSubstate(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	sup.RegisterHandler(NewAgentHandler())

	id, err := sup.SpawnResource(context.Background(), ResourceAgent, ResourceConfig{ProviderID: "openai"})
	if err != nil {
		t.Fatalf("SpawnResource: %v", err)
	}

	if err := sup.UpdateProgress(id, 0.5, "not_a_real_substate"); err == nil {
		t.Fatal("expected error for invalid substate")
	}
	if err := sup.UpdateProgress(id, 0.5, "thinking"); err != nil {
		t.Fatalf("UpdateProgress with valid substate: %v", err)
	}
}

// TestStuckThenTransferAgent covers spec scenario 1: an agent that never
// heartbeats must be marked Stuck within heartbeat_interval*stuck_threshold,
// then transferred to a fallback provider and reach Recovered.
func TestStuckThenTransferAgent(t *testing.T) {
	sup, eb := newTestSupervisor(t)
	sup.RegisterHandler(NewAgentHandlerWithFallbacks([]string{"P2"}))
	sub := eb.Subscribe()
	defer sub.Unsubscribe()

	id, err := sup.SpawnResource(context.Background(), ResourceAgent, ResourceConfig{ProviderID: "P1"})
	if err != nil {
		t.Fatalf("SpawnResource: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.StartMonitoring(ctx)

	var sawTransferring, sawRecovered bool
	deadline := time.After(3 * time.Second)
	for !sawTransferring || !sawRecovered {
		select {
		case ev := <-sub.Events:
			switch ev.Type {
			case bus.EventResourceTransferring:
				if ev.FromID.Instance == id.InstanceID {
					sawTransferring = true
				}
			case bus.EventResourceRecovered:
				if ev.Tier == uint8(TierFallback) {
					sawRecovered = true
				}
			}
		case <-deadline:
			t.Fatalf("timed out: sawTransferring=%v sawRecovered=%v", sawTransferring, sawRecovered)
		}
	}
}

func TestStopResourceTransitionsToCompleted(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	sup.RegisterHandler(NewToolHandler())

	id, err := sup.SpawnResource(context.Background(), ResourceTool, ResourceConfig{ToolName: "exec"})
	if err != nil {
		t.Fatalf("SpawnResource: %v", err)
	}

	if err := sup.StopResource(context.Background(), id); err != nil {
		t.Fatalf("StopResource: %v", err)
	}

	instance, ok := sup.Get(id)
	if !ok {
		t.Fatal("expected instance to remain queryable after completion")
	}
	if instance.State != StateCompleted {
		t.Fatalf("state = %s, want completed", instance.State)
	}
}

func TestKillResourceTransitionsToFailed(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	sup.RegisterHandler(NewSchedulerJobHandler())

	id, err := sup.SpawnResource(context.Background(), ResourceSchedulerJob, ResourceConfig{})
	if err != nil {
		t.Fatalf("SpawnResource: %v", err)
	}

	_ = sup.KillResource(context.Background(), id)

	instance, ok := sup.Get(id)
	if !ok {
		t.Fatal("expected instance to remain queryable after failure")
	}
	if instance.State != StateFailed {
		t.Fatalf("state = %s, want failed", instance.State)
	}
}

func TestRequestInterventionBlocksUntilResolved(t *testing.T) {
	sup, _ := newTestSupervisor(t)

	done := make(chan InterventionResolution, 1)
	go func() {
		resolution, err := sup.RequestIntervention(context.Background(), UserInterventionRequest{
			Resource: ResourceID{Type: ResourceAgent, InstanceID: "a1"},
			Reason:   "stuck",
		})
		if err != nil {
			t.Errorf("RequestIntervention: %v", err)
			return
		}
		done <- resolution
	}()

	time.Sleep(20 * time.Millisecond)
	sup.interventionsMu.Lock()
	var requestID string
	for id := range sup.interventions {
		requestID = id
	}
	sup.interventionsMu.Unlock()
	if requestID == "" {
		t.Fatal("expected a pending intervention request")
	}

	sup.ResolveIntervention(InterventionResolution{RequestID: requestID, SelectedOption: "fallback_P2"})

	select {
	case resolution := <-done:
		if resolution.SelectedOption != "fallback_P2" {
			t.Fatalf("selected option = %q, want fallback_P2", resolution.SelectedOption)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for intervention to resolve")
	}
}
