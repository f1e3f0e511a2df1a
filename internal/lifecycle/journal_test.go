package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/sprklai/mesoclaw/internal/bus"
)

func TestJournalWriteAndReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	journal, err := NewJournal(dir)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	id := ResourceID{Type: ResourceAgent, InstanceID: "a1"}
	instance := NewResourceInstance(id, ResourceConfig{ProviderID: "openai"})
	instance.State = StateRunning
	instance.RetryCount = 1

	if err := journal.Write(instance); err != nil {
		t.Fatalf("Write: %v", err)
	}

	replayed, err := journal.ReplayAll()
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if len(replayed) != 1 {
		t.Fatalf("replayed %d entries, want 1", len(replayed))
	}
	got := replayed[0]
	if got.ID != id || got.State != StateRunning || got.RetryCount != 1 {
		t.Errorf("replayed instance mismatch: %+v", got)
	}
	if got.LastHeartbeat.IsZero() {
		t.Errorf("last heartbeat not preserved across replay")
	}
}

func TestJournalRemoveDeletesEntry(t *testing.T) {
	dir := t.TempDir()
	journal, err := NewJournal(dir)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	id := ResourceID{Type: ResourceTool, InstanceID: "t1"}
	instance := NewResourceInstance(id, ResourceConfig{ToolName: "exec"})
	if err := journal.Write(instance); err != nil {
		t.Fatalf("Write: %v", err)
	}

	journal.Remove(id)

	replayed, err := journal.ReplayAll()
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if len(replayed) != 0 {
		t.Fatalf("expected journal entry to be gone after Remove, got %d entries", len(replayed))
	}
}

// TestReplayJournalResumesRecovery covers spec scenario 6: a resource left
// Running with a stale heartbeat (as if the process had been killed and
// restarted) must be re-registered as Stuck and enter recovery on replay.
func TestReplayJournalResumesRecovery(t *testing.T) {
	dir := t.TempDir()
	eb := bus.NewLifecycleEventBus()
	sub := eb.Subscribe()
	defer sub.Unsubscribe()

	cfg := SupervisorConfig{
		HeartbeatInterval:   20 * time.Millisecond,
		StuckThreshold:      2,
		HealthCheckInterval: 10 * time.Millisecond,
		DeepCheckInterval:   time.Hour,
		Escalation:          EscalationConfig{MaxRetries: 0},
		JournalDir:          dir,
	}

	seed, err := NewSupervisor(cfg, eb)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	seed.RegisterHandler(NewAgentHandlerWithFallbacks([]string{"P2"}))

	id, err := seed.SpawnResource(context.Background(), ResourceAgent, ResourceConfig{ProviderID: "P1"})
	if err != nil {
		t.Fatalf("SpawnResource: %v", err)
	}

	// Simulate the process having been killed mid-run: the last journal
	// entry shows Running with a heartbeat from well before restart.
	seedInstance, _ := seed.Get(id)
	seedInstance.LastHeartbeat = time.Now().Add(-time.Hour)
	if err := seed.journal.Write(&seedInstance); err != nil {
		t.Fatalf("Write stale entry: %v", err)
	}

	// Fresh supervisor process, same journal directory.
	restarted, err := NewSupervisor(cfg, eb)
	if err != nil {
		t.Fatalf("NewSupervisor (restart): %v", err)
	}
	restarted.RegisterHandler(NewAgentHandlerWithFallbacks([]string{"P2"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := restarted.ReplayJournal(ctx); err != nil {
		t.Fatalf("ReplayJournal: %v", err)
	}

	var sawStuck, sawRecovered bool
	deadline := time.After(2 * time.Second)
	for !sawStuck || !sawRecovered {
		select {
		case ev := <-sub.Events:
			switch ev.Type {
			case bus.EventResourceStuck:
				if ev.ResourceID.Instance == id.InstanceID {
					sawStuck = true
				}
			case bus.EventResourceRecovered:
				sawRecovered = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for replay recovery: sawStuck=%v sawRecovered=%v", sawStuck, sawRecovered)
		}
	}

	instance, ok := restarted.Get(id)
	if !ok {
		t.Fatal("expected replayed resource to be queryable")
	}
	if instance.State != StateCompleted {
		t.Errorf("original instance state = %s, want completed (transferred away)", instance.State)
	}
}
