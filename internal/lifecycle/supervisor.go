package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sprklai/mesoclaw/internal/bus"
)

// SupervisorConfig tunes the health loop and escalation ladder.
type SupervisorConfig struct {
	HeartbeatInterval   time.Duration
	StuckThreshold      int
	HealthCheckInterval time.Duration
	DeepCheckInterval   time.Duration
	Escalation          EscalationConfig
	JournalDir          string
}

// DefaultSupervisorConfig matches the spec's stated defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		HeartbeatInterval:   HeartbeatInterval,
		StuckThreshold:      StuckThreshold,
		HealthCheckInterval: HealthCheckInterval,
		DeepCheckInterval:   DeepCheckInterval,
		Escalation:          DefaultEscalationConfig(),
	}
}

// Supervisor is the single source of truth for what is running, what is
// stuck, and what is being recovered. No other component may spawn a
// long-lived resource without the supervisor's knowledge.
type Supervisor struct {
	cfg SupervisorConfig

	mu        sync.RWMutex
	instances map[ResourceID]*ResourceInstance
	handlers  map[ResourceType]ResourceHandler

	escalation *EscalationManager
	eventBus   *bus.LifecycleEventBus
	journal    *Journal

	monitorOnce sync.Once
	monitorStop chan struct{}

	interventions   map[string]chan InterventionResolution
	interventionsMu sync.Mutex

	lastDeepCheck time.Time
}

// NewSupervisor creates a supervisor wired to the given lifecycle event bus.
func NewSupervisor(cfg SupervisorConfig, eventBus *bus.LifecycleEventBus) (*Supervisor, error) {
	journal, err := NewJournal(cfg.JournalDir)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: open journal: %w", err)
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = HeartbeatInterval
	}
	if cfg.StuckThreshold == 0 {
		cfg.StuckThreshold = StuckThreshold
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = HealthCheckInterval
	}
	if cfg.DeepCheckInterval == 0 {
		cfg.DeepCheckInterval = DeepCheckInterval
	}
	return &Supervisor{
		cfg:           cfg,
		instances:     make(map[ResourceID]*ResourceInstance),
		handlers:      make(map[ResourceType]ResourceHandler),
		escalation:    NewEscalationManager(cfg.Escalation),
		eventBus:      eventBus,
		journal:       journal,
		monitorStop:   make(chan struct{}),
		interventions: make(map[string]chan InterventionResolution),
	}, nil
}

// RegisterHandler installs a ResourceHandler for one ResourceType. Idempotent.
func (s *Supervisor) RegisterHandler(h ResourceHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[h.ResourceType()] = h
}

func (s *Supervisor) handlerFor(t ResourceType) (ResourceHandler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[t]
	if !ok {
		return nil, fmt.Errorf("lifecycle: no handler registered for resource type %s", t)
	}
	return h, nil
}

// SpawnResource starts a new resource via its registered handler, inserts
// it into the registry in state Running, and emits ResourceStarted.
func (s *Supervisor) SpawnResource(ctx context.Context, rtype ResourceType, cfg ResourceConfig) (ResourceID, error) {
	handler, err := s.handlerFor(rtype)
	if err != nil {
		return ResourceID{}, err
	}

	id := ResourceID{Type: rtype, InstanceID: uuid.NewString()}
	instance, err := handler.Start(ctx, id, cfg)
	if err != nil {
		return ResourceID{}, fmt.Errorf("lifecycle: start %s: %w", id, err)
	}
	instance.State = StateRunning
	instance.UpdatedAt = time.Now()

	s.mu.Lock()
	s.instances[id] = instance
	s.mu.Unlock()

	s.persist(instance)
	s.publish(bus.LifecycleEvent{
		Type:         bus.EventResourceStarted,
		ResourceID:   toBusID(id),
		ResourceType: rtype.String(),
	})

	return id, nil
}

// RecordHeartbeat updates last_heartbeat=now and emits ResourceHeartbeat.
// Silently ignored for unknown or terminal resources.
func (s *Supervisor) RecordHeartbeat(id ResourceID) {
	s.mu.Lock()
	instance, ok := s.instances[id]
	if !ok || instance.State.IsTerminal() {
		s.mu.Unlock()
		return
	}
	instance.LastHeartbeat = time.Now()
	instance.UpdatedAt = instance.LastHeartbeat
	s.mu.Unlock()

	s.persist(instance)
	s.publish(bus.LifecycleEvent{Type: bus.EventResourceHeartbeat, ResourceID: toBusID(id)})
}

// UpdateProgress validates substate against the handler's declared set,
// updates the instance, and emits ResourceProgress.
func (s *Supervisor) UpdateProgress(id ResourceID, progress float64, substate string) error {
	handler, err := s.handlerFor(id.Type)
	if err != nil {
		return err
	}
	if substate != "" && !handler.IsValidSubstate(substate) {
		return fmt.Errorf("lifecycle: %q is not a valid substate for %s", substate, id.Type)
	}

	s.mu.Lock()
	instance, ok := s.instances[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("lifecycle: unknown resource %s", id)
	}
	instance.Substate = substate
	instance.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist(instance)
	s.publish(bus.LifecycleEvent{
		Type:       bus.EventResourceProgress,
		ResourceID: toBusID(id),
		Progress:   progress,
		Substate:   substate,
	})
	return nil
}

// StopResource gracefully terminates a resource via its handler, transitions
// it to Completed, and unconditionally runs cleanup.
func (s *Supervisor) StopResource(ctx context.Context, id ResourceID) error {
	return s.terminate(ctx, id, StateCompleted, func(h ResourceHandler, instance *ResourceInstance) error {
		return h.Stop(ctx, instance)
	})
}

// KillResource forcefully terminates a resource via its handler, transitions
// it to Failed, and unconditionally runs cleanup.
func (s *Supervisor) KillResource(ctx context.Context, id ResourceID) error {
	return s.terminate(ctx, id, StateFailed, func(h ResourceHandler, instance *ResourceInstance) error {
		return h.Kill(ctx, instance)
	})
}

func (s *Supervisor) terminate(ctx context.Context, id ResourceID, final LifecycleState, op func(ResourceHandler, *ResourceInstance) error) error {
	handler, err := s.handlerFor(id.Type)
	if err != nil {
		return err
	}

	s.mu.Lock()
	instance, ok := s.instances[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("lifecycle: unknown resource %s", id)
	}

	opErr := op(handler, instance)

	cleanupErr := handler.Cleanup(ctx, instance)
	if cleanupErr != nil {
		slog.Error("lifecycle: cleanup failed", "resource", id, "error", cleanupErr)
	}

	s.mu.Lock()
	instance.State = final
	instance.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist(instance)
	s.journal.Remove(id)

	if final == StateCompleted {
		s.publish(bus.LifecycleEvent{Type: bus.EventResourceCompleted, ResourceID: toBusID(id)})
	} else {
		errMsg := ""
		if opErr != nil {
			errMsg = opErr.Error()
		}
		s.publish(bus.LifecycleEvent{Type: bus.EventResourceFailed, ResourceID: toBusID(id), Error: errMsg, Terminal: true})
	}

	return opErr
}

// Get returns a snapshot of a resource instance, or false if unknown.
func (s *Supervisor) Get(id ResourceID) (ResourceInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.instances[id]
	if !ok {
		return ResourceInstance{}, false
	}
	return *instance, true
}

// List returns a snapshot of every tracked resource.
func (s *Supervisor) List() []ResourceInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResourceInstance, 0, len(s.instances))
	for _, instance := range s.instances {
		out = append(out, *instance)
	}
	return out
}

// RequestIntervention publishes UserInterventionNeeded and blocks until a
// matching resolution arrives or ctx is cancelled.
func (s *Supervisor) RequestIntervention(ctx context.Context, req UserInterventionRequest) (InterventionResolution, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	ch := make(chan InterventionResolution, 1)
	s.interventionsMu.Lock()
	s.interventions[req.RequestID] = ch
	s.interventionsMu.Unlock()
	defer func() {
		s.interventionsMu.Lock()
		delete(s.interventions, req.RequestID)
		s.interventionsMu.Unlock()
	}()

	s.publish(bus.LifecycleEvent{
		Type:       bus.EventUserInterventionNeeded,
		ResourceID: toBusID(req.Resource),
		RequestID:  req.RequestID,
		Reason:     req.Reason,
	})

	select {
	case resolution := <-ch:
		return resolution, nil
	case <-ctx.Done():
		return InterventionResolution{}, ctx.Err()
	}
}

// ResolveIntervention delivers a resolution to whichever call to
// RequestIntervention is waiting on this request ID. No-op if the request
// ID is unknown (already resolved, timed out, or never issued).
func (s *Supervisor) ResolveIntervention(resolution InterventionResolution) {
	s.interventionsMu.Lock()
	ch, ok := s.interventions[resolution.RequestID]
	s.interventionsMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- resolution:
	default:
	}
	s.publish(bus.LifecycleEvent{
		Type:           bus.EventUserInterventionResolved,
		RequestID:      resolution.RequestID,
		SelectedOption: resolution.SelectedOption,
	})
}

func (s *Supervisor) persist(instance *ResourceInstance) {
	if err := s.journal.Write(instance); err != nil {
		slog.Error("lifecycle: journal write failed", "resource", instance.ID, "error", err)
	}
}

func (s *Supervisor) publish(ev bus.LifecycleEvent) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ev)
}

func toBusID(id ResourceID) bus.ResourceID {
	return bus.ResourceID{Type: id.Type.String(), Instance: id.InstanceID}
}
