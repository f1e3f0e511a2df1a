package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sprklai/mesoclaw/internal/bus"
)

func newInstanceID() string { return uuid.NewString() }

// StartMonitoring launches the background health loop. Idempotent: a
// second call is a no-op, matching the spec's requirement that
// start_monitoring be safely callable more than once.
func (s *Supervisor) StartMonitoring(ctx context.Context) {
	s.monitorOnce.Do(func() {
		go s.monitorLoop(ctx)
		s.publish(bus.LifecycleEvent{Type: bus.EventSupervisorStarted})
	})
}

// StopMonitoring halts the background health loop.
func (s *Supervisor) StopMonitoring() {
	close(s.monitorStop)
	s.publish(bus.LifecycleEvent{Type: bus.EventSupervisorStopped})
}

func (s *Supervisor) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.monitorStop:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep implements the health loop algorithm: every health_check_interval,
// iterate the registry for heartbeat-stale Running resources; at
// deep_check_interval, additionally invoke each handler's HealthCheck.
func (s *Supervisor) sweep(ctx context.Context) {
	stuckTimeout := StuckTimeout(s.cfg.HeartbeatInterval, s.cfg.StuckThreshold)
	doDeepCheck := time.Since(s.lastDeepCheck) >= s.cfg.DeepCheckInterval
	if doDeepCheck {
		s.lastDeepCheck = time.Now()
	}

	s.mu.RLock()
	candidates := make([]*ResourceInstance, 0, len(s.instances))
	for _, instance := range s.instances {
		if instance.State == StateRunning {
			candidates = append(candidates, instance)
		}
	}
	s.mu.RUnlock()

	totalChecked := 0
	stuckFound := 0

	for _, instance := range candidates {
		totalChecked++
		stale := time.Since(instance.LastHeartbeat) > stuckTimeout

		unhealthy := false
		if doDeepCheck {
			if handler, err := s.handlerFor(instance.ID.Type); err == nil {
				status, err := handler.HealthCheck(ctx, instance)
				if err != nil || status == HealthUnhealthy {
					unhealthy = true
				}
			}
		}

		if stale || unhealthy {
			stuckFound++
			s.markStuck(instance)
			go s.recover(ctx, instance.ID)
		}
	}

	if doDeepCheck {
		s.publish(bus.LifecycleEvent{
			Type:         bus.EventHealthCheckCompleted,
			TotalChecked: totalChecked,
			StuckFound:   stuckFound,
		})
	}
}

func (s *Supervisor) markStuck(instance *ResourceInstance) {
	s.mu.Lock()
	if instance.State != StateRunning {
		s.mu.Unlock()
		return
	}
	instance.State = StateStuck
	instance.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist(instance)
	s.publish(bus.LifecycleEvent{Type: bus.EventResourceStuck, ResourceID: toBusID(instance.ID)})
}

// recover drives a stuck resource through the tiered escalation ladder:
// Tier 1 retry in place, Tier 2 transfer to fallback, Tier 3 user
// intervention, Tier 4 terminal failure.
func (s *Supervisor) recover(ctx context.Context, id ResourceID) {
	s.mu.RLock()
	instance, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	instance.State = StateRecovering
	instance.UpdatedAt = time.Now()
	s.mu.Unlock()
	s.persist(instance)
	s.publish(bus.LifecycleEvent{Type: bus.EventResourceRecovering, ResourceID: toBusID(id), Action: "retry"})

	handler, err := s.handlerFor(id.Type)
	if err != nil {
		s.failTerminal(ctx, instance, err.Error())
		return
	}

	if instance.RetryCount < s.cfg.Escalation.MaxRetries {
		if s.retryInPlace(ctx, handler, instance) {
			return
		}
	}

	if s.transferToFallback(ctx, handler, instance) {
		return
	}

	if s.requestUserIntervention(ctx, handler, instance) {
		return
	}

	s.failTerminal(ctx, instance, "escalation exhausted: no fallback accepted and no intervention resolved")
}

// retryInPlace is Tier 1: wait the back-off delay, then try to resume the
// same instance by running the handler's start-equivalent health check.
// If the resource reports healthy again, it returns to Running; otherwise
// the retry count is bumped and recover moves on to Tier 2.
func (s *Supervisor) retryInPlace(ctx context.Context, handler ResourceHandler, instance *ResourceInstance) bool {
	tier, delay := s.escalation.NextTier(instance.RetryCount)
	if tier != TierRetry {
		return false
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return false
	}

	status, err := handler.HealthCheck(ctx, instance)

	s.mu.Lock()
	instance.RetryCount++
	instance.Tier = int(TierRetry)
	if err == nil && status != HealthUnhealthy {
		instance.State = StateRunning
		instance.LastHeartbeat = time.Now()
	} else {
		instance.FailureContext = &FailureContext{
			Error:      healthCheckFailureReason(err, status),
			Category:   categorize(err, instance.RetryCount, s.cfg.Escalation.MaxRetries),
			OccurredAt: time.Now(),
			Tier:       int(TierRetry),
		}
	}
	instance.UpdatedAt = time.Now()
	recovered := instance.State == StateRunning
	s.mu.Unlock()

	s.persist(instance)
	s.escalation.RecordAttempt(EscalationAttempt{ResourceID: instance.ID, Tier: TierRetry, Outcome: mapOutcome(recovered)})

	if recovered {
		s.publish(bus.LifecycleEvent{Type: bus.EventResourceRecovered, ResourceID: toBusID(instance.ID), Tier: uint8(TierRetry)})
		return true
	}
	return false
}

// transferToFallback is Tier 2: extract preserved state, spawn a fresh
// instance with a fallback config, apply the state, and mark the old
// instance Completed.
func (s *Supervisor) transferToFallback(ctx context.Context, handler ResourceHandler, oldInstance *ResourceInstance) bool {
	fallbacks := handler.GetFallbacks(oldInstance)
	if len(fallbacks) == 0 {
		return false
	}

	for _, fb := range fallbacks {
		state, err := handler.ExtractState(ctx, oldInstance)
		if err != nil {
			continue
		}

		newID := ResourceID{Type: oldInstance.ID.Type, InstanceID: newInstanceID()}
		newInstance, err := handler.Start(ctx, newID, fb.Config)
		if err != nil {
			continue
		}
		newInstance.State = StateTransferring
		newInstance.UpdatedAt = time.Now()

		s.mu.Lock()
		s.instances[newID] = newInstance
		s.mu.Unlock()

		s.publish(bus.LifecycleEvent{Type: bus.EventResourceTransferring, FromID: toBusID(oldInstance.ID), ToID: toBusID(newID)})

		if err := handler.ApplyState(ctx, newInstance, state); err != nil {
			continue
		}

		s.mu.Lock()
		newInstance.State = StateRecovered
		newInstance.Tier = int(TierFallback)
		newInstance.UpdatedAt = time.Now()
		oldInstance.State = StateCompleted
		oldInstance.UpdatedAt = time.Now()
		s.mu.Unlock()

		s.persist(newInstance)
		s.journal.Remove(oldInstance.ID)
		s.escalation.RecordAttempt(EscalationAttempt{ResourceID: oldInstance.ID, Tier: TierFallback, Outcome: "transferred"})
		s.publish(bus.LifecycleEvent{Type: bus.EventResourceRecovered, ResourceID: toBusID(newID), Tier: uint8(TierFallback)})

		s.mu.Lock()
		newInstance.State = StateRunning
		newInstance.LastHeartbeat = time.Now()
		newInstance.UpdatedAt = time.Now()
		s.mu.Unlock()
		s.persist(newInstance)

		return true
	}
	return false
}

// requestUserIntervention is Tier 3: publish UserInterventionNeeded with
// the failure context and fallback list, and await resolution.
func (s *Supervisor) requestUserIntervention(ctx context.Context, handler ResourceHandler, instance *ResourceInstance) bool {
	reason := "resource stuck and no fallback accepted"
	if instance.FailureContext != nil {
		reason = instance.FailureContext.Error
	}

	resolution, err := s.RequestIntervention(ctx, UserInterventionRequest{
		Resource: instance.ID,
		Reason:   reason,
		Options:  handler.GetFallbacks(instance),
	})
	if err != nil {
		return false
	}

	s.escalation.RecordAttempt(EscalationAttempt{ResourceID: instance.ID, Tier: TierIntervention, Outcome: "intervention_resolved:" + resolution.SelectedOption})

	s.mu.Lock()
	instance.State = StateRunning
	instance.LastHeartbeat = time.Now()
	instance.Tier = int(TierIntervention)
	instance.UpdatedAt = time.Now()
	s.mu.Unlock()
	s.persist(instance)
	s.publish(bus.LifecycleEvent{Type: bus.EventResourceRecovered, ResourceID: toBusID(instance.ID), Tier: uint8(TierIntervention)})
	return true
}

func (s *Supervisor) failTerminal(ctx context.Context, instance *ResourceInstance, reason string) {
	handler, err := s.handlerFor(instance.ID.Type)
	if err == nil {
		if cerr := handler.Cleanup(ctx, instance); cerr != nil {
			reason = reason + "; cleanup error: " + cerr.Error()
		}
	}

	s.mu.Lock()
	instance.State = StateFailed
	instance.Tier = int(TierTerminal)
	instance.FailureContext = &FailureContext{Error: reason, Category: ErrorTerminal, OccurredAt: time.Now(), Tier: int(TierTerminal)}
	instance.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.persist(instance)
	s.escalation.RecordAttempt(EscalationAttempt{ResourceID: instance.ID, Tier: TierTerminal, Outcome: "terminal"})
	s.publish(bus.LifecycleEvent{Type: bus.EventResourceFailed, ResourceID: toBusID(instance.ID), Error: reason, Terminal: true})
}

// ReplayJournal loads persisted resource state on startup. Resources found
// Running or Stuck enter recovery immediately (their heartbeat is now
// stale by definition of the process having restarted); terminal
// resources are loaded for query only.
func (s *Supervisor) ReplayJournal(ctx context.Context) error {
	instances, err := s.journal.ReplayAll()
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, instance := range instances {
		s.instances[instance.ID] = instance
	}
	s.mu.Unlock()

	for _, instance := range instances {
		if instance.State.IsTerminal() {
			continue
		}
		s.markStuck(instance)
		go s.recover(ctx, instance.ID)
	}
	return nil
}

func healthCheckFailureReason(err error, status HealthStatus) string {
	if err != nil {
		return err.Error()
	}
	return "health check reported " + status.String()
}

func mapOutcome(recovered bool) string {
	if recovered {
		return "retried"
	}
	return "retry_failed"
}
