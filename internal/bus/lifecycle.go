package bus

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLifecycleBusCapacity is the per-subscriber buffer size. A
// subscriber that falls this far behind the publisher receives a lag
// notification and has its queue drained to the most recent events,
// mirroring tokio::sync::broadcast's lagging-receiver semantics.
const DefaultLifecycleBusCapacity = 1024

// LifecycleEventType names the shape of a LifecycleEvent's payload.
type LifecycleEventType string

const (
	EventResourceStarted        LifecycleEventType = "resource_started"
	EventResourceHeartbeat      LifecycleEventType = "resource_heartbeat"
	EventResourceProgress       LifecycleEventType = "resource_progress"
	EventResourceStuck          LifecycleEventType = "resource_stuck"
	EventResourceRecovering     LifecycleEventType = "resource_recovering"
	EventResourceTransferring   LifecycleEventType = "resource_transferring"
	EventResourceRecovered      LifecycleEventType = "resource_recovered"
	EventResourceFailed         LifecycleEventType = "resource_failed"
	EventResourceCompleted      LifecycleEventType = "resource_completed"
	EventUserInterventionNeeded LifecycleEventType = "user_intervention_needed"
	EventUserInterventionResolved LifecycleEventType = "user_intervention_resolved"
	EventHealthCheckCompleted   LifecycleEventType = "health_check_completed"
	EventSupervisorStarted      LifecycleEventType = "supervisor_started"
	EventSupervisorStopped      LifecycleEventType = "supervisor_stopped"
)

// ResourceID identifies a supervised resource instance. Defined here rather
// than in internal/lifecycle so the bus package carries no import-cycle
// back onto the supervisor.
type ResourceID struct {
	Type     string
	Instance string
}

func (r ResourceID) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Instance)
}

// LifecycleEvent is a tagged union over the fourteen lifecycle event shapes.
// Only the fields relevant to Type are populated; the rest are zero.
type LifecycleEvent struct {
	Type LifecycleEventType
	At   time.Time

	ResourceID   ResourceID // ResourceStarted, Heartbeat, Progress, Stuck, Recovering, Recovered, Failed, Completed
	ResourceType string     // ResourceStarted

	Progress float64 // ResourceProgress
	Substate string  // ResourceProgress

	Action string // ResourceRecovering: recovery action name

	FromID ResourceID // ResourceTransferring
	ToID   ResourceID // ResourceTransferring

	Tier uint8 // ResourceRecovered: escalation tier that succeeded

	Error    string // ResourceFailed
	Terminal bool   // ResourceFailed

	RequestID      string // UserInterventionNeeded / Resolved
	Reason         string // UserInterventionNeeded
	SelectedOption string // UserInterventionResolved

	TotalChecked int // HealthCheckCompleted
	StuckFound   int // HealthCheckCompleted
}

// EventType mirrors LifecycleEvent::event_type() in the Rust source.
func (e LifecycleEvent) EventType() string { return string(e.Type) }

// ResourceIDRef mirrors LifecycleEvent::resource_id(); returns ("", false)
// for event types that are not about a single resource.
func (e LifecycleEvent) ResourceIDRef() (ResourceID, bool) {
	switch e.Type {
	case EventResourceStarted, EventResourceHeartbeat, EventResourceProgress,
		EventResourceStuck, EventResourceRecovering, EventResourceRecovered,
		EventResourceFailed, EventResourceCompleted:
		return e.ResourceID, true
	case EventResourceTransferring:
		return e.FromID, true
	default:
		return ResourceID{}, false
	}
}

type lifecycleSubscriber struct {
	ch     chan LifecycleEvent
	lagged chan int
}

// LifecycleEventBus is a fan-out broadcaster for LifecycleEvent values. Go
// has no broadcast-channel primitive, so each subscriber gets its own
// bounded channel; a slow subscriber is never allowed to block the
// publisher or its peers — once full, the oldest event is dropped and the
// subscriber is notified on its lagged channel.
type LifecycleEventBus struct {
	mu          sync.Mutex
	capacity    int
	subscribers map[int]*lifecycleSubscriber
	nextID      int
}

// NewLifecycleEventBus creates a bus with the default capacity (1024).
func NewLifecycleEventBus() *LifecycleEventBus {
	return NewLifecycleEventBusWithCapacity(DefaultLifecycleBusCapacity)
}

// NewLifecycleEventBusWithCapacity creates a bus with an explicit
// per-subscriber buffer size.
func NewLifecycleEventBusWithCapacity(capacity int) *LifecycleEventBus {
	if capacity <= 0 {
		capacity = DefaultLifecycleBusCapacity
	}
	return &LifecycleEventBus{
		capacity:    capacity,
		subscribers: make(map[int]*lifecycleSubscriber),
	}
}

// LifecycleSubscription is a handle returned by Subscribe; callers range
// over Events (or select on it) and call Unsubscribe when done.
type LifecycleSubscription struct {
	id     int
	bus    *LifecycleEventBus
	Events <-chan LifecycleEvent
	Lagged <-chan int
}

// Unsubscribe detaches the subscription and releases its buffer.
func (s *LifecycleSubscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

// Subscribe registers a new subscriber and returns its subscription.
func (b *LifecycleEventBus) Subscribe() *LifecycleSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &lifecycleSubscriber{
		ch:     make(chan LifecycleEvent, b.capacity),
		lagged: make(chan int, 1),
	}
	b.subscribers[id] = sub

	return &LifecycleSubscription{id: id, bus: b, Events: sub.ch, Lagged: sub.lagged}
}

func (b *LifecycleEventBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// Publish broadcasts an event to every current subscriber, stamping At if unset.
func (b *LifecycleEventBus) Publish(event LifecycleEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
			select {
			case sub.lagged <- 1:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *LifecycleEventBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
