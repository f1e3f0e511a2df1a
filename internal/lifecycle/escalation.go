package lifecycle

import (
	"time"

	"github.com/sprklai/mesoclaw/internal/backoff"
)

// EscalationTier is the tier ladder a resource climbs on repeated failure.
type EscalationTier int

const (
	TierRetry        EscalationTier = 1 // retry in place
	TierFallback     EscalationTier = 2 // transfer to fallback config
	TierIntervention EscalationTier = 3 // ask a human
	TierTerminal     EscalationTier = 4 // give up
)

// EscalationAttempt records one step taken while recovering a resource.
type EscalationAttempt struct {
	ResourceID ResourceID
	Tier       EscalationTier
	At         time.Time
	Outcome    string // "retried" | "transferred" | "intervention_requested" | "terminal"
}

// EscalationConfig tunes the tier ladder.
type EscalationConfig struct {
	MaxRetries int // Tier 1 attempts before moving to Tier 2 (default 3)
}

// DefaultEscalationConfig matches the spec defaults (max_retries=3,
// back-off table shared with the scheduler via internal/backoff).
func DefaultEscalationConfig() EscalationConfig {
	return EscalationConfig{MaxRetries: 3}
}

// EscalationManager decides which tier a resource's next recovery attempt
// belongs to, given its current retry count. It does not perform recovery
// itself — the Supervisor drives that — it only classifies the next step
// and records history for post-mortem query.
type EscalationManager struct {
	cfg      EscalationConfig
	attempts []EscalationAttempt
}

func NewEscalationManager(cfg EscalationConfig) *EscalationManager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultEscalationConfig().MaxRetries
	}
	return &EscalationManager{cfg: cfg}
}

// NextTier returns the tier the supervisor should attempt next for a
// resource currently at retryCount failed attempts, and the back-off delay
// to wait before attempting it (zero for tiers beyond Tier 1, since
// fallback/intervention/terminal are not time-gated).
func (m *EscalationManager) NextTier(retryCount int) (EscalationTier, time.Duration) {
	if retryCount < m.cfg.MaxRetries {
		return TierRetry, backoff.Duration(retryCount)
	}
	// Beyond Tier 1's retry budget: caller tracks whether a fallback was
	// already attempted and has exhausted the handler's fallback list via
	// the resource instance's Tier field, escalating to intervention once
	// GetFallbacks is empty or every fallback has been tried.
	return TierFallback, 0
}

// RecordAttempt appends an escalation attempt to the in-memory history.
// The Supervisor persists the resource's current tier to the journal
// separately so a restart resumes at the correct tier.
func (m *EscalationManager) RecordAttempt(a EscalationAttempt) {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	m.attempts = append(m.attempts, a)
}

// AttemptsFor returns every recorded attempt for a resource, in order.
func (m *EscalationManager) AttemptsFor(id ResourceID) []EscalationAttempt {
	var out []EscalationAttempt
	for _, a := range m.attempts {
		if a.ResourceID == id {
			out = append(out, a)
		}
	}
	return out
}

// categorize maps a raw error into the closed ErrorCategory enumeration:
// an error that reports its own category keeps it; any other error is
// Transient until retryCount reaches maxRetries and Recoverable after.
// The category is recorded on the instance's FailureContext only; recover
// does not branch on it, so every category climbs the same tier ladder.
func categorize(err error, retryCount, maxRetries int) ErrorCategory {
	if err == nil {
		return ErrorTransient
	}
	if ce, ok := err.(categorized); ok {
		return ce.Category()
	}
	if retryCount >= maxRetries {
		return ErrorRecoverable
	}
	return ErrorTransient
}

// categorized is implemented by errors that know their own ErrorCategory
// (e.g. a provider-refused-model error from internal/providers).
type categorized interface {
	Category() ErrorCategory
}
