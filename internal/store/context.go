package store

import (
	"context"

	"github.com/google/uuid"
)

type (
	userIDKey   struct{}
	agentIDKey  struct{}
	agentTypeKey struct{}
	senderIDKey struct{}
)

// WithUserID attaches the acting user's identifier to ctx for per-user
// scoping propagation (subagent origin tracking, session ownership).
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id attached by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey{}).(string)
	return v
}

// WithAgentID attaches the running agent's identifier to ctx. Tools use this
// to scope session lookups to their owning agent; uuid.Nil means standalone
// mode, where that scoping is a no-op.
func WithAgentID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, agentIDKey{}, id)
}

// AgentIDFromContext returns the agent id attached by WithAgentID, or uuid.Nil.
func AgentIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(agentIDKey{}).(uuid.UUID)
	return v
}

// WithAgentType attaches the running agent's type label to ctx.
func WithAgentType(ctx context.Context, agentType string) context.Context {
	return context.WithValue(ctx, agentTypeKey{}, agentType)
}

// AgentTypeFromContext returns the agent type attached by WithAgentType, or "".
func AgentTypeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(agentTypeKey{}).(string)
	return v
}

// WithSenderID attaches the original message sender's identifier to ctx.
func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, senderIDKey{}, senderID)
}

// SenderIDFromContext returns the sender id attached by WithSenderID, or "".
func SenderIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(senderIDKey{}).(string)
	return v
}

// GenNewID generates a fresh identifier for sessions, spans, and tasks.
func GenNewID() uuid.UUID { return uuid.New() }
