// Package tracing propagates trace/span identifiers through the agent
// request lifecycle and emits completed spans to OpenTelemetry. It replaces
// a would-be database-backed trace store with direct OTLP export: spans are
// emitted once, at completion, with explicit start/end timestamps rather than
// tracked live the way net/http middleware normally would.
package tracing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const (
	ctxTraceID              ctxKey = "trace_id"
	ctxParentSpanID         ctxKey = "parent_span_id"
	ctxAnnounceParentSpanID ctxKey = "announce_parent_span_id"
	ctxDelegateParentTrace  ctxKey = "delegate_parent_trace_id"
	ctxCollector            ctxKey = "trace_collector"
)

func WithTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

func TraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxTraceID).(uuid.UUID)
	return id
}

func WithParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxParentSpanID, id)
}

func ParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxParentSpanID).(uuid.UUID)
	return id
}

// WithAnnounceParentSpanID marks ctx as belonging to an announce run (a
// subagent or delegate result being delivered back into the parent's
// conversation), nesting its agent span under the parent's root span.
func WithAnnounceParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAnnounceParentSpanID, id)
}

func AnnounceParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxAnnounceParentSpanID).(uuid.UUID)
	return id
}

// WithDelegateParentTraceID threads the originating agent's trace id through
// a cross-agent delegation so the delegate's spans can be correlated back.
func WithDelegateParentTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxDelegateParentTrace, id)
}

func DelegateParentTraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxDelegateParentTrace).(uuid.UUID)
	return id
}

func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxCollector, c)
}

func CollectorFromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(ctxCollector).(*Collector)
	return c
}

// SpanType distinguishes the kinds of spans the agent loop emits.
type SpanType string

const (
	SpanTypeAgent    SpanType = "agent"
	SpanTypeLLMCall  SpanType = "llm_call"
	SpanTypeToolCall SpanType = "tool_call"
)

type SpanStatus string

const (
	SpanStatusCompleted SpanStatus = "completed"
	SpanStatusError     SpanStatus = "error"
)

// SpanLevel mirrors OTel's informal severity levels for span filtering in
// downstream viewers (DEFAULT is the common case).
type SpanLevel string

const SpanLevelDefault SpanLevel = "DEFAULT"

// Span describes one completed unit of work (an LLM call, a tool execution,
// or the agent run that parents them) ready for OTel export.
type Span struct {
	ID           uuid.UUID
	TraceID      uuid.UUID
	ParentSpanID *uuid.UUID
	AgentID      *uuid.UUID

	SpanType SpanType
	Name     string
	Status   SpanStatus
	Level    SpanLevel
	Error    string

	StartTime time.Time
	EndTime   *time.Time

	Model        string
	Provider     string
	FinishReason string
	InputTokens  int
	OutputTokens int
	ToolName     string
	ToolCallID   string

	InputPreview  string
	OutputPreview string
	Metadata      []byte
}

// Collector turns completed Spans into OTel spans on a real tracer. A nil
// Collector (or one built with a no-op tracer) makes tracing a no-op.
type Collector struct {
	tracer  trace.Tracer
	verbose bool
}

// NewCollector wraps tracer for span emission. verbose controls whether
// full message/tool-output previews are retained or truncated to a short
// summary (see emitLLMSpan/emitToolSpan in the agent package).
func NewCollector(tracer trace.Tracer, verbose bool) *Collector {
	return &Collector{tracer: tracer, verbose: verbose}
}

func (c *Collector) Verbose() bool { return c != nil && c.verbose }

// EmitSpan records span as a completed OTel span using its own start/end
// timestamps, since the work already happened by the time this is called.
func (c *Collector) EmitSpan(span Span) {
	if c == nil || c.tracer == nil {
		return
	}

	ctx := context.Background()
	opts := []trace.SpanStartOption{
		trace.WithTimestamp(span.StartTime),
		trace.WithAttributes(spanAttributes(span)...),
	}
	_, otelSpan := c.tracer.Start(ctx, span.Name, opts...)

	if span.Status == SpanStatusError {
		otelSpan.SetStatus(codes.Error, span.Error)
	} else {
		otelSpan.SetStatus(codes.Ok, "")
	}

	end := time.Now()
	if span.EndTime != nil {
		end = *span.EndTime
	}
	otelSpan.End(trace.WithTimestamp(end))
}

func spanAttributes(span Span) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("trace_id", span.TraceID.String()),
		attribute.String("span_type", string(span.SpanType)),
	}
	if span.ParentSpanID != nil {
		attrs = append(attrs, attribute.String("parent_span_id", span.ParentSpanID.String()))
	}
	if span.AgentID != nil {
		attrs = append(attrs, attribute.String("agent_id", span.AgentID.String()))
	}
	if span.Model != "" {
		attrs = append(attrs, attribute.String("model", span.Model))
	}
	if span.Provider != "" {
		attrs = append(attrs, attribute.String("provider", span.Provider))
	}
	if span.FinishReason != "" {
		attrs = append(attrs, attribute.String("finish_reason", span.FinishReason))
	}
	if span.InputTokens > 0 {
		attrs = append(attrs, attribute.Int("input_tokens", span.InputTokens))
	}
	if span.OutputTokens > 0 {
		attrs = append(attrs, attribute.Int("output_tokens", span.OutputTokens))
	}
	if span.ToolName != "" {
		attrs = append(attrs, attribute.String("tool_name", span.ToolName))
	}
	if span.ToolCallID != "" {
		attrs = append(attrs, attribute.String("tool_call_id", span.ToolCallID))
	}
	if span.InputPreview != "" {
		attrs = append(attrs, attribute.String("input_preview", span.InputPreview))
	}
	if span.OutputPreview != "" {
		attrs = append(attrs, attribute.String("output_preview", span.OutputPreview))
	}
	return attrs
}
