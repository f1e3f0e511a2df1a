package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sprklai/mesoclaw/internal/providers"
	"github.com/sprklai/mesoclaw/internal/tracing"
)

// emitLLMSpan records one subagent LLM iteration if a tracing collector is
// attached to ctx, nesting under the subagent's own root span.
func (sm *SubagentManager) emitLLMSpan(ctx context.Context, start time.Time, iteration int, model string, messages []providers.Message, resp *providers.ChatResponse, callErr error) {
	collector := tracing.CollectorFromContext(ctx)
	traceID := tracing.TraceIDFromContext(ctx)
	if collector == nil || traceID == uuid.Nil {
		return
	}

	now := time.Now().UTC()
	span := tracing.Span{
		TraceID:   traceID,
		SpanType:  tracing.SpanTypeLLMCall,
		Name:      fmt.Sprintf("subagent/%s #%d", model, iteration),
		StartTime: start,
		EndTime:   &now,
		Model:     model,
		Status:    tracing.SpanStatusCompleted,
		Level:     tracing.SpanLevelDefault,
	}
	if parentID := tracing.ParentSpanIDFromContext(ctx); parentID != uuid.Nil {
		span.ParentSpanID = &parentID
	}
	if callErr != nil {
		span.Status = tracing.SpanStatusError
		span.Error = callErr.Error()
	} else if resp != nil {
		if resp.Usage != nil {
			span.InputTokens = resp.Usage.PromptTokens
			span.OutputTokens = resp.Usage.CompletionTokens
		}
		span.FinishReason = resp.FinishReason
		span.OutputPreview = truncateStr(resp.Content, 500)
	}
	collector.EmitSpan(span)
}

// emitToolSpan records one subagent tool call if a tracing collector is
// attached to ctx.
func (sm *SubagentManager) emitToolSpan(ctx context.Context, start time.Time, toolName, toolCallID, input, output string, isError bool) {
	collector := tracing.CollectorFromContext(ctx)
	traceID := tracing.TraceIDFromContext(ctx)
	if collector == nil || traceID == uuid.Nil {
		return
	}

	now := time.Now().UTC()
	span := tracing.Span{
		TraceID:       traceID,
		SpanType:      tracing.SpanTypeToolCall,
		Name:          toolName,
		StartTime:     start,
		EndTime:       &now,
		ToolName:      toolName,
		ToolCallID:    toolCallID,
		InputPreview:  truncateStr(input, 500),
		OutputPreview: truncateStr(output, 500),
		Status:        tracing.SpanStatusCompleted,
		Level:         tracing.SpanLevelDefault,
	}
	if parentID := tracing.ParentSpanIDFromContext(ctx); parentID != uuid.Nil {
		span.ParentSpanID = &parentID
	}
	if isError {
		span.Status = tracing.SpanStatusError
		span.Error = truncateStr(output, 200)
	}
	collector.EmitSpan(span)
}

// emitSubagentSpan records the subagent's own root span, parented under the
// main agent's root span so a trace viewer nests the whole subtree.
func (sm *SubagentManager) emitSubagentSpan(ctx context.Context, spanID uuid.UUID, start time.Time, task *SubagentTask, model, finalContent string) {
	collector := tracing.CollectorFromContext(ctx)
	traceID := tracing.TraceIDFromContext(ctx)
	if collector == nil || traceID == uuid.Nil {
		return
	}

	now := time.Now().UTC()
	span := tracing.Span{
		ID:        spanID,
		TraceID:   traceID,
		SpanType:  tracing.SpanTypeAgent,
		Name:      "subagent:" + task.Label,
		StartTime: start,
		EndTime:   &now,
		Model:     model,
		Status:    tracing.SpanStatusCompleted,
		Level:     tracing.SpanLevelDefault,
	}
	if parentID := tracing.ParentSpanIDFromContext(ctx); parentID != uuid.Nil {
		span.ParentSpanID = &parentID
	}
	if task.Status == TaskStatusFailed {
		span.Status = tracing.SpanStatusError
		span.Error = truncateStr(finalContent, 200)
	} else {
		span.OutputPreview = truncateStr(finalContent, 500)
	}
	collector.EmitSpan(span)
}
