package tools

import (
	"context"
	"fmt"
)

// ============================================================
// spawn (async)
// ============================================================

// SpawnTool lets an agent fire off a background subagent and keep working.
// The result is announced back into the parent's session once it completes.
type SpawnTool struct {
	mgr     *SubagentManager
	agentID string
	depth   int
}

func NewSpawnTool(mgr *SubagentManager, agentID string, depth int) *SpawnTool {
	return &SpawnTool{mgr: mgr, agentID: agentID, depth: depth}
}

func (t *SpawnTool) Name() string { return "spawn" }
func (t *SpawnTool) Description() string {
	return "Spawn a background subagent to work on a task. Returns immediately; the result is announced back once the subagent finishes."
}

func (t *SpawnTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "Task description for the subagent",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Short label for the subagent (default: truncated task)",
			},
			"model": map[string]interface{}{
				"type":        "string",
				"description": "Model override for this subagent (default: inherit)",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SpawnTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.mgr == nil {
		return ErrorResult("subagent manager not available")
	}

	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("task is required")
	}
	label, _ := args["label"].(string)
	model, _ := args["model"].(string)

	channel := ToolChannelFromCtx(ctx)
	chatID := ToolChatIDFromCtx(ctx)
	peerKind := ToolPeerKindFromCtx(ctx)
	cb := ToolAsyncCBFromCtx(ctx)

	msg, err := t.mgr.Spawn(ctx, t.agentID, t.depth, task, label, model, channel, chatID, peerKind, cb)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return AsyncResult(msg)
}

// ============================================================
// subagent (sync)
// ============================================================

// SubagentTool lets an agent run a subagent synchronously and wait for its
// final answer, trading concurrency for a direct result.
type SubagentTool struct {
	mgr     *SubagentManager
	agentID string
	depth   int
}

func NewSubagentTool(mgr *SubagentManager, agentID string, depth int) *SubagentTool {
	return &SubagentTool{mgr: mgr, agentID: agentID, depth: depth}
}

func (t *SubagentTool) Name() string { return "subagent" }
func (t *SubagentTool) Description() string {
	return "Run a subagent synchronously and wait for its final result."
}

func (t *SubagentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "Task description for the subagent",
			},
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Short label for the subagent (default: truncated task)",
			},
		},
		"required": []string{"task"},
	}
}

func (t *SubagentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.mgr == nil {
		return ErrorResult("subagent manager not available")
	}

	task, _ := args["task"].(string)
	if task == "" {
		return ErrorResult("task is required")
	}
	label, _ := args["label"].(string)

	channel := ToolChannelFromCtx(ctx)
	chatID := ToolChatIDFromCtx(ctx)

	result, iterations, err := t.mgr.RunSync(ctx, t.agentID, t.depth, task, label, channel, chatID)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return SilentResult(formatSubagentResult(label, iterations, result))
}

func formatSubagentResult(label string, iterations int, result string) string {
	if label == "" {
		label = "subagent"
	}
	return fmt.Sprintf("Subagent '%s' finished in %d iterations.\n\n%s", label, iterations, result)
}
