package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sprklai/mesoclaw/internal/memory"
)

// MemorySearchTool lets the agent recall relevant memory entries by semantic
// and keyword similarity.
type MemorySearchTool struct {
	store memory.Memory
}

func NewMemorySearchTool(store memory.Memory) *MemorySearchTool {
	return &MemorySearchTool{store: store}
}

func (t *MemorySearchTool) Name() string        { return "memory_search" }
func (t *MemorySearchTool) Description() string { return "Search stored memories for ones relevant to a query" }
func (t *MemorySearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "What to search memory for"},
			"limit": map[string]interface{}{"type": "integer", "description": "Max results to return (default: 5)"},
		},
		"required": []string{"query"},
	}
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.store == nil {
		return ErrorResult("memory is not configured")
	}
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return ErrorResult("query is required")
	}
	limit := 5
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	entries, err := t.store.Recall(ctx, query, limit)
	if err != nil {
		return ErrorResult(fmt.Sprintf("memory search failed: %v", err))
	}
	if len(entries) == 0 {
		return SilentResult("no matching memories found")
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] (%s, score %.2f)\n%s\n\n", e.Key, e.Category, e.Score, e.Content)
	}
	return SilentResult(strings.TrimSpace(b.String()))
}

// MemoryGetTool fetches the single best-matching memory entry for a key.
type MemoryGetTool struct {
	store memory.Memory
}

func NewMemoryGetTool(store memory.Memory) *MemoryGetTool {
	return &MemoryGetTool{store: store}
}

func (t *MemoryGetTool) Name() string        { return "memory_get" }
func (t *MemoryGetTool) Description() string { return "Fetch a specific memory entry by its key" }
func (t *MemoryGetTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"key": map[string]interface{}{"type": "string", "description": "Memory key to fetch"},
		},
		"required": []string{"key"},
	}
}

func (t *MemoryGetTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.store == nil {
		return ErrorResult("memory is not configured")
	}
	key, _ := args["key"].(string)
	if strings.TrimSpace(key) == "" {
		return ErrorResult("key is required")
	}

	entries, err := t.store.Recall(ctx, key, 1)
	if err != nil {
		return ErrorResult(fmt.Sprintf("memory get failed: %v", err))
	}
	if len(entries) == 0 || entries[0].Key != key {
		return SilentResult(fmt.Sprintf("no memory found for key %q", key))
	}
	return SilentResult(entries[0].Content)
}
