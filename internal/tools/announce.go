package tools

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sprklai/mesoclaw/internal/bus"
)

// AnnounceQueueItem is one subagent's finished-task report, queued for
// delivery back into the parent's conversation.
type AnnounceQueueItem struct {
	SubagentID string
	Label      string
	Status     string
	Result     string
	Runtime    time.Duration
	Iterations int
}

// AnnounceMetadata carries the routing and trace-linking info needed to
// deliver a batched announce to the right channel/session.
type AnnounceMetadata struct {
	OriginChannel    string
	OriginChatID     string
	OriginPeerKind   string
	OriginUserID     string
	ParentAgent      string
	OriginTraceID    string
	OriginRootSpanID string
}

// AnnounceQueue batches subagent completion announces per session key,
// flushing them as one message after a debounce window so several
// subagents finishing close together produce one digest instead of a
// flood of individual messages.
type AnnounceQueue struct {
	msgBus   *bus.MessageBus
	debounce time.Duration

	mu      sync.Mutex
	pending map[string][]AnnounceQueueItem
	metas   map[string]AnnounceMetadata
	timers  map[string]*time.Timer
}

// NewAnnounceQueue creates a queue that flushes each session's batch after
// debounce has elapsed since its last enqueue.
func NewAnnounceQueue(msgBus *bus.MessageBus, debounce time.Duration) *AnnounceQueue {
	return &AnnounceQueue{
		msgBus:   msgBus,
		debounce: debounce,
		pending:  make(map[string][]AnnounceQueueItem),
		metas:    make(map[string]AnnounceMetadata),
		timers:   make(map[string]*time.Timer),
	}
}

// Enqueue adds item to sessionKey's pending batch and (re)arms its flush
// timer. meta is kept from the most recent call, since routing info is the
// same across a batch in practice.
func (q *AnnounceQueue) Enqueue(sessionKey string, item AnnounceQueueItem, meta AnnounceMetadata) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[sessionKey] = append(q.pending[sessionKey], item)
	q.metas[sessionKey] = meta

	if t, ok := q.timers[sessionKey]; ok {
		t.Stop()
	}
	q.timers[sessionKey] = time.AfterFunc(q.debounce, func() { q.flush(sessionKey) })
}

func (q *AnnounceQueue) flush(sessionKey string) {
	q.mu.Lock()
	items := q.pending[sessionKey]
	meta := q.metas[sessionKey]
	delete(q.pending, sessionKey)
	delete(q.metas, sessionKey)
	delete(q.timers, sessionKey)
	q.mu.Unlock()

	if len(items) == 0 || q.msgBus == nil {
		return
	}

	content := FormatBatchedAnnounce(items, 0)
	q.msgBus.PublishInbound(bus.InboundMessage{
		Channel:  "system",
		SenderID: "subagent:batch",
		ChatID:   meta.OriginChatID,
		Content:  content,
		UserID:   meta.OriginUserID,
		Metadata: map[string]string{
			"origin_channel":      meta.OriginChannel,
			"origin_peer_kind":    meta.OriginPeerKind,
			"parent_agent":        meta.ParentAgent,
			"origin_trace_id":     meta.OriginTraceID,
			"origin_root_span_id": meta.OriginRootSpanID,
		},
	})
}

// FormatBatchedAnnounce renders one or more subagent completions as a
// single digest message for the parent agent to reformulate for the user.
func FormatBatchedAnnounce(items []AnnounceQueueItem, remainingActive int) string {
	var b strings.Builder
	if len(items) == 1 {
		b.WriteString("Subagent finished:\n\n")
	} else {
		fmt.Fprintf(&b, "%d subagents finished:\n\n", len(items))
	}
	for _, item := range items {
		fmt.Fprintf(&b, "## %s (%s, %d iterations, %s)\n%s\n\n",
			item.Label, item.Status, item.Iterations, item.Runtime.Round(time.Second), item.Result)
	}
	if remainingActive > 0 {
		fmt.Fprintf(&b, "(%d subagent(s) still running)\n", remainingActive)
	}
	return strings.TrimSpace(b.String())
}

// generateSubagentID returns a short, unique identifier for a spawned task.
func generateSubagentID() string {
	return "sub_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// scheduleArchive removes a completed task from the manager's task map
// after the configured TTL, so completed/failed history doesn't grow
// unbounded in long-running processes.
func (sm *SubagentManager) scheduleArchive(taskID string, after time.Duration) {
	time.Sleep(after)
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if t, ok := sm.tasks[taskID]; ok && t.Status != TaskStatusRunning {
		delete(sm.tasks, taskID)
	}
}
