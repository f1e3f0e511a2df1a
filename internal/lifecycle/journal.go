package lifecycle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// journalEntry is the on-disk record for one resource, matching the
// (resource_id, state, substate, last_heartbeat, retry_count,
// failure_context) tuple the supervisor persists after every
// state-changing operation.
type journalEntry struct {
	ResourceID     ResourceID      `json:"resource_id"`
	State          LifecycleState  `json:"state"`
	Substate       string          `json:"substate"`
	Config         ResourceConfig  `json:"config"`
	LastHeartbeat  string          `json:"last_heartbeat"` // RFC3339
	RetryCount     int             `json:"retry_count"`
	Tier           int             `json:"tier"`
	FailureContext *FailureContext `json:"failure_context,omitempty"`
}

// Journal persists resource state to disk so a process restart can replay
// it instead of losing track of what was running. One file per resource,
// keyed by its string ID, written atomically (temp file + rename) matching
// the session store's persistence pattern.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// NewJournal creates a journal rooted at dir, creating it if necessary. An
// empty dir disables persistence: Write and Replay both become no-ops.
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		return &Journal{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{dir: dir}, nil
}

func (j *Journal) path(id ResourceID) string {
	return filepath.Join(j.dir, sanitizeJournalKey(id.String())+".json")
}

// Write persists the current state of one resource instance.
func (j *Journal) Write(instance *ResourceInstance) error {
	if j.dir == "" {
		return nil
	}
	entry := journalEntry{
		ResourceID:     instance.ID,
		State:          instance.State,
		Substate:       instance.Substate,
		Config:         instance.Config,
		LastHeartbeat:  instance.LastHeartbeat.Format(time.RFC3339Nano),
		RetryCount:     instance.RetryCount,
		Tier:           instance.Tier,
		FailureContext: instance.FailureContext,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tmp, err := os.CreateTemp(j.dir, "journal-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	if err := os.Rename(tmpPath, j.path(instance.ID)); err != nil {
		return err
	}
	cleanup = false
	return nil
}

// Remove deletes a resource's journal entry, called once it reaches a
// terminal state and is no longer a restart-recovery candidate.
func (j *Journal) Remove(id ResourceID) {
	if j.dir == "" {
		return
	}
	os.Remove(j.path(id))
}

// ReplayAll loads every persisted entry. Resources that were Running or
// Stuck are returned so the caller can begin recovery; terminal resources
// are returned too so they remain queryable, but the caller must not
// restart them.
func (j *Journal) ReplayAll() ([]*ResourceInstance, error) {
	if j.dir == "" {
		return nil, nil
	}
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*ResourceInstance
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(j.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry journalEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		instance := &ResourceInstance{
			ID:             entry.ResourceID,
			State:          entry.State,
			Substate:       entry.Substate,
			Config:         entry.Config,
			RetryCount:     entry.RetryCount,
			Tier:           entry.Tier,
			FailureContext: entry.FailureContext,
		}
		if t, err := time.Parse(time.RFC3339Nano, entry.LastHeartbeat); err == nil {
			instance.LastHeartbeat = t
		}
		out = append(out, instance)
	}
	return out, nil
}

// sanitizeJournalKey replaces path separators in a resource ID string so it
// is always a single safe filename component.
func sanitizeJournalKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch r {
		case '/', '\\', '.', ' ':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
