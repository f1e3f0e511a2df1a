package scheduler

import (
	"strings"
	"testing"
)

const sampleHeartbeatDoc = `# Heartbeat Checks

Run these checks periodically:

- [ ] Verify disk space is below 90%
- [ ] Check API key validity
- [x] Confirm log rotation is active
- [X] Validate config files exist

## Notes

These are handled automatically by the agent.
`

func TestParseHeartbeatItemsUnchecked(t *testing.T) {
	items := ParseHeartbeatItems(sampleHeartbeatDoc)
	assertHasItem(t, items, "Verify disk space is below 90%")
	assertHasItem(t, items, "Check API key validity")
}

func TestParseHeartbeatItemsCheckedLowercase(t *testing.T) {
	items := ParseHeartbeatItems(sampleHeartbeatDoc)
	assertHasItem(t, items, "Confirm log rotation is active")
}

func TestParseHeartbeatItemsCheckedUppercase(t *testing.T) {
	items := ParseHeartbeatItems(sampleHeartbeatDoc)
	assertHasItem(t, items, "Validate config files exist")
}

func TestParseHeartbeatItemsIgnoresNonChecklistLines(t *testing.T) {
	items := ParseHeartbeatItems(sampleHeartbeatDoc)
	for _, item := range items {
		if item == "Notes" || item == "These are handled automatically by the agent." {
			t.Errorf("unexpected non-checklist item parsed: %q", item)
		}
	}
}

func TestParseHeartbeatItemsEmptyContentReturnsEmpty(t *testing.T) {
	if items := ParseHeartbeatItems(""); len(items) != 0 {
		t.Errorf("got %v, want no items", items)
	}
}

func TestParseHeartbeatItemsNoChecklistLinesReturnsEmpty(t *testing.T) {
	items := ParseHeartbeatItems("# Heartbeat\n\nJust some prose, no checklist here.")
	if len(items) != 0 {
		t.Errorf("got %v, want no items", items)
	}
}

func TestParseHeartbeatItemsCount(t *testing.T) {
	items := ParseHeartbeatItems(sampleHeartbeatDoc)
	if len(items) != 4 {
		t.Errorf("got %d items, want 4: %v", len(items), items)
	}
}

func TestBuildHeartbeatPromptFallsBackWhenEmpty(t *testing.T) {
	prompt := buildHeartbeatPrompt(nil)
	if prompt == "" {
		t.Error("expected a non-empty fallback prompt")
	}
}

func TestBuildHeartbeatPromptListsItems(t *testing.T) {
	prompt := buildHeartbeatPrompt([]string{"Check disk space", "Rotate logs"})
	if !strings.Contains(prompt, "Check disk space") || !strings.Contains(prompt, "Rotate logs") {
		t.Errorf("prompt %q missing checklist items", prompt)
	}
}

func assertHasItem(t *testing.T, items []string, want string) {
	t.Helper()
	for _, item := range items {
		if item == want {
			return
		}
	}
	t.Errorf("items %v do not contain %q", items, want)
}
