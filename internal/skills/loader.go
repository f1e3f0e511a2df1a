package skills

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Loader discovers skills from a workspace subdirectory, a global directory,
// and an optional extra directory, in that priority order (workspace wins
// on name conflicts).
type Loader struct {
	dirs []string

	mu     sync.RWMutex
	skills []Skill
}

// NewLoader builds a Loader scanning <workspace>/skills, globalDir, and
// (if non-empty) extraDir. It performs an initial scan synchronously.
func NewLoader(workspace, globalDir, extraDir string) *Loader {
	var dirs []string
	if workspace != "" {
		dirs = append(dirs, filepath.Join(workspace, "skills"))
	}
	if globalDir != "" {
		dirs = append(dirs, globalDir)
	}
	if extraDir != "" {
		dirs = append(dirs, extraDir)
	}
	l := &Loader{dirs: dirs}
	l.Reload()
	return l
}

// Reload rescans all configured directories, replacing the in-memory index.
func (l *Loader) Reload() {
	seen := make(map[string]struct{})
	var found []Skill

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			skillFile := filepath.Join(dir, e.Name(), SkillFilename)
			skill, err := ParseSkillFile(skillFile)
			if err != nil {
				if !os.IsNotExist(err) {
					slog.Warn("skills: failed to parse skill", "path", skillFile, "error", err)
				}
				continue
			}
			if _, dup := seen[skill.Name]; dup {
				continue
			}
			seen[skill.Name] = struct{}{}
			found = append(found, *skill)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })

	l.mu.Lock()
	l.skills = found
	l.mu.Unlock()
}

// ListSkills returns all discovered skills.
func (l *Loader) ListSkills() []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Skill, len(l.skills))
	copy(out, l.skills)
	return out
}

// FilterSkills returns the skills visible to an agent given its allowlist.
// nil means all skills are visible; an empty (non-nil) slice means none;
// otherwise only named skills pass through.
func (l *Loader) FilterSkills(allow []string) []Skill {
	all := l.ListSkills()
	if allow == nil {
		return all
	}
	if len(allow) == 0 {
		return nil
	}
	allowSet := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		allowSet[name] = struct{}{}
	}
	var out []Skill
	for _, s := range all {
		if _, ok := allowSet[s.Name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// BuildSummary renders an XML-ish <available_skills> block describing the
// skills visible to allow, for inlining directly into a system prompt.
func (l *Loader) BuildSummary(allow []string) string {
	filtered := l.FilterSkills(allow)
	if len(filtered) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range filtered {
		fmt.Fprintf(&b, "  <skill name=%q>%s</skill>\n", s.Name, s.Description)
	}
	b.WriteString("</available_skills>")
	return b.String()
}

// GetContent loads the full markdown body for a named skill.
func (l *Loader) GetContent(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.skills {
		if s.Name == name {
			return s.Content, nil
		}
	}
	return "", fmt.Errorf("skill not found: %s", name)
}

// Dirs returns the directories this loader scans, for the watcher to observe.
func (l *Loader) Dirs() []string {
	out := make([]string, len(l.dirs))
	copy(out, l.dirs)
	return out
}
