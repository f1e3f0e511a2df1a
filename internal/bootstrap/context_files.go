package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
)

// ContextFile is a workspace-root markdown file injected verbatim into the
// agent's system prompt (AGENTS.md, SOUL.md, a per-user USER.md, ...).
type ContextFile struct {
	Path    string
	Content string
}

// DefaultMaxCharsPerFile and DefaultTotalMaxChars bound how much of the
// workspace's root files get inlined into the system prompt, so a runaway
// AGENTS.md can't blow the context window.
const (
	DefaultMaxCharsPerFile = 8000
	DefaultTotalMaxChars   = 24000
)

// TruncateConfig controls how LoadWorkspaceFiles output is capped before
// being injected into the system prompt.
type TruncateConfig struct {
	MaxCharsPerFile int
	TotalMaxChars   int
}

// LoadWorkspaceFiles reads the standard bootstrap files from a workspace
// root. Missing files are skipped silently — not every agent carries every
// file.
func LoadWorkspaceFiles(workspaceDir string) []ContextFile {
	var out []ContextFile
	for _, name := range []string{AgentsFile, SoulFile, ToolsFile, IdentityFile, UserFile, HeartbeatFile, BootstrapFile} {
		data, err := os.ReadFile(filepath.Join(workspaceDir, name))
		if err != nil {
			continue
		}
		out = append(out, ContextFile{Path: name, Content: string(data)})
	}
	return out
}

// BuildContextFiles truncates raw workspace files to fit within cfg's
// per-file and total character budgets, preserving file order.
func BuildContextFiles(raw []ContextFile, cfg TruncateConfig) []ContextFile {
	maxPerFile := cfg.MaxCharsPerFile
	if maxPerFile <= 0 {
		maxPerFile = DefaultMaxCharsPerFile
	}
	totalMax := cfg.TotalMaxChars
	if totalMax <= 0 {
		totalMax = DefaultTotalMaxChars
	}

	out := make([]ContextFile, 0, len(raw))
	remaining := totalMax
	for _, f := range raw {
		if remaining <= 0 {
			break
		}
		content := f.Content
		if len(content) > maxPerFile {
			content = content[:maxPerFile] + "\n...[truncated]"
		}
		if len(content) > remaining {
			content = content[:remaining] + "\n...[truncated]"
		}
		out = append(out, ContextFile{Path: f.Path, Content: strings.TrimRight(content, "\n")})
		remaining -= len(content)
	}
	return out
}
