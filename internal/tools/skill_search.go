package tools

import (
	"context"
	"encoding/json"

	"github.com/sprklai/mesoclaw/internal/skills"
)

// SkillSearchTool lets an agent look up the full content of a skill that was
// only summarized (name + description) in its system prompt.
type SkillSearchTool struct {
	loader    *skills.Loader
	allowList []string // nil = all skills visible, matching LoopConfig.SkillAllowList semantics
}

func NewSkillSearchTool(loader *skills.Loader, allowList []string) *SkillSearchTool {
	return &SkillSearchTool{loader: loader, allowList: allowList}
}

func (t *SkillSearchTool) Name() string { return "skill_search" }
func (t *SkillSearchTool) Description() string {
	return "Look up the full content of an available skill by name, or list all available skills."
}

func (t *SkillSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Skill name to load. Omit to list all available skills.",
			},
		},
	}
}

func (t *SkillSearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.loader == nil {
		return ErrorResult("skills loader not available")
	}

	name, _ := args["name"].(string)
	if name == "" {
		visible := t.loader.FilterSkills(t.allowList)
		type entry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		entries := make([]entry, 0, len(visible))
		for _, s := range visible {
			entries = append(entries, entry{Name: s.Name, Description: s.Description})
		}
		out, _ := json.Marshal(map[string]interface{}{"skills": entries})
		return SilentResult(string(out))
	}

	if !skillAllowed(t.allowList, name) {
		return ErrorResult("skill not available: " + name)
	}

	content, err := t.loader.GetContent(name)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return SilentResult(content)
}

func skillAllowed(allow []string, name string) bool {
	if allow == nil {
		return true
	}
	for _, a := range allow {
		if a == name {
			return true
		}
	}
	return false
}
