// Package skills discovers and indexes SKILL.toml files so agents can
// surface specialized capabilities in their system prompt or look them up
// on demand with skill_search.
package skills

// Skill is a discovered skill definition: metadata plus its markdown body.
type Skill struct {
	Name        string
	Description string
	Path        string
	Content     string
}
