package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// SkillFilename is the expected filename for a skill definition.
const SkillFilename = "SKILL.toml"

// frontmatterDelimiter marks the beginning and end of the TOML frontmatter
// block, following the usual +++ convention for TOML frontmatter.
const frontmatterDelimiter = "+++"

type skillFrontmatter struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// ParseSkillFile reads a SKILL.toml file and returns its Skill.
func ParseSkillFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill file: %w", err)
	}
	return ParseSkill(data, filepath.Dir(path))
}

// ParseSkill splits a SKILL.toml body into frontmatter and markdown content.
func ParseSkill(data []byte, skillPath string) (*Skill, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("split frontmatter: %w", err)
	}

	var fm skillFrontmatter
	if _, err := toml.Decode(string(frontmatter), &fm); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm.Name == "" {
		return nil, fmt.Errorf("skill name is required")
	}
	if fm.Description == "" {
		return nil, fmt.Errorf("skill description is required")
	}

	return &Skill{
		Name:        fm.Name,
		Description: fm.Description,
		Path:        skillPath,
		Content:     strings.TrimSpace(string(body)),
	}, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var fmLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return []byte(strings.Join(fmLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}
