package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sprklai/mesoclaw/internal/providers"
)

// fencedBlockPattern matches ```json ... ``` and ```tool ... ``` fenced
// blocks in document order, non-greedily so multiple blocks in one message
// are each captured separately.
var fencedBlockPattern = regexp.MustCompile("(?s)```(json|tool)\\n(.*?)\\n```")

// jsonToolCall is the shape of a fenced ```json tool-call block.
type jsonToolCall struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
}

// parseFencedToolCalls scans content for fenced tool-call blocks in either
// of the two forms models are instructed to emit when native tool-calling
// isn't used:
//
//	```json
//	{"tool": "NAME", "arguments": {...}}
//	```
//
//	```tool
//	name: NAME
//	arg1: value1
//	```
//
// Blocks are parsed in the order they appear. Malformed blocks are skipped
// rather than aborting the whole parse.
func parseFencedToolCalls(content string) []providers.ToolCall {
	matches := fencedBlockPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var calls []providers.ToolCall
	for _, m := range matches {
		kind, body := m[1], m[2]
		switch kind {
		case "json":
			var parsed jsonToolCall
			if err := json.Unmarshal([]byte(body), &parsed); err != nil || parsed.Tool == "" {
				continue
			}
			if parsed.Arguments == nil {
				parsed.Arguments = map[string]interface{}{}
			}
			calls = append(calls, providers.ToolCall{
				ID:        uuid.NewString(),
				Name:      parsed.Tool,
				Arguments: parsed.Arguments,
			})
		case "tool":
			name, args := parsePlainToolBlock(body)
			if name == "" {
				continue
			}
			calls = append(calls, providers.ToolCall{
				ID:        uuid.NewString(),
				Name:      name,
				Arguments: args,
			})
		}
	}
	return calls
}

// parsePlainToolBlock parses a "key: value" per line body. The "name" key
// names the tool; every other key becomes a string-valued argument.
func parsePlainToolBlock(body string) (string, map[string]interface{}) {
	args := make(map[string]interface{})
	name := ""
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.EqualFold(key, "name") {
			name = value
			continue
		}
		args[key] = value
	}
	return name, args
}
