package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sprklai/mesoclaw/internal/providers"
	"github.com/sprklai/mesoclaw/internal/security"
	"github.com/sprklai/mesoclaw/internal/tools"
	"github.com/sprklai/mesoclaw/pkg/protocol"
)

// describeToolCall renders a human-readable summary of a tool call for the
// security gate's risk classification and for the approval prompt shown to
// a human. It prefers the shell command when present, falls back to a
// "name path" form for file tools, and otherwise JSON-encodes the arguments.
func describeToolCall(name string, args map[string]interface{}) string {
	if cmd, ok := args["command"].(string); ok && cmd != "" {
		return cmd
	}
	if path, ok := args["path"].(string); ok && path != "" {
		return name + " " + path
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return name
	}
	return name + " " + string(encoded)
}

// validateToolCall asks the security gate whether tc may run. For
// NeedsApproval it emits an approval.needed agent event and blocks on the
// approval broker until a response arrives or the timeout elapses; a denial
// or a timeout synthesizes an error *tools.Result instead of executing the
// tool. Returns (nil, true) when the call should proceed normally.
func (l *Loop) validateToolCall(ctx context.Context, req RunRequest, tc providers.ToolCall) (*tools.Result, bool) {
	if l.securityGate == nil {
		return nil, true
	}

	desc := describeToolCall(tc.Name, tc.Arguments)
	result := l.securityGate.ValidateCommand(tc.Name, desc)

	switch result.Decision {
	case security.Denied:
		return tools.ErrorResult(fmt.Sprintf("command denied by safety policy: %s", result.Reason)), false

	case security.NeedsApproval:
		if l.approvalBroker == nil {
			return tools.ErrorResult("command requires approval but no approval broker is configured"), false
		}
		actionID := tc.ID
		l.emit(AgentEvent{
			Type:    protocol.AgentEventApprovalNeeded,
			AgentID: l.id,
			RunID:   req.RunID,
			Payload: map[string]interface{}{
				"action_id":   actionID,
				"tool":        tc.Name,
				"description": desc,
				"risk":        result.Risk.String(),
			},
		})

		approved, err := l.approvalBroker.Await(ctx, actionID, l.approvalTimeout)

		l.emit(AgentEvent{
			Type:    protocol.AgentEventApprovalResolved,
			AgentID: l.id,
			RunID:   req.RunID,
			Payload: map[string]interface{}{
				"action_id": actionID,
				"approved":  approved,
			},
		})

		if err != nil {
			return tools.ErrorResult(fmt.Sprintf("approval timed out for %s: %v", tc.Name, err)), false
		}
		if !approved {
			return tools.ErrorResult(fmt.Sprintf("%s was not approved", tc.Name)), false
		}
		return nil, true

	default: // Allowed
		return nil, true
	}
}
