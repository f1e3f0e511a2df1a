package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sprklai/mesoclaw/internal/channels"
)

// MessageTool lets the agent proactively send a message to a channel/chat
// outside of its normal reply flow (e.g. notifying a different chat).
type MessageTool struct {
	channels *channels.Manager
}

func NewMessageTool(mgr *channels.Manager) *MessageTool {
	return &MessageTool{channels: mgr}
}

func (t *MessageTool) Name() string        { return "message" }
func (t *MessageTool) Description() string { return "Send a message to a channel and chat, outside the current reply" }
func (t *MessageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"channel": map[string]interface{}{"type": "string", "description": "Channel name (e.g. telegram, discord)"},
			"chat_id": map[string]interface{}{"type": "string", "description": "Destination chat/channel ID"},
			"content": map[string]interface{}{"type": "string", "description": "Message content to send"},
		},
		"required": []string{"channel", "chat_id", "content"},
	}
}

func (t *MessageTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.channels == nil {
		return ErrorResult("channels are not configured")
	}
	channel, _ := args["channel"].(string)
	chatID, _ := args["chat_id"].(string)
	content, _ := args["content"].(string)
	if strings.TrimSpace(channel) == "" || strings.TrimSpace(chatID) == "" {
		return ErrorResult("channel and chat_id are required")
	}
	if strings.TrimSpace(content) == "" {
		return ErrorResult("content is required")
	}

	if err := t.channels.SendToChannel(ctx, channel, chatID, content); err != nil {
		return ErrorResult(fmt.Sprintf("failed to send message: %v", err))
	}
	return SilentResult(fmt.Sprintf("sent to %s/%s", channel, chatID))
}
