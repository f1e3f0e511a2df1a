package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
)

// ChannelSubstates are the valid substates reported by channel resources.
var ChannelSubstates = []string{
	"initialized",
	"connecting",
	"connected",
	"reconnecting",
	"sending",
	"waiting_ack",
	"polling",
	"disconnected",
	"error",
}

// DefaultFallbackChannels is the transport fallback order. Telegram and
// Discord have channel adapters; "slack" is listed here although no Slack
// channel adapter exists.
var DefaultFallbackChannels = []string{"telegram", "discord", "slack"}

// ChannelHandler supervises external messaging channel adapters.
type ChannelHandler struct {
	baseHandler
	fallbackChannels []string
}

func NewChannelHandler() *ChannelHandler {
	return &ChannelHandler{
		baseHandler:      baseHandler{substates: ChannelSubstates},
		fallbackChannels: DefaultFallbackChannels,
	}
}

func (h *ChannelHandler) ResourceType() ResourceType { return ResourceChannel }

func (h *ChannelHandler) Start(ctx context.Context, id ResourceID, cfg ResourceConfig) (*ResourceInstance, error) {
	slog.Info("channel handler starting", "resource", id)
	instance := NewResourceInstance(id, cfg)
	slog.Info("channel handler started", "resource", id)
	return instance, nil
}

func (h *ChannelHandler) Stop(ctx context.Context, instance *ResourceInstance) error {
	slog.Info("channel handler stopping", "resource", instance.ID)
	slog.Info("channel handler stopped", "resource", instance.ID)
	return nil
}

func (h *ChannelHandler) Kill(ctx context.Context, instance *ResourceInstance) error {
	slog.Warn("channel handler killing", "resource", instance.ID)
	slog.Warn("channel handler killed", "resource", instance.ID)
	return nil
}

func (h *ChannelHandler) ExtractState(ctx context.Context, instance *ResourceInstance) (*PreservedState, error) {
	slog.Debug("channel handler extracting state", "resource", instance.ID)
	return &PreservedState{
		Kind: PreservedChannel,
		Channel: &ChannelPreservedState{
			Config: instance.Config.ChannelConfig,
		},
	}, nil
}

func (h *ChannelHandler) ApplyState(ctx context.Context, instance *ResourceInstance, state *PreservedState) error {
	slog.Debug("channel handler applying state", "resource", instance.ID)
	if state == nil || state.Kind != PreservedChannel || state.Channel == nil {
		return fmt.Errorf("invalid state type for channel")
	}
	instance.Config.ChannelConfig = state.Channel.Config
	slog.Info("channel handler applied state", "resource", instance.ID)
	return nil
}

func (h *ChannelHandler) GetFallbacks(current *ResourceInstance) []FallbackOption {
	var opts []FallbackOption
	for _, channel := range h.fallbackChannels {
		if channel == current.Config.ChannelType {
			continue
		}
		opts = append(opts, FallbackOption{
			ID:          "fallback_" + channel,
			Label:       "Use " + channel + " instead",
			Description: "Switch to " + channel + " channel",
			Config:      ResourceConfig{ChannelType: channel},
		})
		if len(opts) == 2 {
			break
		}
	}
	return opts
}

func (h *ChannelHandler) HealthCheck(ctx context.Context, instance *ResourceInstance) (HealthStatus, error) {
	return HealthHealthy, nil
}

func (h *ChannelHandler) Cleanup(ctx context.Context, instance *ResourceInstance) error {
	slog.Debug("channel handler cleaning up", "resource", instance.ID)
	return nil
}
