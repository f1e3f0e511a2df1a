// Package methods implements gateway RPC method handlers that sit above a
// single subsystem (channels, cron, memory) and register themselves against
// a *gateway.MethodRouter.
package methods

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sprklai/mesoclaw/internal/channels"
	"github.com/sprklai/mesoclaw/internal/gateway"
	"github.com/sprklai/mesoclaw/pkg/protocol"
)

// ChannelsMethods exposes read/control RPCs over the channel fabric:
// which channels are enabled, their running status, and toggling delivery
// for one of them at runtime.
type ChannelsMethods struct {
	mgr *channels.Manager
}

// NewChannelsMethods creates a handler bound to the given channel manager.
func NewChannelsMethods(mgr *channels.Manager) *ChannelsMethods {
	return &ChannelsMethods{mgr: mgr}
}

// Register binds all channels.* methods onto router.
func (m *ChannelsMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodChannelsList, m.handleList)
	router.Register(protocol.MethodChannelsStatus, m.handleStatus)
	router.Register(protocol.MethodChannelsToggle, m.handleToggle)
}

func (m *ChannelsMethods) handleList(ctx context.Context, c *gateway.Client, raw json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"channels": m.mgr.GetEnabledChannels(),
	}, nil
}

func (m *ChannelsMethods) handleStatus(ctx context.Context, c *gateway.Client, raw json.RawMessage) (interface{}, error) {
	return m.mgr.GetStatus(), nil
}

func (m *ChannelsMethods) handleToggle(ctx context.Context, c *gateway.Client, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Channel string `json:"channel"`
		Enabled bool   `json:"enabled"`
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	if params.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	ch, ok := m.mgr.GetChannel(params.Channel)
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", params.Channel)
	}

	if params.Enabled && !ch.IsRunning() {
		if err := ch.Start(ctx); err != nil {
			return nil, fmt.Errorf("start channel: %w", err)
		}
	} else if !params.Enabled && ch.IsRunning() {
		if err := ch.Stop(ctx); err != nil {
			return nil, fmt.Errorf("stop channel: %w", err)
		}
	}

	return map[string]interface{}{
		"channel": params.Channel,
		"running": ch.IsRunning(),
	}, nil
}
