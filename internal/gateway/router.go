package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MethodHandler handles one RPC method call from a connected client.
// raw is the request's undecoded params; handlers decode into their own
// typed struct.
type MethodHandler func(ctx context.Context, c *Client, raw json.RawMessage) (interface{}, error)

// MethodRouter dispatches incoming RPC frames to registered handlers by
// method name. Channel/tool/method packages register their own methods
// against it via Server.Router().
type MethodRouter struct {
	server *Server

	mu       sync.RWMutex
	handlers map[string]MethodHandler
}

// NewMethodRouter creates an empty router bound to the owning server.
func NewMethodRouter(s *Server) *MethodRouter {
	return &MethodRouter{
		server:   s,
		handlers: make(map[string]MethodHandler),
	}
}

// Register binds a method name to its handler. A later Register call for
// the same name replaces the previous handler.
func (r *MethodRouter) Register(method string, handler MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = handler
}

// Dispatch looks up and invokes the handler for method, returning an error
// if none is registered.
func (r *MethodRouter) Dispatch(ctx context.Context, c *Client, method string, raw json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	handler, ok := r.handlers[method]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown method %q", method)
	}
	return handler(ctx, c, raw)
}
