package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sprklai/mesoclaw/pkg/protocol"
)

const (
	clientWriteWait  = 10 * time.Second
	clientPongWait   = 60 * time.Second
	clientPingPeriod = clientPongWait * 9 / 10
	clientSendBuffer = 64
)

// Client represents one connected WebSocket peer (CLI, SDK, or a control
// surface talking the gateway's request/response/event protocol).
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded WebSocket connection for the RPC/event loop.
func NewClient(conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		send:   make(chan []byte, clientSendBuffer),
	}
}

// Run drives the client's read and write loops until the connection closes
// or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(clientPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(clientPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req protocol.RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			c.writeFrame(protocol.NewErrorResponse("", "invalid_frame", err.Error()))
			continue
		}
		c.handleRequest(ctx, req)
	}
}

func (c *Client) handleRequest(ctx context.Context, req protocol.RequestFrame) {
	if c.server.router == nil {
		c.writeFrame(protocol.NewErrorResponse(req.ID, "no_router", "no method router configured"))
		return
	}
	result, err := c.server.router.Dispatch(ctx, c, req.Method, req.Params)
	if err != nil {
		c.writeFrame(protocol.NewErrorResponse(req.ID, "method_error", err.Error()))
		return
	}
	c.writeFrame(protocol.NewResponse(req.ID, result))
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(clientPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeFrame(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("client.encode_failed", "client", c.id, "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("client.send_buffer_full", "client", c.id)
	}
}

// SendEvent pushes a server-side event frame to this client.
func (c *Client) SendEvent(event protocol.EventFrame) {
	c.writeFrame(event)
}

// Close terminates the client's send channel and underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.conn.Close()
}
