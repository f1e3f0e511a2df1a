package protocol

import "encoding/json"

// ProtocolVersion identifies the wire format spoken over the gateway's
// WebSocket and HTTP surfaces. Bump it whenever a breaking frame change
// ships so stale clients can detect the mismatch via /health or "connect".
const ProtocolVersion = 1

// FrameType distinguishes the three kinds of messages that travel over the
// gateway WebSocket connection.
type FrameType string

const (
	FrameRequest  FrameType = "request"
	FrameResponse FrameType = "response"
	FrameEvent    FrameType = "event"
)

// RequestFrame is a client → server RPC call.
type RequestFrame struct {
	Type   FrameType       `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame is the server's reply to a RequestFrame, correlated by ID.
type ResponseFrame struct {
	Type   FrameType   `json:"type"`
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *FrameError `json:"error,omitempty"`
}

// FrameError carries a failed RPC call's error code and message.
type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EventFrame is a server → client push, not correlated to any request.
type EventFrame struct {
	Type    FrameType   `json:"type"`
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent wraps a name/payload pair into a broadcastable EventFrame.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Type: FrameEvent, Name: name, Payload: payload}
}

// NewResponse builds a successful ResponseFrame for the given request ID.
func NewResponse(id string, result interface{}) *ResponseFrame {
	return &ResponseFrame{Type: FrameResponse, ID: id, Result: result}
}

// NewErrorResponse builds a failed ResponseFrame for the given request ID.
func NewErrorResponse(id, code, message string) *ResponseFrame {
	return &ResponseFrame{Type: FrameResponse, ID: id, Error: &FrameError{Code: code, Message: message}}
}
