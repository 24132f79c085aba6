package sse

import "time"

// Stream control event names shared by every stream.
const (
	EventConnected = "connected"
	EventHeartbeat = "heartbeat"
	EventError     = "error"
)

// ConnectedEvent is the first message on a stream.
type ConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
	Topic        string `json:"topic"`
}

// HeartbeatEvent keeps idle connections open through proxies.
type HeartbeatEvent struct {
	Timestamp string `json:"timestamp"`
}

// NewHeartbeat stamps a heartbeat with the current UTC time.
func NewHeartbeat() HeartbeatEvent {
	return HeartbeatEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// ErrorEvent reports a stream-level failure before the server closes it.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
