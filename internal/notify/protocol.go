package notify

import (
	"encoding/json"
	"fmt"
)

// Event names sent by the server.
const (
	EventNotification = "notification"
	EventUnreadCount  = "unread-count"
)

// Frame is one message on the stream.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type unreadCountData struct {
	Count int `json:"count"`
}

func parseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("invalid frame: %w", err)
	}
	if f.Event == "" {
		return f, fmt.Errorf("frame without event")
	}
	return f, nil
}

// EncodeFrame builds a frame for event with payload as data.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
