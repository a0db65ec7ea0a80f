package realtime

import (
	"encoding/json"
	"time"
)

const EventOnlineUsers = "getOnlineUsers"

// Frame es el sobre JSON de todo evento servidor -> cliente.
type Frame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func encodeFrame(event string, payload any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: event, Payload: raw, Timestamp: now.UTC()})
}
