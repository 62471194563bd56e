package ws

import "encoding/json"

// MessageType constants for the topic feed protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypeHello         = "hello"
	TypeTopicsChanged = "topics_changed"
	TypePong          = "pong"
	TypeError         = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

type HelloPayload struct {
	ConnectionID string `json:"connection_id"`
}

// TopicsChangedPayload tells clients to refetch; it never carries topic bodies.
type TopicsChangedPayload struct {
	Op      string `json:"op"`
	TopicID string `json:"topic_id,omitempty"`
	At      string `json:"at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}
