// Package ws is the live-connection transport: a websocket hub speaking a
// small JSON envelope protocol. It owns no relay logic; every client event
// is handed synchronously to the registry, the typing tracker, or the
// conversation service.
package ws

import (
	"encoding/json"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/google/uuid"
)

// Envelope is the wire frame in both directions: the event name plus its
// payload, nothing else.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client event names.
const (
	TypeAnnounce    = "announce"
	TypeSendMessage = "send-message"
	TypeTyping      = "typing"
	TypeMarkRead    = "mark-read"
)

type AnnouncePayload struct {
	Identity string `json:"identity"`
}

type SendMessagePayload struct {
	ConversationID uuid.UUID          `json:"conversation_id"`
	Content        string             `json:"content"`
	Kind           domain.ContentKind `json:"kind"`
	FileName       string             `json:"file_name,omitempty"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	IsTyping       bool      `json:"is_typing"`
}

type MarkReadPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
}

// EncodeEvent wraps a server event into its wire envelope.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: e.EventName(), Data: data})
}
