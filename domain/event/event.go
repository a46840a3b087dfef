// Package event defines the events pushed to live connections.
// Each event knows its wire name; the transport layer wraps it in an
// envelope and serializes it, nothing more.
package event

import (
	"time"

	"chat-relay/domain"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventName() string
}

// MessagePosted carries the full persisted message to the conversation's
// live participants (except the sender's own connection).
type MessagePosted struct {
	Message domain.Message `json:"message"`
}

func (MessagePosted) EventName() string { return "message" }

// ConversationTouched is the lightweight list-refresh signal broadcast to
// every live connection, sender included, so sender-side clients can
// reconcile their optimistic UI state.
type ConversationTouched struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Preview        string    `json:"preview"`
	At             time.Time `json:"at"`
}

func (ConversationTouched) EventName() string { return "conversation-touched" }

// ConversationCreated tells the other participants' live connections that a
// conversation now exists, before any message has been sent in it.
type ConversationCreated struct {
	Conversation domain.Conversation `json:"conversation"`
}

func (ConversationCreated) EventName() string { return "chat-created" }

type UserJoined struct {
	Identity string `json:"identity"`
}

func (UserJoined) EventName() string { return "user-joined" }

type UserLeft struct {
	Identity string `json:"identity"`
}

func (UserLeft) EventName() string { return "user-left" }

type OnlineSet struct {
	Identities []string `json:"identities"`
}

func (OnlineSet) EventName() string { return "online-set" }

type TypingChanged struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Identity       string    `json:"identity"`
	DisplayName    string    `json:"display_name"`
	IsTyping       bool      `json:"is_typing"`
}

func (TypingChanged) EventName() string { return "typing" }

// OperationDeclined is sent back on the originating connection when a
// client-submitted operation is rejected at the request boundary.
type OperationDeclined struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

func (OperationDeclined) EventName() string { return "error" }
