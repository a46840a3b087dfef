// Package domain contains core concepts of the messaging system.
// This file defines Message records and related rules.
// Messages are immutable after creation, except for read receipt appends.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentVideo ContentKind = "video"
	ContentFile  ContentKind = "file"
)

func (k ContentKind) Valid() bool {
	switch k {
	case ContentText, ContentImage, ContentVideo, ContentFile:
		return true
	}
	return false
}

// ReadReceipt marks that a reader has seen a message. At most one entry
// per reader is ever appended.
type ReadReceipt struct {
	Reader string    `json:"reader"`
	ReadAt time.Time `json:"read_at"`
}

// Message belongs to exactly one Conversation. Sender name is captured
// redundantly at creation time: renaming a user later never rewrites history.
//
// Stamp is the persistence-assigned sequence stamp: strictly increasing
// within a conversation, so concurrent sends from different senders are
// still totally ordered.
type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Sender         string        `json:"sender"`
	SenderName     string        `json:"sender_name"`
	Content        string        `json:"content"`
	Kind           ContentKind   `json:"kind"`
	FileName       string        `json:"file_name,omitempty"`
	Stamp          int64         `json:"stamp"`
	CreatedAt      time.Time     `json:"created_at"`
	ReadBy         []ReadReceipt `json:"read_by,omitempty"`
}

// WasReadBy reports whether the given reader already has a receipt.
func (m Message) WasReadBy(reader string) bool {
	for _, r := range m.ReadBy {
		if r.Reader == reader {
			return true
		}
	}
	return false
}
