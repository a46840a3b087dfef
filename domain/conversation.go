package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

// Conversation is a flat participant set plus denormalized metadata about
// the most recent message. The participant set is order-irrelevant; direct
// conversations always hold exactly two identities.
type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	Kind          Kind       `json:"kind"`
	Name          string     `json:"name,omitempty"` // group conversations only
	Participants  []string   `json:"participants"`
	LastMessageID *uuid.UUID `json:"last_message_id,omitempty"`
	LastMessageAt time.Time  `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (c Conversation) HasParticipant(identity string) bool {
	for _, p := range c.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// DirectPairKey normalizes an unordered identity pair into a stable key.
// Both (a,b) and (b,a) map to the same key, which is what enforces the
// at-most-one-direct-conversation-per-pair invariant at the storage layer.
func DirectPairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}
