package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirectPairKey_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(
		DirectPairKey("alice@example.com", "bob@example.com"),
		DirectPairKey("bob@example.com", "alice@example.com"),
	)
	req.Equal("alice@example.com|bob@example.com",
		DirectPairKey("bob@example.com", "alice@example.com"))
}

func TestContentKind_Valid(t *testing.T) {
	req := require.New(t)

	for _, kind := range []ContentKind{ContentText, ContentImage, ContentVideo, ContentFile} {
		req.True(kind.Valid())
	}
	req.False(ContentKind("hologram").Valid())
	req.False(ContentKind("").Valid())
}

func TestConversation_HasParticipant(t *testing.T) {
	req := require.New(t)
	conv := Conversation{Participants: []string{"alice@example.com", "bob@example.com"}}

	req.True(conv.HasParticipant("alice@example.com"))
	req.False(conv.HasParticipant("mallory@example.com"))
}

func TestMessage_WasReadBy(t *testing.T) {
	req := require.New(t)
	msg := Message{ReadBy: []ReadReceipt{{Reader: "bob@example.com", ReadAt: time.Now()}}}

	req.True(msg.WasReadBy("bob@example.com"))
	req.False(msg.WasReadBy("alice@example.com"))
}
