package runtime

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// previewLength caps the content excerpt carried by conversation-touched
// events; list views never need the full payload.
const previewLength = 80

// Relay pushes an already-persisted message to the live connections of its
// conversation's participants. It owns no state of its own: presence lookups
// go through the registry, and the message was durably stored before Deliver
// is called, so a participant without a live connection simply catches up on
// the next pull.
type Relay struct {
	log      *slog.Logger
	registry contract.IPresence
}

func NewRelay(log *slog.Logger, registry contract.IPresence) *Relay {
	return &Relay{log: log, registry: registry}
}

// Deliver fans the full message out to every participant's live connection
// except the sender's own, then broadcasts a minimal conversation-touched
// event to every connection system-wide (sender included) for list refresh.
//
// The caller invokes Deliver synchronously after the persistence write, under
// its per-conversation ordering lock, which is what guarantees deliveries for
// one conversation arrive in persistence order. Delivery is at-most-once per
// live connection per call; calling Deliver twice for the same persisted
// message is on the caller.
func (r *Relay) Deliver(ctx context.Context, msg domain.Message, participants []string) {
	for _, participant := range participants {
		if participant == msg.Sender {
			continue
		}
		sink, ok := r.registry.SinkOf(participant)
		if !ok {
			// Offline, or a dangling reference to a deleted user: the
			// persisted log already satisfies delivery, skip.
			r.log.Debug("Participant offline, skipping push",
				"participant", participant, "conversation", msg.ConversationID)
			continue
		}
		if err := sink.Consume(ctx, event.MessagePosted{Message: msg}); err != nil {
			r.log.Debug("Message push dropped",
				"participant", participant, "error", err)
		}
	}

	r.registry.Broadcast(ctx, event.ConversationTouched{
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Preview:        preview(msg.Content),
		At:             msg.CreatedAt,
	})
}

// DeliverConversation pushes a chat-created event to every participant's
// live connection except the creator's, so counterparts see the new
// conversation in their list before any message arrives in it.
func (r *Relay) DeliverConversation(ctx context.Context, conv domain.Conversation, creator string) {
	for _, participant := range conv.Participants {
		if participant == creator {
			continue
		}
		sink, ok := r.registry.SinkOf(participant)
		if !ok {
			continue
		}
		if err := sink.Consume(ctx, event.ConversationCreated{Conversation: conv}); err != nil {
			r.log.Debug("Chat-created push dropped",
				"participant", participant, "error", err)
		}
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}
