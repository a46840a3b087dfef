package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain/event"
	"chat-relay/sink"

	"github.com/gorilla/websocket"
)

// client binds one websocket connection to its identity and its sink.
// The read pump decodes client events and invokes the relay components
// directly; the write pump drains the sink onto the wire.
type client struct {
	server      *Server
	conn        *websocket.Conn
	sink        *sink.ConnSink
	identity    string
	displayName string
	log         *slog.Logger
}

// readPump processes inbound frames until the connection dies. Its deferred
// cleanup is the single place a disconnect triggers withdrawal, so withdraw
// runs exactly once per connection no matter how it ended.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		// Typing entries belong to the identity, not the connection: only
		// the connection that still owns the presence slot may clear them.
		// A superseded connection exiting late must not wipe the live
		// session's state.
		if current, ok := c.server.registry.SinkOf(c.identity); ok && current == c.sink {
			c.server.tracker.WithdrawIdentity(ctx, c.identity)
		}
		c.server.registry.Withdraw(ctx, c.sink)
		_ = c.conn.Close()
		c.log.Debug("Read pump stopped", "identity", c.identity)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(c.server.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.server.pongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Debug("Invalid frame, ignoring", "error", err)
			continue
		}
		c.dispatch(ctx, env)
	}
}

// dispatch routes one client event. Declined operations come back on the
// same connection as an error event with a reason; they never tear down the
// connection or the relay.
func (c *client) dispatch(ctx context.Context, env Envelope) {
	switch env.Type {
	case TypeAnnounce:
		// The identity is the authenticated one from the token, not
		// whatever the payload claims.
		c.server.registry.Announce(ctx, c.identity, c.sink)

	case TypeSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.decline(ctx, env.Type, err)
			return
		}
		_, err := c.server.conversations.Send(ctx, p.ConversationID,
			c.identity, c.displayName, p.Content, p.Kind, p.FileName)
		if err != nil {
			c.decline(ctx, env.Type, err)
		}

	case TypeTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.decline(ctx, env.Type, err)
			return
		}
		c.server.tracker.SetTyping(ctx, p.ConversationID,
			c.identity, c.displayName, p.IsTyping, c.sink)

	case TypeMarkRead:
		var p MarkReadPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.decline(ctx, env.Type, err)
			return
		}
		_, err := c.server.conversations.MarkRead(ctx, p.ConversationID, c.identity, p.MessageID)
		if err != nil {
			c.decline(ctx, env.Type, err)
		}

	default:
		c.decline(ctx, env.Type, fmt.Errorf("unknown event type %q", env.Type))
	}
}

func (c *client) decline(ctx context.Context, op string, err error) {
	c.log.Debug("Operation declined", "op", op, "identity", c.identity, "reason", err)
	_ = c.sink.Consume(ctx, event.OperationDeclined{Op: op, Reason: err.Error()})
}

// writePump serializes sink events onto the wire and keeps the connection
// alive with pings. It exits when the sink's context ends or a write fails;
// the read pump then notices the dead connection and cleans up.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.server.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-c.sink.Events:
			bytes, err := EncodeEvent(evt)
			if err != nil {
				c.log.Error("Failed to encode event", "event", evt.EventName(), "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, bytes); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

const writeTimeout = 10 * time.Second
