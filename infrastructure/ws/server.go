package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/services"
	"chat-relay/sink"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server upgrades authenticated HTTP requests into live connections and
// hands each one a dedicated ConnSink plus a pair of pumps.
type Server struct {
	log           *slog.Logger
	registry      contract.IPresence
	tracker       contract.ITypingTracker
	conversations services.IConversationService
	users         *services.UserService
	tokens        *auth.Tokens

	bufferSize   int
	pingInterval time.Duration
	pongTimeout  time.Duration

	// baseCtx outlives individual HTTP requests; pump lifetimes are tied to
	// the server shutting down, not to the upgrade request.
	baseCtx  context.Context
	upgrader websocket.Upgrader
}

func NewServer(
	baseCtx context.Context,
	log *slog.Logger,
	registry contract.IPresence,
	tracker contract.ITypingTracker,
	conversations services.IConversationService,
	users *services.UserService,
	tokens *auth.Tokens,
	bufferSize int,
	pingInterval, pongTimeout time.Duration,
) *Server {
	return &Server{
		log:           log,
		registry:      registry,
		tracker:       tracker,
		conversations: conversations,
		users:         users,
		tokens:        tokens,
		bufferSize:    bufferSize,
		pingInterval:  pingInterval,
		pongTimeout:   pongTimeout,
		baseCtx:       baseCtx,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle is the websocket endpoint. The token travels in the query string
// because browsers cannot set headers on websocket dials.
func (s *Server) Handle(ctx *gin.Context) {
	claims, err := s.tokens.Validate(ctx.Query("token"))
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// Resolve the display name once at connect time; it is snapshotted into
	// every message this connection sends.
	user, err := s.users.Get(ctx, claims.Identity)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unknown identity"})
		return
	}

	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		s.log.Error("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		server:      s,
		conn:        conn,
		sink:        sink.NewConnSink(s.log, s.bufferSize),
		identity:    user.Email,
		displayName: user.Name,
		log:         s.log,
	}

	s.log.Info("Connection opened", "identity", c.identity)

	go c.writePump(s.baseCtx)
	go c.readPump(s.baseCtx)
}
