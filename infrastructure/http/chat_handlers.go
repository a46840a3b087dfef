package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"chat-relay/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandlers struct {
	log           *slog.Logger
	conversations services.IConversationService
	users         *services.UserService
}

func NewChatHandlers(log *slog.Logger, conversations services.IConversationService, users *services.UserService) *ChatHandlers {
	return &ChatHandlers{log: log, conversations: conversations, users: users}
}

type createChatRequest struct {
	// ParticipantEmail opens (or returns) the direct conversation with that
	// identity. Name plus Participants creates a group instead.
	ParticipantEmail string   `json:"participant_email"`
	Name             string   `json:"name"`
	Participants     []string `json:"participants"`
}

func (h *ChatHandlers) Create(ctx *gin.Context) {
	var req createChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requester := Identity(ctx)

	var conv domain.Conversation
	var err error
	if len(req.Participants) > 0 {
		conv, err = h.conversations.CreateGroup(ctx.Request.Context(), requester, req.Name, req.Participants)
	} else {
		conv, err = h.conversations.GetOrCreateDirect(ctx.Request.Context(), requester, req.ParticipantEmail)
	}
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"chat": conv})
}

func (h *ChatHandlers) List(ctx *gin.Context) {
	chats, err := h.conversations.ListConversations(ctx.Request.Context(), Identity(ctx))
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *ChatHandlers) ListMessages(ctx *gin.Context) {
	chatID, err := uuid.Parse(ctx.Param("chat_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrMalformedID.Error()})
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	messages, err := h.conversations.ListMessages(ctx.Request.Context(), chatID, Identity(ctx), limit)
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	Content  string             `json:"content" binding:"required"`
	Kind     domain.ContentKind `json:"kind" binding:"required"`
	FileName string             `json:"file_name"`
}

// Send persists the message and relays it to live participants in the same
// request flow; there is no separate notification side-channel to lose
// events in.
func (h *ChatHandlers) Send(ctx *gin.Context) {
	chatID, err := uuid.Parse(ctx.Param("chat_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrMalformedID.Error()})
		return
	}

	var req sendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The sender name is snapshotted from the account, never trusted from
	// the request body.
	sender, err := h.users.Get(ctx.Request.Context(), Identity(ctx))
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}

	msg, err := h.conversations.Send(ctx.Request.Context(), chatID,
		sender.Email, sender.Name, req.Content, req.Kind, req.FileName)
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}

type markReadRequest struct {
	MessageID uuid.UUID `json:"message_id" binding:"required"`
}

func (h *ChatHandlers) MarkRead(ctx *gin.Context) {
	chatID, err := uuid.Parse(ctx.Param("chat_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrMalformedID.Error()})
		return
	}

	var req markReadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.conversations.MarkRead(ctx.Request.Context(), chatID, Identity(ctx), req.MessageID)
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}
