package http

import (
	"log/slog"
	"net/http"

	apperrors "chat-relay/errors"
	"chat-relay/services"

	"github.com/gin-gonic/gin"
)

type UserHandlers struct {
	log   *slog.Logger
	users *services.UserService
}

func NewUserHandlers(log *slog.Logger, users *services.UserService) *UserHandlers {
	return &UserHandlers{log: log, users: users}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandlers) Signup(ctx *gin.Context) {
	var req signupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Signup(ctx.Request.Context(), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandlers) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *UserHandlers) List(ctx *gin.Context) {
	users, err := h.users.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(apperrors.MapToStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"users": users})
}
