package http

import (
	"net/http"
	"strings"

	"chat-relay/auth"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthRequired validates the bearer token and stores the authenticated
// identity on the request context for handlers downstream.
func AuthRequired(tokens *auth.Tokens) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx.Set(identityKey, claims.Identity)
		ctx.Next()
	}
}

// Identity returns the authenticated identity set by AuthRequired.
func Identity(ctx *gin.Context) string {
	return ctx.GetString(identityKey)
}
