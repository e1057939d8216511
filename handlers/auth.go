package handlers

import (
	"errors"
	"net/http"

	"github.com/LovationAdmin/feeding-api/middleware"
	"github.com/LovationAdmin/feeding-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler answers token checks. Tokens themselves are issued elsewhere.
type AuthHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewAuthHandler(users *services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Verify confirms the token is valid and still belongs to an active user.
func (h *AuthHandler) Verify(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if errors.Is(err, services.ErrNotFound) || (err == nil && !user.IsActive) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"user_id":  user.ID,
		"username": user.Username,
		"groups":   user.Groups,
	})
}
