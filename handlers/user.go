package handlers

import (
	"net/http"

	"github.com/LovationAdmin/feeding-api/middleware"
	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/services"
	"github.com/LovationAdmin/feeding-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// profileReadOnly lists profile keys clients may echo back but not change.
var profileReadOnly = []string{"id", "username", "groups", "is_active", "date_joined"}

type UserHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewUserHandler(users *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// ============================================================================
// PROFILE MANAGEMENT
// ============================================================================

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateProfileRequest
	if err := decodeBody(c, &req, profileReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("profile updated", zap.Int64("user_id", userID), utils.SafeField("email", user.Email))
	c.JSON(http.StatusOK, user)
}

// ============================================================================
// PASSWORD
// ============================================================================

func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.ChangePasswordRequest
	if err := decodeBody(c, &req, nil); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("password changed", zap.Int64("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
