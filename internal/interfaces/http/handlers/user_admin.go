// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/user"
)

// UserAdminHandler handles admin user moderation
type UserAdminHandler struct {
	userService *user.Service
	logger      *logrus.Logger
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(userService *user.Service, logger *logrus.Logger) *UserAdminHandler {
	return &UserAdminHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetUser handles GET /admin/users/:id
func (h *UserAdminHandler) GetUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	u, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"data":    u,
	})
}

type banRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// SetBanned handles PUT /admin/users/:id/ban. Banned users cannot check out.
func (h *UserAdminHandler) SetBanned(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.userService.SetBanned(c.Request.Context(), userID, *req.Banned)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"data":    u,
	})
}
