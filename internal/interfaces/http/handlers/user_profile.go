// internal/interfaces/http/handlers/user_profile.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/user"
)

// ProfileHandler serves the signed-in user's profile and points
type ProfileHandler struct {
	userService *user.Service
	ledger      *loyalty.Ledger
	logger      *logrus.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(userService *user.Service, ledger *loyalty.Ledger, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{
		userService: userService,
		ledger:      ledger,
		logger:      logger,
	}
}

// GetProfile handles GET /users/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	u, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile retrieved successfully",
		"data":    u,
	})
}

// GetLoyalty handles GET /users/loyalty?limit=20
func (h *ProfileHandler) GetLoyalty(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	ctx := c.Request.Context()
	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	history, err := h.ledger.History(ctx, userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	rules := h.ledger.Rules()
	c.JSON(http.StatusOK, gin.H{
		"message": "Loyalty points retrieved successfully",
		"data": gin.H{
			"balance":      balance,
			"value":        rules.RedemptionValue(balance),
			"point_value":  rules.PointValue,
			"earn_divisor": rules.EarnDivisor,
			"history":      history,
		},
	})
}
