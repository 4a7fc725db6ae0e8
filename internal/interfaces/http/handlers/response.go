// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

// respondError maps domain errors onto status codes. Unclassified errors
// are logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := apperror.HTTPStatus(err)

	appErr, ok := apperror.As(err)
	if !ok || status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "internal",
		})
		return
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if short, ok := inventory.AsInsufficientStock(err); ok {
		body["details"] = short.Shortfalls
	} else if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

// respondBindError reports a request body or query that failed to bind
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"code":    "invalid_request",
			"details": fields,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"code":    "invalid_request",
		"details": err.Error(),
	})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + param,
			"code":  "invalid_id",
		})
		return 0, false
	}
	return uint(id), true
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
	}
	return userID, ok
}
