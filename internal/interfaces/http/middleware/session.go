package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/config"
)

const (
	SessionCookie = "session_id"
	ctxSessionID  = "session_id"
	sessionMaxAge = 30 * 24 * 60 * 60
)

// Session gives every visitor a stable id so guest carts survive between requests
func Session(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, sessionMaxAge, "/", "", cfg.IsProduction(), true)
		}
		c.Set(ctxSessionID, id)
		c.Next()
	}
}

// GetSessionID returns the visitor's session id
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
