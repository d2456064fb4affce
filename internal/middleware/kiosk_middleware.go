package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// KioskMiddleware gates the learner-facing routes behind a shared token
// provisioned on the kiosk devices. An empty configured token leaves the
// routes open, which is the expected mode on a closed training-room network.
func KioskMiddleware(kioskToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if kioskToken == "" {
			c.Next()
			return
		}

		presented := c.GetHeader("X-Kiosk-Token")
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(kioskToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "kiosk token required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
