package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the context key UserAuth stores the buyer's ID under.
const UserIDKey = "userId"

// UserAuth validates buyer tokens and injects the userId into the context.
// Tokens are minted by the identity provider; the uid is read from the
// userId claim, falling back to sub.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, secret)
		if !ok {
			return
		}

		userID, _ := claims["userId"].(string)
		if strings.TrimSpace(userID) == "" {
			userID, _ = claims["sub"].(string)
		}
		userID = strings.TrimSpace(userID)
		if userID == "" {
			log.Println("[AUTH] [ERROR] userId claim missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("claims", claims)
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated buyer's ID, or "" outside UserAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
