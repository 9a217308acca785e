package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HanWeiOng/ESDG10T4/utils"
)

// UserIDKey holds the token's user_id; RequestLogger records it.
const UserIDKey = "userID"

// AuthMiddleware requires an HS256/384/512 bearer token signed with secret
// and carrying a numeric user_id claim.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing bearer token"})
			return
		}

		userID, err := utils.ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
