package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

// BotKeyHeader carries the shared integration secret.
const BotKeyHeader = "X-Bot-Key"

// KeyVerifier checks a shared secret.
type KeyVerifier interface {
	Verify(key string) bool
}

// BotKey guards the integration routes with a shared key instead of an operator token.
func BotKey(verifier KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifier.Verify(c.GetHeader(BotKeyHeader)) {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid bot key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
