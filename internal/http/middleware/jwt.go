package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ctxTelegramID = "telegram_id"
	ctxClaims     = "session_claims"
)

// TokenVerifier validates a presented session token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.SessionClaims, error)
}

// JWT requires a valid, unrevoked bearer session token.
func JWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authorization required"})
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "invalid or expired session"
			if !errors.Is(err, domain.ErrTokenInvalid) && !errors.Is(err, domain.ErrTokenExpired) && !errors.Is(err, domain.ErrTokenRevoked) {
				status = http.StatusServiceUnavailable
				msg = "session check unavailable"
			}
			logger.WithContext(c.Request.Context()).Info("session token rejected", "reason", domain.ReasonOf(err))
			c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
			return
		}

		c.Set(ctxTelegramID, claims.TelegramID)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// TelegramID returns the authenticated user set by JWT.
func TelegramID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxTelegramID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// Claims returns the session claims set by JWT.
func Claims(c *gin.Context) (domain.SessionClaims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return domain.SessionClaims{}, false
	}
	claims, ok := v.(domain.SessionClaims)
	return claims, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
