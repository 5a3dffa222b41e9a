package ws

import (
	"context"
	"net/http"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenVerifier validates the session token a connection presents.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.SessionClaims, error)
}

// HandleWS upgrades requests carrying a valid ?token= to a revocation feed.
func HandleWS(hub *Hub, verifier TokenVerifier, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "token required"})
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("ws upgrade failed", "error", err)
			return
		}

		client := NewClient(claims.TelegramID, claims.ID, conn, hub)
		go client.Run()
	}
}
