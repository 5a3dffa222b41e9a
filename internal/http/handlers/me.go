package handlers

import (
	"errors"
	"net/http"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/http/middleware"
	"diamond_tma/internal/logger"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization required"})
		return
	}

	session := gin.H{
		"jti":        claims.ID,
		"issued_at":  claims.IssuedAt.Unix(),
		"expires_at": claims.ExpiresAt.Unix(),
	}

	profile, err := h.auth.Profile(c.Request.Context(), claims.TelegramID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			logger.WithContext(c.Request.Context()).Error("failed to load profile", "error", err, "telegram_id", claims.TelegramID)
		}
		// profile upsert is best-effort, the token is still authoritative
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    gin.H{"telegram_id": claims.TelegramID},
			"session": session,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    profile,
		"session": session,
	})
}
