package handlers

import (
	"errors"
	"net/http"

	"diamond_tma/internal/domain"
	"diamond_tma/internal/http/middleware"
	"diamond_tma/internal/logger"
	"diamond_tma/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

type AuthResponse struct {
	Success      bool                `json:"success"`
	UserID       int64               `json:"user_id"`
	UserData     domain.Identity     `json:"user_data"`
	JWTToken     string              `json:"jwt_token"`
	ExpiresAt    int64               `json:"expires_at"`
	SecurityInfo domain.SecurityInfo `json:"security_info"`
}

type ErrorResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error"`
	SecurityInfo *domain.SecurityInfo `json:"security_info,omitempty"`
}

// Auth verifies Telegram init data and issues a session token.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.auth.Authenticate(c.Request.Context(), req.InitData, requestMeta(c))
	if err != nil {
		resp := ErrorResponse{Error: publicMessage(err)}
		if reportsSecurity(err, res.Security) {
			sec := res.Security
			resp.SecurityInfo = &sec
		}
		c.JSON(statusFor(err), resp)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success:      true,
		UserID:       res.Identity.TelegramID,
		UserData:     res.Identity,
		JWTToken:     res.Session.Token,
		ExpiresAt:    res.Session.Claims.ExpiresAt.Unix(),
		SecurityInfo: res.Security,
	})
}

// Logout revokes the session the request is authenticated with.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization required"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims, requestMeta(c)); err != nil {
		logger.WithContext(c.Request.Context()).Error("logout failed", "error", err, "telegram_id", claims.TelegramID)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMalformedInput),
		errors.Is(err, domain.ErrMissingUserFields),
		errors.Is(err, domain.ErrTimestampExpired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrThrottled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never carries hashes or secrets.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimestampExpired):
		return "authentication data expired, please reopen the app"
	case errors.Is(err, domain.ErrMalformedInput), errors.Is(err, domain.ErrMissingUserFields):
		return "invalid authentication data"
	case errors.Is(err, domain.ErrSignatureInvalid):
		return "authentication failed, please reopen the app"
	default:
		return "authentication is temporarily unavailable"
	}
}

// reportsSecurity is false when the payload never reached the signature check.
func reportsSecurity(err error, sec domain.SecurityInfo) bool {
	switch {
	case errors.Is(err, domain.ErrSignatureInvalid),
		errors.Is(err, domain.ErrTimestampExpired),
		errors.Is(err, domain.ErrMissingUserFields):
		return true
	case errors.Is(err, domain.ErrMalformedInput):
		return sec.SignatureValid
	default:
		return false
	}
}
