package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"passguard/internal/services"
)

type PasswordHandler struct {
	sessions *services.SessionService
}

func NewPasswordHandler(sessions *services.SessionService) *PasswordHandler {
	return &PasswordHandler{sessions: sessions}
}

// Forgot starts a reset session and sends the code. The response never
// reveals whether the username exists.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.BeginReset(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start reset"})
		return
	}
	if _, err := h.sessions.RequestCode(sess.ID); err != nil {
		if errors.Is(err, services.ErrResendThrottled) || errors.Is(err, services.ErrDeliveryFailed) {
			codeErrorResponse(c, err)
			return
		}
		log.Printf("[password][forgot] request failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"message":    "if the account exists, a verification code has been sent",
	})
}

// Reset consumes the code and sets the new password.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req struct {
		SessionID   string `json:"session_id" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.SubmitResetCode(req.SessionID, req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, start over"})
		case errors.Is(err, services.ErrSessionState):
			c.JSON(http.StatusConflict, gin.H{"error": "request a code first"})
		case errors.Is(err, services.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			if codeErrorResponse(c, err) {
				return
			}
			log.Printf("[password][reset] failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   string(sess.State),
		"message": "Password reset successful",
	})
}
