package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"passguard/internal/models"
	"passguard/internal/repositories"
	"passguard/internal/services"
)

type VerifyHandler struct {
	users services.UserService
}

func NewVerifyHandler(users services.UserService) *VerifyHandler {
	return &VerifyHandler{users: users}
}

// ConfirmUser consumes the registration code and marks the account verified.
func (h *VerifyHandler) ConfirmUser(c *gin.Context) {
	var req models.CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.Confirm(req.Username, req.Code); err != nil {
		if codeErrorResponse(c, err) {
			return
		}
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account verified"})
}

// ResendUser issues a fresh registration code, invalidating the prior one.
func (h *VerifyHandler) ResendUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ResendRegistrationCode(req.Username); err != nil {
		if codeErrorResponse(c, err) {
			return
		}
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resend failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}
