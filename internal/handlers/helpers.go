package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"passguard/internal/services"
)

func usernameFromCtx(c *gin.Context) (string, bool) {
	v, ok := c.Get("username")
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}

// codeErrorResponse maps verification errors onto HTTP responses shared by
// the confirm endpoints. Returns false when err is not a code error.
func codeErrorResponse(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, services.ErrCodeExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "code expired, please request a new one"})
	case errors.Is(err, services.ErrTooManyAttempts):
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many attempts, please request a new code"})
	case errors.Is(err, services.ErrCodeMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
	case errors.Is(err, services.ErrCodeConsumed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "code already used, please request a new one"})
	case errors.Is(err, services.ErrCodeNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no active code, please request one"})
	case errors.Is(err, services.ErrResendThrottled):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try later"})
	case errors.Is(err, services.ErrDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed, retry or switch to simulation mode"})
	default:
		return false
	}
	return true
}
