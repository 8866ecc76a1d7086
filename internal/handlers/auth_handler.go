package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"passguard/internal/middleware"
	"passguard/internal/models"
	"passguard/internal/services"
)

type AuthHandler struct {
	sessions    *services.SessionService
	userService services.UserService
}

func NewAuthHandler(sessions *services.SessionService, userService services.UserService) *AuthHandler {
	return &AuthHandler{sessions: sessions, userService: userService}
}

func issueToken(username string) (string, error) {
	claims := &middleware.Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(middleware.SigningKey())
}

// respondForState turns the session outcome into the HTTP answer shared by
// the login endpoints.
func (h *AuthHandler) respondForState(c *gin.Context, sess *services.Session) {
	switch sess.State {
	case services.StateDenied:
		c.JSON(http.StatusForbidden, gin.H{
			"state": string(sess.State),
			"error": "too many failed attempts, session denied",
		})
	case services.StateAuthenticated:
		tokenStr, err := issueToken(sess.Username)
		if err != nil {
			log.Printf("[auth][login] sign token failed for user=%s: err=%v", sess.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state":   string(sess.State),
			"message": "Login successful",
			"token":   tokenStr,
		})
	case services.StateAwaitingCodeEntry:
		c.JSON(http.StatusOK, gin.H{
			"state":      string(sess.State),
			"session_id": sess.ID,
			"message":    "verification code sent",
		})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{
			"state":      string(sess.State),
			"session_id": sess.ID,
			"error":      "Invalid username or password",
		})
	}
}

// Login runs one password attempt inside a session. The first call starts
// the session; retries carry the returned session_id in X-Session-ID.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		sess, err := h.sessions.BeginLogin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
			return
		}
		sessionID = sess.ID
	}

	sess, err := h.sessions.SubmitCredentials(sessionID, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, start over"})
		case errors.Is(err, services.ErrSessionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "session denied, start over"})
		case errors.Is(err, services.ErrSessionState):
			c.JSON(http.StatusConflict, gin.H{"error": "unexpected login step"})
		case errors.Is(err, services.ErrDeliveryFailed) && sess != nil:
			// password accepted; code could not be delivered
			c.JSON(http.StatusBadGateway, gin.H{
				"state":      string(sess.State),
				"session_id": sess.ID,
				"error":      "delivery failed, use /login/resend or simulation mode",
			})
		default:
			if codeErrorResponse(c, err) {
				return
			}
			log.Printf("[auth][login] attempt failed: err=%v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	h.respondForState(c, sess)
}

// ConfirmLogin completes the two-factor flow with the emailed code.
func (h *AuthHandler) ConfirmLogin(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Code      string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.SubmitLoginCode(req.SessionID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, start over"})
		case errors.Is(err, services.ErrSessionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "session denied, start over"})
		case errors.Is(err, services.ErrSessionState):
			c.JSON(http.StatusConflict, gin.H{"error": "unexpected login step"})
		default:
			if codeErrorResponse(c, err) {
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		}
		return
	}
	h.respondForState(c, sess)
}

// ResendLogin re-issues the two-factor code for a pending session.
func (h *AuthHandler) ResendLogin(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.sessions.RequestCode(req.SessionID); err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, start over"})
		case errors.Is(err, services.ErrSessionState):
			c.JSON(http.StatusConflict, gin.H{"error": "nothing to resend"})
		default:
			if codeErrorResponse(c, err) {
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "resend failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// Me returns the authenticated user's record.
func (h *AuthHandler) Me(c *gin.Context) {
	username, ok := usernameFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	user, err := h.userService.GetByUsername(username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
