package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passguard/internal/handlers"
	"passguard/internal/middleware"
	"passguard/internal/repositories"
	"passguard/internal/routes"
	"passguard/internal/services"
)

type stubNotifier struct {
	code string
}

func (n *stubNotifier) SendVerificationCode(recipient, username, code string) error {
	n.code = code
	return nil
}

func newTestRouter(t *testing.T, twoFactor bool) (*gin.Engine, *stubNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := repositories.NewFileUserRepository(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	notifier := &stubNotifier{}
	verification := services.NewVerificationService(repositories.NewMemoryVerificationRepository(), notifier)
	auth := services.NewAuthService()
	users := services.NewUserService(repo, verification, nil, auth, "simulation")
	reset := services.NewPasswordResetService(users, repo, verification, nil, auth)
	sessions := services.NewSessionService(users, verification, reset, 3, twoFactor, 15*time.Minute)

	middleware.SetSigningKey("test-secret")

	router := gin.New()
	routes.SetupRoutes(
		router,
		handlers.NewAuthHandler(sessions, users),
		handlers.NewUserHandler(users),
		handlers.NewVerifyHandler(users),
		handlers.NewPasswordHandler(sessions),
	)
	return router, notifier
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func registerAlice(t *testing.T, router *gin.Engine) {
	t.Helper()
	w, _ := doJSON(t, router, http.MethodPost, "/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Secr3t!",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRegisterConfirmAndLogin(t *testing.T) {
	router, notifier := newTestRouter(t, false)

	registerAlice(t, router)

	// duplicate registration is rejected
	w, _ := doJSON(t, router, http.MethodPost, "/register", gin.H{
		"username": "alice",
		"email":    "other@example.com",
		"password": "Another1",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/register/confirm", gin.H{
		"username": "alice",
		"code":     notifier.code,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "Secr3t!",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authenticated", resp["state"])
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)

	// the token opens the protected surface
	w, resp = doJSON(t, router, http.MethodGet, "/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", resp["username"])
}

func TestMeRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, false)
	w, _ := doJSON(t, router, http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginDeniedAfterThreeFailures(t *testing.T) {
	router, _ := newTestRouter(t, false)
	registerAlice(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	sessionID, _ := resp["session_id"].(string)
	require.NotEmpty(t, sessionID)

	w, _ = doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "wrong",
	}, map[string]string{"X-Session-ID": sessionID})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "wrong",
	}, map[string]string{"X-Session-ID": sessionID})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "denied", resp["state"])

	// the denied session is terminal, even for the right password
	w, _ = doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "Secr3t!",
	}, map[string]string{"X-Session-ID": sessionID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a fresh session works
	w, _ = doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "Secr3t!",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTwoFactorLoginEndpoints(t *testing.T) {
	router, notifier := newTestRouter(t, true)
	registerAlice(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "Secr3t!",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "awaiting_code_entry", resp["state"])
	sessionID, _ := resp["session_id"].(string)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, notifier.code)

	w, resp = doJSON(t, router, http.MethodPost, "/login/confirm", gin.H{
		"session_id": sessionID,
		"code":       notifier.code,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authenticated", resp["state"])
	assert.NotEmpty(t, resp["token"])

	// the code was consumed by the successful confirm
	w, _ = doJSON(t, router, http.MethodPost, "/login/confirm", gin.H{
		"session_id": sessionID,
		"code":       notifier.code,
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPasswordForgotAndReset(t *testing.T) {
	router, notifier := newTestRouter(t, false)
	registerAlice(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/password/forgot", gin.H{
		"username": "alice",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessionID, _ := resp["session_id"].(string)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, notifier.code)

	w, _ = doJSON(t, router, http.MethodPost, "/password/reset", gin.H{
		"session_id":   sessionID,
		"code":         notifier.code,
		"new_password": "NewPass1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// old password no longer works, new one does
	w, _ = doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "Secr3t!",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/login", gin.H{
		"username": "alice",
		"password": "NewPass1",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForgotUnknownUserDoesNotReveal(t *testing.T) {
	router, notifier := newTestRouter(t, false)

	w, resp := doJSON(t, router, http.MethodPost, "/password/forgot", gin.H{
		"username": "ghost",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp["session_id"])
	assert.Empty(t, notifier.code)
}
