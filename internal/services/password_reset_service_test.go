package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passguard/internal/repositories"
)

func newTestResetService(t *testing.T) (PasswordResetService, UserService, *captureNotifier) {
	t.Helper()
	repo, err := repositories.NewFileUserRepository(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	notifier := &captureNotifier{}
	verification := NewVerificationService(repositories.NewMemoryVerificationRepository(), notifier)
	auth := NewAuthService()
	users := NewUserService(repo, verification, nil, auth, "simulation")
	reset := NewPasswordResetService(users, repo, verification, nil, auth)
	return reset, users, notifier
}

func TestPasswordResetFlow(t *testing.T) {
	reset, users, notifier := newTestResetService(t)

	_, err := users.Register("alice", "alice@example.com", "Secr3t!")
	require.NoError(t, err)

	require.NoError(t, reset.RequestReset("alice"))
	require.NotEmpty(t, notifier.code)

	require.NoError(t, reset.ConfirmReset("alice", notifier.code, "NewPass1"))

	ok, err := users.Authenticate("alice", "NewPass1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.Authenticate("alice", "Secr3t!")
	require.NoError(t, err)
	assert.False(t, ok)

	// the reset code is gone with its use
	assert.ErrorIs(t, reset.ConfirmReset("alice", notifier.code, "Other1pw"), ErrCodeConsumed)
}

func TestResetDoesNotRevealUnknownUser(t *testing.T) {
	reset, _, notifier := newTestResetService(t)

	require.NoError(t, reset.RequestReset("ghost"))
	assert.Empty(t, notifier.code)
}

func TestResetWrongCodeLeavesPasswordUntouched(t *testing.T) {
	reset, users, notifier := newTestResetService(t)

	_, err := users.Register("alice", "alice@example.com", "Secr3t!")
	require.NoError(t, err)
	require.NoError(t, reset.RequestReset("alice"))

	err = reset.ConfirmReset("alice", "000000", "NewPass1")
	if notifier.code == "000000" {
		t.Skip("generated code collided with the wrong-guess value")
	}
	assert.ErrorIs(t, err, ErrCodeMismatch)

	ok, err := users.Authenticate("alice", "Secr3t!")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetRejectsWeakPassword(t *testing.T) {
	reset, users, notifier := newTestResetService(t)

	_, err := users.Register("alice", "alice@example.com", "Secr3t!")
	require.NoError(t, err)
	require.NoError(t, reset.RequestReset("alice"))

	err = reset.ConfirmReset("alice", notifier.code, "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)

	// the code was not consumed by the rejected attempt
	require.NoError(t, reset.ConfirmReset("alice", notifier.code, "NewPass1"))
}
