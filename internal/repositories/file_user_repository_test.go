package repositories

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passguard/internal/models"
)

func newTestFileRepo(t *testing.T) (UserRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	repo, err := NewFileUserRepository(path)
	require.NoError(t, err)
	return repo, path
}

func TestFileRepoCreateAndGet(t *testing.T) {
	repo, _ := newTestFileRepo(t)

	err := repo.Create(&models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$10$x"})
	require.NoError(t, err)

	u, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = repo.GetByUsername("bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFileRepoDuplicateUsername(t *testing.T) {
	repo, _ := newTestFileRepo(t)

	require.NoError(t, repo.Create(&models.User{Username: "alice", PasswordHash: "h1"}))
	err := repo.Create(&models.User{Username: "alice", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrUserExists)

	// usernames are case-sensitive exact matches
	require.NoError(t, repo.Create(&models.User{Username: "Alice", PasswordHash: "h3"}))
}

func TestFileRepoUpdatePassword(t *testing.T) {
	repo, _ := newTestFileRepo(t)

	require.NoError(t, repo.Create(&models.User{Username: "alice", PasswordHash: "old"}))
	require.NoError(t, repo.UpdatePassword("alice", "new"))

	u, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "new", u.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword("ghost", "x"), ErrUserNotFound)
}

func TestFileRepoMarkVerified(t *testing.T) {
	repo, _ := newTestFileRepo(t)

	require.NoError(t, repo.Create(&models.User{Username: "alice", PasswordHash: "h"}))
	require.NoError(t, repo.MarkVerified("alice"))

	u, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.True(t, u.Verified)
	require.NotNil(t, u.VerifiedAt)

	assert.ErrorIs(t, repo.MarkVerified("ghost"), ErrUserNotFound)
}

func TestFileRepoPersistsAcrossReopen(t *testing.T) {
	repo, path := newTestFileRepo(t)

	require.NoError(t, repo.Create(&models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))
	require.NoError(t, repo.MarkVerified("alice"))

	reopened, err := NewFileUserRepository(path)
	require.NoError(t, err)

	u, err := reopened.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "h", u.PasswordHash)
	assert.True(t, u.Verified)
}

func TestFileRepoHumanInspectable(t *testing.T) {
	repo, path := newTestFileRepo(t)

	require.NoError(t, repo.Create(&models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "secret-hash"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// a JSON object keyed by username with the hashed credential, never the
	// plaintext
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "alice")
	assert.Equal(t, "secret-hash", raw["alice"]["password_hash"])
}

func TestFileRepoList(t *testing.T) {
	repo, _ := newTestFileRepo(t)

	require.NoError(t, repo.Create(&models.User{Username: "bob", PasswordHash: "h"}))
	require.NoError(t, repo.Create(&models.User{Username: "alice", PasswordHash: "h"}))

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}
