package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"passguard/internal/models"
)

// userRecord is the on-disk shape; models.User hides the password hash from
// JSON responses, the store must keep it.
type userRecord struct {
	Email          string     `json:"email"`
	PasswordHash   string     `json:"password_hash"`
	TelegramChatID int64      `json:"telegram_chat_id,omitempty"`
	Verified       bool       `json:"verified"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	RegisteredOn   time.Time  `json:"registered_on"`
}

// fileUserRepository keeps users in a single JSON object keyed by username,
// human-inspectable, rewritten atomically (temp file + rename) on every
// mutation. Writes are serialized by the mutex; the username is the single
// writer key.
type fileUserRepository struct {
	mu    sync.Mutex
	path  string
	users map[string]*userRecord
}

func NewFileUserRepository(path string) (UserRepository, error) {
	r := &fileUserRepository{
		path:  path,
		users: make(map[string]*userRecord),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileUserRepository) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r.persist()
		}
		return fmt.Errorf("user store open: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &r.users); err != nil {
		return fmt.Errorf("user store parse %s: %w", r.path, err)
	}
	return nil
}

// persist rewrites the whole file; callers hold r.mu.
func (r *fileUserRepository) persist() error {
	data, err := json.MarshalIndent(r.users, "", "    ")
	if err != nil {
		return fmt.Errorf("user store encode: %w", err)
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("user store temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("user store write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("user store close: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("user store rename: %w", err)
	}
	return nil
}

func toUser(username string, rec *userRecord) *models.User {
	return &models.User{
		Username:       username,
		Email:          rec.Email,
		PasswordHash:   rec.PasswordHash,
		TelegramChatID: rec.TelegramChatID,
		Verified:       rec.Verified,
		VerifiedAt:     rec.VerifiedAt,
		CreatedAt:      rec.RegisteredOn,
	}
}

func (r *fileUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// case-sensitive exact match
	if _, ok := r.users[user.Username]; ok {
		return ErrUserExists
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users[user.Username] = &userRecord{
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		TelegramChatID: user.TelegramChatID,
		Verified:       user.Verified,
		VerifiedAt:     user.VerifiedAt,
		RegisteredOn:   user.CreatedAt,
	}
	if err := r.persist(); err != nil {
		delete(r.users, user.Username)
		return err
	}
	return nil
}

func (r *fileUserRepository) GetByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return toUser(username, rec), nil
}

func (r *fileUserRepository) UpdatePassword(username, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[username]
	if !ok {
		return ErrUserNotFound
	}
	old := rec.PasswordHash
	rec.PasswordHash = newHash
	if err := r.persist(); err != nil {
		rec.PasswordHash = old
		return err
	}
	return nil
}

func (r *fileUserRepository) MarkVerified(username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[username]
	if !ok {
		return ErrUserNotFound
	}
	if rec.Verified {
		return nil
	}
	now := time.Now()
	rec.Verified = true
	rec.VerifiedAt = &now
	if err := r.persist(); err != nil {
		rec.Verified = false
		rec.VerifiedAt = nil
		return err
	}
	return nil
}

func (r *fileUserRepository) List() ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]*models.User, 0, len(r.users))
	for name, rec := range r.users {
		users = append(users, toUser(name, rec))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
