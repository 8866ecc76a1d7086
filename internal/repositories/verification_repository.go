package repositories

import (
	"sort"
	"sync"
	"time"

	"passguard/internal/models"
)

// VerificationRepository stores one row per issued code; the latest row per
// (username, purpose) is the only one that can validate.
type VerificationRepository interface {
	Create(v *models.VerificationCode) (int64, error)
	GetLatest(username string, purpose models.CodePurpose) (*models.VerificationCode, error)
	CountRecentSends(username string, purpose models.CodePurpose, since time.Time) (int, error)
	IncrementAttempts(id int64) (int, error)
	MarkConsumed(id int64) error
	ExpireNow(id int64) error
}

type memoryVerificationRepository struct {
	mu     sync.Mutex
	nextID int64
	codes  []*models.VerificationCode
}

func NewMemoryVerificationRepository() VerificationRepository {
	return &memoryVerificationRepository{nextID: 1}
}

func (r *memoryVerificationRepository) Create(v *models.VerificationCode) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *v
	cp.ID = r.nextID
	r.nextID++
	r.codes = append(r.codes, &cp)
	v.ID = cp.ID
	return cp.ID, nil
}

func (r *memoryVerificationRepository) GetLatest(username string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []*models.VerificationCode
	for _, c := range r.codes {
		if c.Username == username && c.Purpose == purpose {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].SentAt.Equal(matches[j].SentAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].SentAt.After(matches[j].SentAt)
	})
	cp := *matches[0]
	return &cp, nil
}

func (r *memoryVerificationRepository) CountRecentSends(username string, purpose models.CodePurpose, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.codes {
		if c.Username == username && c.Purpose == purpose && !c.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memoryVerificationRepository) IncrementAttempts(id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.ID == id {
			c.Attempts++
			return c.Attempts, nil
		}
	}
	return 0, nil
}

func (r *memoryVerificationRepository) MarkConsumed(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.ID == id {
			c.Consumed = true
			return nil
		}
	}
	return nil
}

func (r *memoryVerificationRepository) ExpireNow(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.ID == id {
			c.ExpiresAt = time.Now()
			return nil
		}
	}
	return nil
}
