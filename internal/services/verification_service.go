package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"passguard/internal/models"
	"passguard/internal/repositories"
	"passguard/internal/utils"
)

var (
	ErrResendThrottled = errors.New("resend throttled")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrCodeNotFound    = errors.New("code not found")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeMismatch    = errors.New("code mismatch")
	ErrCodeConsumed    = errors.New("code already consumed")
)

const (
	defaultCodeLength      = 6
	defaultVerificationTTL = 5 * time.Minute
	defaultMaxAttempts     = 3
	defaultMaxResends      = 3
	defaultResendWindow    = 10 * time.Minute
)

// VerificationService issues and validates single-use numeric codes.
// Storage keeps only the bcrypt hash of each code; the latest issue per
// (username, purpose) supersedes all earlier ones.
type VerificationService struct {
	Repo     repositories.VerificationRepository
	Notifier Notifier

	CodeLength   int
	CodeTTL      time.Duration
	MaxAttempts  int
	MaxResends   int
	ResendWindow time.Duration
}

func NewVerificationService(repo repositories.VerificationRepository, notifier Notifier) *VerificationService {
	return &VerificationService{
		Repo:         repo,
		Notifier:     notifier,
		CodeLength:   defaultCodeLength,
		CodeTTL:      defaultVerificationTTL,
		MaxAttempts:  defaultMaxAttempts,
		MaxResends:   defaultMaxResends,
		ResendWindow: defaultResendWindow,
	}
}

// Issue generates a fresh code, stores its hash and delivers the plaintext
// to the recipient. The stored record survives a delivery failure so the
// caller can resend or fall back to another channel.
func (s *VerificationService) Issue(username string, purpose models.CodePurpose, recipient string) error {
	since := time.Now().Add(-s.ResendWindow)
	sent, err := s.Repo.CountRecentSends(username, purpose, since)
	if err != nil {
		return err
	}
	if sent >= s.MaxResends {
		return ErrResendThrottled
	}

	code, err := utils.NumericCode(s.CodeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	now := time.Now()
	rec := &models.VerificationCode{
		Username:  username,
		Purpose:   purpose,
		CodeHash:  string(hash),
		SentAt:    now,
		ExpiresAt: now.Add(s.CodeTTL),
	}
	if _, err := s.Repo.Create(rec); err != nil {
		return err
	}

	if err := s.Notifier.SendVerificationCode(recipient, username, code); err != nil {
		log.Printf("[verify][issue] delivery failed: user=%s purpose=%s err=%v", username, purpose, err)
		return err
	}
	log.Printf("[verify][issue] ok: user=%s purpose=%s expires_at=%s", username, purpose, rec.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Validate checks the submitted code against the latest active record and
// consumes it on success. A consumed or expired code never validates again;
// a mismatch spends one of the per-code attempts, and exhausting the budget
// expires the code immediately.
func (s *VerificationService) Validate(username string, purpose models.CodePurpose, submitted string) error {
	rec, err := s.Repo.GetLatest(username, purpose)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrCodeNotFound
	}
	if rec.Consumed {
		return ErrCodeConsumed
	}
	if time.Now().After(rec.ExpiresAt) {
		return ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(submitted)); err != nil {
		attempts, aerr := s.Repo.IncrementAttempts(rec.ID)
		if aerr != nil {
			return aerr
		}
		if attempts >= s.MaxAttempts {
			if eerr := s.Repo.ExpireNow(rec.ID); eerr != nil {
				return eerr
			}
			log.Printf("[verify][validate] attempt budget exhausted: user=%s purpose=%s", username, purpose)
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	if err := s.Repo.MarkConsumed(rec.ID); err != nil {
		return err
	}
	log.Printf("[verify][validate] ok: user=%s purpose=%s", username, purpose)
	return nil
}
