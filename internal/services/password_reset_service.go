package services

import (
	"fmt"
	"log"
	"strings"

	"passguard/internal/models"
	"passguard/internal/repositories"
)

type PasswordResetService interface {
	RequestReset(username string) error
	ConfirmReset(username, code, newPassword string) error
}

type passwordResetService struct {
	users        UserService
	userRepo     repositories.UserRepository
	verification *VerificationService
	emails       EmailService
	auth         AuthService
}

func NewPasswordResetService(
	users UserService,
	userRepo repositories.UserRepository,
	verification *VerificationService,
	emails EmailService,
	auth AuthService,
) PasswordResetService {
	return &passwordResetService{
		users:        users,
		userRepo:     userRepo,
		verification: verification,
		emails:       emails,
		auth:         auth,
	}
}

// RequestReset issues a reset code for the account. Unknown usernames are
// swallowed so the endpoint does not reveal which accounts exist.
func (s *passwordResetService) RequestReset(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		log.Printf("[password-reset] request for %q: %v", username, err)
		return nil
	}
	return s.verification.Issue(username, models.PurposeReset, s.users.CodeRecipient(user))
}

// ConfirmReset consumes the reset code and stores the new password hash.
// Any code error leaves the stored credentials untouched.
func (s *passwordResetService) ConfirmReset(username, code, newPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(code) == "" {
		return fmt.Errorf("username and code are required")
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	if err := s.verification.Validate(username, models.PurposeReset, code); err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(username, hash); err != nil {
		return err
	}

	if s.emails != nil {
		user, uerr := s.userRepo.GetByUsername(username)
		if uerr == nil {
			if err := s.emails.SendPasswordChangedEmail(user.Email, user.Username); err != nil {
				log.Printf("[password-reset] failed to send notice to %s: %v", user.Email, err)
			}
		}
	}
	return nil
}
