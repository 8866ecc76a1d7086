package services

import (
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"passguard/internal/models"
	"passguard/internal/repositories"
)

var (
	ErrInvalidUsername = errors.New("username must be at least 4 characters: letters, digits, dots or underscores")
	ErrWeakPassword    = errors.New("password must be at least 6 characters with an uppercase letter, a lowercase letter and a digit")
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

type UserService interface {
	Register(username, email, password string) (*models.User, error)
	ResendRegistrationCode(username string) error
	Confirm(username, code string) error
	Authenticate(username, password string) (bool, error)
	GetByUsername(username string) (*models.User, error)
	CodeRecipient(u *models.User) string
}

type userService struct {
	repo         repositories.UserRepository
	verification *VerificationService
	emails       EmailService
	auth         AuthService

	// notification channel: "email", "telegram" or "simulation"
	channel string
}

func NewUserService(
	repo repositories.UserRepository,
	verification *VerificationService,
	emails EmailService,
	auth AuthService,
	channel string,
) UserService {
	return &userService{
		repo:         repo,
		verification: verification,
		emails:       emails,
		auth:         auth,
		channel:      channel,
	}
}

// CodeRecipient picks the delivery address for the configured channel.
func (s *userService) CodeRecipient(u *models.User) string {
	if s.channel == "telegram" && u.TelegramChatID != 0 {
		return strconv.FormatInt(u.TelegramChatID, 10)
	}
	return u.Email
}

func ValidateUsername(username string) error {
	if len(username) < 4 || !usernameRe.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePasswordStrength(password string) error {
	if len(password) < 6 {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

// Register creates an unverified record, sends the registration code and a
// welcome mail. The plaintext password is hashed before it reaches the store.
func (s *userService) Register(username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	if err := s.verification.Issue(username, models.PurposeRegister, s.CodeRecipient(user)); err != nil {
		// the account exists; the user can ask for a resend
		log.Printf("Register: warning: failed to deliver verification code to %s: %v", username, err)
	}
	if s.emails != nil {
		if err := s.emails.SendWelcomeEmail(user.Email, user.Username); err != nil {
			log.Printf("Register: warning: failed to send welcome email to %s: %v", user.Email, err)
		}
	}
	return user, nil
}

func (s *userService) ResendRegistrationCode(username string) error {
	user, err := s.repo.GetByUsername(username)
	if err != nil {
		return err
	}
	return s.verification.Issue(username, models.PurposeRegister, s.CodeRecipient(user))
}

// Confirm validates the registration code and marks the record verified.
func (s *userService) Confirm(username, code string) error {
	if err := s.verification.Validate(username, models.PurposeRegister, code); err != nil {
		return err
	}
	return s.repo.MarkVerified(username)
}

// Authenticate is the plain password check: false on mismatch, error only
// when the user does not exist or the store fails.
func (s *userService) Authenticate(username, password string) (bool, error) {
	user, err := s.repo.GetByUsername(username)
	if err != nil {
		return false, err
	}
	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *userService) GetByUsername(username string) (*models.User, error) {
	return s.repo.GetByUsername(username)
}
