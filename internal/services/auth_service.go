package services

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	HashPassword(plain string) (string, error)
	CheckPassword(hash, plain string) error
}

type authService struct {
	cost int
}

func NewAuthService() AuthService {
	return &authService{cost: bcrypt.DefaultCost}
}

// HashPassword — bcrypt with a fresh salt per call; the salt is embedded
// in the returned hash string.
func (s *authService) HashPassword(plain string) (string, error) {
	if strings.TrimSpace(plain) == "" {
		return "", fmt.Errorf("password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *authService) CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
