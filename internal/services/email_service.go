package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	Notifier
	SendWelcomeEmail(email, username string) error
	SendPasswordChangedEmail(email, username string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendVerificationCode(recipient, username, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", "Your verification code")

	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your verification code is: <strong>%s</strong></p>
		<p>This code is valid for a few minutes and can be used once.</p>
		<p>If you did not request this code, please ignore this email.</p>
	`, username, code)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (s *emailService) SendWelcomeEmail(email, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome!")

	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Thank you for registering. Your account has been created.</p>
		<p>Confirm your email with the verification code we sent separately.</p>
	`, username)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordChangedEmail(email, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your password was changed")

	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>The password for your account was just changed.</p>
		<p>If this was not you, reset your password immediately.</p>
	`, username)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send password changed email: %w", err)
	}
	return nil
}
