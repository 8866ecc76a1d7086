package services

import (
	"errors"
	"log"
)

// ErrDeliveryFailed wraps any transport failure from a notifier. The core
// never retries; callers may re-issue the code or fall back to simulation.
var ErrDeliveryFailed = errors.New("delivery failed")

// Notifier delivers a verification code to a user-controlled channel.
type Notifier interface {
	SendVerificationCode(recipient, username, code string) error
}

// simulationNotifier prints the code locally instead of sending it.
type simulationNotifier struct{}

func NewSimulationNotifier() Notifier {
	return &simulationNotifier{}
}

func (n *simulationNotifier) SendVerificationCode(recipient, username, code string) error {
	log.Printf("[notify][simulation] to=%s user=%s code=%s", recipient, username, code)
	return nil
}
