package models

import "time"

// CodePurpose separates the three verification flows; at most one active
// code exists per (username, purpose).
type CodePurpose string

const (
	PurposeRegister CodePurpose = "register"
	PurposeLogin    CodePurpose = "login"
	PurposeReset    CodePurpose = "reset"
)

// VerificationCode — one record per issued code. Only the bcrypt hash of
// the code is stored (CodeHash), together with TTL, the single-use flag
// and the per-code attempt counter.
type VerificationCode struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Purpose   CodePurpose `json:"purpose"`
	CodeHash  string      `json:"-"`
	SentAt    time.Time   `json:"sent_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Consumed  bool        `json:"consumed"`
	Attempts  int         `json:"attempts"`
}
