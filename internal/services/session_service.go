package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"passguard/internal/models"
	"passguard/internal/repositories"
	"passguard/internal/utils"
)

type SessionState string

const (
	StateAwaitingCredentials SessionState = "awaiting_credentials"
	StateAwaitingCodeRequest SessionState = "awaiting_code_request"
	StateAwaitingCodeEntry   SessionState = "awaiting_code_entry"
	StateAuthenticated       SessionState = "authenticated"
	StateDenied              SessionState = "denied"
)

type SessionPurpose string

const (
	SessionLogin SessionPurpose = "login"
	SessionReset SessionPurpose = "reset"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionDenied   = errors.New("session denied")
	ErrSessionState    = errors.New("operation not allowed in current session state")
)

// Session carries the per-session authentication state. The attempt counter
// is ephemeral: it lives only here, resets with every new session and is
// never persisted.
type Session struct {
	ID       string
	Purpose  SessionPurpose
	Username string
	State    SessionState
	Attempts int
	LastSeen time.Time
}

// SessionService drives the two flows:
//
//	login: awaiting_credentials -> authenticated | denied
//	       (two-factor inserts awaiting_code_entry before authenticated)
//	reset: awaiting_code_request -> awaiting_code_entry -> authenticated | denied
//
// denied is terminal; a fresh session must be started.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session

	users        UserService
	verification *VerificationService
	reset        PasswordResetService

	MaxLoginAttempts int
	TwoFactor        bool
	TTL              time.Duration
}

func NewSessionService(users UserService, verification *VerificationService, reset PasswordResetService, maxAttempts int, twoFactor bool, ttl time.Duration) *SessionService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SessionService{
		sessions:         make(map[string]*Session),
		users:            users,
		verification:     verification,
		reset:            reset,
		MaxLoginAttempts: maxAttempts,
		TwoFactor:        twoFactor,
		TTL:              ttl,
	}
}

func (s *SessionService) BeginLogin() (*Session, error) {
	return s.begin(SessionLogin, "", StateAwaitingCredentials)
}

func (s *SessionService) BeginReset(username string) (*Session, error) {
	return s.begin(SessionReset, username, StateAwaitingCodeRequest)
}

func (s *SessionService) begin(purpose SessionPurpose, username string, state SessionState) (*Session, error) {
	id, err := utils.NewSessionToken(16)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:       id,
		Purpose:  purpose,
		Username: username,
		State:    state,
		LastSeen: time.Now(),
	}
	s.mu.Lock()
	s.sweepLocked()
	s.sessions[id] = sess
	s.mu.Unlock()
	cp := *sess
	return &cp, nil
}

func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	cp := *sess
	return &cp, nil
}

// getLocked refreshes LastSeen; callers hold s.mu.
func (s *SessionService) getLocked(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if time.Since(sess.LastSeen) > s.TTL {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	sess.LastSeen = time.Now()
	return sess, nil
}

func (s *SessionService) sweepLocked() {
	for id, sess := range s.sessions {
		if time.Since(sess.LastSeen) > s.TTL {
			delete(s.sessions, id)
		}
	}
}

// SubmitCredentials runs one login attempt. A wrong password (or unknown
// username, indistinguishable to the caller) spends one attempt; the budget
// exhausted, the session is denied for good. A correct password stops the
// counting and either authenticates or, under two-factor, issues a login
// code and waits for it.
func (s *SessionService) SubmitCredentials(id, username, password string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateDenied {
		return nil, ErrSessionDenied
	}
	if sess.Purpose != SessionLogin || sess.State != StateAwaitingCredentials {
		return nil, ErrSessionState
	}

	ok, err := s.users.Authenticate(username, password)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}
	if err != nil || !ok {
		sess.Attempts++
		log.Printf("[session][login] failed attempt %d/%d id=%s user=%q", sess.Attempts, s.MaxLoginAttempts, sess.ID, username)
		if sess.Attempts >= s.MaxLoginAttempts {
			sess.State = StateDenied
		}
		cp := *sess
		return &cp, nil
	}

	sess.Username = username
	sess.Attempts = 0
	if s.TwoFactor {
		sess.State = StateAwaitingCodeEntry
		user, uerr := s.users.GetByUsername(username)
		if uerr != nil {
			return nil, uerr
		}
		if ierr := s.verification.Issue(username, models.PurposeLogin, s.users.CodeRecipient(user)); ierr != nil {
			// session keeps waiting; the user can ask for a resend
			log.Printf("[session][login] code delivery failed id=%s user=%s: %v", sess.ID, username, ierr)
			cp := *sess
			return &cp, ierr
		}
	} else {
		sess.State = StateAuthenticated
	}
	log.Printf("[session][login] password OK id=%s user=%s state=%s", sess.ID, username, sess.State)
	cp := *sess
	return &cp, nil
}

// RequestCode issues (or re-issues) the code for the session's flow. Code
// errors never touch the login attempt counter.
func (s *SessionService) RequestCode(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateDenied {
		return nil, ErrSessionDenied
	}

	switch sess.Purpose {
	case SessionReset:
		if sess.State != StateAwaitingCodeRequest && sess.State != StateAwaitingCodeEntry {
			return nil, ErrSessionState
		}
		if err := s.reset.RequestReset(sess.Username); err != nil {
			return nil, err
		}
		sess.State = StateAwaitingCodeEntry
	case SessionLogin:
		if sess.State != StateAwaitingCodeEntry {
			return nil, ErrSessionState
		}
		user, uerr := s.users.GetByUsername(sess.Username)
		if uerr != nil {
			return nil, uerr
		}
		if ierr := s.verification.Issue(sess.Username, models.PurposeLogin, s.users.CodeRecipient(user)); ierr != nil {
			return nil, ierr
		}
	default:
		return nil, ErrSessionState
	}
	cp := *sess
	return &cp, nil
}

// SubmitLoginCode completes the two-factor login. On any code error the
// session stays in awaiting_code_entry and a fresh code may be requested.
func (s *SessionService) SubmitLoginCode(id, code string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateDenied {
		return nil, ErrSessionDenied
	}
	if sess.Purpose != SessionLogin || sess.State != StateAwaitingCodeEntry {
		return nil, ErrSessionState
	}

	if err := s.verification.Validate(sess.Username, models.PurposeLogin, code); err != nil {
		cp := *sess
		return &cp, err
	}
	sess.State = StateAuthenticated
	cp := *sess
	return &cp, nil
}

// SubmitResetCode consumes the reset code and changes the password in one
// step. On success the reset session is authenticated and done.
func (s *SessionService) SubmitResetCode(id, code, newPassword string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if sess.State == StateDenied {
		return nil, ErrSessionDenied
	}
	if sess.Purpose != SessionReset || sess.State != StateAwaitingCodeEntry {
		return nil, ErrSessionState
	}

	if err := s.reset.ConfirmReset(sess.Username, code, newPassword); err != nil {
		cp := *sess
		return &cp, err
	}
	sess.State = StateAuthenticated
	cp := *sess
	return &cp, nil
}
