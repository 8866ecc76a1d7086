package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"passguard/internal/models"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	UpdatePassword(username, newHash string) error
	MarkVerified(username string) error
	List() ([]*models.User, error)
}

type postgresUserRepository struct {
	DB *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{DB: db}
}

func (r *postgresUserRepository) Create(user *models.User) error {
	const q = `
		INSERT INTO users (username, email, password_hash, telegram_chat_id, verified, verified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := r.DB.Exec(q,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.TelegramChatID,
		user.Verified,
		user.VerifiedAt,
		user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByUsername(username string) (*models.User, error) {
	const q = `
		SELECT username, email, password_hash,
		       COALESCE(telegram_chat_id, 0),
		       verified, verified_at, created_at
		FROM users
		WHERE username = $1
	`
	u := &models.User{}
	var verifiedAt sql.NullTime
	err := r.DB.QueryRow(q, username).Scan(
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.TelegramChatID,
		&u.Verified,
		&verifiedAt,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	if verifiedAt.Valid {
		u.VerifiedAt = &verifiedAt.Time
	}
	return u, nil
}

func (r *postgresUserRepository) UpdatePassword(username, newHash string) error {
	res, err := r.DB.Exec(`UPDATE users SET password_hash = $1 WHERE username = $2`, newHash, username)
	if err != nil {
		return fmt.Errorf("user update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user update password: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresUserRepository) MarkVerified(username string) error {
	res, err := r.DB.Exec(`UPDATE users SET verified = TRUE, verified_at = NOW() WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("user mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user mark verified: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresUserRepository) List() ([]*models.User, error) {
	const q = `
		SELECT username, email, password_hash,
		       COALESCE(telegram_chat_id, 0),
		       verified, verified_at, created_at
		FROM users
		ORDER BY username
	`
	rows, err := r.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var verifiedAt sql.NullTime
		if err := rows.Scan(
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.TelegramChatID,
			&u.Verified,
			&verifiedAt,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("user list scan: %w", err)
		}
		if verifiedAt.Valid {
			u.VerifiedAt = &verifiedAt.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
