package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"passguard/internal/models"
)

type postgresVerificationRepository struct {
	DB *sql.DB
}

func NewPostgresVerificationRepository(db *sql.DB) VerificationRepository {
	return &postgresVerificationRepository{DB: db}
}

// Create — every issue is a new row; the latest one supersedes the rest.
func (r *postgresVerificationRepository) Create(v *models.VerificationCode) (int64, error) {
	const q = `
		INSERT INTO verification_codes (username, purpose, code_hash, sent_at, expires_at, consumed, attempts)
		VALUES ($1, $2, $3, $4, $5, FALSE, 0)
		RETURNING id
	`
	var id int64
	if err := r.DB.QueryRow(q, v.Username, v.Purpose, v.CodeHash, v.SentAt, v.ExpiresAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("verification create: %w", err)
	}
	v.ID = id
	return id, nil
}

func (r *postgresVerificationRepository) GetLatest(username string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	const q = `
		SELECT id, username, purpose, code_hash, sent_at, expires_at, consumed, attempts
		FROM verification_codes
		WHERE username = $1 AND purpose = $2
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`
	row := r.DB.QueryRow(q, username, purpose)
	var v models.VerificationCode
	if err := row.Scan(&v.ID, &v.Username, &v.Purpose, &v.CodeHash, &v.SentAt, &v.ExpiresAt, &v.Consumed, &v.Attempts); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("verification latest: %w", err)
	}
	return &v, nil
}

func (r *postgresVerificationRepository) CountRecentSends(username string, purpose models.CodePurpose, since time.Time) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM verification_codes
		WHERE username = $1 AND purpose = $2 AND sent_at >= $3
	`
	var c int
	if err := r.DB.QueryRow(q, username, purpose, since).Scan(&c); err != nil {
		return 0, fmt.Errorf("verification count recent: %w", err)
	}
	return c, nil
}

func (r *postgresVerificationRepository) IncrementAttempts(id int64) (int, error) {
	const q = `
		UPDATE verification_codes
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRow(q, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("verification increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *postgresVerificationRepository) MarkConsumed(id int64) error {
	_, err := r.DB.Exec(`UPDATE verification_codes SET consumed=TRUE WHERE id=$1`, id)
	return err
}

// ExpireNow — immediately invalidates the code (used when the attempt
// budget is exhausted).
func (r *postgresVerificationRepository) ExpireNow(id int64) error {
	_, err := r.DB.Exec(`UPDATE verification_codes SET expires_at = NOW() WHERE id=$1`, id)
	return err
}
