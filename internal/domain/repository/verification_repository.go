package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

type VerificationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, token model.VerificationToken) error
	Find(ctx context.Context, token string) (*model.VerificationToken, error)
	Delete(ctx context.Context, tx *sql.Tx, token string) error
}

type pgVerificationRepository struct {
	db *sql.DB
}

func NewPgVerificationRepository(db *sql.DB) VerificationRepository {
	return &pgVerificationRepository{db: db}
}

func (r *pgVerificationRepository) Create(ctx context.Context, tx *sql.Tx, token model.VerificationToken) error {
	query := `INSERT INTO verification_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, token.Token, token.UserID, token.ExpiresAt); err != nil {
		return fmt.Errorf("pgVerificationRepository.Create: %w", err)
	}
	return nil
}

func (r *pgVerificationRepository) Find(ctx context.Context, token string) (*model.VerificationToken, error) {
	query := `SELECT token, user_id, expires_at FROM verification_tokens WHERE token = $1`
	vt := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&vt.Token, &vt.UserID, &vt.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgVerificationRepository.Find: %w", err)
	}
	return vt, nil
}

func (r *pgVerificationRepository) Delete(ctx context.Context, tx *sql.Tx, token string) error {
	if _, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM verification_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("pgVerificationRepository.Delete: %w", err)
	}
	return nil
}
