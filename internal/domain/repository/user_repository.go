package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListUnapprovedOrganisers(ctx context.Context) ([]model.User, error)
	Approve(ctx context.Context, username string) error
	UpdateRole(ctx context.Context, username, role string, approved bool) error
	MarkVerified(ctx context.Context, tx *sql.Tx, userID string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, name, surname, role, is_verified, approved_by_admin, image, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Name, &user.Surname,
		&user.Role, &user.IsVerified, &user.ApprovedByAdmin, &user.Image, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, name, surname, role, is_verified, approved_by_admin, image)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := conn(r.db, tx).ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Name, user.Surname,
		user.Role, user.IsVerified, user.ApprovedByAdmin, user.Image,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, arg any) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email = $1", email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", "username = $1", username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id = $1", id)
}

func (r *pgUserRepository) list(ctx context.Context, op, query string, args ...any) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.%s scan: %w", op, err)
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.%s rows.Err: %w", op, err)
	}
	return users, nil
}

func (r *pgUserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "List", `SELECT `+userColumns+` FROM users ORDER BY created_at`)
}

func (r *pgUserRepository) ListUnapprovedOrganisers(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "ListUnapprovedOrganisers",
		`SELECT `+userColumns+` FROM users WHERE role = $1 AND approved_by_admin = FALSE ORDER BY created_at`,
		model.RoleOrganiser)
}

func (r *pgUserRepository) Approve(ctx context.Context, username string) error {
	query := `UPDATE users SET approved_by_admin = TRUE, updated_at = NOW() WHERE username = $1 AND role = $2`
	res, err := r.db.ExecContext(ctx, query, username, model.RoleOrganiser)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Approve: %w", err)
	}
	return expectOneRow(res, "pgUserRepository.Approve")
}

func (r *pgUserRepository) UpdateRole(ctx context.Context, username, role string, approved bool) error {
	query := `UPDATE users SET role = $1, approved_by_admin = $2, updated_at = NOW() WHERE username = $3`
	res, err := r.db.ExecContext(ctx, query, role, approved, username)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateRole: %w", err)
	}
	return expectOneRow(res, "pgUserRepository.UpdateRole")
}

func (r *pgUserRepository) MarkVerified(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`
	res, err := conn(r.db, tx).ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.MarkVerified: %w", err)
	}
	return expectOneRow(res, "pgUserRepository.MarkVerified")
}
