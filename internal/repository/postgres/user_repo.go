package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xela07ax/directive-gate/internal/domain"
)

// UserRepo операторы консоли.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUserByUsername nil, nil если пользователя нет.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, password_hash, scopes, created_at FROM users WHERE username = $1`

	var (
		u      domain.User
		scopes []byte
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &scopes, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: load user: %w", err)
	}
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &u.Scopes); err != nil {
			return nil, fmt.Errorf("postgres: decode scopes: %w", err)
		}
	}
	return &u, nil
}

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	scopes, err := json.Marshal(u.Scopes)
	if err != nil {
		return fmt.Errorf("postgres: encode scopes: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, scopes, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.PasswordHash, scopes, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q is taken", domain.ErrConflict, u.Username)
		}
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}
