package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
)

// CredentialRepo публичные ключи участников (credentials.KeySource).
type CredentialRepo struct {
	db *sql.DB
}

func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

func (r *CredentialRepo) PublicKey(ctx context.Context, actorID string) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`SELECT public_key FROM actor_credentials WHERE actor_id = $1`, actorID).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", credentials.ErrNoCredential
		}
		return "", fmt.Errorf("postgres: load credential: %w", err)
	}
	return key, nil
}

// Put регистрирует или ротирует ключ участника.
func (r *CredentialRepo) Put(ctx context.Context, c domain.ActorCredential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actor_credentials (actor_id, public_key, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (actor_id) DO UPDATE SET public_key = EXCLUDED.public_key, updated_at = EXCLUDED.updated_at`,
		c.ActorID, c.PublicKey, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: put credential: %w", err)
	}
	return nil
}

// Revoke удаляет ключ. Возвращает credentials.ErrNoCredential, если ключа не было.
func (r *CredentialRepo) Revoke(ctx context.Context, actorID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM actor_credentials WHERE actor_id = $1`, actorID)
	if err != nil {
		return fmt.Errorf("postgres: revoke credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return credentials.ErrNoCredential
	}
	return nil
}
