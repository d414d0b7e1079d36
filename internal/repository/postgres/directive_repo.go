package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/directive-gate/internal/domain"
)

// DirectiveRepo версии директивы. Первичный ключ id разрешает гонку публикаций между инстансами.
type DirectiveRepo struct {
	db *sql.DB
}

func NewDirectiveRepo(db *sql.DB) *DirectiveRepo {
	return &DirectiveRepo{db: db}
}

func (r *DirectiveRepo) List(ctx context.Context) ([]domain.Directive, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, digest, effective_from FROM directives ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list directives: %w", err)
	}
	defer rows.Close()

	var out []domain.Directive
	for rows.Next() {
		var d domain.Directive
		if err := rows.Scan(&d.ID, &d.Text, &d.Digest, &d.EffectiveFrom); err != nil {
			return nil, fmt.Errorf("postgres: scan directive: %w", err)
		}
		d.EffectiveFrom = d.EffectiveFrom.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// Latest одна строка по индексу (effective_from, id): вызывается на каждой проверке.
func (r *DirectiveRepo) Latest(ctx context.Context, asOf time.Time) (domain.Directive, error) {
	var d domain.Directive
	err := r.db.QueryRowContext(ctx,
		`SELECT id, text, digest, effective_from FROM directives
		 WHERE effective_from <= $1
		 ORDER BY effective_from DESC, id DESC
		 LIMIT 1`, asOf).Scan(&d.ID, &d.Text, &d.Digest, &d.EffectiveFrom)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Directive{}, domain.ErrNotInitialized
	}
	if err != nil {
		return domain.Directive{}, fmt.Errorf("postgres: latest directive: %w", err)
	}
	d.EffectiveFrom = d.EffectiveFrom.UTC()
	return d, nil
}

func (r *DirectiveRepo) Insert(ctx context.Context, d domain.Directive) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO directives (id, text, digest, effective_from) VALUES ($1, $2, $3, $4)`,
		d.ID, d.Text, d.Digest, d.EffectiveFrom)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: id %d", domain.ErrConflict, d.ID)
		}
		return fmt.Errorf("postgres: insert directive: %w", err)
	}
	return nil
}
