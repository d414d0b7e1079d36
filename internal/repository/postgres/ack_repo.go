package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xela07ax/directive-gate/internal/domain"
)

// AckRepo журнал подтверждений. Только INSERT: UPDATE/DELETE в коде нет.
type AckRepo struct {
	db *sql.DB
}

func NewAckRepo(db *sql.DB) *AckRepo {
	return &AckRepo{db: db}
}

const ackColumns = `seq, actor_id, directive_id, signature, created_at`

// Append атомарная вставка. Уникальный ключ (actor_id, directive_id) делает повтор безопасным:
// при конфликте возвращается уже существующая запись.
func (r *AckRepo) Append(ctx context.Context, ack domain.Acknowledgment) (domain.Acknowledgment, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO acknowledgments (actor_id, directive_id, signature, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id, directive_id) DO NOTHING
		RETURNING seq`,
		ack.ActorID, ack.DirectiveID, ack.Signature, ack.Timestamp,
	).Scan(&ack.Seq)
	if err == nil {
		return ack, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Acknowledgment{}, fmt.Errorf("postgres: append acknowledgment: %w", err)
	}

	existing, err := scanAck(r.db.QueryRowContext(ctx,
		`SELECT `+ackColumns+` FROM acknowledgments WHERE actor_id = $1 AND directive_id = $2`,
		ack.ActorID, ack.DirectiveID))
	if err != nil {
		return domain.Acknowledgment{}, fmt.Errorf("postgres: load existing acknowledgment: %w", err)
	}
	return *existing, nil
}

func (r *AckRepo) Latest(ctx context.Context, actorID string) (*domain.Acknowledgment, error) {
	ack, err := scanAck(r.db.QueryRowContext(ctx,
		`SELECT `+ackColumns+` FROM acknowledgments WHERE actor_id = $1 ORDER BY directive_id DESC LIMIT 1`,
		actorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: latest acknowledgment: %w", err)
	}
	return ack, nil
}

func (r *AckRepo) History(ctx context.Context, actorID string) ([]domain.Acknowledgment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ackColumns+` FROM acknowledgments WHERE actor_id = $1 ORDER BY seq`, actorID)
	if err != nil {
		return nil, fmt.Errorf("postgres: acknowledgment history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Acknowledgment, 0)
	for rows.Next() {
		ack, err := scanAck(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan acknowledgment: %w", err)
		}
		out = append(out, *ack)
	}
	return out, rows.Err()
}

func (r *AckRepo) CountForDirective(ctx context.Context, directiveID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM acknowledgments WHERE directive_id = $1`, directiveID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count acknowledgments: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAck(row rowScanner) (*domain.Acknowledgment, error) {
	var a domain.Acknowledgment
	if err := row.Scan(&a.Seq, &a.ActorID, &a.DirectiveID, &a.Signature, &a.Timestamp); err != nil {
		return nil, err
	}
	a.Timestamp = a.Timestamp.UTC()
	return &a, nil
}
