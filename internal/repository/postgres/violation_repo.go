package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xela07ax/directive-gate/internal/domain"
)

// ViolationRepo хранилище журнала нарушений (audit.Storage + audit.Scanner).
type ViolationRepo struct {
	db *sql.DB
}

func NewViolationRepo(db *sql.DB) *ViolationRepo {
	return &ViolationRepo{db: db}
}

// WriteBatch пакетная вставка. Повтор той же пачки безопасен (ON CONFLICT по id).
func (r *ViolationRepo) WriteBatch(ctx context.Context, records []domain.ViolationRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Количество колонок в таблице violations (без seq)
	const numFields = 7
	placeholders := make([]string, 0, len(records))
	vals := make([]interface{}, 0, len(records)*numFields)

	for i, v := range records {
		p := i * numFields
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7))
		vals = append(vals,
			v.ID, v.TraceID, v.ActorID, v.OperationKind,
			string(v.Decision.Reason), v.Decision.DirectiveID, v.Timestamp,
		)
	}

	query := "INSERT INTO violations (id, trace_id, actor_id, operation_kind, reason, directive_id, created_at) VALUES " +
		strings.Join(placeholders, ", ") + " ON CONFLICT (id) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write violations: %w", err)
	}
	return nil
}

// ScanViolations упорядоченное (по seq) чтение с фильтрами.
func (r *ViolationRepo) ScanViolations(ctx context.Context, f domain.ViolationFilter) ([]domain.ViolationRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.OperationKind != "" {
		add("operation_kind = $%d", f.OperationKind)
	}
	if f.Reason != "" {
		add("reason = $%d", string(f.Reason))
	}

	query := "SELECT id, trace_id, actor_id, operation_kind, reason, directive_id, created_at FROM violations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan violations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ViolationRecord, 0)
	for rows.Next() {
		var (
			v      domain.ViolationRecord
			reason string
		)
		if err := rows.Scan(&v.ID, &v.TraceID, &v.ActorID, &v.OperationKind, &reason, &v.Decision.DirectiveID, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan violation: %w", err)
		}
		v.Decision.Allowed = false
		v.Decision.Reason = domain.Reason(reason)
		v.Decision.ActorID = v.ActorID
		v.Timestamp = v.Timestamp.UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountByReason агрегаты для дашборда консоли.
func (r *ViolationRepo) CountByReason(ctx context.Context) (map[domain.Reason]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM violations GROUP BY reason`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count violations: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Reason]int64)
	for rows.Next() {
		var (
			reason string
			n      int64
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan violation count: %w", err)
		}
		out[domain.Reason(reason)] = n
	}
	return out, rows.Err()
}
