package service

import (
	"context"
	"errors"

	"github.com/xela07ax/directive-gate/internal/audit"
	"github.com/xela07ax/directive-gate/internal/domain"
)

type ReasonCounter interface {
	CountByReason(ctx context.Context) (map[domain.Reason]int64, error)
}

type AckCounter interface {
	CountForDirective(ctx context.Context, directiveID int64) (int64, error)
}

// AuditService чтение журнала нарушений и сводка для дашборда.
type AuditService struct {
	scanner    audit.Scanner
	counter    ReasonCounter
	directives DirectiveStore
	acks       AckCounter
}

func NewAuditService(scanner audit.Scanner, counter ReasonCounter, directives DirectiveStore, acks AckCounter) *AuditService {
	return &AuditService{scanner: scanner, counter: counter, directives: directives, acks: acks}
}

func (s *AuditService) Violations(ctx context.Context, f domain.ViolationFilter) ([]domain.ViolationRecord, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 1000
	}
	items, err := s.scanner.ScanViolations(ctx, f)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return items, nil
}

func (s *AuditService) Stats(ctx context.Context) (domain.ComplianceStats, error) {
	stats := domain.ComplianceStats{ViolationsByReason: map[domain.Reason]int64{}}

	byReason, err := s.counter.CountByReason(ctx)
	if err != nil {
		return stats, domain.WrapStoreError(err)
	}
	for reason, n := range byReason {
		stats.ViolationsByReason[reason] = n
		stats.TotalViolations += n
	}

	current, err := s.directives.Current(ctx)
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return stats, nil
	case err != nil:
		return stats, err
	}
	stats.CurrentDirectiveID = current.ID

	n, err := s.acks.CountForDirective(ctx, current.ID)
	if err != nil {
		return stats, err
	}
	stats.AcknowledgedActors = n
	return stats, nil
}

// MemoryReasonCounter считает причины по сканеру (для хранилищ без агрегатов).
type MemoryReasonCounter struct {
	Scanner audit.Scanner
}

func (c MemoryReasonCounter) CountByReason(ctx context.Context) (map[domain.Reason]int64, error) {
	items, err := c.Scanner.ScanViolations(ctx, domain.ViolationFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Reason]int64)
	for _, v := range items {
		out[v.Decision.Reason]++
	}
	return out, nil
}
