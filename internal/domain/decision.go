package domain

import "time"

// Reason машиночитаемый код решения для аудита.
type Reason string

const (
	ReasonCurrent          Reason = "CURRENT"
	ReasonNoAck            Reason = "NO_ACK"
	ReasonStaleAck         Reason = "STALE_ACK"
	ReasonInvalidSignature Reason = "INVALID_SIGNATURE"
	ReasonStoreUnavailable Reason = "STORE_UNAVAILABLE" // Fail-closed
	ReasonNotInitialized   Reason = "NOT_INITIALIZED"
)

// ComplianceDecision результат одной проверки. Не сохраняется.
type ComplianceDecision struct {
	Allowed     bool   `json:"allowed"`
	Reason      Reason `json:"reason"`
	DirectiveID int64  `json:"directive_id,omitempty"`
	ActorID     string `json:"actor_id"`
}

func Allow(actorID string, directiveID int64) ComplianceDecision {
	return ComplianceDecision{Allowed: true, Reason: ReasonCurrent, DirectiveID: directiveID, ActorID: actorID}
}

func Block(actorID string, directiveID int64, reason Reason) ComplianceDecision {
	return ComplianceDecision{Allowed: false, Reason: reason, DirectiveID: directiveID, ActorID: actorID}
}

// ViolationRecord запись аудита о заблокированной попытке.
type ViolationRecord struct {
	ID            string             `json:"id"`
	TraceID       string             `json:"trace_id"`
	ActorID       string             `json:"actor_id"`
	OperationKind string             `json:"operation_kind"`
	Decision      ComplianceDecision `json:"decision"`
	Timestamp     time.Time          `json:"timestamp"`
}

// ViolationFilter фильтр упорядоченного чтения журнала нарушений.
type ViolationFilter struct {
	ActorID       string
	OperationKind string
	Reason        Reason
	Limit         int
}

// Match проверяет запись на соответствие фильтру (пустые поля не ограничивают).
func (f ViolationFilter) Match(v ViolationRecord) bool {
	if f.ActorID != "" && v.ActorID != f.ActorID {
		return false
	}
	if f.OperationKind != "" && v.OperationKind != f.OperationKind {
		return false
	}
	if f.Reason != "" && v.Decision.Reason != f.Reason {
		return false
	}
	return true
}

// ComplianceStats сводка для дашборда консоли.
type ComplianceStats struct {
	CurrentDirectiveID int64            `json:"current_directive_id"`
	AcknowledgedActors int64            `json:"acknowledged_actors"` // подтвердили текущую версию
	TotalViolations    int64            `json:"total_violations"`
	ViolationsByReason map[Reason]int64 `json:"violations_by_reason"`
}
