package domain

import "time"

// Acknowledgment подписанная запись о том, что участник принял версию директивы.
// Только добавляется, никогда не изменяется и не удаляется.
type Acknowledgment struct {
	Seq         int64     `json:"seq"` // позиция в журнале
	ActorID     string    `json:"actor_id"`
	DirectiveID int64     `json:"directive_id"`
	Signature   string    `json:"signature"` // hex(ed25519(AckPayload))
	Timestamp   time.Time `json:"timestamp"`
}

// AckRequest входящий запрос на подтверждение (Console API и gatectl).
type AckRequest struct {
	ActorID     string `json:"actor_id"`
	DirectiveID int64  `json:"directive_id"`
	Signature   string `json:"signature"`
}

// ActorCredential публичный ключ участника, которым проверяются подписи.
type ActorCredential struct {
	ActorID   string    `json:"actor_id"`
	PublicKey string    `json:"public_key"` // hex ed25519
	UpdatedAt time.Time `json:"updated_at"`
}
