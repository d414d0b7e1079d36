package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "directive-gate"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDirectivePublished сигнал "перечитай директивы" для всех инстансов шлюза.
	// Payload: ID новой директивы.
	RedisChanDirectivePublished = RedisNamespace + ":directives:published"
	// RedisChanViolations поток событий о заблокированных операциях (JSON ViolationRecord).
	RedisChanViolations = RedisNamespace + ":violations"
)
