package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra"
)

// RedisSink публикует событие JSON-ом в канал Pub/Sub (консоль, алертинг).
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb, channel: infra.RedisChanViolations}
}

func (s *RedisSink) Notify(ctx context.Context, r domain.ViolationRecord) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}
	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", s.channel, err)
	}
	return nil
}
