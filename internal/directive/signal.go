package directive

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/infra"
	"go.uber.org/zap"
)

// RedisPublishHook транслирует факт публикации всем инстансам шлюза.
// Ошибка доставки не откатывает публикацию: инстансы догонят по таймеру Refresh.
func RedisPublishHook(rdb *redis.Client, logger *zap.Logger) PublishHook {
	return func(ctx context.Context, d domain.Directive) {
		payload := strconv.FormatInt(d.ID, 10)
		if err := rdb.Publish(ctx, infra.RedisChanDirectivePublished, payload).Err(); err != nil {
			logger.Warn("directive publish signal failed",
				zap.Int64("id", d.ID),
				zap.String("channel", infra.RedisChanDirectivePublished),
				zap.Error(err))
		}
	}
}

// StartListener подписывается на сигналы публикации и дополнительно перечитывает
// версии по таймеру. Блокируется до отмены ctx.
func (s *Store) StartListener(ctx context.Context, rdb *redis.Client, refreshEvery time.Duration) {
	if refreshEvery > 0 {
		go s.refreshLoop(ctx, refreshEvery)
	}

	infra.ListenResilient(ctx, rdb, s.logger, infra.RedisChanDirectivePublished,
		s.Refresh, // Переподключение
		func(payload string) {
			s.logger.Info("received directive publish signal", zap.String("id", payload))
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("directive refresh failed", zap.Error(err))
			}
		},
	)
}

func (s *Store) refreshLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("periodic directive refresh failed", zap.Error(err))
			}
		}
	}
}
