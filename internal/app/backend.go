package app

import (
	"context"
	"database/sql"

	"github.com/xela07ax/directive-gate/internal/audit"
	"github.com/xela07ax/directive-gate/internal/console/service"
	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/directive"
	"github.com/xela07ax/directive-gate/internal/infra"
	"github.com/xela07ax/directive-gate/internal/ledger"
	"github.com/xela07ax/directive-gate/internal/repository/postgres"
	"go.uber.org/zap"
)

// ViolationStore журнал нарушений целиком: запись, чтение, агрегаты.
type ViolationStore interface {
	audit.Storage
	audit.Scanner
	service.ReasonCounter
}

// Backend набор хранилищ, общий для шлюза и консоли.
type Backend struct {
	Directives  directive.Repository
	Acks        ledger.Log
	Keys        credentials.KeySource
	Credentials service.CredentialStore
	Violations  ViolationStore
	Users       service.UserStore

	db *sql.DB
}

// OpenBackend Postgres, если задан database.url; иначе in-memory (локальный запуск, состояние не переживает рестарт).
func OpenBackend(ctx context.Context, cfg infra.DatabaseConfig, logger *zap.Logger) (*Backend, error) {
	if cfg.URL == "" {
		logger.Warn("database.url is empty, using in-memory storage")
		keys := credentials.NewMemoryKeys(nil)
		violations := audit.NewMemoryStorage()
		return &Backend{
			Directives:  directive.NewMemoryRepository(),
			Acks:        ledger.NewMemoryLog(),
			Keys:        keys,
			Credentials: service.MemoryCredentials{Keys: keys},
			Violations:  memoryViolations{MemoryStorage: violations, MemoryReasonCounter: service.MemoryReasonCounter{Scanner: violations}},
			Users:       service.NewMemoryUsers(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	creds := postgres.NewCredentialRepo(db)
	return &Backend{
		Directives:  postgres.NewDirectiveRepo(db),
		Acks:        postgres.NewAckRepo(db),
		Keys:        creds,
		Credentials: creds,
		Violations:  postgres.NewViolationRepo(db),
		Users:       postgres.NewUserRepo(db),
		db:          db,
	}, nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

type memoryViolations struct {
	*audit.MemoryStorage
	service.MemoryReasonCounter
}
