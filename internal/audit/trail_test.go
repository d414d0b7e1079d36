package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func violation(actor string, reason domain.Reason) domain.ViolationRecord {
	return domain.ViolationRecord{
		ID:            fmt.Sprintf("v-%s-%s", actor, reason),
		ActorID:       actor,
		OperationKind: "push",
		Decision:      domain.Block(actor, 1, reason),
	}
}

func TestTrail_BatchesBySize(t *testing.T) {
	store := NewMemoryStorage()
	trail := NewTrail(store, zap.NewNop(), Options{BatchSize: 5, FlushInterval: time.Hour})
	trail.Start()

	for i := 0; i < 10; i++ {
		trail.Log(violation(fmt.Sprintf("a%d", i), domain.ReasonNoAck))
	}

	require.Eventually(t, func() bool { return store.Len() == 10 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, store.Batches())
	trail.Stop()
}

func TestTrail_FlushesOnTicker(t *testing.T) {
	store := NewMemoryStorage()
	trail := NewTrail(store, zap.NewNop(), Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	trail.Start()
	defer trail.Stop()

	trail.Log(violation("a", domain.ReasonStaleAck))
	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestTrail_StopDrainsBuffer(t *testing.T) {
	store := NewMemoryStorage()
	trail := NewTrail(store, zap.NewNop(), Options{BatchSize: 1000, FlushInterval: time.Hour})
	trail.Start()

	for i := 0; i < 250; i++ {
		trail.Log(violation(fmt.Sprintf("a%d", i), domain.ReasonNoAck))
	}
	trail.Stop()

	assert.Equal(t, 250, store.Len())
	// Повторный Stop безопасен
	trail.Stop()
}

func TestTrail_OverflowWritesSynchronously(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := NewMemoryStorage()
	// Воркер не запущен: очередь на одну запись сразу переполняется
	trail := NewTrail(store, zap.New(core), Options{BufferSize: 1})

	trail.Log(violation("a", domain.ReasonNoAck))
	trail.Log(violation("b", domain.ReasonNoAck))
	trail.Log(violation("c", domain.ReasonNoAck))

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1, trail.Depth())
	assert.Equal(t, 2, logs.FilterMessage("audit buffer bypass, writing synchronously").Len())

	trail.Start()
	trail.Stop()
	assert.Equal(t, 3, store.Len())
}

func TestTrail_LogAfterStopIsNotLost(t *testing.T) {
	store := NewMemoryStorage()
	trail := NewTrail(store, zap.NewNop(), Options{})
	trail.Start()
	trail.Stop()

	trail.Log(violation("late", domain.ReasonStaleAck))
	assert.Equal(t, 1, store.Len())
}

type failingStorage struct{}

func (failingStorage) WriteBatch(context.Context, []domain.ViolationRecord) error {
	return errors.New("db is down")
}

func TestTrail_WriteFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	trail := NewTrail(failingStorage{}, zap.New(core), Options{})
	trail.Start()

	trail.Log(violation("a", domain.ReasonInvalidSignature))
	trail.Stop()

	entries := logs.FilterMessage("audit write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ContextMap()["actor_id"])
	assert.Equal(t, "INVALID_SIGNATURE", entries[0].ContextMap()["reason"])
}

func TestMemoryStorage_ScanIsOrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	require.NoError(t, store.WriteBatch(ctx, []domain.ViolationRecord{
		violation("a", domain.ReasonNoAck),
		violation("b", domain.ReasonStaleAck),
	}))
	require.NoError(t, store.WriteBatch(ctx, []domain.ViolationRecord{
		violation("a", domain.ReasonStaleAck),
	}))

	all, err := store.ScanViolations(ctx, domain.ViolationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "a"}, []string{all[0].ActorID, all[1].ActorID, all[2].ActorID})

	onlyA, err := store.ScanViolations(ctx, domain.ViolationFilter{ActorID: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	stale, err := store.ScanViolations(ctx, domain.ViolationFilter{Reason: domain.ReasonStaleAck, Limit: 1})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "b", stale[0].ActorID)
}
