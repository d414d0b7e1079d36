package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/directive-gate/internal/domain"
)

func TestStoreGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	g := NewStoreGuard("db", GuardSettings{
		Failures:    3,
		OpenTimeout: time.Hour,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	calls := 0
	failing := func(context.Context) error {
		calls++
		return errors.New("connection reset")
	}

	for i := 0; i < 3; i++ {
		err := g.Do(context.Background(), failing)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	// Открытый CB не доходит до хранилища
	err := g.Do(context.Background(), failing)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestStoreGuard_DomainErrorsDoNotTrip(t *testing.T) {
	g := NewStoreGuard("db", GuardSettings{Failures: 1})

	for i := 0; i < 5; i++ {
		err := g.Do(context.Background(), func(context.Context) error { return domain.ErrNotInitialized })
		assert.ErrorIs(t, err, domain.ErrNotInitialized)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestStoreGuard_Timeout(t *testing.T) {
	g := NewStoreGuard("db", GuardSettings{Timeout: 10 * time.Millisecond})

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.True(t, domain.IsStoreFailure(err))
}

func TestStoreGuard_PassesThroughSuccess(t *testing.T) {
	g := NewStoreGuard("db", GuardSettings{})

	ran := false
	require.NoError(t, g.Do(context.Background(), func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestCall_ReturnsValue(t *testing.T) {
	g := NewStoreGuard("db", GuardSettings{Timeout: time.Second})

	v, err := Call(context.Background(), g, func(context.Context) (domain.Directive, error) {
		return domain.Directive{ID: 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), v.ID)

	ack, err := Call(context.Background(), g, func(context.Context) (*domain.Acknowledgment, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, ack)
}

func TestCall_LateResultIsDiscarded(t *testing.T) {
	g := NewStoreGuard("db", GuardSettings{Timeout: 10 * time.Millisecond})

	release := make(chan struct{})
	finished := make(chan struct{})
	v, err := Call(context.Background(), g, func(context.Context) (*domain.Acknowledgment, error) {
		defer close(finished)
		<-release // хранилище, которое не смотрит на контекст
		return &domain.Acknowledgment{DirectiveID: 9}, nil
	})
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Nil(t, v)

	// Зависшая горутина досчитывает после возврата и никого не трогает
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("store call did not finish")
	}
	assert.Nil(t, v)
}
