package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/directive-gate/internal/domain"
)

type GuardSettings struct {
	Timeout     time.Duration // верхняя граница одного обращения к хранилищу
	MaxRequests uint32        // пробных запросов в half-open
	Interval    time.Duration
	OpenTimeout time.Duration // через сколько CB попробует "закрыться"
	Failures    uint32        // подряд идущих сбоев до размыкания
	// OnStateChange для метрик (0 - closed, 1 - open, 0.5 - half-open)
	OnStateChange func(name string, from, to gobreaker.State)
}

// StoreGuard ограничивает обращение к хранилищу по времени и через Circuit Breaker.
// Любой исход, кроме успеха и доменных ответов, превращается в
// ErrStoreUnavailable/ErrTimeout, которые ядро трактует как fail-closed.
type StoreGuard struct {
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewStoreGuard(name string, st GuardSettings) *StoreGuard {
	failures := st.Failures
	if failures == 0 {
		failures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Доменные ответы (нет директивы, неизвестная версия) не признак болезни хранилища
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsStoreFailure(err)
		},
		OnStateChange: st.OnStateChange,
	})
	return &StoreGuard{cb: cb, timeout: st.Timeout}
}

// Do вариант Call для операций без результата.
func (g *StoreGuard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

type callResult[T any] struct {
	v   T
	err error
}

// Call выполняет fn с таймаутом через предохранитель g. Если хранилище игнорирует
// контекст, вызов все равно завершится по дедлайну; результат "зависшей" горутины
// уходит в буферизованный канал и отбрасывается, вызывающий его не видит.
func Call[T any](ctx context.Context, g *StoreGuard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	// Отмененный вызывающим запрос не должен влиять на счетчики CB
	if err := ctx.Err(); err != nil {
		return zero, domain.WrapStoreError(err)
	}

	out, err := g.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		done := make(chan callResult[T], 1)
		go func() {
			v, err := fn(callCtx)
			done <- callResult[T]{v: v, err: err}
		}()

		select {
		case r := <-done:
			if r.err != nil {
				return nil, domain.WrapStoreError(r.err)
			}
			return r.v, nil
		case <-callCtx.Done():
			return nil, domain.WrapStoreError(callCtx.Err())
		}
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// State текущее состояние предохранителя.
func (g *StoreGuard) State() gobreaker.State {
	return g.cb.State()
}
