package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized ни одна директива еще не опубликована.
	ErrNotInitialized = errors.New("no directive has been published")
	// ErrConflict гонка за уникальный ключ (слот ID директивы, имя пользователя).
	ErrConflict = errors.New("write conflict")
	// ErrInvalidSignature подпись не проходит проверку ключом участника.
	ErrInvalidSignature = errors.New("invalid acknowledgment signature")
	// ErrUnknownDirective подтверждение ссылается на несуществующую версию.
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrStoreUnavailable хранилище недоступно (сеть, БД, открытый Circuit Breaker).
	ErrStoreUnavailable = errors.New("compliance store unavailable")
	// ErrTimeout хранилище не ответило за отведенное время.
	ErrTimeout = errors.New("compliance store timeout")
	// ErrInvalidArgument пустой actor/operation и прочий мусор на входе.
	ErrInvalidArgument = errors.New("invalid argument")
)

// WrapStoreError приводит инфраструктурную ошибку хранилища к таксономии шлюза:
// дедлайн становится ErrTimeout, все остальное ErrStoreUnavailable.
// Уже классифицированные ошибки возвращаются как есть.
func WrapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrUnknownDirective),
		errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// IsStoreFailure ошибки, при которых шлюз обязан закрыться (fail-closed).
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTimeout)
}
