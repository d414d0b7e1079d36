package service

import (
	"context"

	"github.com/xela07ax/directive-gate/internal/domain"
)

type DirectiveStore interface {
	Publish(ctx context.Context, text string) (domain.Directive, error)
	Current(ctx context.Context) (domain.Directive, error)
	Get(ctx context.Context, id int64) (domain.Directive, error)
	List(ctx context.Context) ([]domain.Directive, error)
}

// DirectiveService административная публикация и просмотр версий.
type DirectiveService struct {
	store DirectiveStore
}

func NewDirectiveService(store DirectiveStore) *DirectiveService {
	return &DirectiveService{store: store}
}

func (s *DirectiveService) Publish(ctx context.Context, text string) (domain.Directive, error) {
	return s.store.Publish(ctx, text)
}

func (s *DirectiveService) Current(ctx context.Context) (domain.Directive, error) {
	return s.store.Current(ctx)
}

func (s *DirectiveService) Get(ctx context.Context, id int64) (domain.Directive, error) {
	return s.store.Get(ctx, id)
}

func (s *DirectiveService) List(ctx context.Context) ([]domain.Directive, error) {
	return s.store.List(ctx)
}
