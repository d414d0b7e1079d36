package directive

/*
Store хранит опубликованные версии директивы и отвечает на вопрос "какая версия действует сейчас".

- Current всегда спрашивает хранилище (Latest): публикация другим инстансом видна
  следующей же проверке, сбой хранилища не маскируется теплым кэшем.
- Get/List читают неизменяемый снимок через atomic.Pointer без блокировок:
  читатель видит состояние либо до публикации, либо полностью после.
- Публикации сериализуются мьютексом внутри процесса; гонку между инстансами
  разрешает уникальный ключ в хранилище (ErrConflict) и повтор с backoff.
- Директивы никогда не удаляются, поэтому снимок только растет: перечитка
  объединяет загруженное с уже известным и не может "потерять" свежую публикацию.
*/

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

// Repository долговременное хранилище версий директивы.
type Repository interface {
	// List возвращает все директивы по возрастанию ID.
	List(ctx context.Context) ([]domain.Directive, error)
	// Latest директива с наибольшим EffectiveFrom <= asOf (при равенстве больший ID).
	// Если такой нет, возвращает domain.ErrNotInitialized.
	Latest(ctx context.Context, asOf time.Time) (domain.Directive, error)
	// Insert сохраняет директиву с уже назначенным ID.
	// Если слот ID занят, возвращает domain.ErrConflict.
	Insert(ctx context.Context, d domain.Directive) error
}

// PublishHook вызывается после успешной публикации (сигнал другим инстансам).
type PublishHook func(ctx context.Context, d domain.Directive)

type Options struct {
	PublishAttempts uint
	PublishDelay    time.Duration
	Now             func() time.Time
}

type snapshot struct {
	items []domain.Directive // по возрастанию ID
}

func (s *snapshot) byID(id int64) (domain.Directive, bool) {
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].ID >= id })
	if i < len(s.items) && s.items[i].ID == id {
		return s.items[i], true
	}
	return domain.Directive{}, false
}

type Store struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time

	attempts uint
	delay    time.Duration

	publishMu sync.Mutex
	snap      atomic.Pointer[snapshot]
	hooks     []PublishHook
}

func NewStore(repo Repository, logger *zap.Logger, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PublishAttempts == 0 {
		opts.PublishAttempts = 5
	}
	if opts.PublishDelay <= 0 {
		opts.PublishDelay = 50 * time.Millisecond
	}
	s := &Store{
		repo:     repo,
		logger:   logger.Named("directive-store"),
		now:      opts.Now,
		attempts: opts.PublishAttempts,
		delay:    opts.PublishDelay,
	}
	s.snap.Store(&snapshot{})
	return s
}

// OnPublish регистрирует хук. Вызывать до начала работы.
func (s *Store) OnPublish(h PublishHook) {
	s.hooks = append(s.hooks, h)
}

// Publish создает новую версию директивы с ID = последний+1 и effectiveFrom = now.
func (s *Store) Publish(ctx context.Context, text string) (domain.Directive, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Directive{}, fmt.Errorf("%w: directive text is empty", domain.ErrInvalidArgument)
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	var published domain.Directive

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		// Повторяем только проигранную гонку за слот, остальное сразу наверх
		retry.RetryIf(func(err error) bool { return errors.Is(err, domain.ErrConflict) }),
	)

	err := r.Do(func() error {
		existing, err := s.repo.List(ctx)
		if err != nil {
			return domain.WrapStoreError(err)
		}

		d := domain.NewDirective(text, s.now())
		d.ID = nextID(existing)

		if err := s.repo.Insert(ctx, d); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.logger.Warn("directive id slot taken, retrying", zap.Int64("id", d.ID))
				return err
			}
			return domain.WrapStoreError(err)
		}

		s.merge(existing)
		published = d
		return nil
	})
	if err != nil {
		return domain.Directive{}, fmt.Errorf("publish directive: %w", err)
	}

	s.merge([]domain.Directive{published})
	s.logger.Info("directive published",
		zap.Int64("id", published.ID),
		zap.String("digest", published.Digest),
		zap.Time("effective_from", published.EffectiveFrom))

	for _, h := range s.hooks {
		h(ctx, published)
	}
	return published, nil
}

// Current возвращает действующую директиву: наибольший EffectiveFrom <= now.
// Источник истины хранилище, снимок только пополняется найденной версией.
func (s *Store) Current(ctx context.Context) (domain.Directive, error) {
	d, err := s.repo.Latest(ctx, s.now())
	if err != nil {
		return domain.Directive{}, domain.WrapStoreError(err)
	}
	s.merge([]domain.Directive{d})
	return d, nil
}

// Get ищет версию по ID. Промах в снимке перепроверяется в хранилище:
// версия могла быть опубликована другим инстансом.
func (s *Store) Get(ctx context.Context, id int64) (domain.Directive, error) {
	if d, ok := s.snap.Load().byID(id); ok {
		return d, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return domain.Directive{}, err
	}
	if d, ok := s.snap.Load().byID(id); ok {
		return d, nil
	}
	return domain.Directive{}, fmt.Errorf("%w: id %d", domain.ErrUnknownDirective, id)
}

// List все известные версии по возрастанию ID.
func (s *Store) List(ctx context.Context) ([]domain.Directive, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	items := s.snap.Load().items
	out := make([]domain.Directive, len(items))
	copy(out, items)
	return out, nil
}

// Refresh выполняет "холодную загрузку" версий из хранилища в память.
func (s *Store) Refresh(ctx context.Context) error {
	items, err := s.repo.List(ctx)
	if err != nil {
		return domain.WrapStoreError(err)
	}
	s.merge(items)
	s.logger.Debug("directive snapshot refreshed", zap.Int("count", len(s.snap.Load().items)))
	return nil
}

// merge атомарно объединяет снимок с новыми версиями (CAS-цикл, без блокировки читателей).
func (s *Store) merge(items []domain.Directive) {
	for {
		old := s.snap.Load()
		next := union(old.items, items)
		if s.snap.CompareAndSwap(old, &snapshot{items: next}) {
			return
		}
	}
}

func union(a, b []domain.Directive) []domain.Directive {
	byID := make(map[int64]domain.Directive, len(a)+len(b))
	for _, d := range a {
		byID[d.ID] = d
	}
	for _, d := range b {
		if _, ok := byID[d.ID]; !ok {
			byID[d.ID] = d
		}
	}
	out := make([]domain.Directive, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func nextID(existing []domain.Directive) int64 {
	var maxID int64
	for _, d := range existing {
		if d.ID > maxID {
			maxID = d.ID
		}
	}
	return maxID + 1
}
