package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// errPermanent ответ, который повтор не исправит (4xx кроме 429).
var errPermanent = errors.New("permanent webhook failure")

type WebhookOptions struct {
	Timeout   time.Duration
	RateLimit float64 // событий в секунду
	RateBurst int
	Attempts  uint
}

// WebhookSink доставляет события по HTTP: Rate Limiter -> Circuit Breaker -> Retry.
type WebhookSink struct {
	url     string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	opts    WebhookOptions
	logger  *zap.Logger
}

func NewWebhookSink(url string, client *http.Client, logger *zap.Logger, opts WebhookOptions) *WebhookSink {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "violation-webhook",
		MaxRequests: 1,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Отказ получателя принять конкретное событие не повод закрывать канал
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errPermanent)
		},
	})

	return &WebhookSink{
		url:     url,
		client:  client,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		opts:    opts,
		logger:  logger.Named("webhook"),
	}
}

func (s *WebhookSink) Notify(ctx context.Context, r domain.ViolationRecord) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(s.opts.Attempts),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool { return !errors.Is(err, errPermanent) }),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)
		return nil, rt.Do(func() error { return s.post(ctx, r.TraceID, body) })
	})
	if err != nil {
		s.logger.Warn("violation delivery failed", zap.String("violation_id", r.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *WebhookSink) post(ctx context.Context, traceID string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		cause := fmt.Errorf("webhook status %d", resp.StatusCode)
		if after, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return &ThrottleError{RetryAfter: after, Cause: cause}
		}
		return cause
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d", errPermanent, resp.StatusCode)
	default:
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
}

// parseRetryAfter понимает только форму "секунды".
func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
