package engine

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Trace-ID связывает вызов хука, решение шлюза, запись аудита и уведомление.
const (
	traceHeader   = "X-Trace-ID"
	traceMetadata = "x-trace-id" // gRPC приводит ключи к нижнему регистру
)

type traceKey struct{}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFrom пустая строка, если вызов пришел мимо middleware/interceptor.
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

func orNewTraceID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// TracingMiddleware принимает X-Trace-ID от интегратора или выдает новый и возвращает его в ответе.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := orNewTraceID(r.Header.Get(traceHeader))
		w.Header().Set(traceHeader, id)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), id)))
	})
}

// UnaryTraceInterceptor то же для gRPC: ID берется из метаданных x-trace-id.
func UnaryTraceInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var id string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(traceMetadata); len(ids) > 0 {
				id = ids[0]
			}
		}
		return handler(WithTraceID(ctx, orNewTraceID(id)), req)
	}
}
