package api

import (
	"context"
	"time"

	"agora/core"
)

// contextKey is a private type to prevent context key collisions across packages.
// See: https://staticcheck.io/docs/checks#SA1029
type contextKey string

const (
	// ContextKeyActor stores the resolved identity (*core.Actor)
	ContextKeyActor contextKey = "actor"

	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyTraceStart stores the request start time (time.Time)
	ContextKeyTraceStart contextKey = "trace_start"
)

// WithActor stores the resolved identity in the context
func WithActor(ctx context.Context, actor *core.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// GetActor extracts the identity from the context. Anonymous requests yield nil.
func GetActor(ctx context.Context) *core.Actor {
	actor, _ := ctx.Value(ContextKeyActor).(*core.Actor)
	return actor
}

// WithRequestID stores the request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyRequestID).(string)
	return id, ok && id != ""
}

// WithTraceStart stores the request start time in the context
func WithTraceStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyTraceStart, start)
}

// GetTraceStart extracts the request start time from the context
func GetTraceStart(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(ContextKeyTraceStart).(time.Time)
	return start, ok
}
