package logging

import (
	"context"

	"go.uber.org/zap"
)

// Context key types
type queryCtxKey struct{}
type storeCtxKey struct{}

// ContextWithQueryID attaches a query correlation ID to the context.
// Search and allocation operations stamp one per request so that log
// lines from the scorer, search engine and allocator can be joined.
func ContextWithQueryID(ctx context.Context, queryID string) context.Context {
	if queryID == "" {
		return ctx
	}
	return context.WithValue(ctx, queryCtxKey{}, queryID)
}

// QueryIDFromContext returns the query ID or "" if none is set.
func QueryIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(queryCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextWithStorePath attaches the active store path to the context.
func ContextWithStorePath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, storeCtxKey{}, path)
}

// StorePathFromContext returns the store path or "" if none is set.
func StorePathFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(storeCtxKey{}).(string); ok {
		return p
	}
	return ""
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 2)

	if queryID := QueryIDFromContext(ctx); queryID != "" {
		fields = append(fields, zap.String("query.id", queryID))
	}
	if path := StorePathFromContext(ctx); path != "" {
		fields = append(fields, zap.String("store.path", path))
	}

	return fields
}
