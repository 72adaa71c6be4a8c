package utils

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds ordinary database queries.
const DefaultQueryTimeout = 30 * time.Second

// SlowQueryTimeout is for the matrix assembly and export queries, which touch
// every line, quote and allocation of a request.
const SlowQueryTimeout = 60 * time.Second

// GetQueryContext returns a context with the given timeout for database
// queries. A nil parent falls back to context.Background().
func GetQueryContext(parentCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return context.WithTimeout(parentCtx, timeout)
}

// GetDefaultQueryContext returns a context with the default timeout.
func GetDefaultQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, DefaultQueryTimeout)
}

// GetSlowQueryContext returns a context with the slow query timeout.
func GetSlowQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetQueryContext(parentCtx, SlowQueryTimeout)
}
