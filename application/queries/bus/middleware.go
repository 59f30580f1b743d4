package bus

import (
	"context"
	"time"
)

// Middleware decorates every handler on the bus
type Middleware func(next QueryHandler) QueryHandler

// Metrics receives one observation per answered query
type Metrics interface {
	RecordQuery(name string, d time.Duration, err error)
}

// MetricsMiddleware times every query
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			start := time.Now()
			result, err := next.Handle(ctx, query)
			metrics.RecordQuery(queryName(query), time.Since(start), err)
			return result, err
		})
	}
}
