// Package bus routes read-only canvas queries to their handlers.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrHandlerNotFound is returned for a query type nobody registered
var ErrHandlerNotFound = errors.New("query handler not found")

// Query is a read of one workspace
type Query interface {
	Validate() error
}

// QueryHandler answers queries of the types it was registered for
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc lets a plain function serve as a QueryHandler
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// QueryBus dispatches queries by type. Queries are registered and asked as
// values.
type QueryBus struct {
	mu     sync.RWMutex
	routes map[reflect.Type]QueryHandler
	wrap   []Middleware
}

// NewQueryBus creates a bus. The first middleware is the outermost.
func NewQueryBus(middlewares ...Middleware) *QueryBus {
	return &QueryBus{routes: make(map[reflect.Type]QueryHandler), wrap: middlewares}
}

// Register routes queries shaped like sample to handler
func (b *QueryBus) Register(sample Query, handler QueryHandler) error {
	key := reflect.TypeOf(sample)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.routes[key]; taken {
		return fmt.Errorf("query %s is already routed", key)
	}
	for i := len(b.wrap) - 1; i >= 0; i-- {
		handler = b.wrap[i](handler)
	}
	b.routes[key] = handler
	return nil
}

// Ask validates query and returns its handler's answer
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, ok := b.routes[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", queryName(query), err)
	}
	return result, nil
}

// Ask is the typed form of QueryBus.Ask
func Ask[T any](ctx context.Context, b *QueryBus, query Query) (T, error) {
	var zero T
	result, err := b.Ask(ctx, query)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("query %T returned %T", query, result)
	}
	return typed, nil
}

func queryName(query Query) string {
	t := reflect.TypeOf(query)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
