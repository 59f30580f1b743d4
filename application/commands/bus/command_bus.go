// Package bus routes canvas commands to the handler registered for their
// concrete type.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrHandlerNotFound  = errors.New("command handler not found")
	ErrValidationFailed = errors.New("command validation failed")
	ErrExecutionFailed  = errors.New("command execution failed")
)

// Command is a request to change one workspace
type Command interface {
	Validate() error
}

// CommandHandler applies commands of the types it was registered for
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc lets a plain function serve as a CommandHandler
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// CommandBus validates commands and dispatches them by type. Commands are
// registered and sent as pointers.
type CommandBus struct {
	mu     sync.RWMutex
	routes map[reflect.Type]CommandHandler
	wrap   []Middleware
}

// NewCommandBus creates a bus. The first middleware is the outermost.
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		routes: make(map[reflect.Type]CommandHandler),
		wrap:   middlewares,
	}
}

// Register routes commands shaped like sample to handler
func (b *CommandBus) Register(sample Command, handler CommandHandler) error {
	key := reflect.TypeOf(sample)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.routes[key]; taken {
		return fmt.Errorf("command %s is already routed", key)
	}
	b.routes[key] = chain(handler, b.wrap)
	return nil
}

// Send validates cmd and runs it through its handler
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	b.mu.RLock()
	handler, ok := b.routes[reflect.TypeOf(cmd)]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", commandName(cmd), err)
	}
	return nil
}

func commandName(cmd Command) string {
	t := reflect.TypeOf(cmd)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
