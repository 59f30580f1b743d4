package bus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates every handler on the bus
type Middleware func(next CommandHandler) CommandHandler

func chain(h CommandHandler, middlewares []Middleware) CommandHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Logger is the key/value logger the middleware writes to
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NewZapLogger adapts zap to Logger
func NewZapLogger(logger *zap.Logger) Logger {
	return sugared{logger.Sugar()}
}

type sugared struct{ s *zap.SugaredLogger }

func (l sugared) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l sugared) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

// LoggingMiddleware logs the outcome of every command
func LoggingMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Error("Command failed", "type", commandName(cmd), "error", err)
				return err
			}
			logger.Info("Command succeeded", "type", commandName(cmd), "duration", time.Since(start))
			return nil
		})
	}
}

// RecoveryMiddleware converts a handler panic into ErrExecutionFailed. The
// workspace is left as it was before the command.
func RecoveryMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Command panicked", "type", commandName(cmd), "panic", r)
					err = fmt.Errorf("%w: %s panicked: %v", ErrExecutionFailed, commandName(cmd), r)
				}
			}()
			return next.Handle(ctx, cmd)
		})
	}
}
