package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pingCommand struct {
	valid bool
}

func (c *pingCommand) Validate() error {
	if !c.valid {
		return errors.New("ping is invalid")
	}
	return nil
}

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.Called(msg)
}

func (m *MockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.Called(msg)
}

func TestSendDispatchesThroughMiddleware(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	b := NewCommandBus(trace("outer"), trace("inner"))
	require.NoError(t, b.Register(&pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		order = append(order, "handler")
		return nil
	})))

	require.NoError(t, b.Send(context.Background(), &pingCommand{valid: true}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestSendErrors(t *testing.T) {
	b := NewCommandBus()
	ctx := context.Background()

	assert.ErrorIs(t, b.Send(ctx, &pingCommand{valid: true}), ErrHandlerNotFound)
	assert.ErrorIs(t, b.Send(ctx, &pingCommand{}), ErrValidationFailed)

	handlerErr := errors.New("boom")
	require.NoError(t, b.Register(&pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		return handlerErr
	})))
	assert.Error(t, b.Register(&pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error { return nil })))
	assert.ErrorIs(t, b.Send(ctx, &pingCommand{valid: true}), handlerErr)
}

func TestRecoveryAndLoggingMiddleware(t *testing.T) {
	logger := &MockLogger{}
	logger.On("Error", "Command panicked").Once()
	logger.On("Error", "Command failed").Once()
	logger.On("Info", "Command succeeded").Once()

	panics := true
	b := NewCommandBus(LoggingMiddleware(logger), RecoveryMiddleware(logger))
	require.NoError(t, b.Register(&pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		if panics {
			panic("nil canvas")
		}
		return nil
	})))

	err := b.Send(context.Background(), &pingCommand{valid: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.Contains(t, err.Error(), "pingCommand panicked: nil canvas")

	panics = false
	require.NoError(t, b.Send(context.Background(), &pingCommand{valid: true}))
	logger.AssertExpectations(t)
}
