package common

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	subjectKey
)

// WithRequestID tags ctx with the id the router assigned to the request
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id, or "" outside a request
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSubject records the authenticated caller
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject returns the authenticated caller. ok is false when the request
// was not authenticated.
func Subject(ctx context.Context) (subject string, ok bool) {
	subject, ok = ctx.Value(subjectKey).(string)
	return subject, ok
}
