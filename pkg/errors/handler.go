package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nodal/pkg/common"
)

// errorBody is the JSON shape of every failed response
type errorBody struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler turns errors returned by route handlers into JSON responses
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a handler. In debug mode unexpected errors are
// echoed to the client instead of a generic message.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes err as a response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	body, status := h.describe(err)
	body.RequestID = common.RequestID(r.Context())
	if body.RequestID == "" {
		body.RequestID = r.Header.Get("X-Request-ID")
	}

	level := zapcore.WarnLevel
	if status >= http.StatusInternalServerError {
		level = zapcore.ErrorLevel
	}
	if ce := h.logger.Check(level, "Request failed"); ce != nil {
		ce.Write(
			zap.Error(err),
			zap.String("type", body.Type),
			zap.String("code", body.Code),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("requestID", body.RequestID),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		h.logger.Error("Failed to encode error response", zap.Error(encErr))
	}
}

func (h *ErrorHandler) describe(err error) (errorBody, int) {
	if errors.Is(err, context.DeadlineExceeded) && GetAppError(err) == nil && AsDomainError(err) == nil {
		err = NewTimeoutError("request").WithCause(err)
	}

	if appErr := GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return errorBody{
			Error:   true,
			Type:    string(appErr.Type),
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}, status
	}

	if domainErr := AsDomainError(err); domainErr != nil {
		// err.Error() keeps the offending id added by the wrapper
		return errorBody{
			Error:   true,
			Type:    string(domainErr.Type),
			Code:    domainErr.Code,
			Message: err.Error(),
			Details: domainErr.Details,
		}, domainErr.StatusCode
	}

	body := errorBody{Error: true, Type: string(ErrorTypeInternal), Message: "an internal error occurred"}
	if h.debug {
		body.Message = err.Error()
	}
	return body, http.StatusInternalServerError
}
