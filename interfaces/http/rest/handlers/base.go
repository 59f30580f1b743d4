package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
	"nodal/pkg/utils"
)

// maxBodyBytes bounds request bodies; background images arrive as data URLs
const maxBodyBytes = 16 << 20

// base carries what every handler needs to decode requests and report
// errors
type base struct {
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// decode reads a JSON body into v and validates it. On failure the error
// response is already written and false is returned.
func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		b.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()).WithCause(err))
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		b.errors.Handle(w, r, err)
		return false
	}
	return true
}

// fail writes err as an error response
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.errors.Handle(w, r, err)
}

func workspaceParam(r *http.Request) string {
	return chi.URLParam(r, "workspaceID")
}

// floatQuery reads a required float query parameter
func floatQuery(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, pkgerrors.NewValidationError(fmt.Sprintf("query parameter %s is required", name))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, pkgerrors.NewValidationError(fmt.Sprintf("query parameter %s must be a number", name)).WithCause(err)
	}
	return v, nil
}

// intQuery reads an optional positive int query parameter
func intQuery(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

// CreatedResponse is returned by endpoints that create an entity
type CreatedResponse struct {
	ID string `json:"id"`
}
