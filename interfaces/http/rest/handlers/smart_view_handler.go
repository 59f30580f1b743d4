package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"nodal/application/services"
	"nodal/domain/core/valueobjects"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// SmartViewHandler serves semantic clustering of a workspace
type SmartViewHandler struct {
	base
	smartView *services.SmartViewService
}

// NewSmartViewHandler creates a new Smart View handler
func NewSmartViewHandler(smartView *services.SmartViewService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *SmartViewHandler {
	return &SmartViewHandler{base: base{errors: errs, logger: logger}, smartView: smartView}
}

// SmartViewRequest tunes a Smart View run. The body is optional.
type SmartViewRequest struct {
	Refresh bool `json:"refresh"`
}

// Generate handles POST /smart-view
func (h *SmartViewHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req SmartViewRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	result, err := h.smartView.Generate(r.Context(), valueobjects.WorkspaceID(workspaceParam(r)), services.SmartViewOptions{Refresh: req.Refresh})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
