package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"nodal/application/services"
	"nodal/domain/core/valueobjects"
	"nodal/domain/gesture"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// GestureHandler applies pointer input sent by the client
type GestureHandler struct {
	base
	gestures *services.GestureService
	now      func() time.Time
}

// NewGestureHandler creates a new gesture handler
func NewGestureHandler(gestures *services.GestureService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *GestureHandler {
	return &GestureHandler{base: base{errors: errs, logger: logger}, gestures: gestures, now: time.Now}
}

// DragRequest is a whole drag: the hit target at pointer-down and the
// cumulative screen movement of every frame. The last frame is committed.
type DragRequest struct {
	Target gesture.Target       `json:"target"`
	Frames []valueobjects.Point `json:"frames" validate:"required,min=1"`
}

// TapRequest is a click on empty canvas. At is the client timestamp in
// milliseconds; the server clock is used when it is zero.
type TapRequest struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	At int64   `json:"at"`
	// Target defaults to canvas. Clicks elsewhere only break a pending tap.
	Target    string `json:"target" validate:"omitempty,oneof=canvas note backdrop zone zone_handle background background_handle"`
	ModalOpen bool   `json:"modalOpen"`
}

// Drag handles POST /gestures/drag
func (h *GestureHandler) Drag(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.gestures.Drag(r.Context(), valueobjects.WorkspaceID(workspaceParam(r)), req.Target, req.Frames)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Wheel handles POST /gestures/wheel
func (h *GestureHandler) Wheel(w http.ResponseWriter, r *http.Request) {
	var req gesture.WheelEvent
	if !h.decode(w, r, &req) {
		return
	}
	viewport, err := h.gestures.Wheel(r.Context(), valueobjects.WorkspaceID(workspaceParam(r)), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]valueobjects.Viewport{"viewport": viewport})
}

// Pinch handles POST /gestures/pinch
func (h *GestureHandler) Pinch(w http.ResponseWriter, r *http.Request) {
	var req gesture.PinchEvent
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.gestures.Pinch(r.Context(), valueobjects.WorkspaceID(workspaceParam(r)), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Tap handles POST /gestures/tap
func (h *GestureHandler) Tap(w http.ResponseWriter, r *http.Request) {
	var req TapRequest
	if !h.decode(w, r, &req) {
		return
	}
	workspaceID := valueobjects.WorkspaceID(workspaceParam(r))
	if req.ModalOpen || (req.Target != "" && req.Target != "canvas") {
		h.gestures.CancelTap(workspaceID)
		common.RespondJSON(w, http.StatusOK, services.TapResult{})
		return
	}
	at := h.now()
	if req.At > 0 {
		at = time.UnixMilli(req.At)
	}
	result, err := h.gestures.Tap(r.Context(), workspaceID, at, valueobjects.Point{X: req.X, Y: req.Y})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if result.DoubleTap {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, result)
}
