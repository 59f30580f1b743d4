package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"nodal/application/commands"
	"nodal/application/commands/bus"
	"nodal/application/ports"
	"nodal/application/queries"
	querybus "nodal/application/queries/bus"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/domain/versioning"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// CanvasHandler serves the document as a whole and its view state
type CanvasHandler struct {
	base
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	events     ports.EventReader
}

// NewCanvasHandler creates a new canvas handler. events may be nil when the
// configured publisher keeps no readable log.
func NewCanvasHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	events ports.EventReader,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *CanvasHandler {
	return &CanvasHandler{
		base:       base{errors: errs, logger: logger},
		commandBus: commandBus,
		queryBus:   queryBus,
		events:     events,
	}
}

// ViewportRequest merges the given fields into the viewport
type ViewportRequest struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Zoom *float64 `json:"zoom" validate:"omitempty,gt=0"`
}

// BackgroundTransformRequest merges the given fields into the background
// transform
type BackgroundTransformRequest struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Scale *float64 `json:"scale" validate:"omitempty,gt=0"`
}

// BackgroundRequest replaces the background image; a null image removes it
type BackgroundRequest struct {
	Image *entities.BackgroundImage `json:"image"`
}

// GetCanvas handles GET /canvas
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	doc, err := querybus.Ask[*aggregates.Document](r.Context(), h.queryBus, queries.GetCanvasQuery{WorkspaceID: workspaceParam(r)})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// UpdateViewport handles PATCH /viewport
func (h *CanvasHandler) UpdateViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.UpdateViewportCommand{WorkspaceID: workspaceParam(r), X: req.X, Y: req.Y, Zoom: req.Zoom}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondView(w, r)
}

// UpdateBackgroundTransform handles PATCH /background/transform
func (h *CanvasHandler) UpdateBackgroundTransform(w http.ResponseWriter, r *http.Request) {
	var req BackgroundTransformRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.UpdateBackgroundTransformCommand{WorkspaceID: workspaceParam(r), X: req.X, Y: req.Y, Scale: req.Scale}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondView(w, r)
}

// SetBackground handles PUT /background
func (h *CanvasHandler) SetBackground(w http.ResponseWriter, r *http.Request) {
	var req BackgroundRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.SetBackgroundImageCommand{WorkspaceID: workspaceParam(r), Image: req.Image}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondView(w, r)
}

// GetVersion handles GET /canvas/version
func (h *CanvasHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := querybus.Ask[*versioning.DocumentVersion](r.Context(), h.queryBus, queries.GetVersionQuery{WorkspaceID: workspaceParam(r)})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, version)
}

// GetZoneTree handles GET /zones/tree
func (h *CanvasHandler) GetZoneTree(w http.ResponseWriter, r *http.Request) {
	tree, err := querybus.Ask[*queries.ZoneTree](r.Context(), h.queryBus, queries.GetZoneTreeQuery{WorkspaceID: workspaceParam(r)})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, tree)
}

// ListEvents handles GET /events
func (h *CanvasHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.fail(w, r, pkgerrors.NewUnavailableError("event log"))
		return
	}
	limit := min(intQuery(r, "limit", common.DefaultPageSize), common.MaxPageSize)
	events, err := h.events.Recent(r.Context(), valueobjects.WorkspaceID(workspaceParam(r)), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []ports.StoredEvent{}
	}
	common.RespondJSON(w, http.StatusOK, events)
}

// viewState is returned after view changes
type viewState struct {
	Viewport            valueobjects.Viewport            `json:"viewport"`
	BackgroundTransform valueobjects.BackgroundTransform `json:"backgroundTransform"`
	HasBackground       bool                             `json:"hasBackground"`
}

func (h *CanvasHandler) respondView(w http.ResponseWriter, r *http.Request) {
	doc, err := querybus.Ask[*aggregates.Document](r.Context(), h.queryBus, queries.GetCanvasQuery{WorkspaceID: workspaceParam(r)})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, viewState{
		Viewport:            doc.Viewport,
		BackgroundTransform: doc.BackgroundTransform,
		HasBackground:       doc.BackgroundImage != nil,
	})
}
