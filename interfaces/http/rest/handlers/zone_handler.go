package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodal/application/commands"
	"nodal/application/commands/bus"
	"nodal/domain/core/valueobjects"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// ZoneHandler handles zone-related HTTP requests
type ZoneHandler struct {
	base
	commandBus *bus.CommandBus
}

// NewZoneHandler creates a new zone handler
func NewZoneHandler(commandBus *bus.CommandBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ZoneHandler {
	return &ZoneHandler{base: base{errors: errs, logger: logger}, commandBus: commandBus}
}

// CreateZoneRequest adds a zone centred on (centerX, centerY), or inset into
// its parent when parentZoneId is set
type CreateZoneRequest struct {
	Title        string  `json:"title" validate:"max=200"`
	ParentZoneID string  `json:"parentZoneId"`
	CenterX      float64 `json:"centerX"`
	CenterY      float64 `json:"centerY"`
}

// UpdateZoneRequest renames a zone. The parent cannot change after creation.
type UpdateZoneRequest struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
}

// MoveZoneRequest is a translation in world units
type MoveZoneRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// ResizeZoneRequest sets the manual bounds of a zone
type ResizeZoneRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// CreateZone handles POST /zones
func (h *ZoneHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var req CreateZoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.CreateZoneCommand{
		WorkspaceID:  workspaceParam(r),
		ZoneID:       valueobjects.NewZoneID().String(),
		Title:        req.Title,
		ParentZoneID: req.ParentZoneID,
		CenterX:      req.CenterX,
		CenterY:      req.CenterY,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, CreatedResponse{ID: cmd.ZoneID})
}

// UpdateZone handles PATCH /zones/{zoneID}
func (h *ZoneHandler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	var req UpdateZoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, &commands.UpdateZoneCommand{
		WorkspaceID: workspaceParam(r),
		ZoneID:      chi.URLParam(r, "zoneID"),
		Title:       req.Title,
	})
}

// DeleteZone handles DELETE /zones/{zoneID}
func (h *ZoneHandler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, &commands.DeleteZoneCommand{WorkspaceID: workspaceParam(r), ZoneID: chi.URLParam(r, "zoneID")})
}

// MoveZone handles POST /zones/{zoneID}/move
func (h *ZoneHandler) MoveZone(w http.ResponseWriter, r *http.Request) {
	var req MoveZoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, &commands.MoveZoneCommand{
		WorkspaceID: workspaceParam(r),
		ZoneID:      chi.URLParam(r, "zoneID"),
		DX:          req.DX,
		DY:          req.DY,
	})
}

// ResizeZone handles POST /zones/{zoneID}/resize
func (h *ZoneHandler) ResizeZone(w http.ResponseWriter, r *http.Request) {
	var req ResizeZoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, &commands.ResizeZoneCommand{
		WorkspaceID: workspaceParam(r),
		ZoneID:      chi.URLParam(r, "zoneID"),
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
	})
}

func (h *ZoneHandler) send(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondNoContent(w)
}
