package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodal/application/commands"
	"nodal/application/commands/bus"
	"nodal/application/queries"
	querybus "nodal/application/queries/bus"
	"nodal/application/services"
	"nodal/domain/core/valueobjects"
	domainservices "nodal/domain/services"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// ConnectionHandler handles connection-related HTTP requests
type ConnectionHandler struct {
	base
	commandBus  *bus.CommandBus
	queryBus    *querybus.QueryBus
	connections *services.ConnectionService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	connections *services.ConnectionService,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		base:        base{errors: errs, logger: logger},
		commandBus:  commandBus,
		queryBus:    queryBus,
		connections: connections,
	}
}

// CreateConnectionRequest links fromId to toId, or to the topmost note
// under dropPoint when toId is empty
type CreateConnectionRequest struct {
	FromID    string              `json:"fromId" validate:"required"`
	ToID      string              `json:"toId" validate:"required_without=DropPoint"`
	DropPoint *valueobjects.Point `json:"dropPoint"`
}

// ConnectionResponse reports the connection and whether it is new
type ConnectionResponse struct {
	ID      valueobjects.ConnectionID `json:"id"`
	FromID  valueobjects.NoteID       `json:"fromId"`
	ToID    valueobjects.NoteID       `json:"toId"`
	Created bool                      `json:"created"`
}

// CreateConnection handles POST /connections. An existing link between the
// same notes is returned with 200; dropping on empty canvas yields 204.
func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	ws := valueobjects.WorkspaceID(workspaceParam(r))
	from := valueobjects.NoteID(req.FromID)

	if req.ToID == "" {
		conn, err := h.connections.ConnectAtPoint(r.Context(), ws, from, *req.DropPoint)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if conn == nil {
			common.RespondNoContent(w)
			return
		}
		common.RespondJSON(w, http.StatusCreated, ConnectionResponse{ID: conn.ID, FromID: conn.FromID, ToID: conn.ToID, Created: true})
		return
	}

	conn, created, err := h.connections.Connect(r.Context(), ws, from, valueobjects.NoteID(req.ToID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, ConnectionResponse{ID: conn.ID, FromID: conn.FromID, ToID: conn.ToID, Created: created})
}

// DeleteConnection handles DELETE /connections/{connectionID}
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.DeleteConnectionCommand{
		WorkspaceID:  workspaceParam(r),
		ConnectionID: chi.URLParam(r, "connectionID"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// Segments handles GET /connections/segments
func (h *ConnectionHandler) Segments(w http.ResponseWriter, r *http.Request) {
	segments, err := querybus.Ask[[]domainservices.Segment](r.Context(), h.queryBus, queries.GetConnectionSegmentsQuery{WorkspaceID: workspaceParam(r)})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if segments == nil {
		segments = []domainservices.Segment{}
	}
	common.RespondJSON(w, http.StatusOK, segments)
}
