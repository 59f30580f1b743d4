package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodal/application/commands"
	"nodal/application/commands/bus"
	"nodal/application/queries"
	querybus "nodal/application/queries/bus"
	"nodal/application/services"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// NoteHandler handles note-related HTTP requests
type NoteHandler struct {
	base
	commandBus  *bus.CommandBus
	queryBus    *querybus.QueryBus
	gestures    *services.GestureService
	chat        *services.ChatService
	connections *services.ConnectionService
}

// NewNoteHandler creates a new note handler. chat may be nil when no AI
// provider is configured.
func NewNoteHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	gestures *services.GestureService,
	chat *services.ChatService,
	connections *services.ConnectionService,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NoteHandler {
	return &NoteHandler{
		base:        base{errors: errs, logger: logger},
		commandBus:  commandBus,
		queryBus:    queryBus,
		gestures:    gestures,
		chat:        chat,
		connections: connections,
	}
}

// CreateNoteRequest places an empty note with its top-left corner at (x, y)
type CreateNoteRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Title string  `json:"title" validate:"max=200"`
	Color string  `json:"color" validate:"max=32"`
}

// ScreenPointRequest is a point in screen pixels
type ScreenPointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UpdateNoteRequest changes the given fields of a note
type UpdateNoteRequest struct {
	X        *float64           `json:"x"`
	Y        *float64           `json:"y"`
	Width    *float64           `json:"width" validate:"omitempty,gt=0"`
	Height   *float64           `json:"height" validate:"omitempty,gt=0"`
	Title    *string            `json:"title" validate:"omitempty,max=200"`
	Summary  *string            `json:"summary"`
	Color    *string            `json:"color" validate:"omitempty,max=32"`
	Messages []entities.Message `json:"messages" validate:"omitempty,dive"`
}

// ForkNoteRequest names the message a fork starts from
type ForkNoteRequest struct {
	MessageIndex int `json:"messageIndex" validate:"gte=0"`
}

// SendMessageRequest is one user chat message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// ChatStreamLine is one NDJSON line of a chat response. Partial lines carry
// the reply accumulated so far; the last line has Done set.
type ChatStreamLine struct {
	Content string              `json:"content,omitempty"`
	Done    bool                `json:"done,omitempty"`
	Reply   *services.ChatReply `json:"reply,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// CreateNote handles POST /notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.CreateNoteCommand{
		WorkspaceID: workspaceParam(r),
		NoteID:      valueobjects.NewNoteID().String(),
		X:           req.X,
		Y:           req.Y,
		Title:       req.Title,
		Color:       req.Color,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, CreatedResponse{ID: cmd.NoteID})
}

// CreateNoteAtScreen handles POST /notes/at-screen
func (h *NoteHandler) CreateNoteAtScreen(w http.ResponseWriter, r *http.Request) {
	var req ScreenPointRequest
	if !h.decode(w, r, &req) {
		return
	}
	note, err := h.gestures.CreateNoteAtScreen(r.Context(), valueobjects.WorkspaceID(workspaceParam(r)), valueobjects.Point{X: req.X, Y: req.Y})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /notes/{noteID}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.UpdateNoteCommand{
		WorkspaceID: workspaceParam(r),
		NoteID:      chi.URLParam(r, "noteID"),
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
		Title:       req.Title,
		Summary:     req.Summary,
		Color:       req.Color,
		Messages:    req.Messages,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// DeleteNote handles DELETE /notes/{noteID}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.DeleteNoteCommand{WorkspaceID: workspaceParam(r), NoteID: chi.URLParam(r, "noteID")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// ForkNote handles POST /notes/{noteID}/fork
func (h *NoteHandler) ForkNote(w http.ResponseWriter, r *http.Request) {
	var req ForkNoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd := &commands.ForkNoteCommand{
		WorkspaceID:  workspaceParam(r),
		SourceNoteID: chi.URLParam(r, "noteID"),
		NewNoteID:    valueobjects.NewNoteID().String(),
		MessageIndex: req.MessageIndex,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, CreatedResponse{ID: cmd.NewNoteID})
}

// HoverZone handles GET /notes/{noteID}/hover-zone?x=&y=
func (h *NoteHandler) HoverZone(w http.ResponseWriter, r *http.Request) {
	x, err := floatQuery(r, "x")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	y, err := floatQuery(r, "y")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := querybus.Ask[queries.HoverZoneResult](r.Context(), h.queryBus, queries.GetHoverZoneQuery{
		WorkspaceID: workspaceParam(r),
		X:           x,
		Y:           y,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// SendMessage handles POST /notes/{noteID}/messages. The reply streams back
// as NDJSON once the provider starts answering.
func (h *NoteHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		h.fail(w, r, pkgerrors.NewUnavailableError("chat"))
		return
	}
	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false
	write := func(line ChatStreamLine) {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(line); err != nil {
			h.logger.Debug("Chat stream write failed", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	reply, err := h.chat.Send(r.Context(),
		valueobjects.WorkspaceID(workspaceParam(r)),
		valueobjects.NoteID(chi.URLParam(r, "noteID")),
		req.Content,
		func(content string) { write(ChatStreamLine{Content: content}) },
	)
	if err != nil {
		if !started {
			h.fail(w, r, err)
			return
		}
		write(ChatStreamLine{Done: true, Error: err.Error()})
		return
	}
	write(ChatStreamLine{Done: true, Reply: reply})
}

// Summarize handles POST /notes/{noteID}/summarize
func (h *NoteHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		h.fail(w, r, pkgerrors.NewUnavailableError("chat"))
		return
	}
	summary, err := h.chat.Summarize(r.Context(),
		valueobjects.WorkspaceID(workspaceParam(r)),
		valueobjects.NoteID(chi.URLParam(r, "noteID")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// Suggestions handles GET /notes/{noteID}/suggestions?limit=
func (h *NoteHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.connections.Suggest(r.Context(),
		valueobjects.WorkspaceID(workspaceParam(r)),
		valueobjects.NoteID(chi.URLParam(r, "noteID")),
		intQuery(r, "limit", 5))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []services.Suggestion{}
	}
	common.RespondJSON(w, http.StatusOK, suggestions)
}
