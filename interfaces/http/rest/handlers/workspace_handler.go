package handlers

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/application/services"
	"nodal/domain/core/valueobjects"
	"nodal/pkg/common"
	pkgerrors "nodal/pkg/errors"
)

// WorkspaceHandler lists workspaces
type WorkspaceHandler struct {
	base
	workspaces *services.WorkspaceService
	lister     ports.WorkspaceLister
}

// NewWorkspaceHandler creates a new workspace handler. lister may be nil,
// in which case only workspaces open in this process are listed.
func NewWorkspaceHandler(
	workspaces *services.WorkspaceService,
	lister ports.WorkspaceLister,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *WorkspaceHandler {
	return &WorkspaceHandler{base: base{errors: errs, logger: logger}, workspaces: workspaces, lister: lister}
}

// ListWorkspaces handles GET /workspaces?page=&page_size=
func (h *WorkspaceHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	seen := make(map[valueobjects.WorkspaceID]bool)
	var ids []valueobjects.WorkspaceID
	add := func(list []valueobjects.WorkspaceID) {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if h.lister != nil {
		stored, err := h.lister.List(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		add(stored)
	}
	add(h.workspaces.Workspaces())
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	page, info := common.Paginate(ids, common.PageFromQuery(r))
	common.RespondPage(w, r, page, info)
}
