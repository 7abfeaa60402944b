package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wikimeta/internal/models"
	"github.com/starford/wikimeta/internal/wiki"
)

// Handler holds API route handlers.
type Handler struct {
	svc *wiki.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *wiki.Service) *Handler {
	return &Handler{svc: svc}
}

// pageName extracts the page name from the wildcard part of the URL.
// Supports encoded slashes (e.g. Team%2FRoadmap).
func pageName(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func requirePageName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := pageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page name is required"))
		return "", false
	}
	return name, true
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages matching the state, owner and tag filter
//	@Tags			pages
//	@Produce		json
//	@Param			state	query		string	false	"State or 'all (non-obsolete)'"
//	@Param			owner	query		string	false	"Owner or 'all'"
//	@Param			tag		query		[]string	false	"Required tags"
//	@Success		200		{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, "list pages", err)
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: items, Total: len(items)})
}

// CreatePage handles POST /api/pages.
//
//	@Summary		Create a page with metadata
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePageRequest	true	"Page to create"
//	@Success		201		{object}	models.MetaRecord
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.CreatePage(r.Context(), wiki.CreatePageInput{
		Name:    req.Name,
		Content: req.Content,
		Owner:   req.Owner,
		State:   req.State,
		Tags:    req.Tags,
		Author:  UserFrom(r.Context()),
	})
	if err != nil {
		writeError(w, "create page", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// DeletePage handles DELETE /api/pages/*.
//
//	@Summary		Delete a page; its metadata history is kept
//	@Tags			pages
//	@Param			name	path	string	true	"Page name"
//	@Success		204		"Page deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{name} [delete]
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	name, ok := requirePageName(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePage(r.Context(), name); err != nil {
		writeError(w, "delete page", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMeta handles GET /api/meta/*.
//
//	@Summary		Get the current metadata record of a page
//	@Tags			meta
//	@Produce		json
//	@Param			name	path		string	true	"Page name"
//	@Success		200		{object}	models.MetaRecord
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meta/{name} [get]
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	name, ok := requirePageName(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.GetMeta(r.Context(), name)
	if err != nil {
		writeError(w, "get meta", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SetMeta handles PUT /api/meta/*.
//
//	@Summary		Save owner and state of a page
//	@Tags			meta
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Page name"
//	@Param			body	body		SetMetaRequest	true	"Owner and state"
//	@Success		200		{object}	SetMetaResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meta/{name} [put]
func (h *Handler) SetMeta(w http.ResponseWriter, r *http.Request) {
	name, ok := requirePageName(w, r)
	if !ok {
		return
	}
	var req SetMetaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	changed, err := h.svc.SetMeta(r.Context(), wiki.SetMetaInput{
		Name:   name,
		Owner:  req.Owner,
		State:  models.State(req.State),
		Author: UserFrom(r.Context()),
	})
	if err != nil {
		writeError(w, "set meta", err)
		return
	}
	rec, err := h.svc.GetMeta(r.Context(), name)
	if err != nil {
		writeError(w, "set meta", err)
		return
	}
	writeJSON(w, http.StatusOK, SetMetaResponse{Changed: changed, Meta: rec})
}

// History handles GET /api/history/*.
//
//	@Summary		List every metadata record of a page, oldest first
//	@Tags			meta
//	@Produce		json
//	@Param			name	path		string	true	"Page name"
//	@Success		200		{array}		models.MetaRecord
//	@Security		BearerAuth
//	@Router			/history/{name} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	name, ok := requirePageName(w, r)
	if !ok {
		return
	}
	recs, err := h.svc.History(r.Context(), name)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	if recs == nil {
		recs = []models.MetaRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": recs})
}

// EditDefaults handles GET /api/edit-defaults/*.
//
//	@Summary		Owner and state preselection for the edit form
//	@Tags			meta
//	@Produce		json
//	@Param			name	path		string	true	"Page name"
//	@Success		200		{object}	EditDefaults
//	@Security		BearerAuth
//	@Router			/edit-defaults/{name} [get]
func (h *Handler) EditDefaults(w http.ResponseWriter, r *http.Request) {
	name, ok := requirePageName(w, r)
	if !ok {
		return
	}
	def, err := h.svc.EditDefaults(r.Context(), name, UserFrom(r.Context()))
	if err != nil {
		writeError(w, "edit defaults", err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// RenamePage handles POST /api/rename/*.
//
//	@Summary		Rename a page together with its metadata history
//	@Tags			pages
//	@Accept			json
//	@Param			name	path	string			true	"Current page name"
//	@Param			body	body	RenameRequest	true	"New name"
//	@Success		204		"Page renamed"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rename/{name} [post]
func (h *Handler) RenamePage(w http.ResponseWriter, r *http.Request) {
	name, ok := requirePageName(w, r)
	if !ok {
		return
	}
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.RenamePage(r.Context(), name, req.NewName); err != nil {
		writeError(w, "rename page", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles POST /api/reorder.
//
//	@Summary		Move a planned page to another priority rank
//	@Tags			meta
//	@Accept			json
//	@Param			body	body	ReorderRequest	true	"Ranks"
//	@Success		204		"Reordered"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reorder [post]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.Reorder(r.Context(), req.From, req.To); err != nil {
		writeError(w, "reorder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Filters handles GET /api/filters.
//
//	@Summary		Filter form options for the current selection
//	@Tags			filters
//	@Produce		json
//	@Param			state	query		string		false	"Selected state"
//	@Param			owner	query		string		false	"Selected owner"
//	@Param			tag		query		[]string	false	"Selected tags"
//	@Success		200		{object}	FilterOptions
//	@Security		BearerAuth
//	@Router			/filters [get]
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.FilterOptions(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, "filters", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// SetTagCategory handles PUT /api/tag-categories.
//
//	@Summary		Assign a tag to a filter category
//	@Tags			filters
//	@Accept			json
//	@Param			body	body	TagCategoryRequest	true	"Assignment"
//	@Success		204		"Assigned"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tag-categories [put]
func (h *Handler) SetTagCategory(w http.ResponseWriter, r *http.Request) {
	var req TagCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.SetTagCategory(r.Context(), req.Tag, req.Category); err != nil {
		writeError(w, "set tag category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTagCategory handles DELETE /api/tag-categories.
//
//	@Summary		Remove a tag from a filter category
//	@Tags			filters
//	@Accept			json
//	@Param			body	body	TagCategoryRequest	true	"Assignment"
//	@Success		204		"Removed"
//	@Security		BearerAuth
//	@Router			/tag-categories [delete]
func (h *Handler) RemoveTagCategory(w http.ResponseWriter, r *http.Request) {
	var req TagCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.RemoveTagCategory(r.Context(), req.Tag, req.Category); err != nil {
		writeError(w, "remove tag category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users handles GET /api/users.
//
//	@Summary		Users that can own pages
//	@Tags			filters
//	@Produce		json
//	@Success		200	{object}	UsersResponse
//	@Security		BearerAuth
//	@Router			/users [get]
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UsersResponse{Users: h.svc.Users(r.Context())})
}
