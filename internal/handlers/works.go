package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emsdesk/apiserver/internal/services"
	"github.com/emsdesk/apiserver/types"
)

const workNotFound = "Work not found"

// WorkHandler provides HTTP handlers for work items.
type WorkHandler struct {
	workService *services.WorkService
}

func NewWorkHandler(workService *services.WorkService) *WorkHandler {
	return &WorkHandler{workService: workService}
}

// WorkRouter registers work routes on the given router.
func WorkRouter(r chi.Router, workService *services.WorkService) {
	handler := NewWorkHandler(workService)

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Put("/{id}", handler.Update)
	r.Delete("/{id}", handler.Delete)
}

type InsertedResponse struct {
	InsertedID any `json:"insertedId"`
}

type WorkUpdateResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

func (h *WorkHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.workService.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, r, err, workNotFound)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *WorkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item types.WorkItem
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id, err := h.workService.Create(r.Context(), item)
	if err != nil {
		writeServiceError(w, r, err, workNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, InsertedResponse{InsertedID: id})
}

func (h *WorkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var fields types.WorkItem
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	modified, err := h.workService.Update(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		writeServiceError(w, r, err, workNotFound)
		return
	}
	writeJSON(w, http.StatusOK, WorkUpdateResponse{Message: "Work updated successfully", ModifiedCount: modified})
}

func (h *WorkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.workService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, workNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Work deleted successfully"})
}
