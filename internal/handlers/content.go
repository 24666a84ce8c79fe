package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/emsdesk/apiserver/internal/services"
	"github.com/emsdesk/apiserver/types"
)

const (
	contentNotFound    = "Content not found"
	assetNotFound      = "Asset not found"
	formFieldAsset     = "file"
	maxMultipartMemory = 8 << 20
)

// ContentHandler provides HTTP handlers for homepage content.
type ContentHandler struct {
	contentService *services.ContentService
}

func NewContentHandler(contentService *services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// ContentRouter registers content routes on the given router.
func ContentRouter(r chi.Router, contentService *services.ContentService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewContentHandler(contentService)

	r.Get("/", handler.Get)
	r.Get("/assets/*", handler.GetAsset)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", handler.Create)
		r.Patch("/", handler.Patch)
		r.Post("/assets", handler.UploadAsset)
		r.Delete("/assets/*", handler.DeleteAsset)
	})
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	content, err := h.contentService.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err, contentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var content types.HomepageContent
	if err := decodeJSON(w, r, &content); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.contentService.Create(r.Context(), content); err != nil {
		writeServiceError(w, r, err, contentNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, InsertedResponse{InsertedID: types.ContentKey})
}

func (h *ContentHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var updates types.HomepageContent
	if err := decodeJSON(w, r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.contentService.Patch(r.Context(), updates); err != nil {
		writeServiceError(w, r, err, contentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Content updated successfully"})
}

func (h *ContentHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAssetSize+(1<<20))
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldAsset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	asset, err := h.contentService.UploadAsset(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		writeServiceError(w, r, err, assetNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (h *ContentHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	obj, err := h.contentService.OpenAsset(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, r, err, assetNotFound)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}

func (h *ContentHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.contentService.DeleteAsset(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeServiceError(w, r, err, assetNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
