package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/emsdesk/apiserver/internal/services"
	"github.com/emsdesk/apiserver/internal/storage"
	"github.com/emsdesk/apiserver/internal/store"
	"github.com/emsdesk/apiserver/types"
)

const maxJSONBody = 1 << 20

type contextKey string

const contextCallerKey contextKey = "caller"

// MessageResponse is the body of every error and status-change response.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// TransitionResponse reports the outcome of a status change.
type TransitionResponse struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
}

// outcomeMessages are the client messages for each transition outcome.
type outcomeMessages struct {
	notFound string
	already  string
	updated  string
}

func callerFromContext(ctx context.Context) (types.Caller, bool) {
	caller, ok := ctx.Value(contextCallerKey).(types.Caller)
	return caller, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
}

func writeOutcome(w http.ResponseWriter, outcome store.Outcome, msgs outcomeMessages) {
	switch outcome {
	case store.OutcomeNotFound:
		writeError(w, http.StatusNotFound, msgs.notFound)
	case store.OutcomeAlreadyApplied:
		writeJSON(w, http.StatusOK, TransitionResponse{Message: msgs.already, Outcome: outcome.String()})
	default:
		writeJSON(w, http.StatusOK, TransitionResponse{Message: msgs.updated, Outcome: outcome.String()})
	}
}

// writeServiceError maps service and store errors onto HTTP responses.
// Unclassified errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var svcErr *services.Error
	switch {
	case errors.As(err, &svcErr):
		switch svcErr.Kind {
		case services.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, svcErr.Message)
		case services.ErrConflict:
			writeError(w, http.StatusConflict, svcErr.Message)
		case services.ErrUnavailable:
			writeError(w, http.StatusServiceUnavailable, svcErr.Message)
		default:
			writeInternalError(w, r, err)
		}
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid id")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Resource already exists")
	default:
		writeInternalError(w, r, err)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"store_failure", errors.Is(err, store.ErrStoreFailure),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
