package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/emsdesk/apiserver/types"
)

// TokenVerifier validates a bearer token and returns the caller it names.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (types.Caller, error)
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the caller to the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized access.")
				return
			}

			caller, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, MessageResponse{
					Message: "Invalid or expired token",
					Error:   err.Error(),
				})
				return
			}

			ctx := context.WithValue(r.Context(), contextCallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Me returns the authenticated caller.
func Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized access.")
		return
	}
	writeJSON(w, http.StatusOK, caller)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
