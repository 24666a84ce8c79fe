package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emsdesk/apiserver/config"
	"github.com/emsdesk/apiserver/types"
)

const issuerPrefix = "https://securetoken.google.com/"

// Claims are the Firebase ID token claims the server reads.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier checks Firebase ID tokens: RS256 signed by a Google key, issued
// for the configured project and not expired.
type Verifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
	jwks    *keyfunc.JWKS
}

// NewVerifier constructs a Verifier that resolves signing keys with keyFunc.
func NewVerifier(projectID string, keyFunc jwt.Keyfunc) *Verifier {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(projectID),
		jwt.WithIssuer(issuerPrefix+projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)
	return &Verifier{keyFunc: keyFunc, parser: parser}
}

// NewFirebaseVerifier fetches Google's token signing keys and refreshes
// them in the background until Close is called.
func NewFirebaseVerifier(cfg config.FirebaseConfig, logger *slog.Logger) (*Verifier, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firebase project id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("refresh firebase signing keys", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch firebase signing keys: %w", err)
	}

	v := NewVerifier(cfg.ProjectID, jwks.Keyfunc)
	v.jwks = jwks
	return v, nil
}

// Verify validates raw and returns the caller it identifies.
func (v *Verifier) Verify(ctx context.Context, raw string) (types.Caller, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc)
	if err != nil {
		return types.Caller{}, err
	}
	if !token.Valid {
		return types.Caller{}, errors.New("invalid token")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" || len(subject) > 128 {
		return types.Caller{}, errors.New("token has an invalid subject")
	}

	return types.Caller{
		UID:           subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// Close stops the background key refresh.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
