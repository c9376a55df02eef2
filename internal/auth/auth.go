// Package auth establishes the owner identity for link mutation endpoints.
//
// Owners present an HS256 JWT as "Authorization: Bearer <token>" whose
// subject is their UUID. Account and session management live elsewhere;
// this package only verifies tokens and, for tooling and tests, issues them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sundayezeilo/linkgate/internal/httpx"
)

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

var (
	ErrMissingToken = errors.New("authorization header is required")
	ErrMalformed    = errors.New("invalid authorization format")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type contextKey struct{}

// Config holds token verification settings.
type Config struct {
	Secret   string
	Issuer   string        // optional; enforced when set
	TokenTTL time.Duration // lifetime of issued tokens
}

// Authenticator verifies and issues owner tokens.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// New returns an Authenticator. The secret must be at least MinSecretLength bytes.
func New(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for owner.
func (a *Authenticator) Issue(owner uuid.UUID) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   owner.String(),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies tokenString and returns the owner it was issued for.
func (a *Authenticator) Parse(tokenString string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	owner, err := uuid.Parse(claims.Subject)
	if err != nil || owner == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return owner, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// owner in the request context.
func (a *Authenticator) Middleware(logger *slog.Logger) httpx.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err == nil {
				var owner uuid.UUID
				if owner, err = a.Parse(raw); err == nil {
					next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
					return
				}
			}

			logger.InfoContext(r.Context(), "owner authentication failed",
				"request_id", httpx.GetRequestID(r.Context()),
				"path", r.URL.Path,
				"reason", err.Error(),
			)
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMalformed
	}
	return strings.TrimSpace(token), nil
}

// WithOwner adds the authenticated owner to ctx.
func WithOwner(ctx context.Context, owner uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, owner)
}

// OwnerFromContext returns the authenticated owner, if any.
func OwnerFromContext(ctx context.Context) (uuid.UUID, bool) {
	owner, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return owner, ok && owner != uuid.Nil
}
