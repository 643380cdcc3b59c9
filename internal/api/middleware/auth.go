// Package middleware holds the HTTP middleware of the API: bearer token
// authentication, request logging and Prometheus metrics.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "cloudstore/internal/api/errors"
)

// MinSecretLength is the shortest accepted HS256 secret.
const MinSecretLength = 32

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrInvalidSecretLength = fmt.Errorf("JWT secret must be at least %d characters", MinSecretLength)
)

type contextKey string

// ContextKeyOwner holds the authenticated owner id in the request context.
const ContextKeyOwner contextKey = "owner_id"

// Claims are the token claims the API relies on. uid is the owner id of
// the caller. Tokens are minted by an external identity service sharing
// the secret.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// JWTAuth verifies HS256 bearer tokens.
type JWTAuth struct {
	secret []byte
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

// NewJWTAuth creates the verifier. An empty issuer is not checked.
func NewJWTAuth(secret, issuer string, logger *slog.Logger) (*JWTAuth, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrInvalidSecretLength
	}
	return &JWTAuth{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// Verify parses and validates a token string.
func (j *JWTAuth) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's owner id in the request context.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "missing Authorization header")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				apierrors.Unauthorized(w, "expected Authorization: Bearer <token>")
				return
			}

			claims, err := j.Verify(tokenString)
			if err != nil {
				j.logger.Debug("token rejected",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				if errors.Is(err, ErrExpiredToken) {
					apierrors.Unauthorized(w, "token has expired")
					return
				}
				apierrors.Unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), claims.UserID)))
		})
	}
}

// WithOwner returns ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ContextKeyOwner, ownerID)
}

// OwnerFromContext returns the authenticated owner id, if any.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyOwner).(int64)
	return id, ok && id > 0
}
