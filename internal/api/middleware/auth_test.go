package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func validClaims(uid int64) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cloudstore",
			Subject:   strconv.FormatInt(uid, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: uid,
	}
}

func TestNewJWTAuth_RejectsShortSecret(t *testing.T) {
	if _, err := NewJWTAuth("short", "", discardLogger()); !errors.Is(err, ErrInvalidSecretLength) {
		t.Errorf("NewJWTAuth() error = %v, want ErrInvalidSecretLength", err)
	}
}

func TestJWTAuth_Verify(t *testing.T) {
	auth, err := NewJWTAuth(testSecret, "cloudstore", discardLogger())
	if err != nil {
		t.Fatalf("NewJWTAuth() error = %v", err)
	}

	expired := validClaims(1)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noExpiry := validClaims(1)
	noExpiry.ExpiresAt = nil
	wrongIssuer := validClaims(1)
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name    string
		token   string
		wantErr error
		wantUID int64
	}{
		{name: "valid", token: signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(42)), wantUID: 42},
		{name: "expired", token: signToken(t, testSecret, jwt.SigningMethodHS256, expired), wantErr: ErrExpiredToken},
		{name: "no expiry", token: signToken(t, testSecret, jwt.SigningMethodHS256, noExpiry), wantErr: ErrInvalidToken},
		{name: "wrong secret", token: signToken(t, strings.Repeat("z", 32), jwt.SigningMethodHS256, validClaims(1)), wantErr: ErrInvalidToken},
		{name: "wrong algorithm", token: signToken(t, testSecret, jwt.SigningMethodHS512, validClaims(1)), wantErr: ErrInvalidToken},
		{name: "wrong issuer", token: signToken(t, testSecret, jwt.SigningMethodHS256, wrongIssuer), wantErr: ErrInvalidToken},
		{name: "missing uid", token: signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(0)), wantErr: ErrInvalidToken},
		{name: "garbage", token: "not.a.token", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := auth.Verify(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if claims.UserID != tt.wantUID {
				t.Errorf("UserID = %d, want %d", claims.UserID, tt.wantUID)
			}
		})
	}
}

func TestJWTAuth_Middleware(t *testing.T) {
	auth, err := NewJWTAuth(testSecret, "", discardLogger())
	if err != nil {
		t.Fatalf("NewJWTAuth() error = %v", err)
	}

	var gotOwner int64
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, _ = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		owner  int64
	}{
		{name: "valid bearer", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(7)), status: http.StatusNoContent, owner: 7},
		{name: "lowercase scheme", header: "bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(8)), status: http.StatusNoContent, owner: 8},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOwner = 0
			req := httptest.NewRequest(http.MethodGet, "/files/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if gotOwner != tt.owner {
				t.Errorf("owner = %d, want %d", gotOwner, tt.owner)
			}
		})
	}
}

func TestOwnerFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := OwnerFromContext(req.Context()); ok {
		t.Error("empty context reported an owner")
	}
	ctx := WithOwner(req.Context(), 3)
	if id, ok := OwnerFromContext(ctx); !ok || id != 3 {
		t.Errorf("OwnerFromContext() = %d, %v; want 3, true", id, ok)
	}
}
