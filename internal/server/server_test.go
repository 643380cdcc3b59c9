package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cloudstore/internal/api/middleware"
	"cloudstore/internal/app"
	"cloudstore/internal/blobstore"
	"cloudstore/internal/config"
	"cloudstore/internal/drive"
	"cloudstore/internal/testutil"
)

const testSecret = "server-test-secret-0123456789abcdef"

func testSetup(t *testing.T) (*config.Config, *app.App) {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Auth.JWTSecret = testSecret
	cfg.Server.Addr = "127.0.0.1:0"
	a := app.NewFromDeps(app.Deps{
		Database: testutil.NewTestDatabase(t),
		Blobs:    blobstore.NewMemoryStore(),
		Staging:  testutil.NewTestStagingArea(t),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options:  drive.Options{PublicBaseURL: cfg.Server.PublicBaseURL},
	})
	return cfg, a
}

func bearer(t *testing.T, uid int64) string {
	t.Helper()
	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cloudstore",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: uid,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return "Bearer " + token
}

func TestRouter(t *testing.T) {
	cfg, a := testSetup(t)
	srv, err := NewFromApp(cfg, a)
	if err != nil {
		t.Fatalf("NewFromApp() error = %v", err)
	}
	handler := srv.httpServer.Handler

	if _, err := a.Upload(context.Background(), 1, "a.txt", strings.NewReader("hi")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	tests := []struct {
		name   string
		method string
		target string
		auth   string
		want   int
	}{
		{name: "liveness is public", method: http.MethodGet, target: "/health/live", want: http.StatusOK},
		{name: "readiness is public", method: http.MethodGet, target: "/health/ready", want: http.StatusOK},
		{name: "metrics are public", method: http.MethodGet, target: "/metrics", want: http.StatusOK},
		{name: "files need a token", method: http.MethodGet, target: "/files/", want: http.StatusUnauthorized},
		{name: "files with token", method: http.MethodGet, target: "/files/", auth: bearer(t, 1), want: http.StatusOK},
		{name: "download with token", method: http.MethodGet, target: "/files/download/a.txt", auth: bearer(t, 1), want: http.StatusOK},
		{name: "other owner sees nothing", method: http.MethodGet, target: "/files/info/a.txt", auth: bearer(t, 2), want: http.StatusNotFound},
		{name: "unknown public token", method: http.MethodGet, target: "/files/public/nope", want: http.StatusNotFound},
		{name: "delete needs a token", method: http.MethodDelete, target: "/files/a.txt", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.method, tt.target, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestNewFromApp_RejectsShortSecret(t *testing.T) {
	cfg, a := testSetup(t)
	cfg.Auth.JWTSecret = "short"
	if _, err := NewFromApp(cfg, a); err == nil {
		t.Fatal("NewFromApp() accepted a short secret")
	}
}

func TestServe_ShutsDownWhenContextEnds(t *testing.T) {
	cfg, a := testSetup(t)
	srv, err := NewFromApp(cfg, a)
	if err != nil {
		t.Fatalf("NewFromApp() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health/live")
	if err != nil {
		t.Fatalf("GET /health/live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
