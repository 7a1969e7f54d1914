package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	middlewarePkg "github.com/zhouzirui/campus-chat/backend/internal/middleware"
	"github.com/zhouzirui/campus-chat/backend/internal/model/chat"
	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
)

type echoReplier struct{}

func (echoReplier) Reply(_ context.Context, req chat.Request) (string, error) {
	return "echo: " + req.Message, nil
}

type emptyStore struct{}

func (emptyStore) Context(context.Context) model.Snapshot { return model.Snapshot{} }
func (emptyStore) Flush(context.Context) error            { return nil }
func (emptyStore) Source() string                         { return "" }
func (emptyStore) TTL() time.Duration                     { return 0 }

func newTestRouter(limiter *middlewarePkg.RateLimiter) http.Handler {
	return NewRouter(Dependencies{
		Chat:           echoReplier{},
		Knowledge:      emptyStore{},
		FrameAncestors: "self https://school.example",
		RateLimiter:    limiter,
	})
}

func TestHealthAndEmbedHeaders(t *testing.T) {
	r := newTestRouter(nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("X-Frame-Options"); got != "ALLOWALL" {
		t.Fatalf("unexpected X-Frame-Options %q", got)
	}
	if got := resp.Header().Get("Content-Security-Policy"); got != "frame-ancestors self https://school.example;" {
		t.Fatalf("unexpected CSP %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected CORS origin %q", got)
	}
}

func TestRoutesListing(t *testing.T) {
	r := newTestRouter(nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/routes", nil))

	for _, want := range []string{"POST /api/chat", "GET /debug/csv", "GET /widget.js", "GET /health"} {
		if !strings.Contains(resp.Body.String(), want) {
			t.Fatalf("routes listing missing %q:\n%s", want, resp.Body.String())
		}
	}
}

func TestChatPreflight(t *testing.T) {
	r := newTestRouter(nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", resp.Code)
	}
}

func TestChatRateLimited(t *testing.T) {
	r := newTestRouter(middlewarePkg.NewRateLimiter(1, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/csv", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status endpoint should not be rate limited, got %d", resp.Code)
	}
}
