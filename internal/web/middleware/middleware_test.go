package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/sirupsen/logrus"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_AllowsAnyOriginByDefault(t *testing.T) {
	handler := CORS(nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
	req.Header.Set("Origin", "http://webcam.example.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	handler := CORS([]string{"https://allowed.example.com"})(okHandler())

	tests := []struct {
		name     string
		origin   string
		expected string
	}{
		{"allowed origin echoed", "https://allowed.example.com", "https://allowed.example.com"},
		{"other origin rejected", "https://evil.example.com", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
			req.Header.Set("Origin", tc.origin)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)

			if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/recognize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if called {
		t.Error("preflight should not reach the handler")
	}
	if recorder.Code >= 300 {
		t.Errorf("expected successful preflight, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), http.MethodPost) {
		t.Errorf("expected POST in allowed methods, got %q", recorder.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, nil)
	handler := limiter.Handler(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		codes = append(codes, recorder.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1, nil)
	handler := limiter.Handler(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
		req.RemoteAddr = addr
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Errorf("expected %s to have its own bucket, got %d", addr, recorder.Code)
		}
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter(10, 1, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	handler := limiter.Handler(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
		req.RemoteAddr = addr
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder.Code
	}

	for i := range 100 {
		send(fmt.Sprintf("10.0.%d.%d:1", i/256, i%256))
	}
	if limiter.Len() != 100 {
		t.Fatalf("expected 100 tracked clients, got %d", limiter.Len())
	}

	now = now.Add(limiter.idleTTL / 2)
	send("10.0.0.1:1")

	now = now.Add(limiter.idleTTL * 3 / 4)
	send("192.168.0.9:1")

	if limiter.Len() != 2 {
		t.Errorf("expected only recently seen clients to remain, got %d", limiter.Len())
	}
}

func TestRateLimiter_IdleTTLCoversRefill(t *testing.T) {
	slow := NewRateLimiter(0.001, 2, nil)
	if slow.idleTTL < 2000*time.Second {
		t.Errorf("expected idle TTL to cover bucket refill, got %s", slow.idleTTL)
	}

	fast := NewRateLimiter(100, 10, nil)
	if fast.idleTTL != constants.RateLimitIdleTTL {
		t.Errorf("expected default idle TTL, got %s", fast.idleTTL)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		expected   string
	}{
		{"192.168.1.10:4321", "192.168.1.10"},
		{"[::1]:8080", "::1"},
		{"203.0.113.7", "203.0.113.7"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if got := clientIP(req); got != tc.expected {
			t.Errorf("clientIP(%q) = %q, want %q", tc.remoteAddr, got, tc.expected)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	handler := chiMiddleware.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/recognize", nil))

	out := buf.String()
	for _, want := range []string{`"status":502`, `"path":"/recognize"`, `"request_id":"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %s, got %s", want, out)
		}
	}
}
