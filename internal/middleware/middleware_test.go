package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/logger"
	"github.com/monocle-dev/crewboard/internal/types"
)

func setupTestGin() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newTokens(t *testing.T) *auth.JWT {
	t.Helper()

	tokens, err := auth.NewJWT("middleware-secret", time.Hour)
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	return tokens
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTokens(t)
	other, err := auth.NewJWT("someone-else", time.Hour)
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	valid, _ := tokens.Generate(auth.Identity{UserID: 4, Email: "a@example.com", Role: types.RoleEmployee})
	forged, _ := other.Generate(auth.Identity{UserID: 4, Email: "a@example.com", Role: types.RoleAdmin})

	router := setupTestGin()
	router.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		identity := c.MustGet(types.ContextUserKey).(auth.Identity)
		c.JSON(http.StatusOK, identity)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareQueryTokenOnlyForWebsocket(t *testing.T) {
	tokens := newTokens(t)
	valid, _ := tokens.Generate(auth.Identity{UserID: 4, Email: "a@example.com", Role: types.RoleEmployee})

	router := setupTestGin()
	router.GET("/ws", AuthMiddleware(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	plain := httptest.NewRequest(http.MethodGet, "/ws?token="+valid, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, plain)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected query token to be ignored on plain requests, got %d", w.Code)
	}

	upgrade := httptest.NewRequest(http.MethodGet, "/ws?token="+valid, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, upgrade)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected websocket upgrade to accept query token, got %d", w.Code)
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	router := setupTestGin()
	router.Use(RateLimit(NewMemoryRateLimiter(1, time.Minute), nil, logger.Discard()))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("127.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("127.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", code)
	}
	if code := send("192.168.1.1:1234"); code != http.StatusOK {
		t.Fatalf("expected another client to pass, got %d", code)
	}
}

func TestMemoryRateLimiterSweepsIdleVisitors(t *testing.T) {
	rl := NewMemoryRateLimiter(1, time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	_, _ = rl.Allow(context.Background(), "a")
	now = now.Add(10 * time.Second)
	_, _ = rl.Allow(context.Background(), "b")

	if _, ok := rl.visitors["a"]; ok {
		t.Fatal("expected idle visitor to be swept")
	}
	if len(rl.visitors) != 1 {
		t.Fatalf("expected 1 visitor, got %d", len(rl.visitors))
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisRateLimiter(t *testing.T) {
	client, mr := setupTestRedis(t)

	router := setupTestGin()
	router.Use(RateLimit(NewRedisRateLimiter(client, 2, time.Minute), nil, logger.Discard()))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected third request limited, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"kind":"RateLimited"`) {
		t.Fatalf("expected RateLimited kind in body, got %s", w.Body.String())
	}

	if ttl := mr.TTL("crewboard:ratelimit:ip:127.0.0.1"); ttl <= 0 {
		t.Fatalf("expected window expiry on key, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", w.Code)
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	router := setupTestGin()
	router.Use(RateLimit(NewRedisRateLimiter(client, 1, time.Minute), nil, logger.Discard()))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected fail open, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Error") != "true" {
		t.Fatal("expected X-RateLimit-Error header")
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	router := setupTestGin()
	router.Use(RequestID(), RequestLogger(logger.Discard(), nil), Recovery(logger.Discard()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(types.ContextRequestIDKey)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); body == "" || strings.Contains(body, "boom") {
		t.Fatalf("expected generic error body, got %q", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc-123" || w.Body.String() != "abc-123" {
		t.Fatalf("expected request id propagated, got header %q body %q", w.Header().Get(RequestIDHeader), w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Header().Get(RequestIDHeader))
	}
}
