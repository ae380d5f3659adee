package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rl1809/ventures/internal/adapter/storage"
	"github.com/rl1809/ventures/internal/core/service"
	"github.com/rl1809/ventures/internal/platform/auth"
	"github.com/rl1809/ventures/internal/platform/logger"
	"github.com/rl1809/ventures/internal/platform/metrics"
)

const testSecret = "test-secret"

type memoryCache struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{keys: make(map[string]bool)}
}

func (m *memoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

type testServer struct {
	router  *gin.Engine
	db      *sql.DB
	store   *storage.SQLAdapter
	tokens  *auth.TokenService
	cache   *memoryCache
	metrics *metrics.Manager
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := storage.NewSQLiteAdapter(db)
	if err := store.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m := metrics.NewManager()
	svc := service.NewVentureService(store, store,
		service.WithTransactor(store),
		service.WithMetrics(m),
	)
	tokens := auth.NewTokenService(testSecret, "ventures")
	cache := newMemoryCache()

	router := NewRouter(RouterConfig{
		Handler:        NewHTTPHandler(svc, "", store),
		AuthMiddleware: NewAuthMiddleware(logger.Nop(), tokens),
		Cache:          cache,
		Metrics:        m,
		MetricsPath:    "/metrics",
		Log:            logger.Nop(),
	})

	return &testServer{router: router, db: db, store: store, tokens: tokens, cache: cache, metrics: m}
}

func (s *testServer) seedAgent(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO agents (id, name, display_name) VALUES (?, ?, ?)`, id, name, name); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return id
}

func (s *testServer) token(t *testing.T, agentID string, claimed bool) string {
	t.Helper()
	tok, err := s.tokens.Issue(agentID, claimed, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) count(query string, args ...any) int {
	var n int
	s.db.QueryRow(query, args...).Scan(&n)
	return n
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
	Error   string                     `json:"error"`
	Code    string                     `json:"code"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
