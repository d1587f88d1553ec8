package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"user-directory-service/cmd/api/di"
	ginrouter "user-directory-service/internal/adapter/gin/router"
	"user-directory-service/internal/config"
)

// benchServer serves the router in-process against SQLite and, optionally,
// a miniredis cache.
type benchServer struct {
	container *di.Container
	handler   http.Handler
}

func setupBenchServer(b *testing.B, withCache bool) *benchServer {
	b.Helper()
	gin.SetMode(gin.ReleaseMode)

	cfg := &config.Config{
		DB: config.DatabaseConfig{
			Driver:          config.DriverSQLite,
			SQLitePath:      filepath.Join(b.TempDir(), "bench.db"),
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: time.Hour,
			AutoMigrate:     true,
		},
		App:      config.AppConfig{Env: "test", HTTPPort: "0", ShutdownTimeout: time.Second},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
		List:     config.ListConfig{DefaultLimit: 10, MaxLimit: 100},
		Logger:   config.LoggerConfig{Level: "error", ServiceName: "bench"},
	}
	if withCache {
		mr := miniredis.RunT(b)
		host, port, _ := net.SplitHostPort(mr.Addr())
		cfg.Redis = config.RedisConfig{
			Enabled:  true,
			Host:     host,
			Port:     port,
			PoolSize: 8,
			CacheTTL: time.Minute,
		}
	}

	l := zap.NewNop()
	container, err := di.NewContainer(context.Background(), cfg, l)
	if err != nil {
		b.Fatalf("failed to build container: %v", err)
	}
	b.Cleanup(func() { _ = container.Close() })

	return &benchServer{
		container: container,
		handler:   ginrouter.SetupRouter(container.GinHandler, l, container.RouterOptions()),
	}
}

func (s *benchServer) do(method, endpoint string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, endpoint, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *benchServer) seed(b *testing.B, n int) []string {
	b.Helper()
	ids := make([]string, 0, n)
	for i := range n {
		rec := s.do(http.MethodPost, "/sign-up", map[string]string{
			"first_name": fmt.Sprintf("Seed%d", i),
			"last_name":  "User",
			"email":      fmt.Sprintf("seed_%d@example.com", i),
			"password":   "password",
		})
		if rec.Code != http.StatusOK {
			b.Fatalf("seed sign-up failed: %d %s", rec.Code, rec.Body.String())
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			b.Fatalf("failed to decode sign-up response: %v", err)
		}
		ids = append(ids, created.ID)
	}
	return ids
}

func BenchmarkGin_SignUp(b *testing.B) {
	s := setupBenchServer(b, false)

	var counter int64
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		id := atomic.AddInt64(&counter, 1)
		rec := s.do(http.MethodPost, "/sign-up", map[string]string{
			"first_name": "Bench",
			"last_name":  "User",
			"email":      fmt.Sprintf("user_%d@example.com", id),
			"password":   "password",
		})
		if rec.Code != http.StatusOK {
			b.Fatalf("expected status 200, got %d", rec.Code)
		}
	}
}

func benchmarkGetUser(b *testing.B, withCache bool) {
	s := setupBenchServer(b, withCache)
	id := s.seed(b, 1)[0]

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			rec := s.do(http.MethodGet, "/users/"+id, nil)
			if rec.Code != http.StatusOK {
				b.Errorf("expected status 200, got %d", rec.Code)
			}
		}
	})
}

func BenchmarkGin_GetUser_NoCache(b *testing.B) {
	benchmarkGetUser(b, false)
}

func BenchmarkGin_GetUser_RedisCache(b *testing.B) {
	benchmarkGetUser(b, true)
}

func BenchmarkGin_ListUsers_Search(b *testing.B) {
	s := setupBenchServer(b, false)
	s.seed(b, 200)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		rec := s.do(http.MethodGet, "/users?search=seed_1&sort_by=email&order=asc&limit=20", nil)
		if rec.Code != http.StatusOK {
			b.Fatalf("expected status 200, got %d", rec.Code)
		}
	}
}
