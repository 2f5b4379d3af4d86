package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
)

func newTestCache(t *testing.T) (*services.ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return services.NewResponseCache(client, time.Minute), mr
}

func newCachedRouter(cache *services.ResponseCache, userID uint, calls *int, status int) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserID, userID)
		c.Set(ContextRole, access.RoleUser)
		c.Next()
	})
	router.GET("/api/user/projects", CacheResponse(cache, UserProjectsCacheKey), func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"code": 0, "calls": *calls})
	})
	return router
}

func TestCacheResponse_MissThenHit(t *testing.T) {
	cache, mr := newTestCache(t)
	calls := 0
	router := newCachedRouter(cache, 1, &calls, http.StatusOK)

	first := doGet(router, "/api/user/projects", "")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first request: expected X-Cache MISS, got %q", first.Header().Get("X-Cache"))
	}
	if !mr.Exists("projects:user:1") {
		t.Fatal("expected response stored under projects:user:1")
	}
	if ttl := mr.TTL("projects:user:1"); ttl != time.Minute {
		t.Errorf("expected TTL %v, got %v", time.Minute, ttl)
	}

	second := doGet(router, "/api/user/projects", "")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second request: expected X-Cache HIT, got %q", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("cached body differs: %s vs %s", second.Body.String(), first.Body.String())
	}
	if calls != 1 {
		t.Errorf("handler should run once, ran %d times", calls)
	}
}

func TestCacheResponse_KeysAreCallerScoped(t *testing.T) {
	cache, mr := newTestCache(t)
	calls := 0

	doGet(newCachedRouter(cache, 1, &calls, http.StatusOK), "/api/user/projects", "")
	w := doGet(newCachedRouter(cache, 2, &calls, http.StatusOK), "/api/user/projects", "")

	if w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("another caller must not be served the first caller's list")
	}
	if !mr.Exists("projects:user:1") || !mr.Exists("projects:user:2") {
		t.Errorf("expected one key per caller, got %v", mr.Keys())
	}
}

func TestCacheResponse_SkipsErrors(t *testing.T) {
	cache, mr := newTestCache(t)
	calls := 0
	router := newCachedRouter(cache, 1, &calls, http.StatusInternalServerError)

	doGet(router, "/api/user/projects", "")
	doGet(router, "/api/user/projects", "")

	if len(mr.Keys()) != 0 {
		t.Errorf("error responses must not be cached, got keys %v", mr.Keys())
	}
	if calls != 2 {
		t.Errorf("expected handler to run twice, ran %d times", calls)
	}
}

func TestCacheResponse_Invalidated(t *testing.T) {
	cache, _ := newTestCache(t)
	calls := 0
	router := newCachedRouter(cache, 1, &calls, http.StatusOK)

	doGet(router, "/api/user/projects", "")
	if _, err := cache.Invalidate(context.Background(), services.ProjectsPattern); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	w := doGet(router, "/api/user/projects", "")

	if w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("expected MISS after invalidation, got %q", w.Header().Get("X-Cache"))
	}
	if calls != 2 {
		t.Errorf("expected handler to run twice, ran %d times", calls)
	}
}

func TestCacheResponse_InvalidatedDuringRequestIsNotStored(t *testing.T) {
	cache, mr := newTestCache(t)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserID, uint(1))
		c.Set(ContextRole, access.RoleUser)
		c.Next()
	})
	router.GET("/api/user/projects", CacheResponse(cache, UserProjectsCacheKey), func(c *gin.Context) {
		// a write commits and invalidates after this handler read the store
		if _, err := cache.Invalidate(c.Request.Context(), services.ProjectsPattern); err != nil {
			t.Errorf("invalidate: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": "old"})
	})

	w := doGet(router, "/api/user/projects", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if mr.Exists("projects:user:1") {
		t.Error("a body read before an invalidation must not be cached")
	}

	calls := 0
	doGet(newCachedRouter(cache, 1, &calls, http.StatusOK), "/api/user/projects", "")
	if !mr.Exists("projects:user:1") {
		t.Error("a request that saw no invalidation should be cached")
	}
}

func TestCacheResponse_RedisDownFallsThrough(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()
	calls := 0
	router := newCachedRouter(cache, 1, &calls, http.StatusOK)

	w := doGet(router, "/api/user/projects", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run, ran %d times", calls)
	}
}

func TestCacheResponse_Disabled(t *testing.T) {
	calls := 0
	router := newCachedRouter(services.NewResponseCache(nil, 0), 1, &calls, http.StatusOK)

	doGet(router, "/api/user/projects", "")
	w := doGet(router, "/api/user/projects", "")

	if w.Header().Get("X-Cache") != "" {
		t.Errorf("disabled cache should not set X-Cache, got %q", w.Header().Get("X-Cache"))
	}
	if calls != 2 {
		t.Errorf("expected handler to run twice, ran %d times", calls)
	}
}

func TestAdminUserProjectsCacheKey(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{"12", "admin:projects:user:12"},
		{"0", ""},
		{"abc", ""},
		{"-1", ""},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "userId", Value: tt.param}}
		if got := AdminUserProjectsCacheKey(c); got != tt.want {
			t.Errorf("userId %q: expected %q, got %q", tt.param, tt.want, got)
		}
	}
}

func TestUserProjectsCacheKey_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := UserProjectsCacheKey(c); got != "" {
		t.Errorf("expected no key without identity, got %q", got)
	}
}
