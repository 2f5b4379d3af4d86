package middleware

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

// CacheKeyFunc names the cache entry for a request. An empty key skips
// caching.
type CacheKeyFunc func(c *gin.Context) string

type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheResponse serves GET responses from cache when present and stores
// successful ones for the cache TTL. Cache errors fall through to the
// handler.
func CacheResponse(cache *services.ResponseCache, keyFn CacheKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cache.Enabled() || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		body, hit, err := cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("[Cache] read failed")
		}
		if hit {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		gen := cache.Generation()
		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Header("X-Cache", "MISS")

		c.Next()

		if capture.Status() != http.StatusOK || capture.buf.Len() == 0 {
			return
		}
		// a mutation that invalidated while the handler ran makes this body stale
		stored, err := cache.SetIfCurrent(ctx, key, capture.buf.Bytes(), gen)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("[Cache] write failed")
		} else if !stored {
			logger.Debug().Str("key", key).Msg("[Cache] skipped store, invalidated during request")
		}
	}
}

// UserProjectsCacheKey keys the caller's own project list.
func UserProjectsCacheKey(c *gin.Context) string {
	ac, ok := GetAccessContext(c)
	if !ok {
		return ""
	}
	return services.UserProjectsKey(ac.UserID)
}

// AdminAllProjectsCacheKey keys the admin list of every project.
func AdminAllProjectsCacheKey(*gin.Context) string {
	return services.AdminAllProjectsKey()
}

// AdminUserProjectsCacheKey keys the admin view of one user's projects.
func AdminUserProjectsCacheKey(c *gin.Context) string {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil || id == 0 {
		return ""
	}
	return services.AdminUserProjectsKey(uint(id))
}
