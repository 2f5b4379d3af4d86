package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

const maxAuditBody = 2000

var sensitiveKeys = map[string]bool{
	"password": true,
	"token":    true,
	"secret":   true,
}

// AuditWriter persists audit entries.
type AuditWriter interface {
	Write(ctx context.Context, entry services.LogEntry) error
}

// AuditLog records write requests (POST/PUT/DELETE) on the admin surface.
func AuditLog(writer AuditWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = maskSensitiveFields(raw)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if id := GetUserID(c); id > 0 {
			uid = &id
		}

		level := models.LogLevelInfo
		if status >= 400 {
			level = models.LogLevelWarning
		}

		// an audit write failure never changes the response
		err := writer.Write(context.WithoutCancel(c.Request.Context()), services.LogEntry{
			Level:     level,
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetEmail(c), method, c.Request.URL.Path, status),
			UserID:    uid,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"params": paramsMap(c.Params),
				"status": status,
				"body":   body,
				"audit":  true,
			},
		})
		if err != nil {
			logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("[Audit] entry dropped")
		}
	}
}

// parseRouteInfo names the resource by the last static segment of the
// route: "/api/admin/:userId/projects/:projectId/tasks" + POST gives
// ("Tasks", "Create").
func parseRouteInfo(fullPath, method string) (module, action string) {
	module = "Unknown"
	for _, seg := range strings.Split(strings.Trim(fullPath, "/"), "/") {
		if seg == "" || seg == "api" || seg == "admin" || strings.HasPrefix(seg, ":") {
			continue
		}
		module = capitalize(strings.ReplaceAll(seg, "-", " "))
	}

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatAuditMessage(email, method, path string, status int) string {
	outcome := "Failed"
	if status >= 200 && status < 300 {
		outcome = "OK"
	}
	if email == "" {
		email = "anonymous"
	}
	return "[Audit] " + email + " " + method + " " + path + " -> " + outcome
}

func paramsMap(params gin.Params) map[string]string {
	out := make(map[string]string, len(params))
	for _, p := range params {
		out[p.Key] = p.Value
	}
	return out
}

// maskSensitiveFields returns the body as a string with top-level secret
// values replaced. Non-JSON bodies are truncated but otherwise kept.
func maskSensitiveFields(raw []byte) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return truncate(string(raw))
	}
	for k := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			fields[k] = "***"
		}
	}
	masked, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return truncate(string(masked))
}

func truncate(s string) string {
	if len(s) > maxAuditBody {
		return s[:maxAuditBody] + "...[truncated]"
	}
	return s
}
