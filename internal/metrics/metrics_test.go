package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRegisterStoreGauges(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "a@example.com", access.RoleUser)
	p := testutil.CreateProject(t, db, owner.ID, "Launch")
	testutil.CreateTask(t, db, p.ID, "Write brief")
	testutil.CreateTask(t, db, p.ID, "Ship")

	reg := prometheus.NewRegistry()
	RegisterStoreGauges(reg, db)

	expected := `
# HELP ktoi_tasks_total Number of tasks
# TYPE ktoi_tasks_total gauge
ktoi_tasks_total 2
# HELP ktoi_projects_total Number of projects
# TYPE ktoi_projects_total gauge
ktoi_projects_total 1
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "ktoi_tasks_total", "ktoi_projects_total"); err != nil {
		t.Error(err)
	}
}

func TestRecordBestEffortFailure(t *testing.T) {
	before := promtest.ToFloat64(bestEffortFailures.WithLabelValues("test.effect"))
	RecordBestEffortFailure("test.effect")
	after := promtest.ToFloat64(bestEffortFailures.WithLabelValues("test.effect"))

	if after-before != 1 {
		t.Errorf("counter moved by %v, expected 1", after-before)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	router := gin.New()
	router.Use(Middleware())
	router.GET("/projects/:projectId", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/projects/17", nil)
	router.ServeHTTP(w, req)

	n := promtest.CollectAndCount(httpRequestDuration, "ktoi_http_request_duration_seconds")
	if n == 0 {
		t.Fatal("expected at least one observed series")
	}
}
