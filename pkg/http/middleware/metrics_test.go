package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"DerivBot/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := echo.New()
	e.Use(Metrics(reg, logger.NewNop(), 0))
	e.GET("/api/trades/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades/"+id, nil))
	}

	m := registerHTTPMetrics(reg)
	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/trades/:id", http.MethodGet, "204"))
	if got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
}

func TestMetricsCountsHandlerErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := echo.New()
	e.Use(Metrics(reg, logger.NewNop(), 0))
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d", rec.Code)
	}

	m := registerHTTPMetrics(reg)
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/boom", http.MethodGet, "502")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(logger.NewNop()))
	e.GET("/panic", func(c echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{101: "1xx", 200: "2xx", 304: "3xx", 404: "4xx", 503: "5xx"} {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %s, want %s", code, got, want)
		}
	}
}
