package middleware

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func newLimitedRouter(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/test", h, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doGet(r http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMemoryRateLimit(t *testing.T) {
	r := newLimitedRouter(MemoryRateLimit(2, time.Hour))

	for i := 0; i < 2; i++ {
		if w := doGet(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, w.Code)
		}
	}

	w := doGet(r, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	// other clients keep their own budget
	if w := doGet(r, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("other client: expected 200 got %d", w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := newLimitedRouter(RateLimit(0, time.Minute))
	for i := 0; i < 10; i++ {
		if w := doGet(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", w.Code)
		}
	}
}

func TestMetricsRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metered", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/metered", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}
}

func TestOperationRateLimitSeparateBudgets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/rebalance", OperationRateLimit("rebalance", 1, time.Hour), ok)
	r.GET("/other", OperationRateLimit("other", 1, time.Hour), ok)

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get("/rebalance"); code != http.StatusOK {
		t.Fatalf("first rebalance: expected 200 got %d", code)
	}
	if code := get("/rebalance"); code != http.StatusTooManyRequests {
		t.Fatalf("second rebalance: expected 429 got %d", code)
	}
	if code := get("/other"); code != http.StatusOK {
		t.Fatalf("other op shares budget: got %d", code)
	}
}

func TestOperationRateLimitDisabled(t *testing.T) {
	r := newLimitedRouter(OperationRateLimit("rebalance", 0, time.Minute))
	for i := 0; i < 5; i++ {
		if w := doGet(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", w.Code)
		}
	}
}

func TestRefillRate(t *testing.T) {
	if got := refillRate(60, time.Minute); got != 1 {
		t.Fatalf("refillRate(60, 1m) = %v; want 1", got)
	}
	// a window shorter than maxRequests nanoseconds must still limit
	got := refillRate(1000, 100*time.Nanosecond)
	if got == rate.Inf || math.IsInf(float64(got), 0) || got < 9e9 || got > 11e9 {
		t.Fatalf("refillRate(1000, 100ns) = %v; want about 1e10", got)
	}
}
