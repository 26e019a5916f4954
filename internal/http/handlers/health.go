package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the task store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and task store readiness.
type HealthHandler struct {
	store     Pinger
	driver    string
	startTime time.Time
	version   string
}

// NewHealthHandler checks store, labelled with its storage driver name.
func NewHealthHandler(store Pinger, driver, version string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		driver:    driver,
		startTime: time.Now(),
		version:   version,
	}
}

type StoreStatus struct {
	Driver    string `json:"driver"`
	Status    string `json:"status"`
	LatencyMS string `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string      `json:"status"`
	Version   string      `json:"version,omitempty"`
	Uptime    string      `json:"uptime,omitempty"`
	Timestamp string      `json:"timestamp"`
	Store     StoreStatus `json:"store"`
	MemoryMB  string      `json:"memory_alloc_mb"`
}

func (h *HealthHandler) checkStore(ctx context.Context, timeout time.Duration) StoreStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	st := StoreStatus{Driver: h.driver, Status: "healthy"}
	start := time.Now()
	err := h.store.Ping(ctx)
	st.LatencyMS = fmt.Sprintf("%.2f", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		st.Status = "unhealthy"
		st.Error = err.Error()
	}
	return st
}

// Liveness returns simple alive status (k8s liveness check)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness reports the store driver, ping latency and memory use (k8s readiness check)
func (h *HealthHandler) Readiness(c *gin.Context) {
	store := h.checkStore(c.Request.Context(), 5*time.Second)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, code := "healthy", http.StatusOK
	if store.Status != "healthy" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Store:     store,
		MemoryMB:  fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	store := h.checkStore(c.Request.Context(), 3*time.Second)
	if store.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"storage": h.driver,
			"error":   "store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": h.driver,
		"version": h.version,
	})
}
