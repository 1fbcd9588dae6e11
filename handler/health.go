package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/paylink/infra/config"
	"github.com/mstgnz/paylink/infra/response"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	gatewayConfig *config.GatewayConfig
	startTime     time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string         `json:"status"`
	Version     string         `json:"version"`
	Timestamp   time.Time      `json:"timestamp"`
	Uptime      string         `json:"uptime"`
	Environment string         `json:"environment"`
	Gateway     *GatewayHealth `json:"gateway"`
	System      *SystemHealth  `json:"system"`
}

// GatewayHealth represents payment gateway configuration health
type GatewayHealth struct {
	Status      string `json:"status"`
	Configured  bool   `json:"configured"`
	Environment string `json:"environment"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
	GoRoutines int    `json:"goroutines"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gatewayConfig *config.GatewayConfig) *HealthHandler {
	return &HealthHandler{
		gatewayConfig: gatewayConfig,
		startTime:     time.Now(),
	}
}

// CheckHealth reports service health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).String(),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
		Gateway:     h.checkGatewayHealth(),
		System:      checkSystemHealth(),
	}

	health.Status = "healthy"
	statusCode := http.StatusOK
	if !health.Gateway.Configured {
		health.Status = "degraded"
	}

	_ = response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: true,
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

// checkGatewayHealth reports whether gateway credentials are configured
func (h *HealthHandler) checkGatewayHealth() *GatewayHealth {
	gw := &GatewayHealth{Status: "not_configured"}

	if h.gatewayConfig == nil {
		return gw
	}

	gw.Environment = h.gatewayConfig.Environment()
	if h.gatewayConfig.IsConfigured() {
		gw.Status = "configured"
		gw.Configured = true
	}

	return gw
}

// checkSystemHealth collects runtime metrics
func checkSystemHealth() *SystemHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemHealth{
		Alloc:      formatBytes(m.Alloc),
		Sys:        formatBytes(m.Sys),
		GCRuns:     m.NumGC,
		GoRoutines: runtime.NumGoroutine(),
	}
}

// formatBytes formats bytes to human readable format
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
