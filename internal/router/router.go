package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guardview/guardview/internal/handler"
	"github.com/guardview/guardview/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"GuardView API v1","version":"0.1.0"}`))
	})

	// Read-only views
	mux.HandleFunc("GET /api/v1/security/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/v1/security/devices", h.ListDevices)
	mux.HandleFunc("GET /api/v1/security/alerts", h.ListAlerts)
	mux.HandleFunc("GET /api/v1/security/dashboard", h.GetDashboard)

	// Selection
	mux.HandleFunc("GET /api/v1/security/{collection}/selection", h.GetSelection)
	mux.HandleFunc("POST /api/v1/security/{collection}/selection", h.UpdateSelection)
	mux.HandleFunc("POST /api/v1/security/{collection}/selection/all", h.SelectAll)

	// Refresh is rate limited: each call is a full fetch against the remote
	refreshRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("POST /api/v1/security/refresh", refreshRateLimit(http.HandlerFunc(h.Refresh)))

	// Mutating routes share one limiter window
	actionRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  30,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})

	// Bulk actions
	mux.Handle("POST /api/v1/security/{collection}/bulk", actionRateLimit(http.HandlerFunc(h.BulkAction)))

	// Single-entity intents
	mux.Handle("POST /api/v1/security/sessions/{id}/terminate", actionRateLimit(http.HandlerFunc(h.TerminateSession)))
	mux.Handle("POST /api/v1/security/sessions/{id}/trust", actionRateLimit(http.HandlerFunc(h.TrustSession)))
	mux.Handle("POST /api/v1/security/devices/{id}/trust", actionRateLimit(http.HandlerFunc(h.TrustDevice)))
	mux.Handle("DELETE /api/v1/security/devices/{id}", actionRateLimit(http.HandlerFunc(h.RemoveDevice)))
	mux.Handle("POST /api/v1/security/alerts/{id}/read", actionRateLimit(http.HandlerFunc(h.MarkAlertRead)))
	mux.Handle("POST /api/v1/security/alerts/{id}/resolve", actionRateLimit(http.HandlerFunc(h.ResolveAlert)))
	mux.Handle("POST /api/v1/security/alerts/{id}/dismiss", actionRateLimit(http.HandlerFunc(h.DismissAlert)))

	// Apply middleware stack
	var root http.Handler = mux

	// CORS (configure allowed origins based on environment)
	root = mw.CORS([]string{"http://localhost:3000", "http://localhost:5173"})(root)

	// Security headers
	root = mw.SecurityHeaders(root)

	// Request logging
	root = mw.Logger(root)

	// Timing
	root = mw.Timing(root)

	// Request ID
	root = mw.RequestID(root)

	// Panic recovery (outermost)
	root = mw.Recover(root)

	return root
}
