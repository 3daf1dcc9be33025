package admin

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures the control-plane routes with middleware
func SetupRoutes(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, h.HealthHandler)
	})

	mux.HandleFunc("/api/v1/orderbook", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, h.OrderBookHandler)
	})

	mux.HandleFunc("/api/v1/orderbook/top", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, h.TopOfBookHandler)
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, h.TradesHandler)
	})

	mux.HandleFunc("/api/v1/register", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodPost, h.RegisterHandler)
	})

	mux.Handle("/metrics", promhttp.Handler())

	// Order matters: Recovery -> Logging -> Handler
	handler := Recovery(mux)
	handler = Logging(handler)
	return handler
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string, next http.HandlerFunc) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next(w, r)
}
