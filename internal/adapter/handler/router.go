package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	Metrics        http.Handler
	Feed           *Hub
}

func NewRouter(h *LandHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors(cfg.AllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	// The websocket upgrade must not sit behind the request timeout.
	if cfg.Feed != nil {
		r.Get("/ws", cfg.Feed.ServeWS)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/land-data", h.LandData)
		r.Get("/purchase-history", h.PurchaseHistory)
		r.Post("/purchase-plot", h.PurchasePlot)
		r.Get("/quote", h.Quote)
		r.Get("/monitor", h.MonitorStatus)
		r.Get("/orphaned-payments", h.OrphanedPayments)

		r.Route("/wallets/{address}", func(r chi.Router) {
			r.Get("/balance", h.WalletBalance)
			r.Post("/airdrop", h.Airdrop)
		})
	})

	return r
}

func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
