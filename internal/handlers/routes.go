package handlers

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *mux.Router, h *ContentHandler) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/blogs", h.ListBlogs).Methods("GET")
	api.HandleFunc("/programs", h.ListPrograms).Methods("GET")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/cache/invalidate", h.InvalidateCache).Methods("POST")
	admin.HandleFunc("/query-stats", h.QueryStats).Methods("GET")

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
