package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"quiz-session-service/internal/domain"
)

// ResultReader lists a learner's persisted results.
type ResultReader interface {
	ResultsFor(ctx context.Context, userID string) ([]domain.ResultRecord, error)
}

// NewRouter assembles the HTTP surface: the session websocket, a result
// history endpoint, and a health check.
func NewRouter(ws *WSHandler, results ResultReader) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Get("/results/{userID}", func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		records, err := results.ResultsFor(r.Context(), userID)
		if err != nil {
			http.Error(w, "could not load results", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if records == nil {
			records = []domain.ResultRecord{}
		}
		_ = json.NewEncoder(w).Encode(records)
	})
	return r
}
