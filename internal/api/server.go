// Package api exposes a small JSON status surface over the repository and
// the remote store's work queue.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/scribe/internal/memstore"
	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

const httpStatusTimeout = 10 * time.Second

type Server struct {
	router *chi.Mux
	port   int
	repo   *repository.FS
	client *memstore.Client
}

func NewServer(port int, repo *repository.FS, client *memstore.Client) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		repo:   repo,
		client: client,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/scribe/status", s.status)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type statusResponse struct {
	Directories map[string]int        `json:"directories"`
	Queue       *memstore.QueueStatus `json:"queue,omitempty"`
	QueueError  string                `json:"queue_error,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Directories: map[string]int{
			repository.DirRaw:       s.repo.Count(repository.DirRaw),
			repository.DirClean:     s.repo.Count(repository.DirClean),
			repository.DirProcessed: s.repo.Count(repository.DirProcessed),
			repository.DirError:     s.repo.Count(repository.DirError),
		},
	}

	// Remote queue status is best-effort: the local view is still useful
	// when the store is unreachable.
	ctx, cancel := context.WithTimeout(r.Context(), httpStatusTimeout)
	defer cancel()
	queue, err := s.client.Status(ctx, r.URL.Query().Get("filter"))
	if err != nil {
		resp.QueueError = err.Error()
	} else {
		resp.Queue = queue
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
