package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vendora/vendora-backend/internal/middleware"
	"golang.org/x/sync/errgroup"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	middleware.GetLoggerFromContext(r.Context()).Debug("Health check requested")

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// Returns 200 if ready, 503 if not ready.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	logger.Debug("Readiness check requested")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = map[string]string{}
	)
	record := func(name string, err error) error {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = "failed: " + err.Error()
			return fmt.Errorf("%s: %w", name, err)
		}
		checks[name] = "ok"
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return record("database", s.db.Pool().Ping(gctx))
	})
	if s.redis != nil {
		g.Go(func() error {
			return record("redis", s.redis.Ping(gctx).Err())
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC(),
			Checks:    checks,
		})
		return
	}

	logger.Debug("Readiness check passed")
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}
