package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go-resume-watch/internal/metrics"
	"go-resume-watch/internal/runner"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// State is the outcome of the latest run, shared between the scheduler
// loop and the HTTP handlers.
type State struct {
	mu      sync.RWMutex
	last    *runner.Summary
	lastErr error
	lastAt  time.Time
}

func (s *State) Record(summary *runner.Summary, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAt = at
	s.lastErr = err
	if err == nil {
		s.last = summary
	}
}

type healthResponse struct {
	Status     string    `json:"status"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	Error      string    `json:"error,omitempty"`
	Candidates int       `json:"candidates"`
	New        int       `json:"new"`
	Today      int64     `json:"today"`
	Total      int64     `json:"total"`
}

func (s *State) health() (int, healthResponse) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := healthResponse{Status: "starting", LastRunAt: s.lastAt}
	if s.last != nil {
		resp.Candidates = len(s.last.Result.Listings)
		resp.New = s.last.NewCount()
		resp.Today = s.last.Stats.Today
		resp.Total = s.last.Stats.Total
	}
	switch {
	case s.lastAt.IsZero():
		return http.StatusOK, resp
	case s.lastErr != nil:
		resp.Status = "degraded"
		resp.Error = s.lastErr.Error()
		return http.StatusServiceUnavailable, resp
	default:
		resp.Status = "healthy"
		return http.StatusOK, resp
	}
}

// NewRouter exposes /healthz and /metrics.
func NewRouter(state *State, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "resume watch is running!",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		code, resp := state.health()
		c.JSON(code, resp)
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	return r
}

// ListenAndServe serves the router until ctx is done, then shuts down.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 Server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
