// Package httpstatus serves health, sync status and Prometheus metrics for
// the sync daemon, and lets an operator trigger a sync over HTTP.
package httpstatus

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
	"github.com/custodia-labs/caresync/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Server is the daemon's HTTP status endpoint.
type Server struct {
	scheduler driving.Scheduler
	gatherer  prometheus.Gatherer
	scopeID   string
	srv       *http.Server
}

// New creates a status server. A nil gatherer disables /metrics.
func New(addr, scopeID string, scheduler driving.Scheduler, gatherer prometheus.Gatherer) *Server {
	s := &Server{scheduler: scheduler, gatherer: gatherer, scopeID: scopeID}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/status", s.status).Methods(http.MethodGet)
	r.HandleFunc("/sync", s.trigger).Methods(http.MethodPost)
	r.HandleFunc("/sync/{entity}", s.trigger).Methods(http.MethodPost)
	r.HandleFunc("/sync", s.cancel).Methods(http.MethodDelete)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening on %s", ln.Addr())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

type taskView struct {
	EntityType  string     `json:"entityType"`
	Enabled     bool       `json:"enabled"`
	Running     bool       `json:"running"`
	Interval    string     `json:"interval"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	LastResult  *runView   `json:"lastResult,omitempty"`
}

type runView struct {
	Success        bool   `json:"success"`
	ErrorKind      string `json:"errorKind,omitempty"`
	ItemsProcessed int    `json:"itemsProcessed"`
	ItemsFailed    int    `json:"itemsFailed"`
	Attempts       int    `json:"attempts"`
	DurationMillis int64  `json:"durationMillis"`
}

type statusView struct {
	ScopeID string     `json:"scopeId"`
	Tasks   []taskView `json:"tasks"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.scheduler.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	view := statusView{ScopeID: s.scopeID, Tasks: make([]taskView, 0, len(statuses))}
	for _, st := range statuses {
		view.Tasks = append(view.Tasks, toTaskView(st))
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	entityType := mux.Vars(r)["entity"]
	err := s.scheduler.TriggerNow(r.Context(), entityType)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
	case errors.Is(err, domain.ErrUnsupportedType):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) cancel(w http.ResponseWriter, _ *http.Request) {
	s.scheduler.CancelAll()
	w.WriteHeader(http.StatusAccepted)
}

func toTaskView(st driving.TaskStatus) taskView {
	entityType, _ := domain.EntityTypeFromTaskID(st.Task.ID)
	v := taskView{
		EntityType:  entityType,
		Enabled:     st.Task.Enabled,
		Running:     st.Running,
		Interval:    st.Task.Interval.String(),
		LastRun:     optionalTime(st.Task.LastRun),
		NextRun:     optionalTime(st.Task.NextRun),
		LastSuccess: optionalTime(st.Task.LastSuccess),
		LastError:   st.Task.LastError,
	}
	if res := st.LastResult; res != nil {
		v.LastResult = &runView{
			Success:        res.Success,
			ErrorKind:      string(res.ErrorKind),
			ItemsProcessed: res.ItemsProcessed,
			ItemsFailed:    res.ItemsFailed,
			Attempts:       res.Attempts,
			DurationMillis: res.EndedAt.Sub(res.StartedAt).Milliseconds(),
		}
	}
	return v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("status server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
