// Package httpapi exposes a running tree over HTTP: its nodes, its
// blackboard, recent events and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"

	"github.com/joeycumines/bteng/internal/binding"
	"github.com/joeycumines/bteng/internal/bt"
	"github.com/joeycumines/bteng/internal/monitor"
	"github.com/joeycumines/bteng/internal/treeview"
)

// Source is the tree being served. *runner.Runner implements it.
type Source interface {
	Tree() *bt.Tree
	Status() bt.Status
	Ticks() int64
	Snapshot() []treeview.Entry
	Render(styles treeview.Styles) string
	Blackboard() *bt.Blackboard
	Halt() error
}

// Options wires the optional parts of the API. Routes whose dependency is
// nil respond 404.
type Options struct {
	Recorder *monitor.Recorder
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// TreeResponse is the body of GET /tree.
type TreeResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Ticks  int64            `json:"ticks"`
	Nodes  []treeview.Entry `json:"nodes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type server struct {
	src    Source
	opts   Options
	logger *slog.Logger
}

// NewHandler creates the router:
//
//	GET    /healthz
//	GET    /tree               JSON snapshot
//	GET    /tree/text          plain text rendering
//	POST   /tree/halt
//	GET    /blackboard
//	GET    /blackboard/{key}
//	PUT    /blackboard/{key}   JSON value
//	DELETE /blackboard/{key}
//	GET    /events?limit=N
//	GET    /metrics
func NewHandler(src Source, opts Options) http.Handler {
	s := &server{src: src, opts: opts, logger: opts.Logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/tree", func(r chi.Router) {
		r.Get("/", s.getTree)
		r.Get("/text", s.getTreeText)
		r.Post("/halt", s.haltTree)
	})
	r.Route("/blackboard", func(r chi.Router) {
		r.Get("/", s.getBlackboard)
		r.Get("/{key}", s.getKey)
		r.Put("/{key}", s.putKey)
		r.Delete("/{key}", s.deleteKey)
	})
	r.Get("/events", s.getEvents)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("[HTTP] encoding response failed", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *server) getTree(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, TreeResponse{
		ID:     s.src.Tree().ID(),
		Status: s.src.Status().String(),
		Ticks:  s.src.Ticks(),
		Nodes:  s.src.Snapshot(),
	})
}

func (s *server) getTreeText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.src.Render(treeview.Styles{})+"\n")
}

func (s *server) haltTree(w http.ResponseWriter, r *http.Request) {
	if err := s.src.Halt(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) blackboard(w http.ResponseWriter) (*bt.Blackboard, bool) {
	bb := s.src.Blackboard()
	if bb == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no blackboard"))
		return nil, false
	}
	return bb, true
}

func (s *server) getBlackboard(w http.ResponseWriter, r *http.Request) {
	bb, ok := s.blackboard(w)
	if !ok {
		return
	}
	values, err := binding.ExportBlackboard(binding.JSON{}, bb)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		out[k] = v
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) getKey(w http.ResponseWriter, r *http.Request) {
	bb, ok := s.blackboard(w)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	v, ok := bb.Get(key)
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("key "+strconv.Quote(key)+" not set"))
		return
	}
	data, err := binding.JSON{}.Export(v)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *server) putKey(w http.ResponseWriter, r *http.Request) {
	bb, ok := s.blackboard(w)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := binding.ImportValue(binding.JSON{}, bb, key, data); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, bt.ErrLogic) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err)
		return
	}
	s.logger.Info("[HTTP] blackboard updated", "key", key)
	s.src.Tree().Wake()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) deleteKey(w http.ResponseWriter, r *http.Request) {
	bb, ok := s.blackboard(w)
	if !ok {
		return
	}
	bb.Delete(chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) getEvents(w http.ResponseWriter, r *http.Request) {
	if s.opts.Recorder == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no event recorder"))
		return
	}
	events := s.opts.Recorder.Events()
	if q := r.URL.Query().Get("limit"); q != "" {
		limit, err := strconv.Atoi(q)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("invalid limit "+strconv.Quote(q)))
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}
	out := make([]monitor.Record, len(events))
	for i, ev := range events {
		out[i] = monitor.NewRecord(ev)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Serve runs handler on addr until ctx is cancelled, then shuts down,
// allowing in-flight requests up to grace to finish.
func Serve(ctx context.Context, addr string, handler http.Handler, grace time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[HTTP] listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
