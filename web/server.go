// ABOUTME: JSON HTTP API over the entity cache, lead workflow, and activity feed
// ABOUTME: Serves Prometheus metrics and refreshes the cache on a cron schedule
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/metrics"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

// Deps is what the server runs against. Metrics may be nil.
type Deps struct {
	Cache           *store.Cache
	Engine          *workflow.Engine
	FeedOptions     feed.Options
	Metrics         *metrics.Metrics
	Log             logrus.FieldLogger
	RefreshSchedule string
}

type Server struct {
	cache    *store.Cache
	engine   *workflow.Engine
	feedOpts feed.Options
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	cron     *cron.Cron
	mux      *http.ServeMux
}

// NewServer wires routes and schedules the cache refresh. An empty schedule disables it.
func NewServer(d Deps) (*Server, error) {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}

	s := &Server{
		cache:    d.Cache,
		engine:   d.Engine,
		feedOpts: d.FeedOptions,
		metrics:  d.Metrics,
		log:      d.Log.WithField("component", "web"),
		cron:     cron.New(),
		mux:      http.NewServeMux(),
	}

	if d.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(d.RefreshSchedule, s.refresh); err != nil {
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", d.RefreshSchedule, err)
		}
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.handle("GET /api/feed", s.handleFeed)
	s.handle("GET /api/dashboard", s.handleDashboard)
	s.handle("GET /api/reconciliations", s.handleReconciliations)
	s.handle("POST /api/reconciliations/{id}/resolve", s.handleResolve)

	s.handle("POST /api/leads/{id}/qualify", s.handleQualify)
	s.handle("POST /api/leads/{id}/convert", s.handleConvert)
	s.handle("POST /api/leads/{id}/lost", s.handleLost)

	s.handle("GET /api/{table}", s.handleList)
	s.handle("POST /api/{table}", s.handleCreate)
	s.handle("GET /api/{table}/{id}", s.handleGet)
	s.handle("PATCH /api/{table}/{id}", s.handleUpdate)
	s.handle("DELETE /api/{table}/{id}", s.handleDelete)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	var h http.Handler = fn
	if s.metrics != nil {
		h = s.metrics.Middleware(pattern, h)
	}
	s.mux.Handle(pattern, h)
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.mux.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

// refresh reloads every cached collection. Failures are logged and counted.
func (s *Server) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.cache.Refresh(ctx)
	s.metrics.RecordCacheRefresh(err == nil)
	if err != nil {
		s.log.WithError(err).Warn("scheduled cache refresh failed")
		return
	}
	s.log.Debug("cache refreshed")
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.cron.Start()
	defer s.cron.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}
