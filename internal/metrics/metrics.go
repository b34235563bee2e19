// Package metrics exposes prometheus collectors for the API server.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// TaskCounter is the slice of the task store the gauges need.
type TaskCounter interface {
	CountByStatus(ctx context.Context) ([]repository.StatusCount, error)
	CountOverdue(ctx context.Context, before time.Time) (int64, error)
}

type Registry struct {
	reg             *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	tasksByStatus   *prometheus.GaugeVec
	tasksOverdue    prometheus.Gauge
}

// NewRegistry builds a private registry. db may be nil, in which case pool
// statistics are not exported.
func NewRegistry(db *sql.DB) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: []float64{.05, .1, .2, .3, .4, .5, 1, 2},
		}, []string{"method", "route", "code"}),
		tasksByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tasks",
			Help: "Number of stored tasks by status.",
		}, []string{"status"}),
		tasksOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasks_overdue",
			Help: "Unfinished tasks whose due date has passed.",
		}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestDuration,
		r.tasksByStatus,
		r.tasksOverdue,
	)
	if db != nil {
		r.reg.MustRegister(collectors.NewDBStatsCollector(db, "tasks"))
	}
	return r
}

// Handler serves the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Middleware records request latency labelled by the matched chi route pattern.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.requestDuration.WithLabelValues(req.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// RefreshTaskGauges recomputes the task gauges from the store.
func (r *Registry) RefreshTaskGauges(ctx context.Context, counter TaskCounter, now time.Time) error {
	counts, err := counter.CountByStatus(ctx)
	if err != nil {
		return err
	}
	for _, s := range []model.TaskStatus{model.StatusPending, model.StatusInProgress, model.StatusCompleted} {
		r.tasksByStatus.WithLabelValues(string(s)).Set(0)
	}
	for _, c := range counts {
		r.tasksByStatus.WithLabelValues(string(c.Status)).Set(float64(c.Count))
	}

	y, m, d := now.UTC().Date()
	overdue, err := counter.CountOverdue(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return err
	}
	r.tasksOverdue.Set(float64(overdue))
	return nil
}
