package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitepipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	taskDuration    *prom.HistogramVec
	taskRuns        *prom.CounterVec
	cacheLookups    *prom.CounterVec
	watchEvents     *prom.CounterVec
	reloads         prom.Counter
	liveReloadConns prom.Gauge
}

// NewPrometheusRecorder constructs and registers the pipeline metrics on
// reg, or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of individual task runs",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Task runs by outcome",
		}, []string{"task", "status"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "image_cache_lookups_total",
			Help:      "Image cache lookups by result",
		}, []string{"result"}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "File events matched per watch category",
		}, []string{"category"}),
		reloads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reload_broadcasts_total",
			Help:      "Reload signals sent to browsers",
		}),
		liveReloadConns: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskRuns, pr.cacheLookups, pr.watchEvents, pr.reloads, pr.liveReloadConns)
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return pr
}

// Registry returns the registry the recorder's collectors live in.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return HTTPHandler(p.registry)
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskRuns.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	p.cacheLookups.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncWatchEvent(category string) {
	if p == nil {
		return
	}
	p.watchEvents.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) IncReloadBroadcast() {
	if p == nil {
		return
	}
	p.reloads.Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil {
		return
	}
	p.liveReloadConns.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
