// pkg/notify/metrics/metrics.go
//
// Package metrics exposes sync events as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeepinbird/autoftp/pkg/notify"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

const namespace = "autoftp"

// Observer counts events on the registry it was created with.
type Observer struct {
	connections    prometheus.Counter
	disconnections prometheus.Counter
	connected      prometheus.Gauge
	errors         prometheus.Counter
	filesSelected  prometheus.Counter
	bytesSelected  prometheus.Counter
	downloads      *prometheus.CounterVec
	inProgress     prometheus.Gauge
	lastDownload   prometheus.Gauge
	cycleDuration  prometheus.Histogram
	cyclesSkipped  prometheus.Counter
	now            func() time.Time
}

var _ notify.Observer = (*Observer)(nil)

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		connections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Sessions opened to the remote host",
		}),
		disconnections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnections_total",
			Help:      "Sessions closed cleanly",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while a session to the remote host is open",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors reported by sync cycles",
		}),
		filesSelected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_selected_total",
			Help:      "Files that passed the filters",
		}),
		bytesSelected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_selected_total",
			Help:      "Reported size of files that passed the filters",
		}),
		downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Downloads by stage",
		}, []string{"stage"}),
		inProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "downloads_in_progress",
			Help:      "Downloads started but not yet finished",
		}),
		lastDownload: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_download_timestamp_seconds",
			Help:      "Unix time of the last finished download",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a sync cycle",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		cyclesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Scheduled cycles skipped because the previous one was still running",
		}),
		now: time.Now,
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (o *Observer) OnConnect() error {
	o.connections.Inc()
	o.connected.Set(1)
	return nil
}

func (o *Observer) OnDisconnect() error {
	o.disconnections.Inc()
	o.connected.Set(0)
	return nil
}

func (o *Observer) OnFilesSelected(files []remote.File) error {
	o.filesSelected.Add(float64(len(files)))
	for _, f := range files {
		if f.Size > 0 {
			o.bytesSelected.Add(float64(f.Size))
		}
	}
	return nil
}

func (o *Observer) OnError(string) error {
	o.errors.Inc()
	return nil
}

func (o *Observer) OnDownloadStarted(string) error {
	o.downloads.WithLabelValues("started").Inc()
	o.inProgress.Inc()
	return nil
}

func (o *Observer) OnDownloadFinished(string) error {
	o.downloads.WithLabelValues("finished").Inc()
	o.inProgress.Dec()
	o.lastDownload.Set(float64(o.now().Unix()))
	return nil
}

// CycleFinished records how long a cycle took and resets the per-cycle gauges.
func (o *Observer) CycleFinished(d time.Duration) {
	o.cycleDuration.Observe(d.Seconds())
	o.inProgress.Set(0)
	o.connected.Set(0)
}

// CycleSkipped counts a scheduled cycle that did not run.
func (o *Observer) CycleSkipped() {
	o.cyclesSkipped.Inc()
}
