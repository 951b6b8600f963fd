package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the pipeline's Prometheus instrumentation. All receivers
// are nil-safe so components can run unmetered.
type Metrics struct {
	filesDiscovered  prometheus.Counter
	filesDeclared    prometheus.Counter
	duplicateFiles   prometheus.Counter
	skippedFiles     prometheus.Counter
	heartbeats       prometheus.Counter
	filesTransferred prometheus.Counter
	copyFailures     prometheus.Counter
	cleanupFailures  prometheus.Counter
	workerFailures   *prometheus.CounterVec
	workerRespawns   *prometheus.CounterVec
	liveWorkers      *prometheus.GaugeVec
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		filesDiscovered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_files_discovered_total",
			Help: "Files enumerated by the discoverer and queued for declaration",
		}),
		filesDeclared: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_files_declared_total",
			Help: "Files freshly declared to the catalog",
		}),
		duplicateFiles: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_files_duplicate_total",
			Help: "Declarations the catalog reported as already existing",
		}),
		skippedFiles: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_files_skipped_total",
			Help: "Files skipped for missing or invalid metadata or a missing source",
		}),
		heartbeats: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_heartbeats_total",
			Help: "Heartbeat tokens forwarded to the transfer queue",
		}),
		filesTransferred: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_files_transferred_total",
			Help: "Files copied to the destination store (including already-present)",
		}),
		copyFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_copy_failures_total",
			Help: "Copies that returned a non-success status and were dropped",
		}),
		cleanupFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "declfast_cleanup_failures_total",
			Help: "Post-transfer deletions that failed and were tolerated",
		}),
		workerFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "declfast_worker_failures_total",
			Help: "Workers terminated by an unexpected error, by stage",
		}, []string{"stage"}),
		workerRespawns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "declfast_worker_respawns_total",
			Help: "Workers respawned by the supervisor, by stage",
		}, []string{"stage"}),
		liveWorkers: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "declfast_live_workers",
			Help: "Currently running workers, by stage",
		}, []string{"stage"}),
	}
}

func (m *Metrics) FileDiscovered() {
	if m == nil {
		return
	}
	m.filesDiscovered.Inc()
}

func (m *Metrics) FileDeclared() {
	if m == nil {
		return
	}
	m.filesDeclared.Inc()
}

func (m *Metrics) DuplicateFile() {
	if m == nil {
		return
	}
	m.duplicateFiles.Inc()
}

func (m *Metrics) FileSkipped() {
	if m == nil {
		return
	}
	m.skippedFiles.Inc()
}

func (m *Metrics) HeartbeatSent() {
	if m == nil {
		return
	}
	m.heartbeats.Inc()
}

func (m *Metrics) FileTransferred() {
	if m == nil {
		return
	}
	m.filesTransferred.Inc()
}

func (m *Metrics) CopyFailed() {
	if m == nil {
		return
	}
	m.copyFailures.Inc()
}

func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

func (m *Metrics) WorkerFailed(stage string) {
	if m == nil {
		return
	}
	m.workerFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) WorkerRespawned(stage string) {
	if m == nil {
		return
	}
	m.workerRespawns.WithLabelValues(stage).Inc()
}

func (m *Metrics) WorkerStarted(stage string) {
	if m == nil {
		return
	}
	m.liveWorkers.WithLabelValues(stage).Inc()
}

func (m *Metrics) WorkerStopped(stage string) {
	if m == nil {
		return
	}
	m.liveWorkers.WithLabelValues(stage).Dec()
}
