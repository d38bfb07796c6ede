// Package metrics provides Prometheus-based metrics collection for portscout.
// The engine records scan, job and probe metrics into a private registry that
// the CLI can export as a node-exporter textfile once a scan completes.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all portscout metrics
	namespace = "portscout"

	// Subsystems
	subsystemScan   = "scan"
	subsystemProbe  = "probe"
	subsystemPool   = "pool"
	subsystemSystem = "system"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	scanErrors   *prometheus.CounterVec
	portsScanned *prometheus.CounterVec
	activeScans  prometheus.Gauge

	// Probe metrics
	probeDuration *prometheus.HistogramVec
	probeErrors   *prometheus.CounterVec

	// Worker pool metrics
	poolWorkers   prometheus.Gauge
	jobsSubmitted prometheus.Counter
	jobsCompleted *prometheus.CounterVec

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	startTime time.Time
	mu        sync.Mutex
	registry  *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initPoolMetrics()
	pm.initSystemMetrics()
	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initScanMetrics initializes scan-related metrics
func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scans performed by type and status",
		},
		[]string{"scan_type", "status"},
	)

	pm.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of scan operations in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
		},
		[]string{"scan_type"},
	)

	pm.scanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "errors_total",
			Help:      "Total number of rejected or aborted scans, by error code",
		},
		[]string{"scan_type", "error_type"},
	)

	pm.portsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "ports_total",
			Help:      "Total number of ports scanned by resulting status",
		},
		[]string{"scan_type", "port_status"},
	)

	pm.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of currently active scans",
		},
	)
}

// initProbeMetrics initializes per-probe metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Latency of individual port probes",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"scan_type"},
	)

	pm.probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "errors_total",
			Help:      "Probe errors contained by the engine",
		},
		[]string{"scan_type"},
	)
}

// initPoolMetrics initializes worker pool metrics
func (pm *PrometheusMetrics) initPoolMetrics() {
	pm.poolWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemPool,
			Name:      "workers",
			Help:      "Number of workers in the most recently started pool",
		},
	)

	pm.jobsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPool,
			Name:      "jobs_submitted_total",
			Help:      "Jobs queued on the worker pool",
		},
	)

	pm.jobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPool,
			Name:      "jobs_completed_total",
			Help:      "Jobs finished by the worker pool, by outcome",
		},
		[]string{"status"},
	)
}

// initSystemMetrics initializes system-level metrics
func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "memory_bytes",
			Help:      "Current memory usage in bytes",
		},
	)

	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.scanErrors,
		pm.portsScanned,
		pm.activeScans,
		pm.probeDuration,
		pm.probeErrors,
		pm.poolWorkers,
		pm.jobsSubmitted,
		pm.jobsCompleted,
		pm.memoryUsage,
		pm.goroutines,
		pm.uptime,
	)
}

// GetRegistry returns the Prometheus registry backing these metrics.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Scan Metrics Methods

// IncrementScansTotal increments the total scan counter
func (pm *PrometheusMetrics) IncrementScansTotal(scanType, status string) {
	pm.scansTotal.WithLabelValues(scanType, status).Inc()
}

// RecordScanDuration records a scan duration
func (pm *PrometheusMetrics) RecordScanDuration(scanType string, duration time.Duration) {
	pm.scanDuration.WithLabelValues(scanType).Observe(duration.Seconds())
}

// IncrementScanErrors increments scan error counter
func (pm *PrometheusMetrics) IncrementScanErrors(scanType, errorType string) {
	pm.scanErrors.WithLabelValues(scanType, errorType).Inc()
}

// IncrementPortsScanned increments ports scanned counter
func (pm *PrometheusMetrics) IncrementPortsScanned(scanType, status string, count int) {
	pm.portsScanned.WithLabelValues(scanType, status).Add(float64(count))
}

// AddActiveScans adjusts the active scan gauge by delta.
func (pm *PrometheusMetrics) AddActiveScans(delta int) {
	pm.activeScans.Add(float64(delta))
}

// Probe Metrics Methods

// RecordProbeDuration records the latency of one probe.
func (pm *PrometheusMetrics) RecordProbeDuration(scanType string, duration time.Duration) {
	pm.probeDuration.WithLabelValues(scanType).Observe(duration.Seconds())
}

// IncrementProbeErrors counts a probe error the engine absorbed.
func (pm *PrometheusMetrics) IncrementProbeErrors(scanType string) {
	pm.probeErrors.WithLabelValues(scanType).Inc()
}

// Pool Metrics Methods

// SetPoolWorkers records the size of a started pool.
func (pm *PrometheusMetrics) SetPoolWorkers(count int) {
	pm.poolWorkers.Set(float64(count))
}

// IncrementJobsSubmitted counts a queued job.
func (pm *PrometheusMetrics) IncrementJobsSubmitted() {
	pm.jobsSubmitted.Inc()
}

// IncrementJobsCompleted counts a finished job by status ("success", "panic", "skipped").
func (pm *PrometheusMetrics) IncrementJobsCompleted(status string) {
	pm.jobsCompleted.WithLabelValues(status).Inc()
}

// UpdateSystemMetrics updates all system metrics with current values
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pm.memoryUsage.Set(float64(memStats.Alloc))
	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(pm.GetUptime().Seconds())
}

// GetUptime returns the application uptime
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// WriteTextfile refreshes system metrics and writes everything in the
// Prometheus text format to path, for pickup by a node exporter.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	pm.UpdateSystemMetrics()
	return prometheus.WriteToTextfile(path, pm.registry)
}
