package scanning

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	scanerrors "github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/metrics"
	"github.com/anstrom/portscout/internal/services"
	"github.com/anstrom/portscout/internal/target"
	"github.com/anstrom/portscout/internal/workers"
)

const jobType = "probe"

// Engine runs scans: one job per port over a bounded worker pool, then
// aggregation into a Report.
type Engine struct {
	registry   Registry
	classifier *services.Classifier
	privileged PrivilegeFunc
	metrics    *metrics.PrometheusMetrics
	logger     *logging.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRegistry replaces the scan type to prober mapping.
func WithRegistry(r Registry) EngineOption {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithClassifier replaces the service classifier.
func WithClassifier(c *services.Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithPrivilegeCheck replaces the raw socket privilege check.
func WithPrivilegeCheck(fn PrivilegeFunc) EngineOption {
	return func(e *Engine) {
		e.privileged = fn
	}
}

// WithMetrics records scan metrics into m.
func WithMetrics(m *metrics.PrometheusMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine with the built-in probers and classifier.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		registry:   DefaultRegistry(),
		classifier: services.NewClassifier(),
		privileged: HasRawSocketPrivilege,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("engine")
	return e
}

// Run scans ports on tgt. Pre-flight failures (bad options, missing privilege
// or capability) are returned before any job is dispatched. Once dispatch
// starts Run returns a report: per-port failures are recorded as closed, and
// if ctx is cancelled the ports not fully probed are recorded as filtered and
// the report is marked interrupted. A fatal error from a job, such as nmap
// refusing to run without privileges, aborts the scan and is returned instead.
func (e *Engine) Run(ctx context.Context, tgt target.Target, ports []uint16, opts Options) (*Report, error) {
	prober, err := e.preflight(ctx, opts)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncrementScanErrors(string(opts.ScanType), string(scanerrors.GetCode(err)))
			e.metrics.IncrementScansTotal(string(opts.ScanType), "rejected")
		}
		return nil, err
	}

	scanID := uuid.New().String()
	log := e.logger.WithScanID(scanID).WithTarget(tgt.String())
	pool := workers.New(workers.Config{
		Size:      opts.Workers,
		RateLimit: opts.RateLimit,
		Burst:     1,
	}, workers.WithMetrics(e.metrics))

	log.Info("Starting scan",
		"scan_type", opts.ScanType,
		"port_count", len(ports),
		"workers", pool.WorkersFor(len(ports)),
		"timeout", opts.Timeout)

	if e.metrics != nil {
		e.metrics.AddActiveScans(1)
		defer e.metrics.AddActiveScans(-1)
	}

	start := time.Now()
	agg := NewAggregator(len(ports))

	// A fatal job error stops dispatch; the remaining jobs are skipped.
	runCtx, abort := context.WithCancel(ctx)
	defer abort()
	var (
		fatalOnce sync.Once
		fatal     error
	)

	jobs := make([]workers.Job, len(ports))
	for i, port := range ports {
		job := Job{Port: port, ScanType: opts.ScanType}
		jobs[i] = workers.NewFuncJob(strconv.Itoa(int(port)), jobType, func(ctx context.Context) error {
			res, err := e.probe(ctx, prober, tgt, job, opts)
			agg.Record(res)
			if scanerrors.IsFatal(err) {
				fatalOnce.Do(func() {
					fatal = err
					abort()
				})
			}
			return err
		})
	}

	skipped := 0
	for _, r := range pool.Run(runCtx, jobs) {
		port := ports[r.Index]
		switch r.Status {
		case workers.StatusPanic:
			// The job died before recording; it still owes a result.
			agg.Record(Result{Port: port, Protocol: opts.ScanType.Protocol(), Status: StatusClosed})
		case workers.StatusSkipped:
			skipped++
			agg.Record(Result{Port: port, Protocol: opts.ScanType.Protocol(), Status: StatusFiltered})
		case workers.StatusError:
			if scanerrors.IsCode(r.Error, scanerrors.CodeCanceled) {
				skipped++
				continue
			}
			log.DebugProbe("Probe error recorded as closed", port, "error", r.Error)
		}
	}

	if fatal != nil {
		if e.metrics != nil {
			e.metrics.IncrementScanErrors(string(opts.ScanType), string(scanerrors.GetCode(fatal)))
			e.metrics.IncrementScansTotal(string(opts.ScanType), "aborted")
		}
		log.WithError(fatal).Error("Scan aborted", "duration", time.Since(start))
		return nil, fatal
	}

	end := time.Now()
	open, closed, filtered := agg.Counts()
	report := &Report{
		ScanID:      scanID,
		Target:      tgt.String(),
		Address:     tgt.Address.String(),
		ScanType:    opts.ScanType,
		TotalPorts:  len(ports),
		OpenPorts:   open,
		Verbose:     opts.Verbose,
		Interrupted: skipped > 0,
		Results:     agg.Results(opts.Verbose),
		StartTime:   start,
		EndTime:     end,
		Duration:    end.Sub(start),
	}

	e.recordScan(report, agg)

	if skipped > 0 {
		log.Warn("Scan interrupted, unprobed ports recorded as filtered",
			"skipped", skipped,
			"total", len(ports))
	}
	log.Info("Scan completed",
		"open", open,
		"closed", closed,
		"filtered", filtered,
		"duration", report.Duration)

	return report, nil
}

// preflight validates options and checks privilege then capability.
func (e *Engine) preflight(ctx context.Context, opts Options) (Prober, error) {
	if err := opts.Validate(); err != nil {
		return nil, scanerrors.WrapScanError(scanerrors.CodeValidation, "invalid scan options", err)
	}

	prober, err := e.registry.Prober(opts.ScanType)
	if err != nil {
		return nil, scanerrors.WrapScanError(scanerrors.CodeValidation, "invalid scan options", err)
	}

	if err := CheckPrivilege(opts.ScanType, e.privileged); err != nil {
		return nil, err
	}

	if pf, ok := prober.(Preflighter); ok {
		if err := pf.Preflight(ctx); err != nil {
			if scanerrors.GetCode(err) == scanerrors.CodeUnknown {
				err = scanerrors.ErrCapabilityUnavailable(string(opts.ScanType), err)
			}
			return nil, err
		}
	}
	return prober, nil
}

// probe runs one job: the strategy, then banner and service labelling for
// open ports. It always returns a result. A probe error degrades it to
// closed, while cancellation or a fatal error leaves it filtered.
func (e *Engine) probe(ctx context.Context, prober Prober, tgt target.Target, job Job, opts Options) (Result, error) {
	deadline := time.Now().Add(opts.Timeout)
	res := Result{Port: job.Port, Protocol: job.ScanType.Protocol()}

	out, err := prober.Probe(ctx, tgt.Address, job.Port, opts.Timeout)
	res.Latency = out.Latency
	if out.Conn != nil {
		defer out.Conn.Close()
	}
	if e.metrics != nil {
		e.metrics.RecordProbeDuration(string(job.ScanType), out.Latency)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (err != nil || out.Status == StatusFiltered) {
		// Cut short by cancellation; the port's state is unknown.
		res.Status = StatusFiltered
		return res, scanerrors.WrapScanError(scanerrors.CodeCanceled, "port scan interrupted", ctxErr).
			WithContext("port", job.Port)
	}
	if err != nil {
		if scanerrors.IsFatal(err) {
			res.Status = StatusFiltered
			return res, err
		}
		if e.metrics != nil {
			e.metrics.IncrementProbeErrors(string(job.ScanType))
		}
		res.Status = StatusClosed
		return res, scanerrors.ErrProbe(tgt.String(), job.Port, err)
	}

	res.Status = out.Status
	if res.Status != StatusOpen {
		return res, nil
	}

	if opts.GrabBanner && out.Conn != nil {
		banner, berr := services.GrabBanner(out.Conn, deadline)
		if berr != nil {
			e.logger.DebugProbe("Banner read failed", job.Port, "error", berr)
		}
		res.Banner = banner
	}
	if opts.DetectService || opts.GrabBanner {
		res.Service = e.classifier.Classify(job.Port, res.Banner)
	}
	return res, nil
}

func (e *Engine) recordScan(report *Report, agg *Aggregator) {
	if e.metrics == nil {
		return
	}
	scanType := string(report.ScanType)
	status := "completed"
	if report.Interrupted {
		status = "interrupted"
	}
	e.metrics.IncrementScansTotal(scanType, status)
	e.metrics.RecordScanDuration(scanType, report.Duration)
	for s, n := range agg.StatusCounts(report.Verbose) {
		e.metrics.IncrementPortsScanned(scanType, string(s), n)
	}
}
