// Package workers provides a bounded worker pool for running a fixed batch of
// jobs concurrently in portscout. The queue is filled once up front, each
// worker pulls one job at a time, and every job runs exactly once. It supports
// dispatch rate limiting, cancellation of queued work, and panic containment,
// and integrates with the structured logging and metrics systems.
package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/metrics"
)

const (
	// DefaultSize is the worker count used when none is configured.
	DefaultSize = 50
	// MaxSize is the hard cap on workers regardless of configuration.
	MaxSize = 500
	// SequentialThreshold is the job count at or below which the batch runs
	// on the calling goroutine.
	SequentialThreshold = 10
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Status describes how a job left the pool.
type Status string

const (
	// StatusSuccess means Execute returned nil.
	StatusSuccess Status = "success"
	// StatusError means Execute returned an error.
	StatusError Status = "error"
	// StatusPanic means Execute panicked and the panic was recovered.
	StatusPanic Status = "panic"
	// StatusSkipped means the job was never started because the context ended.
	StatusSkipped Status = "skipped"
)

// Result represents the outcome of one job. Exactly one Result is produced per
// submitted job.
type Result struct {
	JobID    string
	JobType  string
	Status   Status
	Error    error
	Duration time.Duration
	// Index is the job's position in the submitted batch.
	Index int
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the requested number of workers. Zero means DefaultSize and
	// anything above MaxSize is clamped.
	Size int
	// RateLimit is the maximum number of job starts per second (0 = no limit).
	RateLimit float64
	// Burst is the number of jobs that may start back to back under RateLimit.
	Burst int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:      DefaultSize,
		RateLimit: 0,
		Burst:     1,
	}
}

// Pool runs batches of jobs with bounded parallelism. A Pool may run any
// number of batches, one after another or concurrently.
type Pool struct {
	config  Config
	limiter *rate.Limiter
	metrics *metrics.PrometheusMetrics
}

// Option configures a Pool.
type Option func(*Pool)

// WithMetrics records pool activity into m.
func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// New creates a new worker pool with the given configuration.
func New(config Config, opts ...Option) *Pool {
	if config.Size <= 0 {
		config.Size = DefaultSize
	}
	if config.Size > MaxSize {
		config.Size = MaxSize
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	pool := &Pool{config: config}
	if config.RateLimit > 0 {
		pool.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst)
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Size returns the effective configured worker count.
func (p *Pool) Size() int {
	return p.config.Size
}

// WorkersFor returns how many workers a batch of n jobs gets.
func (p *Pool) WorkersFor(n int) int {
	return min(p.config.Size, n)
}

// batch is the state shared by the workers of one Run call.
type batch struct {
	pool    *Pool
	queue   chan indexedJob
	mu      sync.Mutex
	results []Result
}

type indexedJob struct {
	index int
	job   Job
}

// Run executes every job exactly once and returns one Result per job, in
// completion order. It returns after all workers have exited. Cancelling ctx
// stops dispatch: queued jobs that have not started come back as
// StatusSkipped, and in-flight jobs see the cancelled context.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	b := &batch{
		pool:    p,
		queue:   make(chan indexedJob, len(jobs)),
		results: make([]Result, 0, len(jobs)),
	}

	// The queue is filled once and then only drained.
	for i, job := range jobs {
		b.queue <- indexedJob{index: i, job: job}
		if p.metrics != nil {
			p.metrics.IncrementJobsSubmitted()
		}
	}
	close(b.queue)

	workers := p.WorkersFor(len(jobs))
	if workers == 0 {
		return b.results
	}
	if p.metrics != nil {
		p.metrics.SetPoolWorkers(workers)
	}

	if len(jobs) <= SequentialThreshold {
		logging.Debug("Running jobs sequentially", "job_count", len(jobs))
		b.work(ctx, 0)
		return b.results
	}

	logging.Debug("Starting worker pool",
		"worker_count", workers,
		"job_count", len(jobs),
		"rate_limit", p.config.RateLimit)

	var g errgroup.Group
	for id := 0; id < workers; id++ {
		g.Go(func() error {
			b.work(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	logging.Debug("Worker pool drained", "job_count", len(jobs))
	return b.results
}

// work is the worker loop: pull, gate, execute, record.
func (b *batch) work(ctx context.Context, workerID int) {
	for item := range b.queue {
		if err := b.gate(ctx); err != nil {
			b.record(Result{
				JobID:   item.job.ID(),
				JobType: item.job.Type(),
				Status:  StatusSkipped,
				Error:   err,
				Index:   item.index,
			})
			continue
		}
		b.record(b.execute(ctx, workerID, item))
	}
}

// gate blocks until the job may start, or returns the context error.
func (b *batch) gate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.pool.limiter != nil {
		return b.pool.limiter.Wait(ctx)
	}
	return nil
}

// execute runs a single job once, containing any panic.
func (b *batch) execute(ctx context.Context, workerID int, item indexedJob) (result Result) {
	job := item.job
	start := time.Now()
	result = Result{
		JobID:   job.ID(),
		JobType: job.Type(),
		Index:   item.index,
	}

	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Status = StatusPanic
			result.Error = fmt.Errorf("job panicked: %v", r)
			logging.Error("Job panicked",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"worker_id", workerID,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	if err := job.Execute(ctx); err != nil {
		result.Status = StatusError
		result.Error = err
		logging.Debug("Job failed",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"worker_id", workerID,
			"error", err)
		return result
	}

	result.Status = StatusSuccess
	return result
}

// record appends to the batch results. Writes are append-only.
func (b *batch) record(r Result) {
	b.mu.Lock()
	b.results = append(b.results, r)
	b.mu.Unlock()

	if b.pool.metrics != nil {
		b.pool.metrics.IncrementJobsCompleted(string(r.Status))
	}
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

// NewFuncJob creates a job that runs fn.
func NewFuncJob(id, jobType string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{
		id:      id,
		jobType: jobType,
		fn:      fn,
	}
}

// Execute implements the Job interface.
func (j *FuncJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}

// ID implements the Job interface.
func (j *FuncJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *FuncJob) Type() string {
	return j.jobType
}
