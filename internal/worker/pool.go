// Package worker implements the buffered worker pool that writes the
// prediction audit log. This decouples HTTP request handling from database
// writes, providing:
// - Backpressure handling via load shedding
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees
package worker

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/models"
)

// Prometheus metrics
var (
	eventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_events_ingested_total",
		Help: "Total number of prediction audit events accepted",
	})

	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_events_processed_total",
		Help: "Total number of prediction audit events written",
	})

	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_events_failed_total",
		Help: "Total number of prediction audit events that failed to write",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictor_audit_queue_depth",
		Help: "Current depth of the audit queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictor_audit_batch_insert_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})

	eventsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_audit_events_load_shed_total",
		Help: "Total number of audit events dropped due to load shedding",
	})
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS prediction_audit (
	served_at     DateTime64(3),
	batch_id      UUID,
	artifact_id   String,
	red_fighter   String,
	blue_fighter  String,
	weight_class  LowCardinality(String),
	winner        LowCardinality(String),
	confidence    Float64,
	prob_red      Float64,
	prob_blue     Float64
) ENGINE = MergeTree
ORDER BY (served_at, artifact_id)`

const auditInsert = `
	INSERT INTO prediction_audit (
		served_at, batch_id, artifact_id, red_fighter, blue_fighter,
		weight_class, winner, confidence, prob_red, prob_blue
	)`

// Job represents a unit of work for the worker pool
type Job struct {
	Event      *models.PredictionEvent
	EnqueuedAt time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages a pool of workers writing audit events
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
	stopOnce sync.Once
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   cfg.Logger.Sugar(),
	}
}

// EnsureSchema creates the audit table if needed
func (p *Pool) EnsureSchema(ctx context.Context) error {
	return p.config.ClickHouse.Exec(ctx, auditSchema)
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	// Start queue depth reporter
	go p.reportQueueDepth()

	p.logger.Infow("Audit pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop gracefully shuts down the worker pool, flushing queued events
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping audit pool...")
		close(p.jobQueue)
		p.wg.Wait()
		p.cancel()
		p.logger.Info("Audit pool stopped")
	})
}

// Enqueue adds an event to the queue. It never blocks: when the queue is
// full or the pool is stopping the event is dropped and false is returned.
func (p *Pool) Enqueue(event *models.PredictionEvent) (ok bool) {
	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue audit event (pool stopped)", "error", r)
			eventsLoadShed.Inc()
			ok = false
		}
	}()

	if p.ctx.Err() != nil {
		eventsLoadShed.Inc()
		return false
	}

	select {
	case p.jobQueue <- Job{Event: event, EnqueuedAt: time.Now()}:
		eventsIngested.Inc()
		return true
	default:
		eventsLoadShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker processes jobs from the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Audit batch failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			eventsFailed.Add(float64(len(batch)))
		} else {
			eventsProcessed.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				// Channel closed, flush remaining
				flush()
				return
			}
			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

// processBatch writes a batch of events in one insert
func (p *Pool) processBatch(batch []Job) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, auditInsert)
	if err != nil {
		return err
	}

	for _, job := range batch {
		ev := job.Event
		served := ev.ServedAt
		if served.IsZero() {
			served = job.EnqueuedAt
		}
		err := chBatch.Append(
			served,
			ev.BatchID,
			ev.ArtifactID,
			sanitizeName(ev.RedFighter),
			sanitizeName(ev.BlueFighter),
			ev.WeightClass,
			ev.Winner,
			ev.Confidence,
			ev.ProbRed,
			ev.ProbBlue,
		)
		if err != nil {
			p.logger.Warnw("Failed to append audit event to batch", "error", err, "artifact", ev.ArtifactID)
			continue
		}
	}

	return chBatch.Send()
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

// sanitizeName strips control characters and surrounding whitespace that
// upstream scrapes occasionally leave in fighter names.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
