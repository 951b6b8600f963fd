// Package engine implements the two-stage declare/transfer pipeline: a
// discoverer feeding a declare queue, a pool of declare workers feeding a
// transfer queue, and a pool of transfer workers draining it. Workers are
// goroutines communicating exclusively through the two queues; each stops
// on its own once its queue stays empty for the configured timeout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/prodops/declfast/catalog"
	"github.com/prodops/declfast/naming"
	"github.com/prodops/declfast/store"
)

// Config tunes the pipeline. Zero fields fall back to the defaults the
// production workflow uses.
type Config struct {
	// SourceRoot is the directory tree to discover files under.
	SourceRoot string
	// DestBase is the logical destination registered with the catalog.
	DestBase string
	// CopyBase is the destination base path meaningful to the copy
	// service. For local destinations it equals DestBase; for object
	// stores it is the in-bucket prefix.
	CopyBase string

	Rules    naming.Rules
	Validate bool
	Delete   bool

	MaxDeclareWorkers  int
	MaxTransferWorkers int

	// MinBatchSize files must accumulate before another worker spawn
	// round, so small batches get few workers. The first file always
	// spawns one worker per pool.
	MinBatchSize int

	QueueDepth int

	DeclarePopTimeout  time.Duration
	TransferPopTimeout time.Duration

	// DeclareStartDelayMax spreads declare worker startups uniformly over
	// [0, max). TransferStartDelay is fixed and longer than the typical
	// declare delay so stage 2 starts polling after stage 1 has produced.
	DeclareStartDelayMax time.Duration
	TransferStartDelay   time.Duration

	// MaxRespawns bounds how many times the supervisor restarts a worker
	// that died on an unexpected error.
	MaxRespawns int

	// RequestsPerSecond caps each declare worker's catalog-request rate;
	// Smear staggers the enforced sleeps.
	RequestsPerSecond float64
	Smear             float64
}

func (c *Config) applyDefaults() {
	if c.MaxDeclareWorkers <= 0 {
		c.MaxDeclareWorkers = 4
	}
	if c.MaxTransferWorkers <= 0 {
		c.MaxTransferWorkers = 10
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = 10
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.DeclarePopTimeout <= 0 {
		c.DeclarePopTimeout = 10 * time.Second
	}
	if c.TransferPopTimeout <= 0 {
		c.TransferPopTimeout = 30 * time.Second
	}
	if c.DeclareStartDelayMax < 0 {
		c.DeclareStartDelayMax = 0
	}
	if c.TransferStartDelay < 0 {
		c.TransferStartDelay = 0
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5.0
	}
	if c.Smear < 1 {
		c.Smear = 1.1
	}
}

// Pipeline wires the discoverer and the two worker pools together. All
// collaborators are injected so tests can run against fakes.
type Pipeline struct {
	cfg     Config
	catalog catalog.Client
	builder catalog.MetadataBuilder
	copier  Copier
	journal store.Journal
	metrics *Metrics
	log     *slog.Logger

	counters Counters
	runID    string
	rnd      *rand.Rand

	declareWG  sync.WaitGroup
	transferWG sync.WaitGroup

	// Spawn bookkeeping, touched only on the discovery goroutine.
	nDeclare   int
	nTransfer  int
	sinceSpawn int
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithJournal records per-file outcomes in the given journal.
func WithJournal(j store.Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithMetrics publishes pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(cfg Config, cat catalog.Client, builder catalog.MetadataBuilder, copier Copier, opts ...Option) *Pipeline {
	cfg.applyDefaults()
	p := &Pipeline{
		cfg:     cfg,
		catalog: cat,
		builder: builder,
		copier:  copier,
		log:     slog.Default(),
		runID:   uuid.NewString(),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Counters exposes the live tallies, e.g. for a TUI.
func (p *Pipeline) Counters() *Counters {
	return &p.counters
}

// Run discovers files under the source root and drives them through both
// stages. It returns once discovery has finished and both pools have
// drained and exited. Discovery runs on the calling goroutine.
func (p *Pipeline) Run(ctx context.Context) error {
	declareQ := NewQueue[Item](p.cfg.QueueDepth)
	transferQ := NewQueue[Item](p.cfg.QueueDepth)

	disc := &Discoverer{
		Root:  p.cfg.SourceRoot,
		Rules: p.cfg.Rules,
		Queue: declareQ,
		Log:   p.log,
		OnFile: func(Item) {
			p.counters.Discovered.Add(1)
			p.metrics.FileDiscovered()

			p.sinceSpawn++
			if p.sinceSpawn > p.cfg.MinBatchSize || p.nDeclare == 0 {
				p.spawnRound(ctx, declareQ, transferQ)
				p.sinceSpawn = 0
			}
		},
	}

	walkErr := disc.Run(ctx)
	if walkErr != nil {
		p.log.Error("discovery stopped", "error", walkErr)
	}

	// Drain stage 1 fully before waiting on stage 2: the transfer queue
	// may still hold items the declare pool fed.
	p.declareWG.Wait()
	p.transferWG.Wait()

	p.counters.Done.Store(true)
	p.log.Info("pipeline done",
		"discovered", p.counters.Discovered.Load(),
		"declared", p.counters.Declared.Load(),
		"duplicates", p.counters.Duplicates.Load(),
		"skipped", p.counters.Skipped.Load(),
		"transferred", p.counters.Transferred.Load(),
		"copy_failed", p.counters.CopyFailed.Load(),
	)

	return walkErr
}

func (p *Pipeline) spawnRound(ctx context.Context, declareQ, transferQ *Queue[Item]) {
	if p.nDeclare < p.cfg.MaxDeclareWorkers {
		p.nDeclare++
		p.counters.DeclareSpawned.Add(1)
		p.log.Info("spawning declare worker", "worker", p.nDeclare)

		w := &DeclareWorker{
			ID:         p.nDeclare,
			In:         declareQ,
			Out:        transferQ,
			Catalog:    p.catalog,
			Builder:    p.builder,
			Limiter:    NewRateLimiter(p.cfg.RequestsPerSecond, p.cfg.Smear),
			Rules:      p.cfg.Rules,
			SourceRoot: p.cfg.SourceRoot,
			DestBase:   p.cfg.DestBase,
			Validate:   p.cfg.Validate,
			RunID:      p.runID,
			PopTimeout: p.cfg.DeclarePopTimeout,
			StartDelay: p.randomDelay(p.cfg.DeclareStartDelayMax),
			Journal:    p.journal,
			Counters:   &p.counters,
			Metrics:    p.metrics,
			Log:        p.log,
		}
		p.startWorker(ctx, "declare", &p.declareWG, &p.counters.DeclareLive, w.Run)
	}

	if p.nTransfer < p.cfg.MaxTransferWorkers {
		p.nTransfer++
		p.counters.TransferSpawned.Add(1)
		p.log.Info("spawning transfer worker", "worker", p.nTransfer)

		w := &TransferWorker{
			ID:         p.nTransfer,
			In:         transferQ,
			Copier:     p.copier,
			Rules:      p.cfg.Rules,
			SourceRoot: p.cfg.SourceRoot,
			CopyBase:   p.cfg.CopyBase,
			Delete:     p.cfg.Delete,
			RunID:      p.runID,
			PopTimeout: p.cfg.TransferPopTimeout,
			StartDelay: p.cfg.TransferStartDelay,
			Journal:    p.journal,
			Counters:   &p.counters,
			Metrics:    p.metrics,
			Log:        p.log,
		}
		p.startWorker(ctx, "transfer", &p.transferWG, &p.counters.TransferLive, w.Run)
	}
}

func (p *Pipeline) randomDelay(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(p.rnd.Int63n(int64(max)))
}

// startWorker runs a worker under supervision: a worker that returns an
// unexpected error (or panics) is restarted up to MaxRespawns times, with
// the loss surfaced as a metric rather than silently degraded capacity.
func (p *Pipeline) startWorker(ctx context.Context, stage string, wg *sync.WaitGroup, live *atomic.Int64, run func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		live.Add(1)
		p.metrics.WorkerStarted(stage)
		defer func() {
			live.Add(-1)
			p.metrics.WorkerStopped(stage)
		}()

		for attempt := 0; ; attempt++ {
			err := runGuarded(ctx, run)
			if err == nil {
				return
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}

			p.log.Error("worker terminated unexpectedly", "stage", stage, "error", err)
			p.metrics.WorkerFailed(stage)

			if ctx.Err() != nil || attempt >= p.cfg.MaxRespawns {
				return
			}
			p.log.Info("respawning worker", "stage", stage, "attempt", attempt+1)
			p.metrics.WorkerRespawned(stage)
		}
	}()
}

func runGuarded(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return run(ctx)
}

// RunSingle declares and copies one file synchronously, without spawning
// any workers. A duplicate declaration is logged and the copy still
// attempted, matching the pipeline's treatment.
func (p *Pipeline) RunSingle(ctx context.Context, path string) error {
	root := filepath.Dir(path)
	item := Item{
		Source:     path,
		PublicName: p.cfg.Rules.PublicName(path),
		Virtual:    p.cfg.Rules.IsVirtual(path),
	}

	meta, err := p.builder.Build(item.Source, !item.Virtual)
	if err != nil {
		return err
	}

	if p.cfg.Validate {
		if err := p.catalog.Validate(ctx, meta); err != nil {
			return err
		}
	}

	err = p.catalog.Declare(ctx, meta)
	switch {
	case err == nil:
		p.log.Info("declared file", "path", path, "name", item.PublicName)
		if !item.Virtual {
			if err := p.catalog.AddLocation(ctx, item.PublicName, p.cfg.DestBase); err != nil {
				return err
			}
		}
	case errors.Is(err, catalog.ErrFileExists):
		p.log.Warn("file already declared", "path", path)
	default:
		return err
	}

	if item.Virtual {
		p.log.Info("not transferring virtual file", "path", path)
		if p.cfg.Delete {
			// The sidecar is spent once the declaration lands, even
			// though the payload never moves.
			sidecar := p.cfg.Rules.SidecarPath(path)
			if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
				p.log.Warn("failed to remove metadata sidecar", "sidecar", sidecar, "error", err)
			}
		}
		return nil
	}

	dst, err := p.cfg.Rules.DestPath(item.Source, root, p.cfg.CopyBase)
	if err != nil {
		return err
	}

	status, err := p.copier.Copy(ctx, item.Source, dst)
	if status != copyStatusOK && status != copyStatusExists {
		return fmt.Errorf("transfer of %s failed with status %d: %w", path, status, err)
	}
	p.log.Info("transfer finished", "path", path, "status", status)

	if p.cfg.Delete {
		w := &TransferWorker{Rules: p.cfg.Rules, Metrics: p.metrics, Log: p.log}
		w.cleanup(p.log, item)
	}

	return nil
}
