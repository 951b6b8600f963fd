package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/prodops/declfast/catalog"
	"github.com/prodops/declfast/naming"
	"github.com/prodops/declfast/store"
)

// DeclareWorker pulls discovered files from the declare queue, registers
// them with the catalog and forwards registered files to the transfer
// queue. It exits when the queue stays empty for PopTimeout.
//
// Anticipated per-item failures (missing or invalid metadata, missing
// source, duplicate declaration) are logged and never stop the worker; any
// other error terminates it.
type DeclareWorker struct {
	ID      int
	In      *Queue[Item]
	Out     *Queue[Item]
	Catalog catalog.Client
	Builder catalog.MetadataBuilder
	Limiter *RateLimiter

	Rules      naming.Rules
	SourceRoot string
	DestBase   string
	Validate   bool
	RunID      string

	PopTimeout time.Duration
	StartDelay time.Duration

	Journal  store.Journal
	Counters *Counters
	Metrics  *Metrics
	Log      *slog.Logger
}

// Run executes the worker loop until the queue stays empty for PopTimeout
// or an unexpected error occurs.
func (w *DeclareWorker) Run(ctx context.Context) error {
	if !sleepCtx(ctx, w.StartDelay) {
		return ctx.Err()
	}

	log := w.Log.With("stage", "declare", "worker", w.ID)
	log.Info("declare worker start")

	var declared, skipped int
	for {
		item, ok := w.In.Pop(w.PopTimeout)
		if !ok {
			break
		}

		log.Debug("got item", "path", item.Source)

		if err := w.handle(ctx, log, item, &declared, &skipped); err != nil {
			log.Info("declare worker end", "declared", declared, "skipped", skipped)
			return err
		}

		// Rate limit after every attempt, successful or not.
		w.Limiter.Wait()
	}

	log.Info("declare worker end", "declared", declared, "skipped", skipped)
	return nil
}

func (w *DeclareWorker) handle(ctx context.Context, log *slog.Logger, item Item, declared, skipped *int) error {
	locationDir, err := w.Rules.LocationDir(item.Source, w.SourceRoot, w.DestBase)
	if err != nil {
		return fmt.Errorf("failed to resolve destination for %s: %w", item.Source, err)
	}

	err = w.declareOne(ctx, item, locationDir)

	switch {
	case err == nil:
		log.Info("declared file", "path", item.Source, "name", item.PublicName)
		*declared++
		w.Counters.Declared.Add(1)
		w.Metrics.FileDeclared()
		w.record(item, locationDir, store.StateDeclared, "")
		return w.forward(ctx, log, item)

	case errors.Is(err, catalog.ErrFileExists):
		// Already declared, but possibly not yet transferred: forward anyway.
		log.Warn("skipping file, already declared", "path", item.Source)
		*skipped++
		w.Counters.Duplicates.Add(1)
		w.Metrics.DuplicateFile()
		return w.forward(ctx, log, item)

	case errors.Is(err, catalog.ErrMetadataNotFound),
		errors.Is(err, catalog.ErrInvalidMetadata),
		errors.Is(err, fs.ErrNotExist):
		log.Warn("skipping file", "path", item.Source, "reason", err)
		*skipped++
		w.Counters.Skipped.Add(1)
		w.Metrics.FileSkipped()
		w.record(item, locationDir, store.StateSkipped, err.Error())
		return w.heartbeat(ctx)

	default:
		// Unanticipated: fail fast, let the supervisor account for us.
		return fmt.Errorf("declare %s: %w", item.Source, err)
	}
}

func (w *DeclareWorker) declareOne(ctx context.Context, item Item, locationDir string) error {
	meta, err := w.Builder.Build(item.Source, !item.Virtual)
	if err != nil {
		return err
	}

	if w.Validate {
		if err := w.Catalog.Validate(ctx, meta); err != nil {
			return err
		}
	}

	if err := w.Catalog.Declare(ctx, meta); err != nil {
		return err
	}

	if item.Virtual {
		// No physical payload, so no storage location to register.
		w.Log.Info("not adding location for virtual file", "path", item.Source)
		return nil
	}

	return w.Catalog.AddLocation(ctx, item.PublicName, locationDir)
}

// forward pushes a registered item to the transfer queue, unless it is
// virtual: virtual files are registered but never moved.
func (w *DeclareWorker) forward(ctx context.Context, log *slog.Logger, item Item) error {
	if item.Virtual {
		log.Info("not transferring virtual file", "path", item.Source)
		return nil
	}
	return w.Out.Put(ctx, item)
}

// heartbeat keeps downstream workers from timing out while this stage works
// through a batch with many skips.
func (w *DeclareWorker) heartbeat(ctx context.Context) error {
	w.Counters.Heartbeats.Add(1)
	w.Metrics.HeartbeatSent()
	return w.Out.Put(ctx, Heartbeat())
}

func (w *DeclareWorker) record(item Item, locationDir string, state store.FileState, detail string) {
	if w.Journal == nil {
		return
	}
	err := w.Journal.SaveRecord(&store.FileRecord{
		Name:        item.PublicName,
		Source:      item.Source,
		Destination: locationDir,
		RunID:       w.RunID,
		State:       state,
		Error:       detail,
	})
	if err != nil {
		w.Log.Warn("failed to journal record", "name", item.PublicName, "error", err)
	}
}

// sleepCtx sleeps for d, returning false if the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
