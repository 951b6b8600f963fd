package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prodops/declfast/naming"
	"github.com/prodops/declfast/store"
)

// Copier is the copy-service contract consumed by transfer workers. A zero
// status or StatusExists means the file is present at the destination; any
// other status is a per-item failure. The error, when non-nil, carries the
// failure cause for logging.
type Copier interface {
	Copy(ctx context.Context, srcPath, dstPath string) (int, error)
}

// Copy status codes accepted as success.
const (
	copyStatusOK     = 0
	copyStatusExists = 17
)

// TransferWorker pulls declared files from the transfer queue and copies
// them to the destination store. On confirmed success it optionally deletes
// the local source and its metadata sidecar. Heartbeat items only reset the
// idle-timeout window. The worker exits when the queue stays empty for
// PopTimeout.
type TransferWorker struct {
	ID     int
	In     *Queue[Item]
	Copier Copier

	Rules      naming.Rules
	SourceRoot string
	CopyBase   string
	Delete     bool
	RunID      string

	PopTimeout time.Duration

	// StartDelay is longer than the declare stage's so the first pop
	// happens after stage 1 has had a chance to produce an item.
	StartDelay time.Duration

	Journal  store.Journal
	Counters *Counters
	Metrics  *Metrics
	Log      *slog.Logger
}

// Run executes the worker loop until the queue stays empty for PopTimeout
// or an unexpected error occurs.
func (w *TransferWorker) Run(ctx context.Context) error {
	if !sleepCtx(ctx, w.StartDelay) {
		return ctx.Err()
	}

	log := w.Log.With("stage", "transfer", "worker", w.ID)
	log.Info("transfer worker start")

	for {
		item, ok := w.In.Pop(w.PopTimeout)
		if !ok {
			break
		}

		if item.IsHeartbeat() {
			log.Debug("got heartbeat")
			continue
		}

		if ctx.Err() != nil {
			log.Info("transfer worker end")
			return ctx.Err()
		}

		w.handle(ctx, log, item)
	}

	log.Info("transfer worker end")
	return nil
}

func (w *TransferWorker) handle(ctx context.Context, log *slog.Logger, item Item) {
	dst, err := w.Rules.DestPath(item.Source, w.SourceRoot, w.CopyBase)
	if err != nil {
		log.Warn("failed to resolve destination", "path", item.Source, "error", err)
		w.Counters.CopyFailed.Add(1)
		w.Metrics.CopyFailed()
		return
	}

	status, err := w.Copier.Copy(ctx, item.Source, dst)

	if status != copyStatusOK && status != copyStatusExists {
		// Soft failure: drop the item without cleanup or retry.
		log.Warn("transfer failed", "path", item.Source, "status", status, "error", err)
		w.Counters.CopyFailed.Add(1)
		w.Metrics.CopyFailed()
		w.record(item, dst, store.StateFailed, fmt.Sprintf("copy status %d: %v", status, err))
		return
	}

	log.Info("transfer finished", "path", item.Source, "status", status)
	w.Counters.Transferred.Add(1)
	w.Metrics.FileTransferred()
	w.record(item, dst, store.StateTransferred, "")

	if w.Delete {
		w.cleanup(log, item)
	}
}

// cleanup deletes the local source and its metadata sidecar. A missing
// sidecar or a permission error is logged and tolerated.
func (w *TransferWorker) cleanup(log *slog.Logger, item Item) {
	sidecar := w.Rules.SidecarPath(item.Source)
	log.Info("removing file and metadata sidecar", "path", item.Source, "sidecar", sidecar)

	if err := os.Remove(item.Source); err != nil {
		log.Warn("failed to remove file", "path", item.Source, "error", err)
		w.Metrics.CleanupFailed()
	}

	if err := os.Remove(sidecar); err != nil {
		if os.IsNotExist(err) {
			log.Warn("could not remove metadata sidecar, not found", "sidecar", sidecar)
		} else {
			log.Warn("failed to remove metadata sidecar", "sidecar", sidecar, "error", err)
			w.Metrics.CleanupFailed()
		}
	}
}

func (w *TransferWorker) record(item Item, dst string, state store.FileState, detail string) {
	if w.Journal == nil {
		return
	}
	err := w.Journal.SaveRecord(&store.FileRecord{
		Name:        item.PublicName,
		Source:      item.Source,
		Destination: dst,
		RunID:       w.RunID,
		State:       state,
		Error:       detail,
	})
	if err != nil {
		w.Log.Warn("failed to journal record", "name", item.PublicName, "error", err)
	}
}
