package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prodops/declfast/naming"
)

// Discoverer walks a directory tree iteratively and feeds qualifying files
// to the declare queue as soon as they are found, so discovery and
// consumption run concurrently. It avoids recursion to survive very deep
// trees and signals no completion event; downstream workers stop on their
// own idle timeout.
type Discoverer struct {
	Root  string
	Rules naming.Rules
	Queue *Queue[Item]

	// OnFile, if set, is invoked on the discovery goroutine after each
	// enqueue. The pipeline uses it to drive worker spawning.
	OnFile func(Item)

	Log *slog.Logger
}

// Run walks the tree rooted at d.Root. Directories and excluded names are
// skipped; everything else becomes an Item.
func (d *Discoverer) Run(ctx context.Context) error {
	stat, err := os.Stat(d.Root)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", d.Root, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("source %s is not a directory", d.Root)
	}

	// Iterative (stack-based) walk.
	stack := []string{""}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dir := d.Root
		if rel != "" {
			dir = filepath.Join(d.Root, rel)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			entryRel := entry.Name()
			if rel != "" {
				entryRel = filepath.Join(rel, entry.Name())
			}

			if entry.IsDir() {
				stack = append(stack, entryRel)
				continue
			}
			if d.Rules.IsExcluded(entry.Name()) {
				d.Log.Debug("excluding file", "path", entryRel)
				continue
			}

			source := filepath.Join(d.Root, entryRel)
			item := Item{
				Source:     source,
				PublicName: d.Rules.PublicName(source),
				Virtual:    d.Rules.IsVirtual(source),
			}

			d.Log.Debug("discovered file", "path", source, "virtual", item.Virtual)

			if err := d.Queue.Put(ctx, item); err != nil {
				return err
			}
			if d.OnFile != nil {
				d.OnFile(item)
			}
		}
	}

	return nil
}
