package engine

import "sync/atomic"

// Counters holds the pipeline's live tallies. All fields are atomics so the
// TUI and tests can read them while workers run.
type Counters struct {
	Discovered  atomic.Int64
	Declared    atomic.Int64
	Duplicates  atomic.Int64
	Skipped     atomic.Int64
	Heartbeats  atomic.Int64
	Transferred atomic.Int64
	CopyFailed  atomic.Int64

	DeclareSpawned  atomic.Int64
	TransferSpawned atomic.Int64
	DeclareLive     atomic.Int64
	TransferLive    atomic.Int64

	Done atomic.Bool
}
