package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prodops/declfast/catalog"
	"github.com/prodops/declfast/naming"
)

type fakeCatalog struct {
	declareErr  error
	validateErr error

	declared  []catalog.Metadata
	validated int
	locations map[string]string
}

func (f *fakeCatalog) Declare(_ context.Context, meta catalog.Metadata) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, meta)
	return nil
}

func (f *fakeCatalog) Validate(context.Context, catalog.Metadata) error {
	f.validated++
	return f.validateErr
}

func (f *fakeCatalog) AddLocation(_ context.Context, name, dir string) error {
	if f.locations == nil {
		f.locations = map[string]string{}
	}
	f.locations[name] = dir
	return nil
}

type fakeBuilder struct {
	err    error
	builds []string
}

func (f *fakeBuilder) Build(path string, _ bool) (catalog.Metadata, error) {
	f.builds = append(f.builds, path)
	if f.err != nil {
		return nil, f.err
	}
	return catalog.Metadata{"file_name": path}, nil
}

func newDeclareWorker(cat catalog.Client, b catalog.MetadataBuilder) (*DeclareWorker, *Queue[Item], *Queue[Item], *Counters) {
	in := NewQueue[Item](16)
	out := NewQueue[Item](16)
	counters := &Counters{}
	w := &DeclareWorker{
		ID:         1,
		In:         in,
		Out:        out,
		Catalog:    cat,
		Builder:    b,
		Limiter:    NewRateLimiter(0, 1),
		Rules:      naming.DefaultRules(),
		SourceRoot: "/data",
		DestBase:   "/dest",
		RunID:      "test-run",
		PopTimeout: 20 * time.Millisecond,
		Counters:   counters,
		Log:        slog.New(slog.DiscardHandler),
	}
	return w, in, out, counters
}

func TestDeclareWorkerForwardsDeclaredFile(t *testing.T) {
	cat := &fakeCatalog{}
	w, in, out, counters := newDeclareWorker(cat, &fakeBuilder{})

	item := Item{Source: "/data/run/reco1_a.root", PublicName: "stage0_a.root"}
	require.NoError(t, in.Put(context.Background(), item))

	require.NoError(t, w.Run(context.Background()))

	require.Len(t, cat.declared, 1)
	require.Equal(t, "/dest/run", cat.locations["stage0_a.root"])
	require.Equal(t, int64(1), counters.Declared.Load())

	got, ok := out.Pop(0)
	require.True(t, ok)
	require.Equal(t, item, got)
}

func TestDeclareWorkerForwardsDuplicate(t *testing.T) {
	cat := &fakeCatalog{declareErr: catalog.ErrFileExists}
	w, in, out, counters := newDeclareWorker(cat, &fakeBuilder{})

	item := Item{Source: "/data/reco1_a.root", PublicName: "stage0_a.root"}
	require.NoError(t, in.Put(context.Background(), item))

	require.NoError(t, w.Run(context.Background()))

	// A duplicate may still need transferring; it is forwarded untouched.
	got, ok := out.Pop(0)
	require.True(t, ok)
	require.Equal(t, item, got)
	require.False(t, got.IsHeartbeat())

	require.Equal(t, int64(1), counters.Duplicates.Load())
	require.Equal(t, int64(0), counters.Declared.Load())
	require.Empty(t, cat.locations)
}

func TestDeclareWorkerSkipSendsHeartbeat(t *testing.T) {
	for _, buildErr := range []error{
		catalog.ErrMetadataNotFound,
		catalog.ErrInvalidMetadata,
		fs.ErrNotExist,
	} {
		cat := &fakeCatalog{}
		w, in, out, counters := newDeclareWorker(cat, &fakeBuilder{err: buildErr})

		require.NoError(t, in.Put(context.Background(), Item{Source: "/data/reco1_a.root"}))
		require.NoError(t, w.Run(context.Background()))

		got, ok := out.Pop(0)
		require.True(t, ok, "no heartbeat for %v", buildErr)
		require.True(t, got.IsHeartbeat())

		require.Equal(t, int64(1), counters.Skipped.Load())
		require.Equal(t, int64(1), counters.Heartbeats.Load())
		require.Empty(t, cat.declared)
	}
}

func TestDeclareWorkerVirtualNotForwarded(t *testing.T) {
	cat := &fakeCatalog{}
	w, in, out, counters := newDeclareWorker(cat, &fakeBuilder{})

	item := Item{Source: "/data/reco2_a.root", PublicName: "stage1_a.root", Virtual: true}
	require.NoError(t, in.Put(context.Background(), item))

	require.NoError(t, w.Run(context.Background()))

	require.Len(t, cat.declared, 1)
	require.Empty(t, cat.locations, "virtual files have no storage location")
	require.Equal(t, int64(1), counters.Declared.Load())

	_, ok := out.Pop(0)
	require.False(t, ok, "virtual file must not reach the transfer queue")
}

func TestDeclareWorkerValidates(t *testing.T) {
	cat := &fakeCatalog{}
	w, in, _, _ := newDeclareWorker(cat, &fakeBuilder{})
	w.Validate = true

	require.NoError(t, in.Put(context.Background(), Item{Source: "/data/reco1_a.root", PublicName: "stage0_a.root"}))
	require.NoError(t, w.Run(context.Background()))

	require.Equal(t, 1, cat.validated)
	require.Len(t, cat.declared, 1)
}

func TestDeclareWorkerUnexpectedErrorStops(t *testing.T) {
	cat := &fakeCatalog{declareErr: errors.New("catalog unreachable")}
	w, in, _, _ := newDeclareWorker(cat, &fakeBuilder{})

	require.NoError(t, in.Put(context.Background(), Item{Source: "/data/reco1_a.root"}))
	require.NoError(t, in.Put(context.Background(), Item{Source: "/data/reco1_b.root"}))

	err := w.Run(context.Background())
	require.ErrorContains(t, err, "catalog unreachable")

	// The second item was never attempted.
	require.Equal(t, 1, w.In.Len())
}

func TestDeclareWorkerStopsOnIdleTimeout(t *testing.T) {
	w, _, _, _ := newDeclareWorker(&fakeCatalog{}, &fakeBuilder{})

	start := time.Now()
	require.NoError(t, w.Run(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), w.PopTimeout)
}
