package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicName(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"reco1 rewrite", "/data/run1/reco1-foo.root", "stage0-foo.root"},
		{"reco2 rewrite", "/data/run1/reco2-foo.root", "stage1-foo.root"},
		{"supplemental rewrite", "/data/Supplemental-bar.root", "hist-bar.root"},
		{"no rewrite", "/data/run1/raw-foo.root", "raw-foo.root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.PublicName(tt.in))
		})
	}
}

func TestIsVirtual(t *testing.T) {
	rules := DefaultRules()

	// Both the on-disk name and the rewritten name count.
	assert.True(t, rules.IsVirtual("/data/stage1-foo.root"))
	assert.True(t, rules.IsVirtual("/data/reco2-foo.root"))
	assert.False(t, rules.IsVirtual("/data/reco1-foo.root"))
	assert.False(t, rules.IsVirtual("/data/raw-foo.root"))
}

func TestIsExcluded(t *testing.T) {
	rules := DefaultRules()

	assert.True(t, rules.IsExcluded("Supplemental-foo.root"))
	assert.True(t, rules.IsExcluded("reco2-foo.root.json"), "sidecars are never payload")
	assert.False(t, rules.IsExcluded("reco2-foo.root"))
}

func TestSidecarPath(t *testing.T) {
	rules := DefaultRules()

	// The sidecar suffix chains onto the existing suffix.
	assert.Equal(t, "/data/foo.root.json", rules.SidecarPath("/data/foo.root"))
	assert.Equal(t, "/data/foo.tar.gz.json", rules.SidecarPath("/data/foo.tar.gz"))
	assert.Equal(t, "/data/foo.json", rules.SidecarPath("/data/foo"))
}

func TestDestPath(t *testing.T) {
	rules := DefaultRules()

	got, err := rules.DestPath("/local/scratch/reco/reco1-myfile.root", "/local/scratch", "/pnfs/users/test")
	require.NoError(t, err)
	assert.Equal(t, "/pnfs/users/test/reco/stage0-myfile.root", got)

	// Source directly under the root.
	got, err = rules.DestPath("/local/scratch/myfile.root", "/local/scratch", "/pnfs/users/test")
	require.NoError(t, err)
	assert.Equal(t, "/pnfs/users/test/myfile.root", got)
}

func TestLocationDir(t *testing.T) {
	rules := DefaultRules()

	got, err := rules.LocationDir("/local/scratch/reco/myfile.root", "/local/scratch", "/pnfs/users/test")
	require.NoError(t, err)
	assert.Equal(t, "/pnfs/users/test/reco", got)
}
