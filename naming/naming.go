// Package naming holds the pure path transformations of the pipeline:
// public-name rewriting, sidecar location, virtual-file classification and
// destination path resolution. All functions operate on path values only and
// touch no state, so every caller can share a single Rules value.
package naming

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Rules configures how local filenames map to catalog names and how files
// are classified during discovery and declaration.
type Rules struct {
	// Rewrites are applied to the base name to produce the public name,
	// e.g. "reco2" -> "stage1". Applied in sorted key order so the result
	// is deterministic.
	Rewrites map[string]string

	// VirtualPrefixes mark files that are registered with the catalog but
	// have no physical payload to move.
	VirtualPrefixes []string

	// ExcludePrefixes mark auxiliary derivative artifacts that discovery
	// skips entirely.
	ExcludePrefixes []string

	// SidecarSuffix is chained onto a file's existing suffix to locate the
	// metadata sidecar ("file.root" -> "file.root.json").
	SidecarSuffix string
}

// DefaultRules returns the substitution and classification tables the
// production workflow uses.
func DefaultRules() Rules {
	return Rules{
		Rewrites: map[string]string{
			"reco1":        "stage0",
			"reco2":        "stage1",
			"Supplemental": "hist",
		},
		VirtualPrefixes: []string{"stage1", "reco2"},
		ExcludePrefixes: []string{"Supplemental"},
		SidecarSuffix:   ".json",
	}
}

// PublicName returns the name a file is registered under, which may differ
// from the on-disk base name.
func (r Rules) PublicName(p string) string {
	name := filepath.Base(p)
	keys := make([]string, 0, len(r.Rewrites))
	for k := range r.Rewrites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name = strings.ReplaceAll(name, k, r.Rewrites[k])
	}
	return name
}

// IsVirtual reports whether a file is a catalog-only entry with no physical
// payload. Both the on-disk name and the rewritten public name are checked,
// since a rewrite may introduce or remove a virtual prefix.
func (r Rules) IsVirtual(p string) bool {
	base := filepath.Base(p)
	pub := r.PublicName(p)
	for _, prefix := range r.VirtualPrefixes {
		if strings.HasPrefix(base, prefix) || strings.HasPrefix(pub, prefix) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether discovery should skip the named file. Sidecar
// files are excluded implicitly: they are payload metadata, not payload.
func (r Rules) IsExcluded(name string) bool {
	if r.SidecarSuffix != "" && strings.HasSuffix(name, r.SidecarSuffix) {
		return true
	}
	for _, prefix := range r.ExcludePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// SidecarPath returns the expected metadata sidecar for a file. The sidecar
// suffix chains onto the existing one rather than replacing it.
func (r Rules) SidecarPath(p string) string {
	return p + r.SidecarSuffix
}

// DestPath resolves the destination file path for a source file: the base
// destination plus the source's directory relative to the source root, with
// the public name substituted for the base name.
//
// Example: source /scratch/reco/myfile.root, root /scratch,
// destBase /pnfs/users/test -> /pnfs/users/test/reco/myfile.root.
func (r Rules) DestPath(source, root, destBase string) (string, error) {
	dir, err := relDir(source, root)
	if err != nil {
		return "", err
	}
	return path.Join(destBase, dir, r.PublicName(source)), nil
}

// LocationDir resolves the destination directory registered with the catalog
// for a source file. It is the parent directory of DestPath.
func (r Rules) LocationDir(source, root, destBase string) (string, error) {
	dir, err := relDir(source, root)
	if err != nil {
		return "", err
	}
	return path.Join(destBase, dir), nil
}

func relDir(source, root string) (string, error) {
	if root == "" {
		return "", nil
	}
	rel, err := filepath.Rel(root, filepath.Dir(source))
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}
