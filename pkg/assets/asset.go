// Package assets models one installable payload file (Asset) and the
// ordered set of them that the archive writer consumes (AssetList),
// plus the asset planner that builds that set from raw glob
// specifications.
package assets

import "sort"

// Origin records who introduced an asset, for diagnostics and for the
// systemd add-on to find the unit-file entries it contributed.
type Origin string

const (
	OriginUser    Origin = "user"
	OriginAuto    Origin = "auto"
	OriginSystemd Origin = "systemd"
)

// Asset is one installable file, directory, or symlink destined for
// the data archive.
type Asset struct {
	// SourcePath is the absolute on-disk path to read content from.
	// Empty for directories and for symlinks (LinkTarget is used
	// instead).
	SourcePath string
	// InstalledPath is the absolute path under "/" this asset occupies
	// once installed.
	InstalledPath string
	// Mode is the Unix permission bits (directories conventionally
	// 0755, files as configured).
	Mode uint32
	// IsDir marks a directory entry synthesized to satisfy an
	// ancestor-directory requirement.
	IsDir bool
	// IsBuilt is true when SourcePath lives under the build output
	// directory and was therefore subject to cross-compile path
	// rewriting.
	IsBuilt bool
	// IsSymlink marks a preserved symlink; LinkTarget holds its
	// verbatim target string.
	IsSymlink  bool
	LinkTarget string
	Origin     Origin
	IsConffile bool
}

// AssetList is the ordered, deduplicated-by-installed-path sequence
// the archive writer iterates to produce tar entries.
type AssetList []Asset

// SortByInstalledPath orders the list lexicographically by installed
// path, stable so equal-path ties (shouldn't occur post-dedup) keep
// their relative order.
func (l AssetList) SortByInstalledPath() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].InstalledPath < l[j].InstalledPath
	})
}

// RegularFiles returns only the non-directory, non-symlink entries —
// the set md5sums and installed-size accounting iterate.
func (l AssetList) RegularFiles() AssetList {
	out := make(AssetList, 0, len(l))

	for _, a := range l {
		if !a.IsDir && !a.IsSymlink {
			out = append(out, a)
		}
	}

	return out
}

// Conffiles returns the installed paths of every asset marked as a
// configuration file, in list order.
func (l AssetList) Conffiles() []string {
	var out []string

	for _, a := range l {
		if a.IsConffile {
			out = append(out, a.InstalledPath)
		}
	}

	return out
}

// MarkConffiles flags, in place, every asset whose installed path
// appears in paths as a configuration file. Used after planning to
// apply the manifest's conf_files list.
func MarkConffiles(list AssetList, paths []string) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}

	for i := range list {
		if want[list[i].InstalledPath] {
			list[i].IsConffile = true
		}
	}
}
