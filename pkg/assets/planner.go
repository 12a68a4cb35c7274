package assets

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/logger"
	"github.com/debassemble/debassemble/pkg/manifest"
)

// PlanOptions carries the cross-compile and symlink-policy knobs the
// planner needs; passed explicitly rather than a *config.PackageConfig
// to keep this package a leaf with no dependency on pkg/config.
type PlanOptions struct {
	ManifestDir      string
	TargetDir        string // custom override of the "target/" prefix, if configured
	Triple           string // selected target triple; empty means native build
	PreserveSymlinks bool
}

// Plan expands each raw asset spec into staged Asset entries, then
// synthesizes the ancestor-directory entries the archive format
// requires, and returns the result sorted by installed path.
func Plan(specs []manifest.AssetSpec, opts PlanOptions) (AssetList, error) {
	byPath := make(map[string]Asset)
	order := make([]string, 0, len(specs))

	for _, spec := range specs {
		mode, err := parseMode(spec.Mode)
		if err != nil {
			return nil, errors.Wrap(err, errors.Config, "invalid asset mode "+spec.Mode)
		}

		pattern := rewriteTargetPrefix(spec.Source, opts)

		matches, err := expand(pattern, opts.ManifestDir)
		if err != nil {
			return nil, err
		}

		for _, source := range matches {
			installed := installedPath(spec.Dest, source)

			asset, err := stageOne(source, installed, mode, opts)
			if err != nil {
				return nil, err
			}

			if _, dup := byPath[installed]; dup {
				logger.Warn("duplicate asset destination, later entry wins", "path", installed)
			} else {
				order = append(order, installed)
			}

			byPath[installed] = asset
		}
	}

	list := make(AssetList, 0, len(order))
	for _, path := range order {
		list = append(list, byPath[path])
	}

	list = append(list, directoryEntries(list)...)
	list.SortByInstalledPath()

	return list, nil
}

// rewriteTargetPrefix rewrites a "target/release/" or "target/debug/"
// source prefix to the cross-compiled target's own output directory.
func rewriteTargetPrefix(pattern string, opts PlanOptions) string {
	const relPrefix = "target/release/"

	const dbgPrefix = "target/debug/"

	base := "target/"
	if opts.TargetDir != "" {
		base = opts.TargetDir
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
	}

	switch {
	case strings.HasPrefix(pattern, relPrefix) && opts.Triple != "":
		return base + opts.Triple + "/release/" + strings.TrimPrefix(pattern, relPrefix)
	case strings.HasPrefix(pattern, dbgPrefix) && opts.Triple != "":
		return base + opts.Triple + "/debug/" + strings.TrimPrefix(pattern, dbgPrefix)
	case opts.TargetDir != "" && strings.HasPrefix(pattern, "target/"):
		return base + strings.TrimPrefix(pattern, "target/")
	default:
		return pattern
	}
}

func expand(pattern, manifestDir string) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(absPattern) {
		absPattern = filepath.Join(manifestDir, pattern)
	}

	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(absPattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.Config, "invalid glob pattern "+pattern)
		}

		if len(matches) == 0 {
			return nil, errors.Newf(errors.Config, "asset pattern %q matched no files", pattern)
		}

		return matches, nil
	}

	if _, err := os.Stat(absPattern); err != nil {
		return nil, errors.Wrap(err, errors.IO, "asset source does not exist: "+pattern)
	}

	return []string{absPattern}, nil
}

// installedPath composes the final installed path: a trailing "/" in
// dest means "directory, append basename"; otherwise dest is the
// literal installed path.
func installedPath(dest, source string) string {
	if strings.HasSuffix(dest, "/") {
		return dest + filepath.Base(source)
	}

	return dest
}

func stageOne(source, installed string, mode uint32, opts PlanOptions) (Asset, error) {
	info, err := os.Lstat(source)
	if err != nil {
		return Asset{}, errors.Wrap(err, errors.IO, "cannot stat asset source "+source)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if opts.PreserveSymlinks {
			target, err := os.Readlink(source)
			if err != nil {
				return Asset{}, errors.Wrap(err, errors.IO, "cannot read symlink "+source)
			}

			return Asset{
				InstalledPath: installed,
				IsSymlink:     true,
				LinkTarget:    target,
				Mode:          mode,
				Origin:        OriginUser,
			}, nil
		}

		// Dereference once and stage the target it points to.
		resolved, err := filepath.EvalSymlinks(source)
		if err != nil {
			return Asset{}, errors.Wrap(err, errors.IO, "cannot resolve symlink "+source)
		}

		source = resolved
	}

	return Asset{
		SourcePath:    source,
		InstalledPath: installed,
		Mode:          mode,
		IsBuilt:       strings.Contains(source, "/target/"),
		Origin:        OriginUser,
	}, nil
}

func parseMode(mode string) (uint32, error) {
	if mode == "" {
		return 0o644, nil
	}

	n, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, err
	}

	return uint32(n), nil
}

// AppendAssets merges additional staged assets (e.g. systemd units)
// into an already-planned list. It discards the list's previously
// synthesized ancestor-directory entries and recomputes them over the
// combined set, so a directory only the additions introduce (e.g.
// /lib/systemd/system for a systemd-only package) is staged too, and
// returns the result sorted by installed path.
func AppendAssets(list AssetList, additional AssetList) AssetList {
	base := make(AssetList, 0, len(list)+len(additional))

	for _, a := range list {
		if a.IsDir && a.Origin == OriginAuto {
			continue
		}

		base = append(base, a)
	}

	base = append(base, additional...)
	base = append(base, directoryEntries(base)...)
	base.SortByInstalledPath()

	return base
}

// directoryEntries walks the installed-path set and returns one
// directory Asset per unique ancestor directory (other than "/"),
// mode 0755, so the archive writer can emit each one explicitly rather
// than relying on dpkg to create them implicitly.
func directoryEntries(list AssetList) AssetList {
	seen := make(map[string]bool)

	var dirs AssetList

	for _, a := range list {
		dir := filepath.Dir(a.InstalledPath)

		for dir != "/" && dir != "." && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, Asset{
				InstalledPath: dir,
				Mode:          0o755,
				IsDir:         true,
				Origin:        OriginAuto,
			})
			dir = filepath.Dir(dir)
		}
	}

	return dirs
}
