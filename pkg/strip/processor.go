// Package strip implements the binary post-processor: it strips debug
// symbols from staged ELF executables and shared libraries, or splits
// them into a companion debug-symbols asset when requested, and
// accounts for the resulting installed size.
package strip

import (
	"os"
	"path"
	"strings"

	"github.com/debassemble/debassemble/pkg/assets"
	"github.com/debassemble/debassemble/pkg/binary"
	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/files"
	"github.com/debassemble/debassemble/pkg/logger"
)

// systemBinaryDirs are the installed-path prefixes this package
// considers for stripping. Assets outside these trees (data files,
// docs, configs) are never passed to strip/objcopy even if they happen
// to carry an ELF magic number.
var systemBinaryDirs = []string{
	"/usr/bin", "/usr/sbin", "/usr/lib",
	"/bin", "/sbin", "/lib",
}

// Options configures one pass over a staged asset list.
type Options struct {
	// Enabled runs strip on eligible binaries. Disabled by --no-strip.
	Enabled bool
	// SeparateDebugSymbols extracts debug info into a companion
	// /usr/lib/debug/<path>.debug asset instead of discarding it.
	SeparateDebugSymbols bool
	// StripTool and ObjcopyTool override the default "strip"/"objcopy"
	// names, for cross-compilation toolchains with prefixed binaries.
	// Empty means use the default.
	StripTool   string
	ObjcopyTool string
}

func (o Options) stripTool() string {
	if o.StripTool == "" {
		return "strip"
	}

	return o.StripTool
}

func (o Options) objcopyTool() string {
	if o.ObjcopyTool == "" {
		return "objcopy"
	}

	return o.ObjcopyTool
}

// Process strips or splits every eligible ELF asset in list in place
// and returns the (possibly extended, with debug companions appended)
// list plus the package's installed size in KiB, rounded up, computed
// from the post-processing file sizes.
func Process(list assets.AssetList, opts Options) (assets.AssetList, int64, error) {
	out := make(assets.AssetList, len(list))
	copy(out, list)

	for i := range out {
		asset := &out[i]

		if asset.IsDir || asset.IsSymlink || asset.SourcePath == "" {
			continue
		}

		if !isSystemBinaryPath(asset.InstalledPath) {
			continue
		}

		if !isWritable(asset.SourcePath) {
			continue
		}

		fileType := files.GetFileType(asset.SourcePath)
		if fileType == "" || fileType == "ET_NONE" {
			continue
		}

		if opts.SeparateDebugSymbols {
			debugAsset, err := splitDebugSymbols(*asset, opts)
			if err != nil {
				return nil, 0, err
			}

			out = append(out, debugAsset)

			continue
		}

		if !opts.Enabled {
			continue
		}

		if err := stripAsset(asset.SourcePath, fileType, opts); err != nil {
			return nil, 0, err
		}
	}

	size, err := installedSizeKiB(out)
	if err != nil {
		return nil, 0, err
	}

	return out, size, nil
}

func isSystemBinaryPath(installedPath string) bool {
	for _, prefix := range systemBinaryDirs {
		if installedPath == prefix || strings.HasPrefix(installedPath, prefix+"/") {
			return true
		}
	}

	return false
}

// isWritable always tries to make the file writable first and skips
// quietly if that fails: a read-only staged file
// (copied from a read-only source, or owned by another user) should
// not abort the whole assembly over a cosmetic stripping step.
func isWritable(sourcePath string) bool {
	info, err := os.Stat(sourcePath)
	if err != nil {
		logger.Warn("failed to stat staged binary", "path", sourcePath, "error", err)
		return false
	}

	if err := files.Chmod(sourcePath, info.Mode().Perm()|0o200); err != nil {
		logger.Warn("failed to make staged binary writable", "path", sourcePath, "error", err)
		return false
	}

	if err := files.CheckWritable(sourcePath); err != nil {
		logger.Warn("staged binary still not writable after chmod", "path", sourcePath, "error", err)
		return false
	}

	return true
}

// stripFlags determines the strip invocation for an ELF file type,
// and whether a following LTO-section pass is also warranted.
func stripFlags(fileType, sourcePath string) (string, bool) {
	switch {
	case strings.Contains(fileType, "ET_DYN"):
		return "--strip-unneeded", false
	case strings.Contains(fileType, "ET_EXEC"):
		return "--strip-all", false
	case strings.Contains(fileType, "ET_REL"):
		if files.IsStaticLibrary(sourcePath) {
			return "--strip-debug", true
		}

		if strings.HasSuffix(sourcePath, ".ko") || strings.HasSuffix(sourcePath, ".o") {
			return "--strip-unneeded", false
		}
	}

	return "", false
}

func stripAsset(sourcePath, fileType string, opts Options) error {
	flags, stripLTO := stripFlags(fileType, sourcePath)
	if flags == "" {
		return nil
	}

	logger.Debug("stripping binary", "path", sourcePath, "flags", flags)

	if err := binary.StripFileWithTool(opts.stripTool(), sourcePath, flags); err != nil {
		return errors.Wrap(err, errors.Tool, "stripping "+sourcePath)
	}

	if stripLTO {
		if err := binary.StripLTOWithTool(opts.stripTool(), sourcePath); err != nil {
			return errors.Wrap(err, errors.Tool, "stripping LTO sections from "+sourcePath)
		}
	}

	return nil
}

// splitDebugSymbols extracts the asset's debug info into a sibling
// ".debug" file next to the staged binary, strips the original in
// place, and returns the new companion Asset installed under
// /usr/lib/debug, mirroring the installed path of the binary it was
// extracted from.
func splitDebugSymbols(source assets.Asset, opts Options) (assets.Asset, error) {
	debugSourcePath := source.SourcePath + ".debug"

	if err := binary.ExtractDebugSymbolsWithTools(opts.stripTool(), opts.objcopyTool(), source.SourcePath, debugSourcePath); err != nil {
		return assets.Asset{}, errors.Wrap(err, errors.Tool, "extracting debug symbols from "+source.SourcePath)
	}

	return assets.Asset{
		SourcePath:    debugSourcePath,
		InstalledPath: path.Join("/usr/lib/debug", source.InstalledPath) + ".debug",
		Mode:          0o644,
		Origin:        assets.OriginAuto,
	}, nil
}

// installedSizeKiB sums the on-disk size of every regular-file asset
// after stripping and rounds up to the nearest KiB, per dpkg's
// Installed-Size convention.
func installedSizeKiB(list assets.AssetList) (int64, error) {
	var total int64

	for _, asset := range list.RegularFiles() {
		info, err := os.Stat(asset.SourcePath)
		if err != nil {
			return 0, errors.Wrap(err, errors.IO, "statting staged asset "+asset.SourcePath)
		}

		total += info.Size()
	}

	return (total + 1023) / 1024, nil
}
