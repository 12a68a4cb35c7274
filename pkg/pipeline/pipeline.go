// Package pipeline implements the orchestrator: it wires the manifest
// resolver's output through the asset planner, the binary
// post-processor, the dependency detector, and the control generator,
// then asks the archive writer to emit the final .deb.
package pipeline

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/debassemble/debassemble/pkg/archive"
	"github.com/debassemble/debassemble/pkg/assets"
	"github.com/debassemble/debassemble/pkg/config"
	"github.com/debassemble/debassemble/pkg/control"
	"github.com/debassemble/debassemble/pkg/depends"
	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/files"
	"github.com/debassemble/debassemble/pkg/logger"
	"github.com/debassemble/debassemble/pkg/shell"
	"github.com/debassemble/debassemble/pkg/strip"
	"github.com/debassemble/debassemble/pkg/systemd"
)

// Options carries the CLI-level knobs that shape one Assemble run,
// orthogonal to the already-resolved PackageConfig.
type Options struct {
	OutputPath string
	Install    bool
	NoBuild    bool
}

// Result reports what Assemble produced.
type Result struct {
	OutputPath       string
	InstalledSizeKiB int64
	Assets           assets.AssetList
}

// Assemble runs the full staging-through-archive pipeline over an
// already-resolved and validated PackageConfig, producing one .deb
// file at opts.OutputPath (inside it, under a default name derived
// from name/version/revision/architecture, when it is an existing
// directory; that default name in the working directory when unset).
func Assemble(ctx context.Context, cfg *config.PackageConfig, opts Options) (*Result, error) {
	if opts.NoBuild {
		logger.Info("skipping build, assembling from existing assets only")
	}

	staged, err := planAssets(cfg)
	if err != nil {
		return nil, err
	}

	var unitAssets assets.AssetList

	if len(cfg.SystemdUnits) > 0 {
		unitAssets, err = systemd.Assets(cfg.SystemdUnits)
		if err != nil {
			return nil, err
		}

		staged = assets.AppendAssets(staged, unitAssets)
	}

	staged, sizeKiB, err := strip.Process(staged, strip.Options{
		Enabled:              cfg.StripEnabled,
		SeparateDebugSymbols: cfg.SeparateDebugSymbols,
		StripTool:            cfg.StripPath,
		ObjcopyTool:          cfg.ObjcopyPath,
	})
	if err != nil {
		return nil, err
	}

	cfg.Depends = depends.Resolve(ctx, elfAssetPaths(staged), cfg.Depends)

	scripts, err := maintainerScriptBodies(cfg)
	if err != nil {
		return nil, err
	}

	if len(unitAssets) > 0 {
		scripts = systemd.MergeScriptFragments(scripts, unitAssets)
	}

	stagingDir, err := os.MkdirTemp("", "debassemble-")
	if err != nil {
		return nil, errors.Wrap(err, errors.IO, "creating staging directory")
	}

	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			logger.Warn("failed to remove staging directory", "path", stagingDir, "error", err)
		}
	}()

	controlDir := filepath.Join(stagingDir, "control")
	if err := files.ExistsMakeDir(controlDir); err != nil {
		return nil, errors.Wrap(err, errors.IO, "creating control staging directory")
	}

	if err := writeControlMembers(controlDir, cfg, staged, scripts, sizeKiB); err != nil {
		return nil, err
	}

	if controlSize, err := files.GetDirSize(controlDir); err == nil {
		logger.Debug("control archive staged", "bytes", controlSize)
	}

	outputPath := resolveOutputPath(cfg, opts)

	if err := buildArchive(stagingDir, controlDir, staged, cfg, outputPath); err != nil {
		return nil, err
	}

	if opts.Install {
		if err := shell.Exec("", "dpkg", "-i", outputPath); err != nil {
			return nil, errors.Wrap(err, errors.Tool, "installing "+outputPath)
		}
	}

	return &Result{OutputPath: outputPath, InstalledSizeKiB: sizeKiB, Assets: staged}, nil
}

func planAssets(cfg *config.PackageConfig) (assets.AssetList, error) {
	list, err := assets.Plan(cfg.AssetSpecs, assets.PlanOptions{
		ManifestDir:      cfg.ManifestDir,
		TargetDir:        cfg.TargetDir,
		Triple:           cfg.Target,
		PreserveSymlinks: cfg.PreserveSymlinks,
	})
	if err != nil {
		return nil, err
	}

	assets.MarkConffiles(list, cfg.ConfFiles)

	return list, nil
}

// elfAssetPaths selects the on-disk source paths of regular-file
// assets staged under a system executable/library directory, the same
// set the binary post-processor considers, for the dependency
// detector to inspect.
func elfAssetPaths(list assets.AssetList) []string {
	var paths []string

	for _, asset := range list.RegularFiles() {
		if asset.SourcePath == "" {
			continue
		}

		if fileType := files.GetFileType(asset.SourcePath); fileType != "" && fileType != "ET_NONE" {
			paths = append(paths, asset.SourcePath)
		}
	}

	return paths
}

func maintainerScriptBodies(cfg *config.PackageConfig) (map[string]string, error) {
	bodies := map[string]string{}

	if cfg.MaintainerScriptsDir == "" {
		return bodies, nil
	}

	for _, name := range []string{"preinst", "postinst", "prerm", "postrm"} {
		path := filepath.Join(cfg.MaintainerScriptsDir, name)
		if !files.Exists(path) {
			continue
		}

		content, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, errors.Wrap(err, errors.IO, "reading "+name+" script")
		}

		bodies[name] = string(content)
	}

	return bodies, nil
}

func writeControlMembers(
	controlDir string,
	cfg *config.PackageConfig,
	staged assets.AssetList,
	scripts map[string]string,
	sizeKiB int64,
) error {
	data := control.NewData(cfg, sizeKiB)

	controlBody, err := control.RenderControl(data)
	if err != nil {
		return err
	}

	if err := files.CreateWrite(filepath.Join(controlDir, "control"), controlBody); err != nil {
		return errors.Wrap(err, errors.IO, "writing control file")
	}

	if copyrightBody, err := control.RenderCopyright(data); err != nil {
		return err
	} else if copyrightBody != "" {
		if err := files.CreateWrite(filepath.Join(controlDir, "copyright"), copyrightBody); err != nil {
			return errors.Wrap(err, errors.IO, "writing copyright file")
		}
	}

	if len(cfg.ConfFiles) > 0 {
		if err := files.CreateWrite(filepath.Join(controlDir, "conffiles"), control.Conffiles(cfg.ConfFiles)); err != nil {
			return errors.Wrap(err, errors.IO, "writing conffiles")
		}
	}

	md5sums, err := control.Md5sums(staged)
	if err != nil {
		return err
	}

	if err := files.CreateWrite(filepath.Join(controlDir, "md5sums"), md5sums); err != nil {
		return errors.Wrap(err, errors.IO, "writing md5sums")
	}

	if err := control.WriteMaintainerScripts(controlDir, scripts); err != nil {
		return err
	}

	if err := control.CopyTriggersFile(controlDir, cfg.TriggersFile); err != nil {
		return err
	}

	if err := control.CopyExtraControlFiles(controlDir, cfg.ExtraControlDir); err != nil {
		return err
	}

	if cfg.Changelog != "" {
		if err := writeChangelog(controlDir, cfg.Changelog); err != nil {
			return err
		}
	}

	return nil
}

func writeChangelog(controlDir, changelogPath string) error {
	content, err := os.ReadFile(filepath.Clean(changelogPath))
	if err != nil {
		return errors.Wrap(err, errors.IO, "reading changelog")
	}

	gz, err := control.ChangelogGz(string(content))
	if err != nil {
		return err
	}

	docDir := filepath.Join(controlDir, "..", "doc")
	if err := files.ExistsMakeDir(docDir); err != nil {
		return errors.Wrap(err, errors.IO, "creating changelog staging directory")
	}

	if err := os.WriteFile(filepath.Join(docDir, "changelog.Debian.gz"), gz, 0o644); err != nil {
		return errors.Wrap(err, errors.IO, "writing changelog.Debian.gz")
	}

	return nil
}

func resolveOutputPath(cfg *config.PackageConfig, opts Options) string {
	revision := cfg.Revision
	if revision == "" {
		revision = "1"
	}

	name := cfg.Name + "_" + cfg.Version + "-" + revision + "_" + cfg.Architecture + ".deb"

	if opts.OutputPath != "" {
		if info, err := os.Stat(opts.OutputPath); err == nil && info.IsDir() {
			return filepath.Join(opts.OutputPath, name)
		}

		return opts.OutputPath
	}

	return name
}

// buildArchive renders the control and data tarballs (in parallel, the
// pipeline's one concurrency fan-out point) and composes the outer
// ar(1) container around them plus the debian-binary member.
func buildArchive(stagingDir, controlDir string, staged assets.AssetList, cfg *config.PackageConfig, outputPath string) error {
	controlEntries := controlArchiveEntries(controlDir)

	dataEntries, err := dataArchiveEntries(staged)
	if err != nil {
		return err
	}

	archive.SortEntries(controlEntries)
	archive.SortEntries(dataEntries)

	controlTarPath := filepath.Join(stagingDir, "control.tar.gz")
	dataTarPath := filepath.Join(stagingDir, "data.tar.xz")

	gzLevel := gzip.BestCompression
	if cfg.Fast {
		gzLevel = gzip.BestSpeed
	}

	var (
		wg         sync.WaitGroup
		controlErr error
		dataErr    error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		controlErr = archive.WriteTarGzLevel(controlEntries, controlTarPath, gzLevel)
	}()

	go func() {
		defer wg.Done()
		dataErr = archive.WriteTarXzLevel(dataEntries, dataTarPath, cfg.Fast)
	}()

	wg.Wait()

	if controlErr != nil {
		return errors.Wrap(controlErr, errors.Format, "writing control.tar.gz")
	}

	if dataErr != nil {
		return errors.Wrap(dataErr, errors.Format, "writing data tarball")
	}

	binaryPath := filepath.Join(stagingDir, "debian-binary")
	if err := os.WriteFile(binaryPath, []byte("2.0\n"), 0o644); err != nil {
		return errors.Wrap(err, errors.IO, "writing debian-binary")
	}

	members := []archive.ArMember{
		{Name: "debian-binary", Path: binaryPath},
		{Name: "control.tar.gz", Path: controlTarPath},
		{Name: filepath.Base(dataTarPath), Path: dataTarPath},
	}

	tmpOutput := outputPath + ".tmp"

	if err := archive.ComposeDeb(members, tmpOutput); err != nil {
		return errors.Wrap(err, errors.Format, "composing outer ar archive")
	}

	if err := os.Rename(tmpOutput, outputPath); err != nil {
		return errors.Wrap(err, errors.IO, "renaming output into place")
	}

	return nil
}

func controlArchiveEntries(controlDir string) []archive.Entry {
	entries, err := os.ReadDir(controlDir)
	if err != nil {
		return nil
	}

	out := make([]archive.Entry, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		mode := info.Mode()
		if entry.Name() == "preinst" || entry.Name() == "postinst" ||
			entry.Name() == "prerm" || entry.Name() == "postrm" {
			mode = 0o755
		}

		out = append(out, archive.Entry{
			ArchivePath: "./" + entry.Name(),
			Kind:        archive.KindFile,
			Mode:        mode,
			SourcePath:  filepath.Join(controlDir, entry.Name()),
			Size:        info.Size(),
		})
	}

	return out
}

func dataArchiveEntries(list assets.AssetList) ([]archive.Entry, error) {
	out := make([]archive.Entry, 0, len(list))

	for _, asset := range list {
		archivePath := "." + asset.InstalledPath

		switch {
		case asset.IsDir:
			out = append(out, archive.Entry{
				ArchivePath: archivePath + "/",
				Kind:        archive.KindDir,
				Mode:        os.FileMode(asset.Mode),
			})
		case asset.IsSymlink:
			out = append(out, archive.Entry{
				ArchivePath: archivePath,
				Kind:        archive.KindSymlink,
				Mode:        os.FileMode(asset.Mode),
				LinkTarget:  asset.LinkTarget,
			})
		default:
			info, err := os.Stat(asset.SourcePath)
			if err != nil {
				return nil, errors.Wrap(err, errors.IO, "statting "+asset.SourcePath)
			}

			out = append(out, archive.Entry{
				ArchivePath: archivePath,
				Kind:        archive.KindFile,
				Mode:        os.FileMode(asset.Mode),
				SourcePath:  asset.SourcePath,
				Size:        info.Size(),
			})
		}
	}

	return out, nil
}
