// Package control implements the control-archive generator: the
// control file itself plus md5sums, conffiles, triggers, maintainer
// scripts, copyright, and changelog — the members that land in the
// outer archive's control.tar member.
package control

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/otiai10/copy"

	"github.com/debassemble/debassemble/pkg/assets"
	"github.com/debassemble/debassemble/pkg/config"
	"github.com/debassemble/debassemble/pkg/dependencies"
	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/files"
	"github.com/debassemble/debassemble/pkg/logger"
)

// Data holds the fields the control and copyright templates render.
type Data struct {
	Name                 string
	Version              string
	Revision             string
	Section              string
	Priority             string
	Architecture         string
	Maintainer           string
	Copyright            string
	License              string
	Homepage             string
	Description          string
	ExtendedDescription  string
	InstalledSizeKiB     int64
	Provides             []string
	PreDepends           []string
	Depends              []string
	Recommends           []string
	Suggests             []string
	Enhances             []string
	Conflicts            []string
	Breaks               []string
	Replaces             []string
}

// NewData builds template input from a resolved PackageConfig. An
// unset Section becomes "misc" and an unset Priority becomes
// "optional", so the rendered control file always carries both fields.
func NewData(cfg *config.PackageConfig, installedSizeKiB int64) Data {
	section := cfg.Section
	if section == "" {
		section = "misc"
	}

	priority := cfg.Priority
	if priority == "" {
		priority = "optional"
	}

	return Data{
		Name:                cfg.Name,
		Version:             cfg.Version,
		Revision:            cfg.Revision,
		Section:             section,
		Priority:            priority,
		Architecture:        cfg.Architecture,
		Maintainer:          cfg.Maintainer,
		Copyright:           cfg.Copyright,
		License:             cfg.License,
		Homepage:            cfg.Homepage,
		Description:         cfg.Description,
		ExtendedDescription: cfg.ExtendedDescription,
		InstalledSizeKiB:    installedSizeKiB,
		Provides:            cfg.Provides,
		PreDepends:          cfg.PreDepends,
		Depends:             cfg.Depends,
		Recommends:          cfg.Recommends,
		Suggests:            cfg.Suggests,
		Enhances:            cfg.Enhances,
		Conflicts:           cfg.Conflicts,
		Breaks:              cfg.Breaks,
		Replaces:            cfg.Replaces,
	}
}

// RenderControl renders the control file body.
func RenderControl(data Data) (string, error) {
	return render(controlTemplate, data)
}

// RenderCopyright renders the DEP-5 copyright file body. Returns empty
// when neither Copyright nor License is set, since a file with only a
// Files/Format stanza is not worth shipping.
func RenderCopyright(data Data) (string, error) {
	if data.Copyright == "" && data.License == "" {
		return "", nil
	}

	return render(copyrightTemplate, data)
}

func render(tmpl *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, errors.Format, "rendering "+tmpl.Name())
	}

	return buf.String(), nil
}

// Conffiles renders the conffiles member: one absolute path per line,
// each normalized to carry a leading slash, in the order given. It does
// not deduplicate the list.
func Conffiles(paths []string) string {
	normalized := dependencies.NormalizeBackupFiles(paths)

	var b strings.Builder

	for _, p := range normalized {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	return b.String()
}

// Md5sums computes the md5sums member over every regular-file asset,
// sorted by installed path (without the leading slash, as dpkg-deb
// itself emits them) so the output is deterministic.
func Md5sums(list assets.AssetList) (string, error) {
	regular := list.RegularFiles()
	sort.SliceStable(regular, func(i, j int) bool {
		return regular[i].InstalledPath < regular[j].InstalledPath
	})

	entries := make([]string, 0, len(regular))

	for _, asset := range regular {
		sum, err := files.CalculateMD5(asset.SourcePath)
		if err != nil {
			return "", errors.Wrap(err, errors.IO, "hashing "+asset.SourcePath)
		}

		entries = append(entries, fmt.Sprintf("%s  %s\n", sum, strings.TrimPrefix(asset.InstalledPath, "/")))
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e)
	}

	return b.String(), nil
}

// Scripts renders the four maintainer scriptlets keyed by name
// (preinst, postinst, prerm, postrm). Empty bodies are omitted from
// the result. prerm/postrm get removeHeader prepended so a reinstall
// or upgrade doesn't run removal-only logic.
func Scripts(bodies map[string]string) map[string]string {
	out := make(map[string]string, len(bodies))

	for _, name := range []string{"preinst", "postinst", "prerm", "postrm"} {
		body, ok := bodies[name]
		if !ok || body == "" {
			continue
		}

		if name == "prerm" || name == "postrm" {
			body = removeHeader + body
		}

		out[name] = body
	}

	return out
}

// ChangelogGz gzips the Debian changelog body for
// usr/share/doc/<pkg>/changelog.Debian.gz, at maximum compression and
// zero timestamp for reproducibility, the same convention the archive
// writer uses for the outer data/control tarballs.
func ChangelogGz(body string) ([]byte, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, errors.Format, "creating changelog gzip writer")
	}

	gz.ModTime = epoch

	if _, err := gz.Write([]byte(body)); err != nil {
		return nil, errors.Wrap(err, errors.IO, "writing changelog content")
	}

	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, errors.IO, "closing changelog gzip writer")
	}

	return buf.Bytes(), nil
}

// WriteMaintainerScripts writes the rendered scriptlets into dir with
// mode 0755, as dpkg requires maintainer scripts to be executable.
func WriteMaintainerScripts(dir string, bodies map[string]string) error {
	for name, body := range Scripts(bodies) {
		path := filepath.Join(dir, name)

		if err := files.CreateWrite(path, body); err != nil {
			return errors.Wrap(err, errors.IO, "writing "+name+" script")
		}

		if err := files.Chmod(path, 0o755); err != nil {
			return errors.Wrap(err, errors.IO, "chmod "+name+" script")
		}
	}

	return nil
}

// CopyExtraControlFiles copies a user-supplied directory tree of extra
// control-archive members (debconf's config and templates, a shlibs or
// symbols file, anything else dpkg-deb will accept alongside the four
// maintainer scripts) into dir, preserving its own layout. A no-op when
// extraDir is unset, since most packages carry no debconf prompts.
func CopyExtraControlFiles(dir, extraDir string) error {
	if extraDir == "" {
		return nil
	}

	info, err := os.Stat(extraDir)
	if err != nil {
		return errors.Wrap(err, errors.IO, "statting extra control files directory "+extraDir)
	}

	if files.IsEmptyDir(extraDir, fs.FileInfoToDirEntry(info)) {
		logger.Warn("extra control files directory is empty, nothing to copy", "path", extraDir)
		return nil
	}

	if err := copy.Copy(extraDir, dir); err != nil {
		return errors.Wrap(err, errors.IO, "copying extra control files from "+extraDir)
	}

	return nil
}

// CopyTriggersFile stages a user-supplied triggers file verbatim at
// dir/triggers, hard-linking it when the staging directory shares a
// filesystem with the source and falling back to a regular copy
// otherwise.
func CopyTriggersFile(dir, triggersFile string) error {
	if triggersFile == "" {
		return nil
	}

	if err := files.TryHardLink(triggersFile, filepath.Join(dir, "triggers")); err != nil {
		return errors.Wrap(err, errors.IO, "staging triggers file")
	}

	return nil
}
