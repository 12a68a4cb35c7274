// Package archive composes the deterministic tar, gzip/xz, and ar
// artifacts that make up a .deb file: control.tar.gz, data.tar.gz (or
// .xz), and the outer ar(1) container around debian-binary and both
// tarballs.
//
// Every writer here takes an explicit, pre-sorted list of entries
// rather than walking a directory, so archive member order is a
// property of the caller's plan (the asset planner's AssetList) and
// not of the host filesystem's directory-iteration order. That is what
// makes repeated runs over identical input byte-identical.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"

	"github.com/debassemble/debassemble/pkg/buffers"
)

// EntryKind distinguishes the three tar member shapes the archive
// writer needs to emit.
type EntryKind int

const (
	// KindFile copies file content from SourcePath on disk.
	KindFile EntryKind = iota
	// KindDir writes a directory header with no content.
	KindDir
	// KindSymlink writes a symlink header pointing at LinkTarget.
	KindSymlink
)

// Entry is one member of a tar archive being assembled: either a
// regular file staged on disk, a directory, or a symlink.
type Entry struct {
	// ArchivePath is the path inside the tarball, always "./"-relative
	// per the historical dpkg convention (e.g. "./usr/bin/hello").
	ArchivePath string
	Kind        EntryKind
	Mode        fs.FileMode
	// SourcePath is the on-disk file to stream for KindFile entries.
	SourcePath string
	// LinkTarget is the symlink destination for KindSymlink entries.
	LinkTarget string
	// Size is the file size in bytes for KindFile entries; used for
	// the tar header without re-stating it requires an extra stat.
	Size int64
}

// SortEntries orders entries lexicographically by archive path. When
// directory entries carry a trailing "/" (as the pipeline writes them),
// every directory therefore sorts immediately before its own contents,
// matching dpkg's expectation that a directory's tar header precedes
// anything installed under it.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ArchivePath < entries[j].ArchivePath
	})
}

func writeTarEntries(tw *tar.Writer, entries []Entry) error {
	for _, entry := range entries {
		header := &tar.Header{
			Name:    entry.ArchivePath,
			Mode:    int64(entry.Mode.Perm()),
			Uid:     0,
			Gid:     0,
			Uname:   "root",
			Gname:   "root",
			ModTime: time0,
		}

		switch entry.Kind {
		case KindDir:
			header.Typeflag = tar.TypeDir
			header.Mode = int64(entry.Mode.Perm())

			if err := tw.WriteHeader(header); err != nil {
				return fmt.Errorf("writing directory header %s: %w", entry.ArchivePath, err)
			}
		case KindSymlink:
			header.Typeflag = tar.TypeSymlink
			header.Linkname = entry.LinkTarget

			if err := tw.WriteHeader(header); err != nil {
				return fmt.Errorf("writing symlink header %s: %w", entry.ArchivePath, err)
			}
		case KindFile:
			header.Typeflag = tar.TypeReg
			header.Size = entry.Size

			if err := tw.WriteHeader(header); err != nil {
				return fmt.Errorf("writing file header %s: %w", entry.ArchivePath, err)
			}

			if err := copyFileContent(tw, entry); err != nil {
				return err
			}
		}
	}

	return nil
}

func copyFileContent(tw *tar.Writer, entry Entry) error {
	source, err := os.Open(filepath.Clean(entry.SourcePath))
	if err != nil {
		return fmt.Errorf("opening %s: %w", entry.SourcePath, err)
	}
	defer source.Close()

	buf := buffers.GetDefaultBuffer()
	defer buffers.PutDefaultBuffer(buf)

	if _, err := io.CopyBuffer(tw, source, buf); err != nil {
		return fmt.Errorf("copying %s into archive: %w", entry.SourcePath, err)
	}

	return nil
}

// time0 is the reproducible-build epoch every tar and ar header uses
// instead of the entry's real mtime.
var time0 = time.Unix(0, 0).UTC()

// WriteTarGz writes entries, already sorted with SortEntries, as a
// gzip-compressed tarball at outputFile, at gzip.BestCompression. The
// pipeline writes control.tar.gz through WriteTarGzLevel.
func WriteTarGz(entries []Entry, outputFile string) error {
	return WriteTarGzLevel(entries, outputFile, gzip.BestCompression)
}

// WriteTarGzLevel is WriteTarGz with an explicit pgzip compression
// level, letting the caller trade ratio for speed (gzip.BestSpeed
// under --fast).
func WriteTarGzLevel(entries []Entry, outputFile string, level int) error {
	out, err := os.Create(filepath.Clean(outputFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputFile, err)
	}
	defer out.Close()

	gz, err := pgzip.NewWriterLevel(out, level)
	if err != nil {
		return fmt.Errorf("initializing gzip writer: %w", err)
	}

	tw := tar.NewWriter(gz)

	if err := writeTarEntries(tw, entries); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar writer: %w", err)
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	return nil
}

// fastDictCap is the LZMA2 dictionary capacity WriteTarXzLevel selects
// under --fast: a small dictionary trades compression ratio for speed,
// the xz equivalent of a low numbered preset (xz -1 or so), versus the
// library default capacity used for the normal, best-ratio path.
const fastDictCap = 1 << 20

// WriteTarXz writes entries, already sorted with SortEntries, as an
// xz-compressed tarball at outputFile, using the library's default
// (best-ratio) LZMA2 settings. Used for data.tar.xz.
func WriteTarXz(entries []Entry, outputFile string) error {
	return WriteTarXzLevel(entries, outputFile, false)
}

// WriteTarXzLevel is WriteTarXz with an explicit fast switch: fast
// selects a small LZMA2 dictionary capacity (xz's fastest preset
// equivalent) instead of xz's default best-ratio dictionary, letting
// the caller trade ratio for speed the same way WriteTarGzLevel does
// for gzip.
func WriteTarXzLevel(entries []Entry, outputFile string, fast bool) error {
	out, err := os.Create(filepath.Clean(outputFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputFile, err)
	}
	defer out.Close()

	cfg := xz.WriterConfig{}
	if fast {
		cfg.DictCap = fastDictCap
	}

	xzWriter, err := cfg.NewWriter(out)
	if err != nil {
		return fmt.Errorf("initializing xz writer: %w", err)
	}

	tw := tar.NewWriter(xzWriter)

	if err := writeTarEntries(tw, entries); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar writer: %w", err)
	}

	if err := xzWriter.Close(); err != nil {
		return fmt.Errorf("closing xz writer: %w", err)
	}

	return nil
}

// ArMember names one of the three top-level files a .deb's outer ar
// archive carries, in the fixed order dpkg-deb requires:
// debian-binary, control.tar.*, data.tar.*.
type ArMember struct {
	Name string
	Path string
}

// ComposeDeb writes the outer ar(1) archive that is the .deb file
// itself, from already-built member files on disk, in member order.
func ComposeDeb(members []ArMember, outputFile string) error {
	out, err := os.Create(filepath.Clean(outputFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputFile, err)
	}
	defer out.Close()

	writer := ar.NewWriter(out)
	if err := writer.WriteGlobalHeader(); err != nil {
		return fmt.Errorf("writing ar global header: %w", err)
	}

	for _, member := range members {
		if err := addArMember(writer, member); err != nil {
			return err
		}
	}

	return nil
}

func addArMember(writer *ar.Writer, member ArMember) error {
	source, err := os.Open(filepath.Clean(member.Path))
	if err != nil {
		return fmt.Errorf("opening ar member %s: %w", member.Name, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stating ar member %s: %w", member.Name, err)
	}

	header := &ar.Header{
		Name:    member.Name,
		ModTime: time0,
		Mode:    0o644,
		Size:    info.Size(),
	}

	if err := writer.WriteHeader(header); err != nil {
		return fmt.Errorf("writing ar header %s: %w", member.Name, err)
	}

	buf := buffers.GetDefaultBuffer()
	defer buffers.PutDefaultBuffer(buf)

	if _, err := io.CopyBuffer(writer, source, buf); err != nil {
		return fmt.Errorf("writing ar content %s: %w", member.Name, err)
	}

	return nil
}
