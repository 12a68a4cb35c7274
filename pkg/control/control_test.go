package control

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debassemble/debassemble/pkg/assets"
)

func sampleData() Data {
	return Data{
		Name:             "hello",
		Version:          "0.1.0",
		Revision:         "1",
		Section:          "utils",
		Priority:         "optional",
		Architecture:     "amd64",
		Maintainer:       "Jane Doe <jane@example.com>",
		Description:      "says hi",
		InstalledSizeKiB: 42,
		Depends:          []string{"libc6 (>= 2.28)", "libssl3"},
		PreDepends:       []string{"dpkg (>= 1.19)"},
		Recommends:       []string{"bash-completion"},
		Suggests:         []string{"man-db"},
		Enhances:         []string{"vim"},
		Conflicts:        []string{"hello-legacy"},
		Breaks:           []string{"hello-data (<< 0.1)"},
		Replaces:         []string{"hello-data (<< 0.1)"},
		Provides:         []string{"hello-cli"},
	}
}

func TestRenderControlFieldOrder(t *testing.T) {
	t.Parallel()

	out, err := RenderControl(sampleData())
	require.NoError(t, err)

	indices := []int{
		strings.Index(out, "Package: hello"),
		strings.Index(out, "Version: 0.1.0-1"),
		strings.Index(out, "Architecture: amd64"),
		strings.Index(out, "Maintainer: Jane Doe"),
		strings.Index(out, "Installed-Size: 42"),
		strings.Index(out, "Depends: libc6 (>= 2.28), libssl3"),
		strings.Index(out, "Pre-Depends: dpkg (>= 1.19)"),
		strings.Index(out, "Recommends: bash-completion"),
		strings.Index(out, "Suggests: man-db"),
		strings.Index(out, "Enhances: vim"),
		strings.Index(out, "Conflicts: hello-legacy"),
		strings.Index(out, "Breaks: hello-data"),
		strings.Index(out, "Replaces: hello-data"),
		strings.Index(out, "Provides: hello-cli"),
		strings.Index(out, "Section: utils"),
		strings.Index(out, "Priority: optional"),
		strings.Index(out, "Description: says hi"),
	}

	for _, idx := range indices {
		require.GreaterOrEqual(t, idx, 0)
	}

	for i := 1; i < len(indices); i++ {
		assert.Less(t, indices[i-1], indices[i], "field at position %d is out of canonical order", i)
	}
}

func TestRenderControlOmitsEmptyRelations(t *testing.T) {
	t.Parallel()

	data := sampleData()
	data.Depends = nil
	data.Provides = nil

	out, err := RenderControl(data)
	require.NoError(t, err)
	assert.NotContains(t, out, "\nDepends:")
	assert.NotContains(t, out, "Provides:")
}

func TestRenderCopyrightEmptyWhenNoLicenseInfo(t *testing.T) {
	t.Parallel()

	out, err := RenderCopyright(sampleData())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderCopyrightIncludesLicense(t *testing.T) {
	t.Parallel()

	data := sampleData()
	data.License = "MIT"
	data.Copyright = "2026 Jane Doe"

	out, err := RenderCopyright(data)
	require.NoError(t, err)
	assert.Contains(t, out, "License: MIT")
	assert.Contains(t, out, "Copyright: 2026 Jane Doe")
}

func TestConffilesNormalizesLeadingSlash(t *testing.T) {
	t.Parallel()

	out := Conffiles([]string{"etc/hello.conf", "/etc/other.conf"})
	assert.Equal(t, "/etc/hello.conf\n/etc/other.conf\n", out)
}

func TestMd5sumsSortedAndStripsLeadingSlash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pathA := filepath.Join(dir, "b.txt")
	pathB := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("world"), 0o644))

	list := assets.AssetList{
		{SourcePath: pathA, InstalledPath: "/usr/share/doc/hello/b.txt"},
		{SourcePath: pathB, InstalledPath: "/usr/share/doc/hello/a.txt"},
	}

	out, err := Md5sums(list)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "usr/share/doc/hello/a.txt"))
	assert.True(t, strings.HasSuffix(lines[1], "usr/share/doc/hello/b.txt"))
}

func TestScriptsPrependsRemoveHeaderOnRemovalScripts(t *testing.T) {
	t.Parallel()

	out := Scripts(map[string]string{
		"postinst": "#!/bin/sh\necho hi\n",
		"prerm":    "#!/bin/sh\necho bye\n",
	})

	assert.NotContains(t, out["postinst"], "purge|remove")
	assert.Contains(t, out["prerm"], "purge|remove")
}

func TestScriptsOmitsEmptyBodies(t *testing.T) {
	t.Parallel()

	out := Scripts(map[string]string{"postinst": "", "preinst": "x"})
	_, hasPostinst := out["postinst"]
	assert.False(t, hasPostinst)
	assert.Equal(t, "x", out["preinst"])
}

func TestChangelogGzRoundTrips(t *testing.T) {
	t.Parallel()

	compressed, err := ChangelogGz("hello (0.1.0) unstable; urgency=low\n\n  * Initial release.\n")
	require.NoError(t, err)

	reader, err := gzip.NewReader(strings.NewReader(string(compressed)))
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Initial release")
}

func TestCopyTriggersFileNoopWhenUnset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, CopyTriggersFile(dir, ""))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyTriggersFileStagesContent(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	triggersPath := filepath.Join(src, "triggers")
	require.NoError(t, os.WriteFile(triggersPath, []byte("interest-noawait /usr/bin/hello\n"), 0o644))

	dst := t.TempDir()
	require.NoError(t, CopyTriggersFile(dst, triggersPath))

	content, err := os.ReadFile(filepath.Join(dst, "triggers"))
	require.NoError(t, err)
	assert.Equal(t, "interest-noawait /usr/bin/hello\n", string(content))
}

func TestCopyExtraControlFilesNoopWhenUnset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, CopyExtraControlFiles(dir, ""))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyExtraControlFilesSkipsEmptyDir(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, CopyExtraControlFiles(dst, src))

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyExtraControlFilesCopiesTree(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "config"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "templates"), []byte("Template: hello/name\n"), 0o644))

	dst := t.TempDir()
	require.NoError(t, CopyExtraControlFiles(dst, src))

	config, err := os.ReadFile(filepath.Join(dst, "config"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(config))

	templates, err := os.ReadFile(filepath.Join(dst, "templates"))
	require.NoError(t, err)
	assert.Contains(t, string(templates), "Template: hello/name")
}

func TestWriteMaintainerScriptsSetsExecutableMode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, WriteMaintainerScripts(dir, map[string]string{
		"postinst": "#!/bin/sh\necho hi\n",
	}))

	info, err := os.Stat(filepath.Join(dir, "postinst"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
