package strip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debassemble/debassemble/pkg/assets"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	return path
}

func TestIsSystemBinaryPath(t *testing.T) {
	t.Parallel()

	assert.True(t, isSystemBinaryPath("/usr/bin/hello"))
	assert.True(t, isSystemBinaryPath("/usr/lib/libhello.so.1"))
	assert.False(t, isSystemBinaryPath("/etc/hello.conf"))
	assert.False(t, isSystemBinaryPath("/usr/share/doc/hello/README"))
}

func TestProcessSkipsNonBinaryAssets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	confPath := writeFile(t, dir, "hello.conf", []byte("key=value\n"))

	list := assets.AssetList{
		{SourcePath: confPath, InstalledPath: "/etc/hello.conf", Mode: 0o644},
	}

	out, size, err := Process(list, Options{Enabled: true})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Greater(t, size, int64(0))
}

func TestProcessSkipsDirsAndSymlinks(t *testing.T) {
	t.Parallel()

	list := assets.AssetList{
		{InstalledPath: "/usr/bin", IsDir: true, Mode: 0o755},
		{InstalledPath: "/usr/bin/hello-link", IsSymlink: true, LinkTarget: "hello"},
	}

	out, _, err := Process(list, Options{Enabled: true})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestProcessLeavesNonELFSystemBinaryUntouched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Not a valid ELF file: GetFileType returns "" and the asset is
	// left alone rather than failing the whole pass.
	scriptPath := writeFile(t, dir, "hello", []byte("#!/bin/sh\necho hi\n"))

	list := assets.AssetList{
		{SourcePath: scriptPath, InstalledPath: "/usr/bin/hello", Mode: 0o755},
	}

	out, _, err := Process(list, Options{Enabled: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, scriptPath, out[0].SourcePath)
}

func TestInstalledSizeKiBRoundsUp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "tiny", []byte("x"))

	size, err := installedSizeKiB(assets.AssetList{
		{SourcePath: path, InstalledPath: "/usr/share/doc/hello/tiny", Mode: 0o644},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestStripFlagsByELFType(t *testing.T) {
	t.Parallel()

	flags, lto := stripFlags("ET_DYN", "/usr/lib/libhello.so")
	assert.Equal(t, "--strip-unneeded", flags)
	assert.False(t, lto)

	flags, lto = stripFlags("ET_EXEC", "/usr/bin/hello")
	assert.Equal(t, "--strip-all", flags)
	assert.False(t, lto)

	flags, _ = stripFlags("ET_NONE", "/usr/bin/hello")
	assert.Empty(t, flags)
}
