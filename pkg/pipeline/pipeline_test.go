package pipeline

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	arpkg "github.com/blakesmith/ar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/debassemble/debassemble/pkg/config"
	"github.com/debassemble/debassemble/pkg/manifest"
)

func buildTestConfig(t *testing.T, manifestDir string) *config.PackageConfig {
	t.Helper()

	binPath := filepath.Join(manifestDir, "hello")
	require.NoError(t, os.WriteFile(binPath, []byte("#!/bin/sh\necho hi\n"), 0o755))

	upstream := manifest.Upstream{
		Name:        "hello",
		Version:     "0.1.0",
		Description: "says hi",
		Authors:     []string{"Jane Doe"},
	}
	upstream.Metadata.Assets = []manifest.AssetSpec{
		{Source: "hello", Dest: "/usr/bin/hello", Mode: "755"},
	}

	cfg, err := config.Resolve(upstream, manifest.CLIOverrides{ManifestPath: manifestDir})
	require.NoError(t, err)

	return cfg
}

func TestAssembleProducesValidDeb(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := buildTestConfig(t, dir)

	outputPath := filepath.Join(dir, "out.deb")

	result, err := Assemble(context.Background(), cfg, Options{OutputPath: outputPath})
	require.NoError(t, err)
	assert.Equal(t, outputPath, result.OutputPath)
	assert.Greater(t, result.InstalledSizeKiB, int64(0))

	debFile, err := os.Open(outputPath)
	require.NoError(t, err)
	defer debFile.Close()

	reader := arpkg.NewReader(debFile)

	var names []string

	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		names = append(names, header.Name)
	}

	assert.Equal(t, []string{"debian-binary", "control.tar.gz", "data.tar.xz"}, names)
}

func TestAssembleFastStillUsesXzForData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := buildTestConfig(t, dir)
	cfg.Fast = true

	outputPath := filepath.Join(dir, "out.deb")

	_, err := Assemble(context.Background(), cfg, Options{OutputPath: outputPath})
	require.NoError(t, err)

	debFile, err := os.Open(outputPath)
	require.NoError(t, err)
	defer debFile.Close()

	reader := arpkg.NewReader(debFile)

	var sawDataXz bool

	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)

		if header.Name == "data.tar.xz" {
			sawDataXz = true
		}
	}

	assert.True(t, sawDataXz, "--fast should still produce data.tar.xz, only at a faster preset")
}

func TestAssembleCountsSystemdUnitsInInstalledSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	withoutUnitCfg := buildTestConfig(t, dir)
	withoutUnitPath := filepath.Join(dir, "without.deb")
	resultWithout, err := Assemble(context.Background(), withoutUnitCfg, Options{OutputPath: withoutUnitPath})
	require.NoError(t, err)

	unitPath := filepath.Join(dir, "hello.service")
	// Padded past 1 KiB so the unit alone crosses a KiB boundary of the
	// rounded-up Installed-Size.
	unitBody := "[Unit]\nDescription=hello\n[Service]\nExecStart=/usr/bin/hello\n[Install]\nWantedBy=multi-user.target\n" +
		"# " + strings.Repeat("x", 1024) + "\n"
	require.NoError(t, os.WriteFile(unitPath, []byte(unitBody), 0o644))

	withUnitCfg := buildTestConfig(t, dir)
	withUnitCfg.SystemdUnits = []string{unitPath}

	withUnitPath := filepath.Join(dir, "with.deb")
	resultWithUnit, err := Assemble(context.Background(), withUnitCfg, Options{OutputPath: withUnitPath})
	require.NoError(t, err)

	assert.Greater(t, resultWithUnit.InstalledSizeKiB, resultWithout.InstalledSizeKiB,
		"Installed-Size must grow once a systemd unit asset is staged")

	debFile, err := os.Open(withUnitPath)
	require.NoError(t, err)
	defer debFile.Close()

	reader := arpkg.NewReader(debFile)

	var names []string

	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)

		if header.Name == "data.tar.xz" {
			names = dataTarXzEntryNames(t, reader)
		}
	}

	assert.Contains(t, names, "./lib/systemd/system/", "expected ancestor directory to be staged")
	assert.Contains(t, names, "./lib/systemd/system/hello.service")
}

func dataTarXzEntryNames(t *testing.T, r io.Reader) []string {
	t.Helper()

	xzReader, err := xz.NewReader(r)
	require.NoError(t, err)

	tr := tar.NewReader(xzReader)

	var names []string

	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		names = append(names, th.Name)
	}

	return names
}

func TestControlTarContainsControlFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := buildTestConfig(t, dir)

	outputPath := filepath.Join(dir, "out.deb")

	_, err := Assemble(context.Background(), cfg, Options{OutputPath: outputPath})
	require.NoError(t, err)

	debFile, err := os.Open(outputPath)
	require.NoError(t, err)
	defer debFile.Close()

	reader := arpkg.NewReader(debFile)

	var controlBytes []byte

	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)

		if header.Name == "control.tar.gz" {
			gz, err := gzip.NewReader(reader)
			require.NoError(t, err)

			tr := tar.NewReader(gz)

			for {
				th, err := tr.Next()
				if err == io.EOF {
					break
				}

				require.NoError(t, err)

				if th.Name == "./control" {
					controlBytes, err = io.ReadAll(tr)
					require.NoError(t, err)
				}
			}
		}
	}

	require.NotEmpty(t, controlBytes)
	assert.Contains(t, string(controlBytes), "Package: hello")
	assert.Contains(t, string(controlBytes), "Architecture:")
}
