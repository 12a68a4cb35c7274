package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debassemble/debassemble/pkg/manifest"
)

func TestBuildCommandRegistered(t *testing.T) {
	t.Parallel()

	cmd, _, err := rootCmd.Find([]string{"build"})
	require.NoError(t, err)
	assert.Equal(t, buildCmd, cmd)
}

func TestBuildCommandFlagsRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{
		"output", "install", "no-build", "no-strip",
		"separate-debug-symbols", "fast", "target", "variant",
		"deb-version", "manifest-path",
	} {
		assert.NotNil(t, buildCmd.Flags().Lookup(name), "expected flag %q", name)
	}
}

func TestLoadUpstreamRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	upstream := manifest.Upstream{
		Name:        "hello",
		Version:     "0.1.0",
		Description: "says hi",
		Authors:     []string{"Jane Doe"},
	}

	content, err := json.Marshal(upstream)
	require.NoError(t, err)

	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	got, err := loadUpstream(path)
	require.NoError(t, err)
	assert.Equal(t, upstream, got)
}

func TestLoadUpstreamMissingFileIsError(t *testing.T) {
	t.Parallel()

	_, err := loadUpstream("/nonexistent/manifest.json")
	assert.Error(t, err)
}
