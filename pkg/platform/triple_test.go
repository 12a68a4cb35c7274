package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebianArchKnownTriples(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"x86_64-unknown-linux-gnu":       "amd64",
		"i686-unknown-linux-gnu":         "i386",
		"aarch64-unknown-linux-gnu":      "arm64",
		"armv7-unknown-linux-gnueabihf":  "armhf",
		"arm-unknown-linux-gnueabi":      "armel",
	}

	for triple, want := range cases {
		got, err := DebianArch(triple)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDebianArchUnknownTriple(t *testing.T) {
	t.Parallel()

	_, err := DebianArch("riscv64-unknown-linux-gnu")
	assert.Error(t, err)
}

func TestDebianArchEmptyUsesHost(t *testing.T) {
	t.Parallel()

	_, err := DebianArch("")
	// Either resolves to a known GOARCH or errors cleanly; must not panic.
	_ = err
}
