// Package platform maps compiler target triples to Debian architecture
// names, using glob-style triple patterns so one entry covers a whole
// vendor axis (the "*" in "x86_64-*-linux-gnu") instead of enumerating
// every vendor string a toolchain might emit.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// tripleMapping pairs a glob-style target triple pattern against its
// Debian architecture name. Patterns are matched segment-by-segment;
// "*" matches exactly one triple segment.
var tripleMapping = []struct {
	pattern string
	debian  string
}{
	{"x86_64-*-linux-gnu", "amd64"},
	{"i686-*-linux-gnu", "i386"},
	{"aarch64-*-linux-gnu", "arm64"},
	{"armv7-*-linux-gnueabihf", "armhf"},
	{"arm-*-linux-gnueabi", "armel"},
}

// hostTripleByGOARCH covers the subset of Go's GOARCH values this
// table's native triples can be derived from when no --target flag is
// given.
var hostTripleByGOARCH = map[string]string{
	"amd64": "x86_64-unknown-linux-gnu",
	"386":   "i686-unknown-linux-gnu",
	"arm64": "aarch64-unknown-linux-gnu",
}

// DebianArch resolves a target triple to its Debian architecture name.
// An empty triple resolves the host's native triple. Returns an error
// for a triple matching none of the known patterns; an unrecognized
// target is a configuration mistake worth failing loudly on, not a
// case to silently default.
func DebianArch(triple string) (string, error) {
	if triple == "" {
		native, ok := hostTripleByGOARCH[runtime.GOARCH]
		if !ok {
			return "", fmt.Errorf("no native triple known for GOARCH %q", runtime.GOARCH)
		}

		triple = native
	}

	for _, m := range tripleMapping {
		if matchTriple(m.pattern, triple) {
			return m.debian, nil
		}
	}

	return "", fmt.Errorf("unrecognized target triple %q", triple)
}

// matchTriple compares a glob pattern against a triple segment by
// segment, where "*" in the pattern matches any single segment and
// the segment count must agree.
func matchTriple(pattern, triple string) bool {
	patternParts := strings.Split(pattern, "-")
	tripleParts := strings.Split(triple, "-")

	if len(patternParts) != len(tripleParts) {
		return false
	}

	for i, p := range patternParts {
		if p == "*" {
			continue
		}

		if p != tripleParts[i] {
			return false
		}
	}

	return true
}
