// Package binary provides ELF binary post-processing: symbol stripping
// and separate debug-symbol extraction, as performed by the binary
// post-processing stage of the assembly pipeline.
package binary

import (
	"context"
	"fmt"

	"github.com/debassemble/debassemble/pkg/shell"
)

// StripFile removes debugging symbols from a binary file in place
// using the default "strip" tool found on PATH.
func StripFile(path string, args ...string) error {
	return StripFileWithTool("strip", path, args...)
}

// StripFileWithTool is StripFile with an explicit strip tool name or
// path, for cross-compilation toolchains that ship a prefixed strip
// (e.g. aarch64-linux-gnu-strip).
func StripFileWithTool(tool, path string, args ...string) error {
	return strip(tool, path, args...)
}

// StripLTO removes LTO (Link Time Optimization) sections from a binary
// file, in addition to ordinary debug symbols.
func StripLTO(path string, args ...string) error {
	return StripLTOWithTool("strip", path, args...)
}

// StripLTOWithTool is StripLTO with an explicit strip tool.
func StripLTOWithTool(tool, path string, args ...string) error {
	return strip(
		tool, path,
		append(args, "-R", ".gnu.lto_*", "-R", ".gnu.debuglto_*", "-N", "__gnu_lto_v1")...)
}

func strip(tool, path string, args ...string) error {
	args = append(args, path)
	return shell.Exec("", tool, args...)
}

// ExtractDebugSymbols splits debug information out of the binary at
// path into a separate file at debugPath using objcopy's
// --only-keep-debug, then strips and links the two together with a
// .gnu_debuglink section. The caller is responsible for placing
// debugPath under the conventional
// /usr/lib/debug/.build-id/<xx>/<rest>.debug installed path.
func ExtractDebugSymbols(path, debugPath string) error {
	return ExtractDebugSymbolsWithTools("strip", "objcopy", path, debugPath)
}

// ExtractDebugSymbolsWithTools is ExtractDebugSymbols with explicit
// strip/objcopy tool names.
func ExtractDebugSymbolsWithTools(stripTool, objcopyTool, path, debugPath string) error {
	if err := shell.Exec("", objcopyTool, "--only-keep-debug", path, debugPath); err != nil {
		return fmt.Errorf("extracting debug symbols: %w", err)
	}

	if err := StripFileWithTool(stripTool, path); err != nil {
		return fmt.Errorf("stripping original after debug extraction: %w", err)
	}

	if err := shell.Exec("", objcopyTool, "--add-gnu-debuglink="+debugPath, path); err != nil {
		return fmt.Errorf("linking debug symbols: %w", err)
	}

	return nil
}

// BuildID runs readelf -n on the binary and returns its raw output
// (every ELF note, the build-id note among them); extracting the
// build-id value itself is left to the caller.
func BuildID(path string) (string, error) {
	result, err := shell.Output(context.Background(), "", "readelf", "-n", path)
	if err != nil {
		return "", fmt.Errorf("reading build-id: %w", err)
	}

	return result.Stdout, nil
}
