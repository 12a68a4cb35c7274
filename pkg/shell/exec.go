// Package shell provides invocation of the external tools the pipeline
// shells out to: strip, objcopy, and the host's dependency-resolution
// helpers (dpkg-query, ldd).
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/debassemble/debassemble/pkg/logger"
)

// SetVerbose configures verbose logging output for command execution.
var SetVerbose = logger.SetVerbose

// Result captures a completed command's output alongside its error, so
// callers that need stdout (dependency detection parsing `dpkg-query`
// output) don't have to re-run the command.
type Result struct {
	Stdout string
	Stderr string
}

// Exec runs a command in dir, discarding output, and returns an error
// wrapping any non-zero exit or tool-not-found condition.
func Exec(dir, name string, args ...string) error {
	_, err := Output(context.Background(), dir, name, args...)
	return err
}

// Output runs a command and returns its captured stdout/stderr.
func Output(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("executing command", "command", name, "args", args, "dir", dir)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		logger.Debug("command execution failed",
			"command", name, "duration", duration, "error", err, "stderr", result.Stderr)

		return result, errors.Wrapf(err, "failed to execute %s", name)
	}

	logger.Debug("command execution completed", "command", name, "duration", duration)

	return result, nil
}

// LookPath reports whether name is available on PATH. Used by the
// dependency detector to decide whether to degrade gracefully (warn
// and skip) instead of invoking a missing tool.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
