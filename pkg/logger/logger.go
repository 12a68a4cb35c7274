// Package logger provides structured, colorized logging for the package
// assembly pipeline.
package logger

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

const prefix = "[deb-assemble] "

// MultiPrinter is the default multiprinter for concurrent logging; the
// package logger writes through its Writer.
var MultiPrinter = pterm.DefaultMultiPrinter

var (
	ptermLogger = pterm.DefaultLogger.
			WithLevel(pterm.LogLevelInfo).
			WithWriter(MultiPrinter.Writer).
			WithCaller(false).
			WithTime(true).
			WithKeyStyles(map[string]pterm.Style{
			// package identity
			"package": *pterm.NewStyle(pterm.FgGreen),
			"version": *pterm.NewStyle(pterm.FgGreen),
			"arch":    *pterm.NewStyle(pterm.FgGreen),
			// paths and commands
			"path":    *pterm.NewStyle(pterm.FgLightBlue),
			"command": *pterm.NewStyle(pterm.FgLightBlue),
			"dest":    *pterm.NewStyle(pterm.FgLightBlue),
			// counts and sizes
			"count": *pterm.NewStyle(pterm.FgBlue),
			"bytes": *pterm.NewStyle(pterm.FgBlue),
			"kib":   *pterm.NewStyle(pterm.FgBlue),
			// error context
			"error": *pterm.NewStyle(pterm.FgRed),
		})
	verboseEnabled = false
	colorDisabled  = false
)

func argsToLoggerArgs(args ...any) []pterm.LoggerArgument {
	if len(args) == 0 {
		return nil
	}

	loggerArgs := make([]pterm.LoggerArgument, 0, len(args)/2)

	for i := 0; i+1 < len(args); i += 2 {
		loggerArgs = append(loggerArgs, pterm.LoggerArgument{
			Key:   fmt.Sprintf("%v", args[i]),
			Value: args[i+1],
		})
	}

	return loggerArgs
}

// SetVerbose raises or lowers the active log level.
func SetVerbose(verbose bool) {
	verboseEnabled = verbose
	if verbose {
		ptermLogger = ptermLogger.WithLevel(pterm.LogLevelTrace)
	} else {
		ptermLogger = ptermLogger.WithLevel(pterm.LogLevelInfo)
	}
}

// IsColorDisabled reports whether colored output is currently suppressed.
func IsColorDisabled() bool {
	if colorDisabled {
		return true
	}

	if os.Getenv("NO_COLOR") != "" {
		return true
	}

	return os.Getenv("TERM") == "" && os.Getenv("COLORTERM") == ""
}

// SetColorDisabled forces colored output on or off.
func SetColorDisabled(disabled bool) {
	colorDisabled = disabled
	if disabled {
		pterm.DisableColor()
	} else {
		pterm.EnableColor()
	}
}

// Debug logs a trace-level message. Suppressed unless verbose mode is on.
func Debug(msg string, args ...any) {
	if !verboseEnabled {
		return
	}

	ptermLogger.Debug(prefix+msg, argsToLoggerArgs(args...))
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	ptermLogger.Info(prefix+msg, argsToLoggerArgs(args...))
}

// Warn logs a non-fatal warning: duplicate asset destinations, missing
// dependency-detection tools, empty extended descriptions, and other
// conditions worth surfacing without aborting the assembly.
func Warn(msg string, args ...any) {
	ptermLogger.Warn(prefix+msg, argsToLoggerArgs(args...))
}

// Error logs a fatal-kind error before the orchestrator tears down the
// staging tree and exits non-zero.
func Error(msg string, args ...any) {
	ptermLogger.Error(prefix+msg, argsToLoggerArgs(args...))
}

// Fatal logs an error and terminates the process immediately.
func Fatal(msg string, args ...any) {
	ptermLogger.Fatal(prefix+msg, argsToLoggerArgs(args...))
}
