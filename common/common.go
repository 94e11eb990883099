// Package common holds process-wide identifiers and logger construction.
package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// PackageName prefixes metric names and identifies the binary.
const PackageName = "schedsim"

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// LoggingOpts configures SetupLogger.
type LoggingOpts struct {
	// Level is one of debug, info, warn or error.
	Level string
	// JSON selects the JSON handler instead of the text handler.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// SetupLogger builds the process logger. Every record carries the version.
func SetupLogger(opts *LoggingOpts) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler).With("version", Version), nil
}
