package common

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation policy for the optional log file sink.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 5
)

// LoggingOpts configures the process-wide logger created by SetupLogger.
type LoggingOpts struct {
	// Debug enables debug-level records.
	Debug bool

	// JSON switches the handler from text to JSON output.
	JSON bool

	// Service is attached as a 'service' attribute to every record.
	Service string

	// Version is attached as a 'version' attribute to every record.
	Version string

	// LogFile, when non-empty, duplicates output to a size-rotated file
	// in addition to stdout.
	LogFile string
}

// SetupLogger creates the process logger. Output goes to stdout, and to a
// rotating file as well when LogFile is set.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if opts.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
		})
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}

	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}
