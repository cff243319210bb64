package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"schemagate/internal/config"
)

// LoggerFactory builds the process logger from config and CLI flags.
// Precedence: CLI flags > config > default (warn).
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory.
// cliLevel is nil when no verbosity flag was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		root:     root,
		config:   cfg,
		cliLevel: cliLevel,
	}
}

// Logger returns a logger writing to stderr, tee'd to the configured log
// file when one is set. A log file that cannot be opened is skipped.
func (f *LoggerFactory) Logger(stderr io.Writer) *slog.Logger {
	level := ResolveLevel(f.cliLevel, f.config.Logging.Level)
	console := NewLineHandler(stderr, &slog.HandlerOptions{Level: level})

	if f.config.Logging.File == "" {
		return slog.New(console)
	}

	path := f.config.Logging.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return slog.New(console)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return slog.New(console)
	}
	f.closers = append(f.closers, file)

	// The file always records at the configured level, even when the console is quieter.
	fileLevel, _ := ParseLevel(f.config.Logging.Level)
	fileHandler := NewLineHandler(file, &slog.HandlerOptions{Level: fileLevel})
	return slog.New(fanout{console, fileHandler})
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
