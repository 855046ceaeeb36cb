// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger shared by every component.
//
// The terminal UI owns stdout and stderr, so by default logs go to a file
// under the config directory.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level, format and destination.
type Options struct {
	// Level is a zerolog level name: trace, debug, info, warn, error or
	// disabled.
	Level string
	// Format is "json" or "console".
	Format string
	// File is the log file. Ignored when Stderr is set.
	File string
	// Stderr logs to stderr instead of a file.
	Stderr bool
}

// New constructs a logger. The returned closer releases the log file and is
// never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	if opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if !opts.Stderr && lvl != zerolog.Disabled {
		if opts.File == "" {
			return zerolog.Nop(), nopCloser{}, errors.New("log file path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	logger, err := newWithWriter(out, lvl, opts.Format, opts.Stderr)
	if err != nil {
		closer.Close()
		return zerolog.Nop(), nopCloser{}, err
	}
	return logger, closer, nil
}

func newWithWriter(out io.Writer, lvl zerolog.Level, format string, color bool) (zerolog.Logger, error) {
	switch strings.ToLower(format) {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    !color,
		}
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q", format)
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
