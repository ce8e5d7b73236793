// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry sets up logging, tracing and metrics for the batch run.
// This file configures slog so that JSON output is understood by Google Cloud
// Logging and carries the trace and span of the row being processed.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// LogOptions selects where and how logs are written.
type LogOptions struct {
	Format string    // "json" (default) or "text".
	Level  string    // debug, info, warn or error.
	File   string    // Optional copy of the log; truncated at startup.
	Output io.Writer // Defaults to os.Stdout.
}

// spanContextLogHandler adds the Cloud Logging trace fields for the span in
// the record's context.
type spanContextLogHandler struct {
	slog.Handler
}

func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

// See https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

// replacer renames the slog keys to the ones Cloud Logging expects.
func replacer(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#LogSeverity
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a level name to a slog.Level; unknown names are Info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewHandler builds the handler SetupLogging installs, writing to w.
func NewHandler(w io.Writer, options LogOptions) slog.Handler {
	handlerOptions := &slog.HandlerOptions{Level: ParseLevel(options.Level)}
	var base slog.Handler
	if strings.EqualFold(options.Format, LogFormatText) {
		base = slog.NewTextHandler(w, handlerOptions)
	} else {
		handlerOptions.ReplaceAttr = replacer
		base = slog.NewJSONHandler(w, handlerOptions)
	}
	return handlerWithSpanContext(base)
}

// SetupLogging installs the default slog logger and points the standard log
// package at the same output.
//
// Inputs:
//   - options: Format, level and optional log file.
//
// Outputs:
//   - func() error: Closes the log file, if any.
//   - error: The log file could not be created.
func SetupLogging(options LogOptions) (closer func() error, err error) {
	closer = func() error { return nil }
	output := options.Output
	if output == nil {
		output = os.Stdout
	}

	if options.File != "" {
		file, err := os.Create(options.File)
		if err != nil {
			return closer, fmt.Errorf("failed to create log file %s: %w", options.File, err)
		}
		output = io.MultiWriter(output, file)
		closer = file.Close
	}

	log.SetOutput(output)
	log.SetFlags(log.Ldate | log.Ltime)

	slog.SetDefault(slog.New(NewHandler(output, options)))
	return closer, nil
}
