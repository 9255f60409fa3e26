// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger wires log/slog for llmproc: a module-prefix filtering
// handler that suppresses third-party library chatter below debug level,
// and level parsing for the CLI's --log-level flag.
package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/kadirpekel/llmproc"

// ParseLevel converts a CLI-facing level name to an slog.Level. Unknown
// names fall back to Info, matching the CLI's "don't crash on a typo'd
// flag" posture.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// filteringHandler suppresses non-module log records below debug level,
// so a dependency's own slog usage (if any) doesn't clutter normal
// output; at debug level everything passes through.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

// NewHandler wraps handler with llmproc's module-prefix filtering at the
// given minimum level.
func NewHandler(handler slog.Handler, minLevel slog.Level) slog.Handler {
	return &filteringHandler{handler: handler, minLevel: minLevel}
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || isModuleCaller(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func isModuleCaller(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Name(), modulePrefix)
}

// New constructs the default module logger at the given level, writing
// text-formatted records to handler's underlying writer.
func New(minLevel slog.Level, base slog.Handler) *slog.Logger {
	return slog.New(NewHandler(base, minLevel))
}
