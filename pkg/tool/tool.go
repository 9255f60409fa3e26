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

// Package tool defines the tool-handler contract dispatched by a Process's
// executor loop, the Tool Registry that resolves a tool-use block's name to
// a handler, and the narrow interfaces (ProcessHandle, Spawnable) through
// which context-aware built-ins reach back into a running process without
// importing package process.
package tool

import (
	"context"
	"fmt"

	"github.com/kadirpekel/llmproc/pkg/fd"
	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// Definition is a tool's LLM-facing shape: name, description, and JSON
// Schema for its arguments.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a single tool-use request decoded from a provider response.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// RuntimeContext is threaded into every Handler invocation. It carries the
// per-process services a handler may need: the FD manager, process
// metadata, and (for context-aware handlers only) the owning process
// itself.
type RuntimeContext struct {
	Context context.Context

	// ProcessID identifies the invoking process for logging/diagnostics.
	ProcessID string

	// FDManager is this process's File-Descriptor Manager. Nil if file
	// descriptors are disabled.
	FDManager *fd.Manager

	// Process is set only when the handler is context-aware; it grants
	// access to spawn, goto, and message-log introspection.
	Process ProcessHandle

	// ToolCallID is the id of the tool-use block currently being
	// dispatched, for handlers that need to correlate their own output.
	ToolCallID string
}

// ProcessHandle is the surface of a running process that a context-aware
// built-in tool (spawn, goto) is allowed to touch. It is implemented by
// *process.Process; defining it here (rather than importing package
// process) keeps package tool and pkg/tool/builtin free of a dependency on
// the process package, which itself depends on tool.
type ProcessHandle interface {
	// ID returns the process's identifier.
	ID() string

	// Messages returns the process's message log.
	Messages() *message.Log

	// TruncateTo discards every message after id, implementing goto.
	TruncateTo(id message.ID) error

	// Spawner exposes the spawn surface, or nil if this process has no
	// linked programs to spawn from.
	Spawner() Spawnable
}

// Spawnable is the subset of process behavior needed to launch a child
// process from a linked program and run it to completion.
type Spawnable interface {
	// SpawnAndRun starts (or resumes, per the reuse-if-live rule) the
	// child process registered under linkName and runs prompt to
	// completion, returning the child's final assistant text.
	// additionalPreloadFiles are read and merged into the child's preload
	// map before the run; additionalPreloadFDs are copied into the
	// child's FD Manager before the run.
	SpawnAndRun(ctx context.Context, linkName, prompt string, additionalPreloadFiles, additionalPreloadFDs []string) (string, error)

	// LinkNames lists the names available to spawn from, for error
	// messages naming the available programs.
	LinkNames() []string
}

// Handler is the tagged variant every registered tool implements: either a
// context-free function (pure arguments in, result out) or a context-aware
// function that also receives a RuntimeContext. Exactly one of Free or
// Aware is set.
type Handler struct {
	Definition Definition

	// Free handles tools with no dependency on process state (calculator,
	// read_file, list_dir).
	Free func(ctx context.Context, args map[string]any) *toolresult.Result

	// Aware handles tools that read or mutate process state (read_fd,
	// fd_to_file, spawn, goto).
	Aware func(rt RuntimeContext, args map[string]any) *toolresult.Result
}

// IsContextAware reports whether h must be invoked through Aware.
func (h Handler) IsContextAware() bool {
	return h.Aware != nil
}

// Invoke dispatches to whichever of Free/Aware is set.
func (h Handler) Invoke(rt RuntimeContext, args map[string]any) *toolresult.Result {
	if h.Aware != nil {
		return h.Aware(rt, args)
	}
	if h.Free != nil {
		return h.Free(rt.Context, args)
	}
	return toolresult.Errorf("tool %q has no handler", h.Definition.Name)
}

// Capability names a runtime precondition a tool depends on (e.g.
// "file_descriptors", "spawn").
type Capability string

const (
	CapabilityFileDescriptors Capability = "file_descriptors"
	CapabilitySpawn           Capability = "spawn"
)

// MissingCapabilityError reports that a tool was registered but the
// process configuration it depends on (file descriptors enabled, linked
// programs present) is absent.
type MissingCapabilityError struct {
	Tool       string
	Capability Capability
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("tool %q requires capability %q which is not enabled", e.Tool, e.Capability)
}

// RequireCapabilities validates that every capability a tool set depends
// on is actually available, returning the first violation.
func RequireCapabilities(toolNames []string, fdEnabled, spawnEnabled bool) error {
	fdTools := map[string]bool{"read_fd": true, "fd_to_file": true}
	spawnTools := map[string]bool{"spawn": true}

	for _, name := range toolNames {
		if fdTools[name] && !fdEnabled {
			return &MissingCapabilityError{Tool: name, Capability: CapabilityFileDescriptors}
		}
		if spawnTools[name] && !spawnEnabled {
			return &MissingCapabilityError{Tool: name, Capability: CapabilitySpawn}
		}
	}
	return nil
}
