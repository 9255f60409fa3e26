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

// Package process is the live, running instance of a compiled Program: it
// owns the message log, the File-Descriptor Manager, the Tool Registry,
// and the linked-program map, and drives the Provider Executor loop that
// turns a user prompt into a model response (executor.go, fork.go,
// autowrap.go).
package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/kadirpekel/llmproc/pkg/fd"
	"github.com/kadirpekel/llmproc/pkg/mcpconnector"
	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/program"
	"github.com/kadirpekel/llmproc/pkg/provider"
	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/tool/builtin"
)

// DefaultMaxIterations bounds a Run when neither the Program nor the
// caller specifies one.
const DefaultMaxIterations = 10

// linkEntry is one entry of a Process's linked-program map: either an
// uncompiled Program (started lazily by spawn) or an already-running
// Process being reused, per the sum-type resolution of the Ownership of
// linked Processes open question.
type linkEntry struct {
	program     *program.Program
	description string
	live        *Process
}

// truncation records one goto event, for the optional time-travel history.
type truncation struct {
	to  message.ID
	len int
}

// Options configures Process construction. Fields left zero take the
// documented default.
type Options struct {
	// Registry resolves and caches provider adapters. Shared across a
	// fork/spawn tree so sibling and child processes reuse one
	// provider client per name instead of reconnecting. Created fresh
	// if nil.
	Registry *provider.Registry

	// Logger receives preload-miss warnings and callback panics.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// AllowFork permits this process to run the fork tool. Cleared on
	// every child produced by ForkProcess or fork itself, regardless of
	// what the caller passes here for a top-level process.
	AllowFork bool

	// id overrides the generated process id; used by ForkProcess and
	// spawn to derive readable child ids. Empty means "root".
	id string
}

// Process is a running instance of a compiled Program.
type Process struct {
	id        string
	prog      *program.Program
	providers *provider.Registry
	providerC provider.Provider

	tools     *tool.Registry
	fdManager *fd.Manager
	connector *mcpconnector.Connector

	messages *message.Log

	systemPrompt string
	promptReady  bool

	mu        sync.Mutex
	preloaded map[string]string
	linked    map[string]*linkEntry

	allowFork bool
	history   []truncation

	obs    *observers
	logger *slog.Logger
}

// New builds and starts a Process from a compiled prog. prog must already
// have Compile'd successfully; New does not compile it.
func New(ctx context.Context, prog *program.Program, opts Options) (*Process, error) {
	if opts.Registry == nil {
		opts.Registry = provider.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	adapter, err := opts.Registry.Resolve(ctx, prog.Provider)
	if err != nil {
		return nil, err
	}

	p := &Process{
		id:        processID(opts.id),
		prog:      prog,
		providers: opts.Registry,
		providerC: adapter,
		messages:  &message.Log{},
		linked:    make(map[string]*linkEntry, len(prog.LinkedPrograms)),
		allowFork: opts.AllowFork,
		logger:    opts.Logger,
	}
	p.obs = newObservers(opts.Logger)

	if prog.FD.Enabled {
		p.fdManager = fd.NewManager(prog.FD)
	}

	if prog.Tools.MCPConfigPath != "" {
		connector := mcpconnector.New()
		cfg, err := mcpconnector.LoadConfig(prog.ResolvePath(prog.Tools.MCPConfigPath))
		if err != nil {
			return nil, err
		}
		if err := connector.Initialize(ctx, cfg); err != nil {
			return nil, err
		}
		p.connector = connector
	}

	tools, err := buildToolRegistry(ctx, p, prog)
	if err != nil {
		return nil, err
	}
	p.tools = tools

	for name, linked := range prog.LinkedPrograms {
		p.linked[name] = &linkEntry{program: linked.Program, description: linked.Description}
	}

	preloaded, missing := prog.LoadPreloadFiles()
	for _, m := range missing {
		opts.Logger.Warn("preload file not found", "process", p.id, "path", m)
	}
	p.preloaded = preloaded

	return p, nil
}

var processSeq int
var processSeqMu sync.Mutex

func processID(want string) string {
	if want != "" {
		return want
	}
	processSeqMu.Lock()
	processSeq++
	n := processSeq
	processSeqMu.Unlock()
	return fmt.Sprintf("proc_%d", n)
}

// builtinTools maps every built-in's enabled-list name to its
// constructor. Shared by buildToolRegistry and BuildToolCatalog so the CLI's
// schema introspection never drifts from what a running Process actually
// registers.
var builtinTools = map[string]func() tool.Handler{
	"calculator": builtin.Calculator,
	"read_file":  builtin.ReadFile,
	"list_dir":   builtin.ListDir,
	"read_fd":    builtin.ReadFD,
	"fd_to_file": builtin.FDToFile,
	"spawn":      builtin.Spawn,
	"goto":       builtin.Goto,
}

// buildToolRegistry registers every built-in named in prog.Tools.Enabled,
// applies the alias map, and (if an MCP connector is active) registers
// each selected remote tool under its namespaced name.
func buildToolRegistry(ctx context.Context, p *Process, prog *program.Program) (*tool.Registry, error) {
	reg, err := registerBuiltins(prog)
	if err != nil {
		return nil, err
	}

	if p.fdManager != nil {
		p.fdManager.RegisterFDTool("read_fd")
		p.fdManager.RegisterFDTool("fd_to_file")
	}

	if p.connector != nil {
		if err := registerMCPTools(ctx, reg, p.connector, prog.Tools.MCPTools); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// registerBuiltins registers prog.Tools.Enabled and its alias layer, with
// no dependency on a live process, FD manager, or MCP connector.
func registerBuiltins(prog *program.Program) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	for _, name := range prog.Tools.Enabled {
		build, ok := builtinTools[name]
		if !ok {
			return nil, &ToolNotFoundError{Name: name}
		}
		if err := reg.Register(build()); err != nil {
			return nil, err
		}
	}
	for alias, canonical := range prog.Tools.Aliases {
		if err := reg.RegisterAlias(alias, canonical); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BuildToolCatalog returns the tool definitions a Process for prog would
// register, without constructing a provider client or an MCP connection —
// used by the CLI's schema-introspection subcommand, which must work
// offline and without credentials. If prog configures an MCP connector,
// its remote tools are necessarily absent from the result, since listing
// them requires actually connecting to the server.
func BuildToolCatalog(prog *program.Program) ([]tool.Definition, error) {
	reg, err := registerBuiltins(prog)
	if err != nil {
		return nil, err
	}
	defs := reg.Definitions()
	if prog.AllowFork {
		defs = append(defs, forkToolDefinition())
	}
	return defs, nil
}

func registerMCPTools(ctx context.Context, reg *tool.Registry, connector *mcpconnector.Connector, selection map[string][]string) error {
	catalog, err := connector.ListTools(ctx)
	if err != nil {
		return err
	}
	for server, descs := range catalog {
		allowed, configured := selection[server]
		allowAll := configured && len(allowed) == 1 && allowed[0] == "all"
		allowSet := make(map[string]bool, len(allowed))
		for _, n := range allowed {
			allowSet[n] = true
		}
		for _, d := range descs {
			if configured && !allowAll && !allowSet[d.Name] {
				continue
			}
			handler := mcpToolHandler(connector, d)
			if err := reg.Register(handler); err != nil {
				return err
			}
		}
	}
	return nil
}

// ID returns the process's identifier, implementing tool.ProcessHandle.
func (p *Process) ID() string { return p.id }

// Messages returns the process's message log, implementing
// tool.ProcessHandle.
func (p *Process) Messages() *message.Log { return p.messages }

// TruncateTo discards every message after id, implementing goto via
// tool.ProcessHandle.
func (p *Process) TruncateTo(id message.ID) error {
	if err := p.messages.TruncateTo(id); err != nil {
		return err
	}
	p.history = append(p.history, truncation{to: id, len: p.messages.Len()})
	return nil
}

// Spawner exposes the spawn surface, implementing tool.ProcessHandle. It
// returns nil if this process has no linked programs to spawn from.
func (p *Process) Spawner() tool.Spawnable {
	if len(p.linked) == 0 {
		return nil
	}
	return p
}

// LinkNames lists the names available to spawn from, implementing
// tool.Spawnable.
func (p *Process) LinkNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.linked))
	for name := range p.linked {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLastMessage returns the textual content of the last assistant
// message, or "" if the log is empty or its tail is not an assistant
// message.
func (p *Process) GetLastMessage() string {
	msgs := p.messages.Messages()
	if len(msgs) == 0 {
		return ""
	}
	last := msgs[len(msgs)-1]
	if last.Role != message.RoleAssistant {
		return ""
	}
	return last.FlattenText()
}

// ResetState clears the message log and invalidates the enriched system
// prompt, selectively preserving it and the preload map per the flags.
func (p *Process) ResetState(keepSystemPrompt, keepPreloaded bool) {
	p.messages.Reset()
	p.history = nil
	if !keepSystemPrompt {
		p.promptReady = false
		p.systemPrompt = ""
	}
	if !keepPreloaded {
		p.mu.Lock()
		p.preloaded = map[string]string{}
		p.mu.Unlock()
	}
}

// Program returns the process's compiled Program.
func (p *Process) Program() *program.Program { return p.prog }

// AllowFork reports whether this process may run the fork tool.
func (p *Process) AllowFork() bool { return p.allowFork }

// ForkProcess returns a deep copy of p: the same compiled Program (shared,
// immutable), a cloned message log, a cloned preload map, and a cloned FD
// Manager, so that mutation on either side after fork is invisible to the
// other. The MCP connector, provider adapter, and tool registry are shared
// by reference (all read-only from a running process's perspective once
// built). allowFork is always cleared on the copy: forked children cannot
// themselves fork.
func (p *Process) ForkProcess() *Process {
	p.mu.Lock()
	preloaded := make(map[string]string, len(p.preloaded))
	for k, v := range p.preloaded {
		preloaded[k] = v
	}
	p.mu.Unlock()

	child := &Process{
		id:           processID(""),
		prog:         p.prog,
		providers:    p.providers,
		providerC:    p.providerC,
		tools:        p.tools,
		connector:    p.connector,
		messages:     p.messages.Clone(),
		systemPrompt: p.systemPrompt,
		promptReady:  p.promptReady,
		preloaded:    preloaded,
		linked:       p.linked,
		allowFork:    false,
		obs:          p.obs,
		logger:       p.logger,
	}
	if p.fdManager != nil {
		child.fdManager = p.fdManager.Clone()
	}
	return child
}

// SpawnAndRun implements tool.Spawnable: it starts (or reuses, if the
// linked entry already names a live Process) the child registered under
// linkName, merges additionalPreloadFiles and additionalPreloadFDs into
// it, runs prompt to completion, and returns the child's final text.
func (p *Process) SpawnAndRun(ctx context.Context, linkName, prompt string, additionalPreloadFiles, additionalPreloadFDs []string) (string, error) {
	p.mu.Lock()
	entry, ok := p.linked[linkName]
	p.mu.Unlock()
	if !ok {
		return "", &LinkedProgramNotFoundError{Name: linkName, Available: p.LinkNames()}
	}

	child := entry.live
	if child == nil {
		started, err := New(ctx, entry.program, Options{Registry: p.providers, Logger: p.logger})
		if err != nil {
			return "", fmt.Errorf("process: spawning %q: %w", linkName, err)
		}
		child = started

		p.mu.Lock()
		entry.live = child
		p.mu.Unlock()
	}

	for _, path := range additionalPreloadFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("spawn: additional preload file not found", "path", path)
			continue
		}
		child.mu.Lock()
		if child.preloaded == nil {
			child.preloaded = map[string]string{}
		}
		child.preloaded[path] = string(data)
		child.mu.Unlock()
	}
	child.promptReady = false

	if p.fdManager != nil && child.fdManager != nil {
		for _, id := range additionalPreloadFDs {
			if err := child.fdManager.Preload(id, p.fdManager); err != nil {
				return "", fmt.Errorf("process: spawning %q: preloading fd %q: %w", linkName, id, err)
			}
		}
	}

	result, err := child.Run(ctx, prompt, 0)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
