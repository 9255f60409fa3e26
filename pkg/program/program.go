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

// Package program builds and compiles Programs: the immutable,
// declarative description of a model, its prompt, its tools, and the
// other programs it can spawn. A Program is constructed by a caller or by
// Load, mutated only through its builder methods, then Compile'd exactly
// once; compilation is idempotent and deduplicated process-wide through a
// Registry keyed by the program's resolved absolute source path.
package program

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kadirpekel/llmproc/pkg/fd"
)

// LinkedProgram is one entry of a Program's linked-program map: either an
// uncompiled Program reference (started lazily by spawn) or a description
// carried through for the tool catalog.
type LinkedProgram struct {
	Name        string
	Description string
	Program     *Program
}

// ToolConfig holds the tool-related fields of a Program: which built-ins
// are enabled, the alias rewriting layer, and the MCP tool selection.
type ToolConfig struct {
	// Enabled lists built-in and function-tool names the process should
	// register at startup.
	Enabled []string

	// Aliases maps an alias name to the canonical tool name the model's
	// alias resolves to. Enforced one-to-one at compile time.
	Aliases map[string]string

	// MCPConfigPath is the path to an MCP server catalog (see
	// pkg/mcpconnector.Config), resolved relative to the program's
	// source directory. Empty if no external tools are configured.
	MCPConfigPath string

	// MCPTools maps a configured MCP server name to either an explicit
	// tool allow-list or the sentinel "all".
	MCPTools map[string][]string
}

// EnvInfoConfig controls the optional <env> block of the enriched system
// prompt.
type EnvInfoConfig struct {
	// Variables is a whitelist of standard variable names to include, or
	// the single-element sentinel slice []string{"all"}.
	Variables []string

	// Custom holds arbitrary key/value pairs to include verbatim,
	// alongside the whitelisted standard variables.
	Custom map[string]string
}

// Program is the immutable-after-compilation description of a model, its
// prompt, its tools, and the programs it can spawn.
type Program struct {
	// Model identifies the model name passed to the provider.
	Model string

	// Provider names the provider adapter to use (e.g. "anthropic",
	// "openai", "gemini").
	Provider string

	// ProviderOptions carries provider-specific construction options
	// (e.g. Vertex project/region for gemini).
	ProviderOptions map[string]string

	// DisplayName is a human-facing name for the program, shown in CLI
	// output; defaults to Model if unset.
	DisplayName string

	// DisableAutomaticCaching opts a program out of a provider's default
	// prompt-caching behavior.
	DisableAutomaticCaching bool

	// SystemPrompt is the raw, pre-resolution system prompt: either the
	// literal text or (if SystemPromptFile is set) resolved from disk by
	// Compile.
	SystemPrompt     string
	SystemPromptFile string

	// Parameters is a pass-through bag of provider API parameters
	// (temperature, max_tokens, extra_headers, ...).
	Parameters map[string]any

	// TokenEfficientTools opts into the Anthropic token-efficient tool
	// encoding beta header.
	TokenEfficientTools bool

	// PreloadFiles lists paths (resolved relative to SourcePath's
	// directory) whose contents are loaded into the enriched system
	// prompt's <preload> block at process startup.
	PreloadFiles []string

	EnvInfo EnvInfoConfig

	FD fd.Config

	Tools ToolConfig

	// LinkedPrograms maps a spawn-visible name to its linked program.
	LinkedPrograms map[string]*LinkedProgram

	// DefaultUserPrompt is used when no prompt is supplied from any
	// higher-priority source (see the CLI's prompt-source chain).
	DefaultUserPrompt string

	// MaxIterations bounds a single run's provider-call loop. Zero means
	// the process-wide default applies.
	MaxIterations int

	// DemoPrompts and PauseBetweenPrompts configure the CLI's
	// demo-prompt playback mode.
	DemoPrompts         []string
	PauseBetweenPrompts bool

	// SourcePath is the absolute path Load populated this Program from,
	// used as the Registry's dedup key and as the base for resolving
	// every relative path above. Empty for programs built directly by a
	// caller (not loaded from a file).
	SourcePath string

	compiled bool
}

// New returns an empty, uncompiled Program. Callers populate fields
// directly or via the With* builder methods before calling Compile.
func New() *Program {
	return &Program{
		ProviderOptions: map[string]string{},
		Parameters:      map[string]any{},
		Tools: ToolConfig{
			Aliases:  map[string]string{},
			MCPTools: map[string][]string{},
		},
		LinkedPrograms: map[string]*LinkedProgram{},
	}
}

// WithModel sets the model and provider identifiers.
func (p *Program) WithModel(provider, model string) *Program {
	p.Provider = provider
	p.Model = model
	return p
}

// WithSystemPrompt sets a literal system prompt.
func (p *Program) WithSystemPrompt(prompt string) *Program {
	p.SystemPrompt = prompt
	return p
}

// WithTool enables a built-in or function-tool name.
func (p *Program) WithTool(name string) *Program {
	p.Tools.Enabled = append(p.Tools.Enabled, name)
	return p
}

// WithAlias registers an alias → canonical tool name rewrite.
func (p *Program) WithAlias(alias, canonical string) *Program {
	if p.Tools.Aliases == nil {
		p.Tools.Aliases = map[string]string{}
	}
	p.Tools.Aliases[alias] = canonical
	return p
}

// WithLinkedProgram registers a spawn-visible linked program.
func (p *Program) WithLinkedProgram(name string, linked *Program, description string) *Program {
	if p.LinkedPrograms == nil {
		p.LinkedPrograms = map[string]*LinkedProgram{}
	}
	p.LinkedPrograms[name] = &LinkedProgram{Name: name, Description: description, Program: linked}
	return p
}

// WithPreloadFile adds a path to the preload list.
func (p *Program) WithPreloadFile(path string) *Program {
	p.PreloadFiles = append(p.PreloadFiles, path)
	return p
}

// IsCompiled reports whether Compile has already succeeded on p.
func (p *Program) IsCompiled() bool {
	return p.compiled
}

// EffectiveDisplayName returns DisplayName, falling back to Model.
func (p *Program) EffectiveDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Model
}

// resolvePath resolves a path relative to the program's source directory
// (or the working directory, for programs not loaded from a file).
func (p *Program) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if p.SourcePath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(p.SourcePath), path)
}

// ResolvePath resolves path relative to the program's source directory,
// for callers outside the package (process startup resolving
// Tools.MCPConfigPath) that need the same base-directory convention every
// other path-bearing field uses.
func (p *Program) ResolvePath(path string) string {
	return p.resolvePath(path)
}

// LoadPreloadFiles reads every PreloadFiles entry, returning the contents
// keyed by the path as written in the program source, plus the paths that
// could not be read (to be surfaced as warnings, never as an error). It is
// the exported counterpart of loadPreloadFiles, called by Process startup.
func (p *Program) LoadPreloadFiles() (map[string]string, []string) {
	return p.loadPreloadFiles()
}

func (p *Program) loadPreloadFiles() (map[string]string, []string) {
	out := make(map[string]string, len(p.PreloadFiles))
	var missing []string
	for _, rel := range p.PreloadFiles {
		data, err := os.ReadFile(p.resolvePath(rel))
		if err != nil {
			missing = append(missing, rel)
			continue
		}
		out[rel] = string(data)
	}
	return out, missing
}

// sortedKeys is a small formatting helper used by error messages that list
// available names (linked programs, tools) deterministically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fmtList(names []string) string {
	return fmt.Sprintf("%v", names)
}
