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

package program

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/kadirpekel/llmproc/pkg/fd"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// knownTopLevelSections lists every section name defined by the program
// source file format; anything else at the top level is rejected.
var knownTopLevelSections = map[string]bool{
	"model":           true,
	"prompt":          true,
	"parameters":      true,
	"preload":         true,
	"mcp":             true,
	"tools":           true,
	"env_info":        true,
	"file_descriptor": true,
	"linked_programs": true,
	"demo":            true,
}

// tomlFile mirrors the program source file format's fixed-schema
// sections. Sections that accept arbitrary author-chosen keys
// (parameters, env_info, mcp.tools, linked_programs) decode into
// map[string]any so every key in them is considered decoded - they never
// produce unknown-key warnings, since the format explicitly allows
// unbounded keys there.
type tomlFile struct {
	Model struct {
		Name                    string `toml:"name"`
		Provider                string `toml:"provider"`
		DisplayName             string `toml:"display_name"`
		DisableAutomaticCaching bool   `toml:"disable_automatic_caching"`
	} `toml:"model"`

	Prompt struct {
		SystemPrompt     string `toml:"system_prompt"`
		SystemPromptFile string `toml:"system_prompt_file"`
	} `toml:"prompt"`

	Parameters map[string]any `toml:"parameters"`

	Preload struct {
		Files []string `toml:"files"`
	} `toml:"preload"`

	MCP struct {
		ConfigPath string         `toml:"config_path"`
		Tools      map[string]any `toml:"tools"`
	} `toml:"mcp"`

	Tools struct {
		Enabled []string `toml:"enabled"`
	} `toml:"tools"`

	EnvInfo map[string]any `toml:"env_info"`

	FileDescriptor struct {
		Enabled              bool `toml:"enabled"`
		MaxDirectOutputChars int  `toml:"max_direct_output_chars"`
		DefaultPageSize      int  `toml:"default_page_size"`
		MaxInputChars        int  `toml:"max_input_chars"`
		PageUserInput        bool `toml:"page_user_input"`
		EnableReferences     bool `toml:"enable_references"`
	} `toml:"file_descriptor"`

	LinkedPrograms map[string]any `toml:"linked_programs"`

	Demo struct {
		Prompts             []string `toml:"prompts"`
		PauseBetweenPrompts bool     `toml:"pause_between_prompts"`
	} `toml:"demo"`
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Registry dedups recursive linked-program compilation. A fresh
	// Registry is created if nil.
	Registry *Registry

	// Logger receives unknown-key warnings and preload-file misses.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Load reads, parses, and compiles the program source file at path,
// recursively loading and compiling every linked program it references.
// Unknown top-level sections are a ProgramValidationError; unknown keys
// nested under a known, fixed-schema section are logged as warnings.
func Load(path string, opts LoadOptions) (*Program, error) {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return load(path, opts, map[string]bool{})
}

func load(path string, opts LoadOptions, visiting map[string]bool) (*Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if existing, ok := opts.Registry.Lookup(abs); ok {
		return existing, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileNotFoundError{Path: path, Err: err}
	}

	var tf tomlFile
	meta, err := toml.Decode(expandEnv(string(data)), &tf)
	if err != nil {
		return nil, validationErrf("source", err, "parsing %s", path)
	}

	if err := checkUndecoded(meta, opts.Logger, path); err != nil {
		return nil, err
	}

	p := New()
	p.SourcePath = abs
	p.Model = tf.Model.Name
	p.Provider = tf.Model.Provider
	p.DisplayName = tf.Model.DisplayName
	p.DisableAutomaticCaching = tf.Model.DisableAutomaticCaching
	p.SystemPrompt = tf.Prompt.SystemPrompt
	p.SystemPromptFile = tf.Prompt.SystemPromptFile
	p.Parameters = tf.Parameters
	if p.Parameters == nil {
		p.Parameters = map[string]any{}
	}
	p.PreloadFiles = tf.Preload.Files
	p.Tools.Enabled = tf.Tools.Enabled
	p.FD = fd.Config{
		Enabled:              tf.FileDescriptor.Enabled,
		PageSize:             tf.FileDescriptor.DefaultPageSize,
		MaxDirectOutputChars: tf.FileDescriptor.MaxDirectOutputChars,
		MaxInputChars:        tf.FileDescriptor.MaxInputChars,
		PageUserInput:        tf.FileDescriptor.PageUserInput,
		EnableReferences:     tf.FileDescriptor.EnableReferences,
	}
	p.DemoPrompts = tf.Demo.Prompts
	p.PauseBetweenPrompts = tf.Demo.PauseBetweenPrompts

	if tf.MCP.ConfigPath != "" {
		p.Tools.MCPConfigPath = tf.MCP.ConfigPath
	}
	p.Tools.MCPTools = make(map[string][]string, len(tf.MCP.Tools))
	for server, raw := range tf.MCP.Tools {
		p.Tools.MCPTools[server] = toStringList(raw)
	}

	if err := parseEnvInfo(p, tf.EnvInfo); err != nil {
		return nil, err
	}

	if err := parseLinkedPrograms(p, tf.LinkedPrograms, opts, visiting); err != nil {
		return nil, err
	}

	if err := compile(p, opts.Registry, visiting); err != nil {
		return nil, err
	}
	return p, nil
}

// checkUndecoded classifies toml.MetaData's undecoded keys: a top-level
// key that never maps to a struct field is an unknown section (error);
// anything else is an unknown key nested under a known, fixed-schema
// section (warning).
func checkUndecoded(meta toml.MetaData, log *slog.Logger, path string) error {
	for _, key := range meta.Undecoded() {
		parts := []string(key)
		if len(parts) == 0 {
			continue
		}
		if !knownTopLevelSections[parts[0]] {
			return validationErr("source", fmt.Sprintf("%s: unknown section [%s]", path, parts[0]))
		}
		if len(parts) > 1 {
			log.Warn("unknown key in program source", "file", path, "key", key.String())
		}
	}
	return nil
}

func parseEnvInfo(p *Program, raw map[string]any) error {
	if raw == nil {
		return nil
	}
	p.EnvInfo.Custom = make(map[string]string)
	for k, v := range raw {
		if k == "variables" {
			p.EnvInfo.Variables = toStringList(v)
			continue
		}
		p.EnvInfo.Custom[k] = fmt.Sprintf("%v", v)
	}
	return nil
}

func parseLinkedPrograms(p *Program, raw map[string]any, opts LoadOptions, visiting map[string]bool) error {
	for name, v := range raw {
		var relPath, description string
		switch val := v.(type) {
		case string:
			relPath = val
		case map[string]any:
			if s, ok := val["path"].(string); ok {
				relPath = s
			}
			if s, ok := val["description"].(string); ok {
				description = s
			}
		default:
			return validationErr("linked_programs", fmt.Sprintf("%q: expected a path string or {path, description} table", name))
		}

		resolved := p.resolvePath(relPath)
		linkedProgram, err := load(resolved, opts, visiting)
		if err != nil {
			return fmt.Errorf("loading linked program %q: %w", name, err)
		}
		p.WithLinkedProgram(name, linkedProgram, description)
	}
	return nil
}

// toStringList normalizes a decoded TOML value that is either the
// sentinel string "all" or a list of strings into a []string, preserving
// "all" as the single-element slice []string{"all"} the bi-implication
// and MCP-tool-selection logic checks for.
func toStringList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}

// expandEnv resolves ${VAR} references in the raw source text against
// the process environment, loading a sibling .env file first (via
// godotenv) so local development credentials need not be exported by
// hand. Only the exact ${VAR} form is recognized, so stray dollar signs
// elsewhere in the document (a description mentioning a price, say)
// pass through untouched.
func expandEnv(text string) string {
	_ = godotenv.Load()
	return envRefPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := envRefPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
