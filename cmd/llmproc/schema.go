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

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/llmproc/pkg/process"
	"github.com/kadirpekel/llmproc/pkg/program"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

// SchemaCmd prints the resolved tool catalog for a program source file
// without starting a provider client or an MCP connection, so it works
// offline and without API credentials.
type SchemaCmd struct {
	Program string `arg:"" help:"Path to a program source file (.toml)." type:"path"`
}

func (c *SchemaCmd) Run(log *slog.Logger) error {
	prog, err := program.Load(c.Program, program.LoadOptions{Logger: log})
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	defs, err := process.BuildToolCatalog(prog)
	if err != nil {
		return fmt.Errorf("building tool catalog: %w", err)
	}

	for _, d := range defs {
		if err := validateParameterSchema(d); err != nil {
			return fmt.Errorf("tool %q: %w", d.Name, err)
		}
	}

	out, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tool catalog: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// validateParameterSchema checks the shape every provider adapter assumes
// a function-tool's Parameters map has: a JSON Schema object with a
// "properties" map and a "required" list naming only declared properties.
// Catching a malformed schema here means the author learns about it from
// `llmproc schema`, not from the first rejected provider request.
func validateParameterSchema(d tool.Definition) error {
	if d.Parameters == nil {
		return fmt.Errorf("nil Parameters")
	}
	typ, _ := d.Parameters["type"].(string)
	if typ != "object" {
		return fmt.Errorf(`Parameters["type"] must be "object", got %v`, d.Parameters["type"])
	}
	props, _ := d.Parameters["properties"].(map[string]any)
	for _, name := range requiredNames(d.Parameters["required"]) {
		if _, ok := props[name]; !ok {
			return fmt.Errorf("required property %q has no matching entry under properties", name)
		}
	}
	return nil
}

// requiredNames normalizes a schema's "required" field, which is a
// []string when built as a Go literal (e.g. fork's hand-written
// definition) and a []any when it has round-tripped through
// encoding/json (every SchemaOf-derived definition).
func requiredNames(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}
