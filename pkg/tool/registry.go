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

package tool

import (
	"fmt"

	"github.com/kadirpekel/llmproc/pkg/registry"
)

// Registry resolves a tool-use block's name (which may be an alias) to the
// Handler that implements it.
type Registry struct {
	base    *registry.BaseRegistry[Handler]
	aliases map[string]string // alias -> canonical name
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		base:    registry.NewBaseRegistry[Handler](),
		aliases: make(map[string]string),
	}
}

// Register adds h under its own Definition.Name.
func (r *Registry) Register(h Handler) error {
	return r.base.Register(h.Definition.Name, h)
}

// RegisterAlias exposes the tool registered under canonical under an
// additional name. Registering the same alias twice, or aliasing a name
// that collides with another tool or alias, is an error: aliases must
// remain injective.
func (r *Registry) RegisterAlias(alias, canonical string) error {
	if alias == "" || canonical == "" {
		return fmt.Errorf("tool: alias and canonical name must be non-empty")
	}
	if _, ok := r.base.Get(canonical); !ok {
		return fmt.Errorf("tool: cannot alias unknown tool %q", canonical)
	}
	if _, ok := r.base.Get(alias); ok {
		return fmt.Errorf("tool: alias %q collides with a registered tool name", alias)
	}
	if existing, ok := r.aliases[alias]; ok {
		return fmt.Errorf("tool: alias %q already maps to %q", alias, existing)
	}
	r.aliases[alias] = canonical
	return nil
}

// Resolve looks up name, following an alias to its canonical handler if
// necessary.
func (r *Registry) Resolve(name string) (Handler, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	return r.base.Get(name)
}

// Names returns every canonical tool name, in registration order.
func (r *Registry) Names() []string {
	return r.base.Names()
}

// Definitions returns every tool's Definition, in registration order, for
// building a provider's tool-list payload. Aliases are presented alongside
// their target's schema under the alias name, so the model sees every name
// it is allowed to call.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, r.base.Count()+len(r.aliases))
	for _, h := range r.base.List() {
		defs = append(defs, h.Definition)
	}
	for alias, canonical := range r.aliases {
		h, ok := r.base.Get(canonical)
		if !ok {
			continue
		}
		d := h.Definition
		d.Name = alias
		defs = append(defs, d)
	}
	return defs
}

// Count returns the number of canonically registered tools (aliases not
// included).
func (r *Registry) Count() int {
	return r.base.Count()
}
