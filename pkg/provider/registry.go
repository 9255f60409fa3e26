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

package provider

import (
	"context"
	"fmt"

	"github.com/kadirpekel/llmproc/pkg/registry"
)

// Registry resolves a Program's provider name to a constructed Provider,
// caching each one it builds so a process graph with many linked programs
// on the same provider shares one client.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

// Resolve returns the cached Provider for name, constructing and
// registering one on first use. name is one of "anthropic", "openai", or
// "gemini"; anything else is a CapabilityError.
func (r *Registry) Resolve(ctx context.Context, name string) (Provider, error) {
	if p, ok := r.Get(name); ok {
		return p, nil
	}

	var p Provider
	var err error
	switch name {
	case "anthropic":
		p, err = NewAnthropicProvider()
	case "openai":
		p, err = NewOpenAIProvider()
	case "gemini":
		p, err = NewGeminiProvider(ctx)
	default:
		return nil, &CapabilityError{Provider: name, Capability: "provider selection", Message: fmt.Sprintf("unsupported provider %q (supported: anthropic, openai, gemini)", name)}
	}
	if err != nil {
		return nil, err
	}

	if err := r.Register(name, p); err != nil {
		return nil, err
	}
	return p, nil
}
