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

import "fmt"

// ProviderError wraps a transport, authentication, or model failure from an
// underlying provider SDK. It is always fatal to the current run.
type ProviderError struct {
	Provider string
	Model    string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (model %s)", e.Provider, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %v (model %s)", e.Provider, e.Err, e.Model)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(providerName, model string, err error) *ProviderError {
	return &ProviderError{Provider: providerName, Model: model, Err: err}
}

// CapabilityError reports a request for a combination a provider does not
// support, such as tool use against a provider/model pairing that disallows
// it.
type CapabilityError struct {
	Provider   string
	Capability string
	Message    string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s does not support %s: %s", e.Provider, e.Capability, e.Message)
}
