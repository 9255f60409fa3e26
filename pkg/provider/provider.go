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

// Package provider defines the single interface the Provider Executor calls
// against, independent of which backing LLM service answers the request,
// plus the concrete Anthropic, OpenAI, and Gemini/Vertex adapters and a
// registry that resolves a Program's provider name to one of them.
package provider

import (
	"context"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

// StopReason is why a provider stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopSequence     StopReason = "stop_sequence"
	StopError        StopReason = "error"
	StopMaxIteration StopReason = "max_iterations"
)

// Usage reports token accounting for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CachedTokens int
}

// Response is a provider's answer to one MakeRequest call, normalized to a
// provider-independent shape so the executor never branches on which
// backing service produced it.
type Response struct {
	// ID is the backing service's identifier for this response, used in
	// diagnostics only.
	ID string

	// ContentBlocks is the assistant turn's content, in emission order.
	ContentBlocks []message.Block

	StopReason StopReason
	Usage      Usage
}

// Provider is the narrow surface the executor calls against: turn a
// system prompt, message history, and tool catalogue into one assistant
// response. Implementations own all retry, streaming, and wire-format
// concerns; MakeRequest blocks until a complete response (or error) is
// available.
type Provider interface {
	// MakeRequest sends one non-streaming completion request. params
	// carries provider-agnostic generation parameters (temperature,
	// max_tokens, top_p, …) sourced from a Program's [parameters] table;
	// unrecognized keys are ignored by each adapter rather than
	// rejected, since the table is intentionally open-ended.
	MakeRequest(ctx context.Context, model, systemPrompt string, messages []message.Message, tools []tool.Definition, params map[string]any) (*Response, error)

	// Name identifies the provider for routing, logging, and error
	// messages ("anthropic", "openai", "gemini").
	Name() string

	// SupportsTools reports whether this provider/model combination can
	// accept tool definitions at all. The executor consults this before
	// attempting a tool-bearing request and raises a CapabilityError
	// instead of sending one doomed to fail.
	SupportsTools() bool
}
