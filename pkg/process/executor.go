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

package process

import (
	"context"
	"fmt"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/program"
	"github.com/kadirpekel/llmproc/pkg/provider"
	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// anthropicBetaHeader is the request header Anthropic reads to opt a
// request into the token-efficient tool-use encoding.
const anthropicBetaHeader = "anthropic-beta"

// tokenEfficientToolsBeta is the beta flag value merged into
// anthropicBetaHeader when a Program enables TokenEfficientTools.
const tokenEfficientToolsBeta = "token-efficient-tools-2025-02-19"

// RunResult is what one Run call produces: the model's final text (empty
// if the turn ended without one, e.g. max_iterations was reached with an
// unresolved tool call) and why the loop stopped.
type RunResult struct {
	Text       string
	StopReason provider.StopReason

	// Iterations is the number of provider requests this Run call made,
	// for callers (runUntilText) that need to track a shared iteration
	// budget across several Run calls.
	Iterations int
}

// Run appends input as a user message and drives the CALL/DISPATCH state
// machine until the model produces a final text response, a tool call
// goes unresolved at the iteration ceiling, or an error occurs. A zero
// maxIterations falls back to the Program's MaxIterations, then to
// DefaultMaxIterations.
func (p *Process) Run(ctx context.Context, input string, maxIterations int) (*RunResult, error) {
	if maxIterations <= 0 {
		maxIterations = p.prog.MaxIterations
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	userMsg := message.NewUserText(input)
	if userMsg.IsEmpty() {
		return nil, &EmptyInputError{}
	}

	userMsg = p.pageInputIfOversized(input, userMsg)

	p.messages.Append(userMsg)
	p.ensureSystemPrompt()

	p.obs.turnStart(p)

	var (
		result RunResult
		err    error
	)
	for iteration := 0; ; iteration++ {
		result.Iterations = iteration + 1

		resp, reqErr := p.providerC.MakeRequest(ctx, p.prog.Model, p.systemPrompt, p.messages.Messages(), p.toolDefinitions(), p.requestParams())
		if reqErr != nil {
			err = fmt.Errorf("process: provider request: %w", reqErr)
			break
		}
		p.obs.apiResponse(resp.Usage)

		toolUses := filterToolUse(resp.ContentBlocks)
		if len(toolUses) == 0 {
			p.messages.Append(message.NewAssistantBlocks(resp.ContentBlocks))
			result.Text = flattenBlocks(resp.ContentBlocks)
			result.StopReason = provider.StopEndTurn
			p.obs.response(result.Text)
			break
		}

		if iteration+1 >= maxIterations {
			result.StopReason = provider.StopMaxIteration
			break
		}

		resultBlocks := p.dispatchToolUses(ctx, toolUses, resp.ContentBlocks)
		p.messages.Append(message.NewAssistantBlocks(resp.ContentBlocks))
		p.messages.Append(message.NewToolResultBundle(resultBlocks))
	}

	p.obs.turnEnd(p, result.StopReason)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ensureSystemPrompt materializes the enriched system prompt (base prompt
// plus environment and preload blocks) on first use and caches it, since
// preload contents don't change within a process's lifetime.
func (p *Process) ensureSystemPrompt() {
	if p.promptReady {
		return
	}
	p.mu.Lock()
	preloaded := p.preloaded
	p.mu.Unlock()
	p.systemPrompt = program.BuildSystemPrompt(p.prog, preloaded)
	p.promptReady = true
}

// toolDefinitions returns the tool catalogue sent with each request, or
// nil if no tools are registered (so the provider never receives an
// empty-but-present tools array). The fork tool is added only when this
// process is allowed to fork.
func (p *Process) toolDefinitions() []tool.Definition {
	defs := p.tools.Definitions()
	if p.allowFork {
		defs = append(defs, forkToolDefinition())
	}
	if len(defs) == 0 {
		return nil
	}
	return defs
}

// requestParams builds the per-request parameter bag, merging in the
// Anthropic token-efficient-tools beta header when the Program opts in.
func (p *Process) requestParams() map[string]any {
	if !p.prog.TokenEfficientTools || p.prog.Provider != "anthropic" {
		return p.prog.Parameters
	}

	params := make(map[string]any, len(p.prog.Parameters)+1)
	for k, v := range p.prog.Parameters {
		params[k] = v
	}

	headers, _ := params["extra_headers"].(map[string]string)
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	if existing, ok := merged[anthropicBetaHeader]; ok && existing != "" {
		merged[anthropicBetaHeader] = existing + "," + tokenEfficientToolsBeta
	} else {
		merged[anthropicBetaHeader] = tokenEfficientToolsBeta
	}
	params["extra_headers"] = merged
	return params
}

// dispatchToolUses runs every tool-use block in document order, recognizing
// fork by name rather than through the registry, and returns the ordered
// tool-result blocks to bundle into the reply. responseBlocks is the full
// assistant turn that produced these calls, needed by fork to build each
// child's seed message.
func (p *Process) dispatchToolUses(ctx context.Context, calls []message.Block, responseBlocks []message.Block) []message.Block {
	results := make([]message.Block, 0, len(calls))
	for _, call := range calls {
		p.obs.toolStart(call.ToolName, call.ToolArgs)

		var res *toolresult.Result
		if call.ToolName == forkToolName {
			res = p.runFork(ctx, call.ToolUseID, call.ToolArgs, responseBlocks)
		} else {
			res = p.invoke(ctx, call.ToolUseID, call.ToolName, call.ToolArgs)
		}

		text := p.autoWrapIfOversized(call.ToolName, res.Text())

		p.obs.toolEnd(call.ToolName, text, res.IsError)
		results = append(results, message.ToolResultBlock(call.ToolUseID, text, res.IsError))
	}
	return results
}

// invoke resolves and runs a single non-fork tool call.
func (p *Process) invoke(ctx context.Context, callID, name string, args map[string]any) *toolresult.Result {
	handler, ok := p.tools.Resolve(name)
	if !ok {
		return toolresult.Errorf("process: no such tool %q", name)
	}
	rt := tool.RuntimeContext{
		Context:    ctx,
		ProcessID:  p.id,
		FDManager:  p.fdManager,
		ToolCallID: callID,
	}
	if handler.IsContextAware() {
		rt.Process = p
	}
	return handler.Invoke(rt, args)
}

func filterToolUse(blocks []message.Block) []message.Block {
	var out []message.Block
	for _, b := range blocks {
		if b.Type == message.BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

func flattenBlocks(blocks []message.Block) string {
	var text string
	for _, b := range blocks {
		if b.Type == message.BlockText {
			text += b.Text
		}
	}
	return text
}
