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
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/provider"
	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// forkToolName is the tool-use name the executor special-cases; fork is
// never registered in a Tool Registry.
const forkToolName = "fork"

// forkChildMaxIterations bounds every forked child's own run, independent
// of the parent's max_iterations.
const forkChildMaxIterations = 20

// Prompts sent to a stalled child before giving up on a text response.
const (
	promptSummarizeConversation = "Please stop using tools and summarize your progress so far"
	promptForceModelResponse    = "Please respond with a text response"
)

// exhaustionMessage substitutes for a child's response when it never
// produces text within its iteration budget, even after both fallback
// prompts.
const exhaustionMessage = "Maximum iterations reached without final response."

// childNotice is the canned tool-result every forked child sees for its
// own copy of the fork call, in place of the parent's real dispatch
// result (which the child, by definition, never observes).
const childNotice = "pid==0, you are a child instance produced from a fork. you are not allowed to use the fork tool. please continue the conversation with only the assigned goal"

// forkToolDefinition is the schema exposed to the model only when the
// process allows forking.
func forkToolDefinition() tool.Definition {
	return tool.Definition{
		Name:        forkToolName,
		Description: "Forks the current process into one independent child per prompt, running each to a text response in parallel. Returns each child's response tagged by input order. Children cannot themselves fork.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompts": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "One prompt per child process, run independently and in parallel.",
				},
			},
			"required": []string{"prompts"},
		},
	}
}

// forkChildResult is one entry of the fork tool-result's JSON array.
type forkChildResult struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

// runFork implements the fork tool-use block named callID, seen in a
// response whose full content is responseBlocks. It deep-copies this
// process once per prompt, seeds each child with the filtered assistant
// turn and a canned tool-result, runs every child concurrently to a text
// response, and returns the aggregated results in input order.
func (p *Process) runFork(ctx context.Context, callID string, args map[string]any, responseBlocks []message.Block) *toolresult.Result {
	if !p.allowFork {
		return toolresult.Errorf("fork: %v", &ForkNotAllowedError{})
	}

	prompts := stringSliceAny(args["prompts"])
	if len(prompts) == 0 {
		return toolresult.Error("fork: prompts must be a non-empty array of strings")
	}

	seed := forkSeedBlocks(responseBlocks, callID)
	results := make([]forkChildResult, len(prompts))

	group, gctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		group.Go(func() error {
			child := p.ForkProcess()
			child.messages.Append(message.NewAssistantBlocks(seed))
			child.messages.Append(message.NewToolResultBundle([]message.Block{
				message.ToolResultBlock(callID, childNotice, false),
			}))
			results[i] = forkChildResult{ID: i, Message: child.runUntilText(gctx, prompt)}
			return nil
		})
	}
	_ = group.Wait()

	payload, err := json.Marshal(results)
	if err != nil {
		return toolresult.Errorf("fork: encoding results: %v", err)
	}
	return toolresult.Success(string(payload))
}

// forkSeedBlocks filters the parent's current-turn response to just the
// blocks a child should see: every non-tool-use block, plus the single
// tool-use block matching callID (the fork call itself). Sibling tool
// calls in the same turn are stripped, since the child never dispatched
// them.
func forkSeedBlocks(blocks []message.Block, callID string) []message.Block {
	out := make([]message.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == message.BlockToolUse && b.ToolUseID != callID {
			continue
		}
		out = append(out, b)
	}
	return out
}

// runUntilText drives firstPrompt (and, if needed, the fallback prompts)
// through this process's own Run loop until a text response appears or
// the child's iteration budget is exhausted, mirroring the three-step
// recovery a stalled child goes through before giving up.
func (p *Process) runUntilText(ctx context.Context, firstPrompt string) string {
	prompt := firstPrompt
	budget := forkChildMaxIterations

	for budget > 0 {
		res, err := p.Run(ctx, prompt, budget)
		if err != nil {
			return exhaustionMessage
		}
		budget -= res.Iterations
		if res.Text != "" {
			return res.Text
		}

		if res.StopReason == provider.StopMaxIteration && budget > 0 {
			summary, err := p.Run(ctx, promptSummarizeConversation, 1)
			budget--
			if err == nil && summary.Text != "" {
				return summary.Text
			}
		}

		prompt = promptForceModelResponse
	}
	return exhaustionMessage
}

func stringSliceAny(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return strs
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
