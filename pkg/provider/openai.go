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
	"encoding/json"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

// OpenAIProvider adapts the Chat Completions API to the Provider interface.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider builds a provider reading OPENAI_API_KEY from the
// process environment.
func NewOpenAIProvider() (*OpenAIProvider, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY is not set")
	}
	return &OpenAIProvider{client: openai.NewClient(key)}, nil
}

func (p *OpenAIProvider) Name() string       { return "openai" }
func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) MakeRequest(ctx context.Context, model, systemPrompt string, messages []message.Message, tools []tool.Definition, params map[string]any) (*Response, error) {
	chatMessages := convertMessagesOpenAI(systemPrompt, messages)

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: chatMessages,
	}
	if n, ok := paramInt(params, "max_tokens"); ok {
		req.MaxTokens = n
	}
	if temp, ok := paramFloat(params, "temperature"); ok {
		req.Temperature = float32(temp)
	}
	if len(tools) > 0 {
		req.Tools = convertToolsOpenAI(tools)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, newProviderError("openai", model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, newProviderError("openai", model, fmt.Errorf("response contained no choices"))
	}
	choice := resp.Choices[0]

	return &Response{
		ID:            resp.ID,
		ContentBlocks: convertResponseBlocksOpenAI(choice.Message),
		StopReason:    openaiStopReason(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func openaiStopReason(r openai.FinishReason) StopReason {
	switch r {
	case openai.FinishReasonLength:
		return StopMaxTokens
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return StopToolUse
	case openai.FinishReasonContentFilter:
		return StopSequence
	default:
		return StopEndTurn
	}
}

// convertMessagesOpenAI flattens the provider-independent log into a
// single linear message list, the shape Chat Completions requires: tool
// results are individual "tool" role messages correlated by
// tool_call_id rather than the batched user-turn content blocks Anthropic
// expects.
func convertMessagesOpenAI(systemPrompt string, messages []message.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}

	for _, m := range messages {
		switch m.Role {
		case message.RoleUser:
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.FlattenText()})

		case message.RoleAssistant:
			var text string
			var toolCalls []openai.ToolCall
			for _, b := range m.Blocks {
				switch b.Type {
				case message.BlockText:
					text += b.Text
				case message.BlockToolUse:
					args, _ := json.Marshal(b.ToolArgs)
					toolCalls = append(toolCalls, openai.ToolCall{
						ID:   b.ToolUseID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      b.ToolName,
							Arguments: string(args),
						},
					})
				}
			}
			result = append(result, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   text,
				ToolCalls: toolCalls,
			})

		case message.RoleToolResultBatch:
			for _, b := range m.Blocks {
				if b.Type != message.BlockToolResult {
					continue
				}
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    b.ToolResultText,
					ToolCallID: b.ToolResultForID,
				})
			}
		}
	}
	return result
}

func convertToolsOpenAI(tools []tool.Definition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertResponseBlocksOpenAI(m openai.ChatCompletionMessage) []message.Block {
	var result []message.Block
	if m.Content != "" {
		result = append(result, message.TextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		result = append(result, message.ToolUseBlock(tc.ID, tc.Function.Name, args))
	}
	return result
}
