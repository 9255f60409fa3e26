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

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

// AnthropicProvider adapts Anthropic's Messages API to the Provider
// interface. The API key is read from the environment at construction
// time, never cached anywhere a Program could serialize it.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider builds a provider reading ANTHROPIC_API_KEY from the
// process environment.
func NewAnthropicProvider() (*AnthropicProvider, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("anthropic: ANTHROPIC_API_KEY is not set")
	}
	return &AnthropicProvider{client: anthropic.NewClient(option.WithAPIKey(key))}, nil
}

func (p *AnthropicProvider) Name() string       { return "anthropic" }
func (p *AnthropicProvider) SupportsTools() bool { return true }

func (p *AnthropicProvider) MakeRequest(ctx context.Context, model, systemPrompt string, messages []message.Message, tools []tool.Definition, params map[string]any) (*Response, error) {
	msgs, err := convertMessagesAnthropic(messages)
	if err != nil {
		return nil, newProviderError("anthropic", model, err)
	}

	maxTokens := defaultMaxTokens
	if n, ok := paramInt(params, "max_tokens"); ok {
		maxTokens = n
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: int64(maxTokens),
	}
	if systemPrompt != "" {
		req.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if temp, ok := paramFloat(params, "temperature"); ok {
		req.Temperature = anthropic.Float(temp)
	}
	if len(tools) > 0 {
		toolParams, err := convertToolsAnthropic(tools)
		if err != nil {
			return nil, newProviderError("anthropic", model, err)
		}
		req.Tools = toolParams
	}

	resp, err := p.client.Messages.New(ctx, req)
	if err != nil {
		return nil, newProviderError("anthropic", model, err)
	}

	return &Response{
		ID:            resp.ID,
		ContentBlocks: convertResponseBlocksAnthropic(resp.Content),
		StopReason:    anthropicStopReason(resp.StopReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			CachedTokens: int(resp.Usage.CacheReadInputTokens),
		},
	}, nil
}

func anthropicStopReason(r anthropic.StopReason) StopReason {
	switch r {
	case anthropic.StopReasonMaxTokens:
		return StopMaxTokens
	case anthropic.StopReasonToolUse:
		return StopToolUse
	case anthropic.StopReasonStopSequence:
		return StopSequence
	default:
		return StopEndTurn
	}
}

func convertMessagesAnthropic(messages []message.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case message.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.FlattenText())))

		case message.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			for _, b := range m.Blocks {
				switch b.Type {
				case message.BlockText:
					content = append(content, anthropic.NewTextBlock(b.Text))
				case message.BlockToolUse:
					content = append(content, anthropic.NewToolUseBlock(b.ToolUseID, b.ToolArgs, b.ToolName))
				}
			}
			if len(content) == 0 && m.Text != "" {
				content = append(content, anthropic.NewTextBlock(m.Text))
			}
			result = append(result, anthropic.NewAssistantMessage(content...))

		case message.RoleToolResultBatch:
			var content []anthropic.ContentBlockParamUnion
			for _, b := range m.Blocks {
				if b.Type != message.BlockToolResult {
					continue
				}
				content = append(content, anthropic.NewToolResultBlock(b.ToolResultForID, b.ToolResultText, b.ToolResultError))
			}
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}

func convertToolsAnthropic(tools []tool.Definition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshaling schema for %s: %w", t.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", t.Name)
		}
		param.OfTool.Description = anthropic.String(t.Description)
		result = append(result, param)
	}
	return result, nil
}

func convertResponseBlocksAnthropic(blocks []anthropic.ContentBlockUnion) []message.Block {
	var result []message.Block
	for _, b := range blocks {
		switch b.Type {
		case "text":
			result = append(result, message.TextBlock(b.Text))
		case "tool_use":
			toolUse := b.AsToolUse()
			var args map[string]any
			if len(toolUse.Input) > 0 {
				_ = json.Unmarshal(toolUse.Input, &args)
			}
			result = append(result, message.ToolUseBlock(toolUse.ID, toolUse.Name, args))
		}
	}
	return result
}
