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
	"os"

	"google.golang.org/genai"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

// GeminiProvider adapts Google's Gen AI SDK to the Provider interface,
// speaking either to the Gemini Developer API or, when
// GOOGLE_CLOUD_PROJECT is set, to Vertex AI.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider builds a provider from process environment variables.
// GOOGLE_CLOUD_PROJECT (with GOOGLE_CLOUD_LOCATION, default "us-central1")
// selects the Vertex AI backend and relies on Application Default
// Credentials (GOOGLE_APPLICATION_CREDENTIALS); otherwise GEMINI_API_KEY
// selects the Gemini Developer API.
func NewGeminiProvider(ctx context.Context) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{}
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		location := os.Getenv("GOOGLE_CLOUD_LOCATION")
		if location == "" {
			location = "us-central1"
		}
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = project
		cfg.Location = location
	} else {
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("gemini: neither GOOGLE_CLOUD_PROJECT nor GEMINI_API_KEY is set")
		}
		cfg.Backend = genai.BackendGeminiAPI
		cfg.APIKey = key
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string        { return "gemini" }
func (p *GeminiProvider) SupportsTools() bool { return true }

func (p *GeminiProvider) MakeRequest(ctx context.Context, model, systemPrompt string, messages []message.Message, tools []tool.Definition, params map[string]any) (*Response, error) {
	contents := convertMessagesGemini(messages)

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if n, ok := paramInt(params, "max_tokens"); ok {
		config.MaxOutputTokens = int32(n)
	}
	if temp, ok := paramFloat(params, "temperature"); ok {
		t := float32(temp)
		config.Temperature = &t
	}
	if len(tools) > 0 {
		config.Tools = convertToolsGemini(tools)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, newProviderError("gemini", model, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, newProviderError("gemini", model, fmt.Errorf("response contained no candidates"))
	}
	candidate := resp.Candidates[0]

	usage := Usage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &Response{
		ID:            resp.ResponseID,
		ContentBlocks: convertResponseBlocksGemini(candidate),
		StopReason:    geminiStopReason(candidate),
		Usage:         usage,
	}, nil
}

func geminiStopReason(candidate *genai.Candidate) StopReason {
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.FunctionCall != nil {
				return StopToolUse
			}
		}
	}
	switch candidate.FinishReason {
	case genai.FinishReasonMaxTokens:
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}

// convertMessagesGemini maps the provider-independent log onto Gemini's
// user/model role pair, folding tool-result batches into function-response
// parts on a user-role turn.
func convertMessagesGemini(messages []message.Message) []*genai.Content {
	var result []*genai.Content
	for _, m := range messages {
		content := &genai.Content{}
		switch m.Role {
		case message.RoleUser:
			content.Role = genai.RoleUser
			content.Parts = append(content.Parts, &genai.Part{Text: m.FlattenText()})

		case message.RoleAssistant:
			content.Role = genai.RoleModel
			for _, b := range m.Blocks {
				switch b.Type {
				case message.BlockText:
					content.Parts = append(content.Parts, &genai.Part{Text: b.Text})
				case message.BlockToolUse:
					content.Parts = append(content.Parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{Name: b.ToolName, Args: b.ToolArgs},
					})
				}
			}

		case message.RoleToolResultBatch:
			content.Role = genai.RoleUser
			for _, b := range m.Blocks {
				if b.Type != message.BlockToolResult {
					continue
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     toolNameForResult(messages, b.ToolResultForID),
						Response: map[string]any{"result": b.ToolResultText, "error": b.ToolResultError},
					},
				})
			}
		}
		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}
	return result
}

// toolNameForResult recovers the function name Gemini's FunctionResponse
// requires by name, since tool-result blocks only carry the call id.
func toolNameForResult(messages []message.Message, toolCallID string) string {
	for _, m := range messages {
		for _, b := range m.Blocks {
			if b.Type == message.BlockToolUse && b.ToolUseID == toolCallID {
				return b.ToolName
			}
		}
	}
	return ""
}

func convertToolsGemini(tools []tool.Definition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertResponseBlocksGemini(candidate *genai.Candidate) []message.Block {
	var result []message.Block
	if candidate.Content == nil {
		return result
	}
	for i, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			result = append(result, message.TextBlock(part.Text))
		}
		if part.FunctionCall != nil {
			result = append(result, message.ToolUseBlock(geminiCallID(part.FunctionCall.Name, i), part.FunctionCall.Name, part.FunctionCall.Args))
		}
	}
	return result
}

// geminiCallID synthesizes a stable tool-use id, since Gemini's API does
// not assign one: it is referenced again only within the same response's
// subsequent tool-result turn, built from this same candidate.
func geminiCallID(name string, index int) string {
	return fmt.Sprintf("call_%s_%d", name, index)
}
