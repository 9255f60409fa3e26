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

	"github.com/kadirpekel/llmproc/pkg/mcpconnector"
	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// mcpToolHandler adapts one remote tool descriptor into a context-free
// tool.Handler that dispatches through connector.Call. MCP tools need no
// RuntimeContext: the connector, not the process, owns their state.
func mcpToolHandler(connector *mcpconnector.Connector, desc mcpconnector.ToolDescriptor) tool.Handler {
	name := desc.Name
	return tool.Handler{
		Definition: tool.Definition{
			Name:        name,
			Description: desc.Description,
			Parameters:  desc.Parameters,
		},
		Free: func(ctx context.Context, args map[string]any) *toolresult.Result {
			return connector.Call(ctx, name, args)
		},
	}
}
