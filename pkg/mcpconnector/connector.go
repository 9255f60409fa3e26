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

package mcpconnector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// ToolDescriptor is a remote tool's LLM-facing shape, as surfaced by
// ListTools.
type ToolDescriptor struct {
	// Name is namespaced "<server>__<tool>".
	Name        string
	Description string
	Parameters  map[string]any
}

type serverConn struct {
	cfg        ServerConfig
	stdio      *client.Client
	httpClient *http.Client
	sessionID  string
	sessionMu  sync.RWMutex
}

// Connector is the External-Tool Connector. It is safe for concurrent use
// once Initialize has returned.
type Connector struct {
	mu      sync.Mutex
	servers map[string]*serverConn
}

// New constructs an uninitialized Connector.
func New() *Connector {
	return &Connector{servers: make(map[string]*serverConn)}
}

// Initialize loads every server definition in cfg. It does not select or
// register individual tools - that happens at registration time via
// ListTools + the caller's own filtering.
func (c *Connector) Initialize(ctx context.Context, cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sc := range cfg.Servers {
		if sc.Name == "" {
			return fmt.Errorf("mcpconnector: server config missing name")
		}
		conn := &serverConn{cfg: sc}
		if err := conn.connect(ctx); err != nil {
			return fmt.Errorf("mcpconnector: connecting to server %q: %w", sc.Name, err)
		}
		c.servers[sc.Name] = conn
	}
	return nil
}

func (conn *serverConn) connect(ctx context.Context) error {
	switch conn.cfg.Transport {
	case "", "stdio":
		return conn.connectStdio(ctx)
	case "streamable-http":
		conn.httpClient = &http.Client{Timeout: 30 * time.Second}
		return nil
	default:
		return fmt.Errorf("unknown transport %q", conn.cfg.Transport)
	}
}

func (conn *serverConn) connectStdio(ctx context.Context) error {
	env := make([]string, 0, len(conn.cfg.Env))
	for k, v := range conn.cfg.Env {
		env = append(env, k+"="+v)
	}

	c, err := client.NewStdioMCPClient(conn.cfg.Command, env, conn.cfg.Args...)
	if err != nil {
		return fmt.Errorf("creating stdio client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("starting stdio client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "llmproc", Version: "1.0.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("initializing: %w", err)
	}

	conn.stdio = c
	return nil
}

// ListTools returns every server's tool catalog, namespaced
// "<server>__<tool>" and filtered per each ServerConfig.Filter.
func (c *Connector) ListTools(ctx context.Context) (map[string][]ToolDescriptor, error) {
	c.mu.Lock()
	servers := make([]*serverConn, 0, len(c.servers))
	for _, conn := range c.servers {
		servers = append(servers, conn)
	}
	c.mu.Unlock()

	out := make(map[string][]ToolDescriptor, len(servers))
	for _, conn := range servers {
		descs, err := conn.listTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("mcpconnector: listing tools for server %q: %w", conn.cfg.Name, err)
		}
		out[conn.cfg.Name] = descs
	}
	return out, nil
}

func (conn *serverConn) listTools(ctx context.Context) ([]ToolDescriptor, error) {
	var filter map[string]bool
	if len(conn.cfg.Filter) > 0 {
		filter = make(map[string]bool, len(conn.cfg.Filter))
		for _, n := range conn.cfg.Filter {
			filter[n] = true
		}
	}

	if conn.stdio != nil {
		resp, err := conn.stdio.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, err
		}
		descs := make([]ToolDescriptor, 0, len(resp.Tools))
		for _, t := range resp.Tools {
			if filter != nil && !filter[t.Name] {
				continue
			}
			descs = append(descs, ToolDescriptor{
				Name:        conn.cfg.Name + "__" + t.Name,
				Description: t.Description,
				Parameters:  schemaToMap(t.InputSchema),
			})
		}
		return descs, nil
	}

	resp, err := conn.rpc(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	resultMap, _ := resp.Result.(map[string]any)
	rawTools, _ := resultMap["tools"].([]any)

	descs := make([]ToolDescriptor, 0, len(rawTools))
	for _, raw := range rawTools {
		tm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := tm["name"].(string)
		if filter != nil && !filter[name] {
			continue
		}
		desc, _ := tm["description"].(string)
		schema, _ := tm["inputSchema"].(map[string]any)
		descs = append(descs, ToolDescriptor{
			Name:        conn.cfg.Name + "__" + name,
			Description: desc,
			Parameters:  schema,
		})
	}
	return descs, nil
}

// Call dispatches to the remote tool named "<server>__<tool>", returning a
// Tool Result envelope. Connector errors are tool errors, never process
// errors.
func (c *Connector) Call(ctx context.Context, namespacedName string, args map[string]any) *toolresult.Result {
	server, toolName, ok := splitNamespaced(namespacedName)
	if !ok {
		return toolresult.Errorf("mcpconnector: malformed tool name %q, expected <server>__<tool>", namespacedName)
	}

	c.mu.Lock()
	conn, ok := c.servers[server]
	c.mu.Unlock()
	if !ok {
		return toolresult.Errorf("mcpconnector: unknown server %q", server)
	}

	return conn.call(ctx, toolName, args)
}

func splitNamespaced(name string) (server, tool string, ok bool) {
	idx := strings.Index(name, "__")
	if idx < 0 {
		return "", "", false
	}
	return name[:idx], name[idx+2:], true
}

func (conn *serverConn) call(ctx context.Context, toolName string, args map[string]any) *toolresult.Result {
	if conn.stdio != nil {
		req := mcp.CallToolRequest{}
		req.Params.Name = toolName
		req.Params.Arguments = args
		resp, err := conn.stdio.CallTool(ctx, req)
		if err != nil {
			return toolresult.Errorf("mcpconnector: call %q failed: %v", toolName, err)
		}
		return stdioResultToEnvelope(resp)
	}

	resp, err := conn.rpc(ctx, "tools/call", map[string]any{"name": toolName, "arguments": args})
	if err != nil {
		return toolresult.Errorf("mcpconnector: call %q failed: %v", toolName, err)
	}
	if resp.Error != nil {
		return toolresult.Errorf("mcpconnector: %s", resp.Error.Message)
	}
	return httpResultToEnvelope(resp.Result)
}

func stdioResultToEnvelope(resp *mcp.CallToolResult) *toolresult.Result {
	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	text := strings.Join(texts, "\n")
	if resp.IsError {
		if text == "" {
			text = "unknown error"
		}
		return toolresult.Error(text)
	}
	return toolresult.Success(text)
}

func httpResultToEnvelope(result any) *toolresult.Result {
	resultMap, ok := result.(map[string]any)
	if !ok {
		return toolresult.Success(result)
	}
	if isError, _ := resultMap["isError"].(bool); isError {
		if content, ok := resultMap["content"].([]any); ok {
			for _, c := range content {
				if cm, ok := c.(map[string]any); ok {
					if text, ok := cm["text"].(string); ok {
						return toolresult.Error(text)
					}
				}
			}
		}
		return toolresult.Error("unknown error")
	}

	var texts []string
	if content, ok := resultMap["content"].([]any); ok {
		for _, c := range content {
			if cm, ok := c.(map[string]any); ok && cm["type"] == "text" {
				if text, ok := cm["text"].(string); ok {
					texts = append(texts, text)
				}
			}
		}
	}
	return toolresult.Success(strings.Join(texts, "\n"))
}

// jsonRPCRequest/jsonRPCResponse implement the minimal JSON-RPC envelope
// the MCP streamable-HTTP transport uses.
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (conn *serverConn) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conn.cfg.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	conn.sessionMu.RLock()
	sessionID := conn.sessionID
	conn.sessionMu.RUnlock()
	if sessionID != "" {
		req.Header.Set("mcp-session-id", sessionID)
	}

	resp, err := conn.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if newSessionID := resp.Header.Get("mcp-session-id"); newSessionID != "" {
		conn.sessionMu.Lock()
		conn.sessionID = newSessionID
		conn.sessionMu.Unlock()
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &rpcResp, nil
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// Close releases every server connection.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, conn := range c.servers {
		if conn.stdio != nil {
			if err := conn.stdio.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	c.servers = make(map[string]*serverConn)
	return firstErr
}
