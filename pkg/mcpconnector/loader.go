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
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// jsonConfig mirrors the "mcpServers" catalog format (the same shape
// Claude Desktop and most MCP clients accept): a map of server name to
// its launch/connection parameters.
type jsonConfig struct {
	MCPServers map[string]struct {
		Transport string            `json:"transport"`
		Command   string            `json:"command"`
		Args      []string          `json:"args"`
		Env       map[string]string `json:"env"`
		URL       string            `json:"url"`
	} `json:"mcpServers"`
}

// LoadConfig reads a server catalog from path. Server order in the
// returned Config is sorted by name, so Initialize connects in a
// deterministic order regardless of Go's randomized map iteration.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("mcpconnector: reading config %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return Config{}, fmt.Errorf("mcpconnector: parsing config %s: %w", path, err)
	}

	names := make([]string, 0, len(jc.MCPServers))
	for name := range jc.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	cfg := Config{Servers: make([]ServerConfig, 0, len(names))}
	for _, name := range names {
		s := jc.MCPServers[name]
		cfg.Servers = append(cfg.Servers, ServerConfig{
			Name:      name,
			Transport: s.Transport,
			Command:   s.Command,
			Args:      s.Args,
			Env:       s.Env,
			URL:       s.URL,
		})
	}
	return cfg, nil
}
