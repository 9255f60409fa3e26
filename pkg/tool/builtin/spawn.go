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

package builtin

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// SpawnArgs is the spawn tool's JSON Schema source.
type SpawnArgs struct {
	ProgramName            string   `json:"program_name" jsonschema:"required,description=Name of the linked program to call"`
	Query                  string   `json:"query" jsonschema:"required,description=The query to send to the linked program"`
	AdditionalPreloadFiles []string `json:"additional_preload_files,omitempty" jsonschema:"description=Extra file paths to preload into the child process before running"`
	AdditionalPreloadFDs   []string `json:"additional_preload_fds,omitempty" jsonschema:"description=File descriptor ids to copy into the child process's FD manager before running"`
}

// Spawn builds the spawn tool handler. Like fork, spawn is fundamentally
// context-aware: it reaches back into the owning process to find (or
// start) the named linked program's process.
func Spawn() tool.Handler {
	schema, err := tool.SchemaOf[SpawnArgs]()
	if err != nil {
		panic(fmt.Sprintf("builtin: spawn schema: %v", err))
	}
	return tool.Handler{
		Definition: tool.Definition{
			Name:        "spawn",
			Description: "Spawns a specialized process from a linked program to handle a specific query, analogous to spawn/exec in Unix.",
			Parameters:  schema,
		},
		Aware: spawnHandler,
	}
}

func spawnHandler(rt tool.RuntimeContext, args map[string]any) *toolresult.Result {
	if rt.Process == nil {
		return toolresult.Error("spawn: requires a parent process")
	}
	spawner := rt.Process.Spawner()
	if spawner == nil {
		return toolresult.Error("spawn: requires a parent process with linked programs defined")
	}

	programName, _ := args["program_name"].(string)
	if programName == "" {
		return toolresult.Error("spawn: program_name is required")
	}
	query, _ := args["query"].(string)
	if query == "" {
		return toolresult.Error("spawn: query is required")
	}

	available := spawner.LinkNames()
	found := false
	for _, n := range available {
		if n == programName {
			found = true
			break
		}
	}
	if !found {
		return toolresult.Errorf("spawn: program %q not found. Available programs: %s", programName, strings.Join(available, ", "))
	}

	preloadFiles := stringSliceArg(args, "additional_preload_files")
	preloadFDs := stringSliceArg(args, "additional_preload_fds")

	response, err := spawner.SpawnAndRun(rt.Context, programName, query, preloadFiles, preloadFDs)
	if err != nil {
		return toolresult.Errorf("spawn: error creating process from program %q: %v", programName, err)
	}

	return toolresult.Success(map[string]any{
		"program":  programName,
		"query":    query,
		"response": response,
	})
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
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
