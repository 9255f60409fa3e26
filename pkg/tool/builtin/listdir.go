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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// ListDirArgs is the list_dir tool's JSON Schema source.
//
// list_dir supplements the built-in set with a directory-listing
// counterpart to read_file, following the same "demonstration tool, not
// sandboxed" posture as the original read_file tool this module generalizes.
type ListDirArgs struct {
	Path string `json:"path" jsonschema:"required,description=Absolute or relative path to the directory to list"`
}

// ListDir builds the list_dir tool handler.
func ListDir() tool.Handler {
	schema, err := tool.SchemaOf[ListDirArgs]()
	if err != nil {
		panic(fmt.Sprintf("builtin: list_dir schema: %v", err))
	}
	return tool.Handler{
		Definition: tool.Definition{
			Name:        "list_dir",
			Description: "Lists the entries of a directory on the file system, one per line, directories suffixed with \"/\".",
			Parameters:  schema,
		},
		Free: listDirHandler,
	}
}

func listDirHandler(_ context.Context, args map[string]any) *toolresult.Result {
	path, _ := args["path"].(string)
	if path == "" {
		return toolresult.Error("list_dir: path is required")
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}

	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return toolresult.Errorf("list_dir: directory not found: %s", path)
	}
	if err != nil {
		return toolresult.Errorf("list_dir: error listing %s: %v", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return toolresult.Success(strings.Join(names, "\n"))
}
