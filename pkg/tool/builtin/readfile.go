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

	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// ReadFileArgs is the read_file tool's JSON Schema source.
type ReadFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=Absolute or relative path to the file to read"`
}

// ReadFile builds the read_file tool handler. It is not sandboxed: callers
// that need to restrict filesystem access must filter paths in a wrapping
// layer before registration.
func ReadFile() tool.Handler {
	schema, err := tool.SchemaOf[ReadFileArgs]()
	if err != nil {
		panic(fmt.Sprintf("builtin: read_file schema: %v", err))
	}
	return tool.Handler{
		Definition: tool.Definition{
			Name:        "read_file",
			Description: "Reads a file from the file system and returns its contents.",
			Parameters:  schema,
		},
		Free: readFileHandler,
	}
}

func readFileHandler(_ context.Context, args map[string]any) *toolresult.Result {
	path, _ := args["path"].(string)
	if path == "" {
		return toolresult.Error("read_file: path is required")
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return toolresult.Errorf("read_file: file not found: %s", path)
	}
	if err != nil {
		return toolresult.Errorf("read_file: error reading %s: %v", path, err)
	}
	return toolresult.Success(string(data))
}
