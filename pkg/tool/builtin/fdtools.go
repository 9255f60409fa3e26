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

	"github.com/kadirpekel/llmproc/pkg/fd"
	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// ReadFDArgs is the read_fd tool's JSON Schema source.
type ReadFDArgs struct {
	FD             string `json:"fd" jsonschema:"required,description=File descriptor id to read from (e.g. fd:12 or ref:example)"`
	ReadAll        bool   `json:"read_all,omitempty" jsonschema:"description=If true return the entire content,default=false"`
	ExtractToNewFD bool   `json:"extract_to_new_fd,omitempty" jsonschema:"description=If true extract the selected range to a new file descriptor,default=false"`
	Mode           string `json:"mode,omitempty" jsonschema:"description=Positioning mode: page, line, or char,default=page"`
	Start          int    `json:"start,omitempty" jsonschema:"description=Starting position,default=1"`
	Count          int    `json:"count,omitempty" jsonschema:"description=Number of units to read,default=1"`
}

// ReadFD builds the read_fd tool handler.
func ReadFD() tool.Handler {
	schema, err := tool.SchemaOf[ReadFDArgs]()
	if err != nil {
		panic(fmt.Sprintf("builtin: read_fd schema: %v", err))
	}
	return tool.Handler{
		Definition: tool.Definition{
			Name:        "read_fd",
			Description: "Reads content from a file descriptor by page, line, or character range, or in its entirety.",
			Parameters:  schema,
		},
		Aware: readFDHandler,
	}
}

func readFDHandler(rt tool.RuntimeContext, args map[string]any) *toolresult.Result {
	if rt.FDManager == nil {
		return toolresult.Error("read_fd: file descriptor operations require an enabled FD manager")
	}

	fdID, _ := args["fd"].(string)
	if fdID == "" {
		return toolresult.Error("read_fd: fd is required")
	}
	mode, _ := args["mode"].(string)
	if mode == "" {
		mode = string(fd.ModePage)
	}

	return rt.FDManager.ReadFD(fd.ReadParams{
		FDID:           fdID,
		Mode:           fd.Mode(mode),
		Start:          intArg(args, "start", 1),
		Count:          intArg(args, "count", 1),
		ReadAll:        boolArg(args, "read_all"),
		ExtractToNewFD: boolArg(args, "extract_to_new_fd"),
	})
}

// FDToFileArgs is the fd_to_file tool's JSON Schema source.
type FDToFileArgs struct {
	FD       string `json:"fd" jsonschema:"required,description=File descriptor id to export (e.g. fd:12 or ref:example)"`
	FilePath string `json:"file_path" jsonschema:"required,description=Absolute path to the file to write"`
	Mode     string `json:"mode,omitempty" jsonschema:"description=write or append,default=write"`
	Create   bool   `json:"create,omitempty" jsonschema:"description=Create the file if it does not exist,default=true"`
	ExistOK  bool   `json:"exist_ok,omitempty" jsonschema:"description=Allow overwriting an existing file,default=true"`
}

// FDToFile builds the fd_to_file tool handler.
func FDToFile() tool.Handler {
	schema, err := tool.SchemaOf[FDToFileArgs]()
	if err != nil {
		panic(fmt.Sprintf("builtin: fd_to_file schema: %v", err))
	}
	return tool.Handler{
		Definition: tool.Definition{
			Name:        "fd_to_file",
			Description: "Writes file descriptor content to a file on disk.",
			Parameters:  schema,
		},
		Aware: fdToFileHandler,
	}
}

func fdToFileHandler(rt tool.RuntimeContext, args map[string]any) *toolresult.Result {
	if rt.FDManager == nil {
		return toolresult.Error("fd_to_file: file descriptor operations require an enabled FD manager")
	}

	fdID, _ := args["fd"].(string)
	if fdID == "" {
		return toolresult.Error("fd_to_file: fd is required")
	}
	filePath, _ := args["file_path"].(string)
	if filePath == "" {
		return toolresult.Error("fd_to_file: file_path is required")
	}
	mode, _ := args["mode"].(string)
	if mode == "" {
		mode = string(fd.WriteModeWrite)
	}

	return rt.FDManager.WriteFDToFile(fd.WriteParams{
		FDID:    fdID,
		Path:    filePath,
		Mode:    fd.WriteMode(mode),
		Create:  boolArgDefault(args, "create", true),
		ExistOK: boolArgDefault(args, "exist_ok", true),
	})
}

func intArg(args map[string]any, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func boolArgDefault(args map[string]any, key string, fallback bool) bool {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}
