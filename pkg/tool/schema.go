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

package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaOf derives a tool's JSON Schema from a Go argument struct using its
// json and jsonschema struct tags, the same derivation a registration-time
// helper needs for dynamically declared tool handlers.
//
//	type calcArgs struct {
//	    Expression string `json:"expression" jsonschema:"required,description=Arithmetic expression to evaluate"`
//	    Precision  int    `json:"precision,omitempty" jsonschema:"description=Decimal digits,default=6"`
//	}
//	params, err := tool.SchemaOf[calcArgs]()
func SchemaOf[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool: marshaling schema: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tool: unmarshaling schema: %w", err)
	}
	delete(raw, "$schema")
	delete(raw, "$id")

	if raw["type"] != "object" {
		return raw, nil
	}

	result := map[string]any{
		"type":       "object",
		"properties": raw["properties"],
	}
	if required, ok := raw["required"]; ok {
		result["required"] = required
	}
	if additional, ok := raw["additionalProperties"]; ok {
		result["additionalProperties"] = additional
	}
	return result, nil
}
