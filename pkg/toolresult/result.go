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

// Package toolresult defines the uniform envelope every tool handler
// (built-in, function, or MCP) returns.
package toolresult

import "fmt"

// Result is the tagged success/error envelope for a tool invocation.
type Result struct {
	// Content is the tool's output. For successful calls this is typically
	// a string, but handlers may return structured data (maps, slices) that
	// the executor renders to text before handing it to the provider.
	Content any

	// IsError marks the result as a tool-level failure. Tool errors are
	// returned to the model as a tool-result block, not raised to the
	// caller (see §7 recovery policy).
	IsError bool
}

// Success builds a success envelope.
func Success(content any) *Result {
	return &Result{Content: content}
}

// Error builds an error envelope from a plain message.
func Error(msg string) *Result {
	return &Result{Content: msg, IsError: true}
}

// Errorf builds an error envelope from a format string.
func Errorf(format string, args ...any) *Result {
	return &Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

// Text renders the result's content as a string, the form the executor
// embeds into a tool-result message block.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	switch c := r.Content.(type) {
	case string:
		return c
	case fmt.Stringer:
		return c.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", c)
	}
}
