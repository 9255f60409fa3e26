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

package program

import "fmt"

// ValidationError is a single compilation failure: a missing required
// field, an unsatisfied tool dependency, a non-unique alias target, or a
// cyclic linked-program graph.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("program validation: %s: %s", e.Field, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationErr(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func validationErrf(field string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: err}
}

// FileNotFoundError is returned when a required file referenced by a
// Program (system prompt file, linked-program source, MCP config) is
// absent. Preload file misses are reported as warnings, not as this error.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s: %v", e.Path, e.Err)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}
