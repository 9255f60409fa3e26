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

import "fmt"

// ToolNotFoundError reports that a model-requested tool name has no
// handler in the process's Tool Registry.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("process: no such tool %q", e.Name)
}

// EmptyInputError reports that Run was called with input that flattens
// to no content, rejected before any provider call per the empty-message
// invariant.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "process: input is empty"
}

// LinkedProgramNotFoundError reports that spawn named a link the process
// has no entry for.
type LinkedProgramNotFoundError struct {
	Name      string
	Available []string
}

func (e *LinkedProgramNotFoundError) Error() string {
	return fmt.Sprintf("process: no linked program %q, available: %v", e.Name, e.Available)
}

// ForkNotAllowedError reports that fork was invoked on a process whose
// allowFork flag is false (children of a fork cannot themselves fork).
type ForkNotAllowedError struct{}

func (e *ForkNotAllowedError) Error() string {
	return "process: fork is not allowed on this process"
}
