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

import "github.com/kadirpekel/llmproc/pkg/message"

// autoWrapIfOversized replaces a tool's raw text output with a content FD
// reference when the FD Manager is enabled and the output exceeds the
// configured direct-output ceiling. Tools already reading/writing FDs
// (read_fd, fd_to_file) are exempt via Manager.RegisterFDTool, so their
// own (small) output is never re-wrapped.
func (p *Process) autoWrapIfOversized(toolName, text string) string {
	if p.fdManager == nil || !p.fdManager.ShouldAutoWrap(toolName, len(text)) {
		return text
	}
	return p.fdManager.CreateFD(text, toolName).Text()
}

// pageInputIfOversized replaces a plain-text user message with one built
// from a content FD reference when input paging is enabled and the
// message exceeds the configured ceiling.
func (p *Process) pageInputIfOversized(input string, fallback message.Message) message.Message {
	if p.fdManager == nil || !p.fdManager.ShouldWrapInput(len(input)) {
		return fallback
	}
	return message.NewUserText(p.fdManager.CreateFD(input, "user_input").Text())
}
