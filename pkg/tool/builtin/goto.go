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

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/tool"
	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// these framing tags mark a message already produced by goto, so a second
// goto with a new message is not nested inside them again.
const (
	timeTravelOpenTag  = "<time_travel_message>"
	timeTravelCloseTag = "</time_travel_message>"
	systemNoticeTag    = "<system-notice>"
)

// GotoArgs is the goto tool's JSON Schema source.
type GotoArgs struct {
	Position string `json:"position" jsonschema:"required,description=Message id (msg_<n>) to rewind the conversation to"`
	Message  string `json:"message,omitempty" jsonschema:"description=New direction to give after rewinding, replacing the abandoned turn"`
}

// Goto builds the goto tool handler.
func Goto() tool.Handler {
	schema, err := tool.SchemaOf[GotoArgs]()
	if err != nil {
		panic(fmt.Sprintf("builtin: goto schema: %v", err))
	}
	return tool.Handler{
		Definition: tool.Definition{
			Name:        "goto",
			Description: "Rewinds the conversation to an earlier message id, optionally replacing the abandoned turn with a new direction.",
			Parameters:  schema,
		},
		Aware: gotoHandler,
	}
}

func gotoHandler(rt tool.RuntimeContext, args map[string]any) *toolresult.Result {
	if rt.Process == nil {
		return toolresult.Error("goto: requires a parent process")
	}

	positionStr, _ := args["position"].(string)
	if positionStr == "" {
		return toolresult.Error("goto: position is required")
	}
	position := message.ID(positionStr)
	idx := position.Index()

	log := rt.Process.Messages()
	messages := log.Messages()
	if idx < 0 || idx >= len(messages) {
		return toolresult.Errorf("goto: no such message %q", positionStr)
	}

	tail := log.LastID()
	if idx >= tail.Index() {
		return toolresult.Error("goto: cannot go forward")
	}

	var abandoned string
	if idx+1 < len(messages) {
		abandoned = messages[idx+1].FlattenText()
	}

	if err := rt.Process.TruncateTo(position); err != nil {
		return toolresult.Errorf("goto: %v", err)
	}

	newDirection, _ := args["message"].(string)
	if newDirection == "" {
		return toolresult.Success(fmt.Sprintf("Rewound conversation to %s.", positionStr))
	}

	var wrapped string
	if strings.Contains(newDirection, timeTravelOpenTag) || strings.Contains(newDirection, systemNoticeTag) {
		wrapped = newDirection
	} else {
		wrapped = buildTimeTravelMessage(positionStr, abandoned, newDirection)
	}

	log.Append(message.NewUserText(wrapped))
	return toolresult.Success(fmt.Sprintf("Rewound conversation to %s and redirected.", positionStr))
}

func buildTimeTravelMessage(position, abandoned, direction string) string {
	var sb strings.Builder
	sb.WriteString(systemNoticeTag)
	sb.WriteString("conversation rewound to ")
	sb.WriteString(position)
	sb.WriteString("</system-notice>\n")
	if abandoned != "" {
		sb.WriteString("<ignored>")
		sb.WriteString(abandoned)
		sb.WriteString("</ignored>\n")
	}
	sb.WriteString(timeTravelOpenTag)
	sb.WriteString(direction)
	sb.WriteString(timeTravelCloseTag)
	return sb.String()
}
