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

import (
	"context"
	"sync"
	"testing"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/program"
	"github.com/kadirpekel/llmproc/pkg/provider"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

// scriptedProvider replays a fixed sequence of responses, one per call,
// regardless of the request content; the last response repeats once the
// script is exhausted. Safe for concurrent use by fork's parallel children.
type scriptedProvider struct {
	mu     sync.Mutex
	script []*provider.Response
	calls  int
}

func newScriptedProvider(responses ...*provider.Response) *scriptedProvider {
	return &scriptedProvider{script: responses}
}

func (s *scriptedProvider) Name() string       { return "stub" }
func (s *scriptedProvider) SupportsTools() bool { return true }

func (s *scriptedProvider) MakeRequest(ctx context.Context, model, systemPrompt string, messages []message.Message, tools []tool.Definition, params map[string]any) (*provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return s.script[idx], nil
}

func textResponse(text string) *provider.Response {
	return &provider.Response{
		ContentBlocks: []message.Block{message.TextBlock(text)},
		StopReason:    provider.StopEndTurn,
	}
}

func toolUseResponse(id, name string, args map[string]any) *provider.Response {
	return &provider.Response{
		ContentBlocks: []message.Block{message.ToolUseBlock(id, name, args)},
		StopReason:    provider.StopToolUse,
	}
}

// newTestProcess builds a Process around p using a registry pre-seeded
// with stub under name "stub", so no real provider credentials are ever
// needed in tests.
func newTestProcess(t *testing.T, prog *program.Program, stub provider.Provider) *Process {
	t.Helper()
	reg := provider.NewRegistry()
	if err := reg.Register("stub", stub); err != nil {
		t.Fatalf("registering stub provider: %v", err)
	}
	prog.Provider = "stub"
	proc, err := New(context.Background(), prog, Options{Registry: reg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return proc
}

func newTestProgram() *program.Program {
	return program.New().WithModel("stub", "stub-model").WithSystemPrompt("you are a test fixture")
}

func TestRunSimpleTextResponse(t *testing.T) {
	stub := newScriptedProvider(textResponse("hello there"))
	proc := newTestProcess(t, newTestProgram(), stub)

	res, err := proc.Run(context.Background(), "hi", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Text != "hello there" {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.StopReason != provider.StopEndTurn {
		t.Fatalf("StopReason = %q", res.StopReason)
	}
	if got := proc.Messages().Len(); got != 2 {
		t.Fatalf("expected 2 messages (user + assistant), got %d", got)
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	stub := newScriptedProvider(textResponse("unused"))
	proc := newTestProcess(t, newTestProgram(), stub)

	_, err := proc.Run(context.Background(), "   ", 0)
	if _, ok := err.(*EmptyInputError); !ok {
		t.Fatalf("expected *EmptyInputError, got %T: %v", err, err)
	}
}

func TestRunCallsToolAndLoopsBack(t *testing.T) {
	prog := newTestProgram()
	prog.Tools.Enabled = []string{"calculator"}

	stub := newScriptedProvider(
		toolUseResponse("call_1", "calculator", map[string]any{"expression": "2+2"}),
		textResponse("the answer is 4"),
	)
	proc := newTestProcess(t, prog, stub)

	res, err := proc.Run(context.Background(), "what is 2+2?", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Text != "the answer is 4" {
		t.Fatalf("Text = %q", res.Text)
	}

	msgs := proc.Messages().Messages()
	var sawToolResult bool
	for _, m := range msgs {
		if m.Role == message.RoleToolResultBatch {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Fatal("expected a tool-result-bundle message in the log")
	}
}

func TestRunUnknownToolIsReportedNotFatal(t *testing.T) {
	prog := newTestProgram()
	stub := newScriptedProvider(
		toolUseResponse("call_1", "no_such_tool", nil),
		textResponse("recovered"),
	)
	proc := newTestProcess(t, prog, stub)

	res, err := proc.Run(context.Background(), "go", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Text != "recovered" {
		t.Fatalf("Text = %q", res.Text)
	}
}

func TestRunStopsAtMaxIterationsWithoutAppendingUnresolvedCall(t *testing.T) {
	prog := newTestProgram()
	prog.Tools.Enabled = []string{"calculator"}

	stub := newScriptedProvider(
		toolUseResponse("call_1", "calculator", map[string]any{"expression": "1+1"}),
	)
	proc := newTestProcess(t, prog, stub)

	res, err := proc.Run(context.Background(), "compute", 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StopReason != provider.StopMaxIteration {
		t.Fatalf("StopReason = %q", res.StopReason)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text at max_iterations, got %q", res.Text)
	}
	// Only the user message should have been appended; the unresolved
	// tool-use turn is discarded entirely.
	if got := proc.Messages().Len(); got != 1 {
		t.Fatalf("expected 1 message, got %d", got)
	}
}

func TestGotoTruncatesAndRecordsHistory(t *testing.T) {
	prog := newTestProgram()
	stub := newScriptedProvider(textResponse("first"), textResponse("second"))
	proc := newTestProcess(t, prog, stub)

	if _, err := proc.Run(context.Background(), "one", 0); err != nil {
		t.Fatalf("Run 1: %v", err)
	}
	firstTail := proc.Messages().LastID()

	if _, err := proc.Run(context.Background(), "two", 0); err != nil {
		t.Fatalf("Run 2: %v", err)
	}

	if err := proc.TruncateTo(firstTail); err != nil {
		t.Fatalf("TruncateTo: %v", err)
	}
	if got := proc.Messages().Len(); got != 2 {
		t.Fatalf("expected log truncated back to 2 messages, got %d", got)
	}
	if len(proc.history) != 1 {
		t.Fatalf("expected one recorded truncation, got %d", len(proc.history))
	}
}

func TestForkProcessIsolatesState(t *testing.T) {
	prog := newTestProgram()
	prog.FD.Enabled = true
	prog.FD.MaxDirectOutputChars = 1000
	stub := newScriptedProvider(textResponse("parent response"))
	proc := newTestProcess(t, prog, stub)

	if _, err := proc.Run(context.Background(), "seed", 0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	proc.fdManager.CreateFD("parent fd content", "test")

	child := proc.ForkProcess()
	if child.allowFork {
		t.Fatal("child must not be allowed to fork")
	}
	child.fdManager.CreateFD("child only content", "test")
	child.messages.Append(message.NewUserText("child only message"))

	if got := proc.Messages().Len(); got != 2 {
		t.Fatalf("parent log mutated by child: len = %d", got)
	}
	if _, ok := proc.fdManager.Get("fd:2"); ok {
		t.Fatal("parent FD table mutated by child")
	}
}

func TestSpawnAndRunReusesLiveProcess(t *testing.T) {
	childProg := program.New().WithModel("stub", "child-model")
	parentProg := newTestProgram().WithTool("spawn")
	parentProg.LinkedPrograms = map[string]*program.LinkedProgram{
		"helper": {Name: "helper", Program: childProg},
	}

	reg := provider.NewRegistry()
	stub := newScriptedProvider(textResponse("child says hi"), textResponse("child says hi again"))
	if err := reg.Register("stub", stub); err != nil {
		t.Fatalf("registering stub: %v", err)
	}
	parentProg.Provider = "stub"

	parent, err := New(context.Background(), parentProg, Options{Registry: reg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text1, err := parent.SpawnAndRun(context.Background(), "helper", "hello", nil, nil)
	if err != nil {
		t.Fatalf("SpawnAndRun: %v", err)
	}
	if text1 != "child says hi" {
		t.Fatalf("text1 = %q", text1)
	}

	live := parent.linked["helper"].live
	if live == nil {
		t.Fatal("expected helper to be marked live after first spawn")
	}

	text2, err := parent.SpawnAndRun(context.Background(), "helper", "hello again", nil, nil)
	if err != nil {
		t.Fatalf("SpawnAndRun 2: %v", err)
	}
	if text2 != "child says hi again" {
		t.Fatalf("text2 = %q", text2)
	}
	if parent.linked["helper"].live != live {
		t.Fatal("expected the same live process to be reused")
	}
}

func TestSpawnAndRunUnknownLink(t *testing.T) {
	prog := newTestProgram()
	stub := newScriptedProvider(textResponse("unused"))
	proc := newTestProcess(t, prog, stub)

	_, err := proc.SpawnAndRun(context.Background(), "missing", "hi", nil, nil)
	if _, ok := err.(*LinkedProgramNotFoundError); !ok {
		t.Fatalf("expected *LinkedProgramNotFoundError, got %T: %v", err, err)
	}
}
