package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/kadirpekel/llmproc/pkg/message"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

type fakeProcess struct {
	log     *message.Log
	spawner tool.Spawnable
}

func (f *fakeProcess) ID() string { return "test-process" }

func (f *fakeProcess) Messages() *message.Log { return f.log }

func (f *fakeProcess) TruncateTo(id message.ID) error { return f.log.TruncateTo(id) }

func (f *fakeProcess) Spawner() tool.Spawnable { return f.spawner }

func seededLog() *message.Log {
	log := &message.Log{}
	log.Append(message.NewUserText("first"))
	log.Append(message.NewAssistantBlocks([]message.Block{message.TextBlock("reply one")}))
	log.Append(message.NewUserText("second"))
	log.Append(message.NewAssistantBlocks([]message.Block{message.TextBlock("reply two")}))
	return log
}

func TestGotoRewindsWithoutMessage(t *testing.T) {
	proc := &fakeProcess{log: seededLog()}
	rt := tool.RuntimeContext{Context: context.Background(), Process: proc}

	res := gotoHandler(rt, map[string]any{"position": "msg_0"})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
	if proc.log.Len() != 1 {
		t.Fatalf("log length = %d, want 1", proc.log.Len())
	}
}

func TestGotoRejectsForward(t *testing.T) {
	proc := &fakeProcess{log: seededLog()}
	rt := tool.RuntimeContext{Context: context.Background(), Process: proc}

	gotoHandler(rt, map[string]any{"position": "msg_0"})

	res := gotoHandler(rt, map[string]any{"position": "msg_1"})
	if !res.IsError {
		t.Fatal("expected cannot-go-forward error")
	}
	if !strings.Contains(res.Content.(string), "cannot go forward") {
		t.Fatalf("got %q", res.Content)
	}
}

func TestGotoWithMessageWrapsAbandonedContent(t *testing.T) {
	proc := &fakeProcess{log: seededLog()}
	rt := tool.RuntimeContext{Context: context.Background(), Process: proc}

	res := gotoHandler(rt, map[string]any{"position": "msg_0", "message": "try X"})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
	if proc.log.Len() != 2 {
		t.Fatalf("log length = %d, want 2", proc.log.Len())
	}
	last := proc.log.Messages()[1]
	if !strings.Contains(last.Text, "try X") {
		t.Fatalf("expected new direction in appended message: %q", last.Text)
	}
	if !strings.Contains(last.Text, "reply one") {
		t.Fatalf("expected abandoned content wrapped in appended message: %q", last.Text)
	}
}

func TestGotoWithAlreadyFramedMessageIsUsedAsIs(t *testing.T) {
	proc := &fakeProcess{log: seededLog()}
	rt := tool.RuntimeContext{Context: context.Background(), Process: proc}

	framed := "<time_travel_message>already framed</time_travel_message>"
	res := gotoHandler(rt, map[string]any{"position": "msg_0", "message": framed})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
	last := proc.log.Messages()[1]
	if last.Text != framed {
		t.Fatalf("expected message used as-is, got %q", last.Text)
	}
}

func TestGotoUnknownPosition(t *testing.T) {
	proc := &fakeProcess{log: seededLog()}
	rt := tool.RuntimeContext{Context: context.Background(), Process: proc}

	res := gotoHandler(rt, map[string]any{"position": "msg_99"})
	if !res.IsError {
		t.Fatal("expected error for unknown position")
	}
}

func TestGotoRequiresProcess(t *testing.T) {
	res := gotoHandler(tool.RuntimeContext{Context: context.Background()}, map[string]any{"position": "msg_0"})
	if !res.IsError {
		t.Fatal("expected error without a parent process")
	}
}
