package message

import "testing"

func TestLogAppendAssignsMonotonicIDs(t *testing.T) {
	var log Log

	id0, ok := log.Append(NewUserText("hi"))
	if !ok || id0 != "msg_0" {
		t.Fatalf("expected msg_0, got %q ok=%v", id0, ok)
	}

	id1, ok := log.Append(NewAssistantBlocks([]Block{TextBlock("hello")}))
	if !ok || id1 != "msg_1" {
		t.Fatalf("expected msg_1, got %q ok=%v", id1, ok)
	}

	if log.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", log.Len())
	}
}

func TestLogAppendRejectsEmptyMessage(t *testing.T) {
	var log Log

	if _, ok := log.Append(NewUserText("")); ok {
		t.Fatal("expected empty user message to be rejected")
	}
	if _, ok := log.Append(NewAssistantBlocks(nil)); ok {
		t.Fatal("expected assistant message with no blocks to be rejected")
	}
	if _, ok := log.Append(NewAssistantBlocks([]Block{TextBlock("   ")})); ok {
		t.Fatal("expected assistant message with only blank text block to be rejected")
	}
	if log.Len() != 0 {
		t.Fatalf("expected no messages appended, got %d", log.Len())
	}
}

func TestLogAppendKeepsToolBlocksEvenIfTextIsBlank(t *testing.T) {
	var log Log
	_, ok := log.Append(NewAssistantBlocks([]Block{ToolUseBlock("t1", "calculator", map[string]any{"expression": "1+1"})}))
	if !ok {
		t.Fatal("expected tool-use-only message to be kept")
	}
}

func TestIDIndexRoundTrip(t *testing.T) {
	for _, i := range []int{0, 1, 9, 42, 1000} {
		id := IDFromIndex(i)
		if got := id.Index(); got != i {
			t.Fatalf("IDFromIndex(%d).Index() = %d", i, got)
		}
	}
}

func TestIDIndexRejectsMalformed(t *testing.T) {
	for _, s := range []ID{"", "msg_", "msg_x", "bogus", "msg_-1"} {
		if idx := s.Index(); idx != -1 {
			t.Fatalf("expected -1 for %q, got %d", s, idx)
		}
	}
}

func TestTruncateTo(t *testing.T) {
	var log Log
	log.Append(NewUserText("u0"))
	log.Append(NewAssistantBlocks([]Block{TextBlock("a1")}))
	log.Append(NewUserText("u2"))
	log.Append(NewAssistantBlocks([]Block{TextBlock("a3")}))

	if err := log.TruncateTo("msg_0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Len() != 1 {
		t.Fatalf("expected log length 1 after truncate, got %d", log.Len())
	}

	if err := log.TruncateTo("msg_5"); err == nil {
		t.Fatal("expected error truncating to an id past the tail")
	}
}

func TestCloneIsDeep(t *testing.T) {
	var log Log
	log.Append(NewAssistantBlocks([]Block{ToolUseBlock("t1", "spawn", map[string]any{"query": "hi"})}))

	clone := log.Clone()
	clone.Messages()[0].Blocks[0].ToolArgs["query"] = "mutated"

	if log.Messages()[0].Blocks[0].ToolArgs["query"] != "hi" {
		t.Fatal("mutating the clone's tool args mutated the original log")
	}
}

func TestFlattenText(t *testing.T) {
	m := NewAssistantBlocks([]Block{
		TextBlock("hello "),
		ToolUseBlock("t1", "calculator", nil),
		TextBlock("world"),
	})
	if got := m.FlattenText(); got != "hello world" {
		t.Fatalf("FlattenText() = %q", got)
	}
}
