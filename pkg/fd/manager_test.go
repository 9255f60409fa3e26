package fd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager() *Manager {
	return NewManager(Config{
		Enabled:              true,
		PageSize:             20,
		MaxDirectOutputChars: 100,
		MaxInputChars:        100,
		PageUserInput:        true,
		EnableReferences:     true,
	})
}

func TestCreateFDAndReadAll(t *testing.T) {
	m := newTestManager()
	content := "line one\nline two\nline three\n"
	res := m.CreateFD(content, "tool:read_file")
	if res.IsError {
		t.Fatalf("CreateFD returned error: %v", res.Content)
	}
	envelope, _ := res.Content.(string)
	if !strings.Contains(envelope, "fd:1") {
		t.Fatalf("envelope missing fd id: %q", envelope)
	}

	out := m.ReadFD(ReadParams{FDID: "fd:1", ReadAll: true})
	if out.IsError {
		t.Fatalf("ReadFD(read_all) returned error: %v", out.Content)
	}
	if out.Content != content {
		t.Fatalf("ReadFD(read_all) = %q, want %q", out.Content, content)
	}
}

func TestReadFDNotFound(t *testing.T) {
	m := newTestManager()
	res := m.ReadFD(ReadParams{FDID: "fd:999", Mode: ModeLine, Start: 1, Count: 1})
	if !res.IsError {
		t.Fatal("expected error reading nonexistent fd")
	}
	if !strings.Contains(res.Content.(string), "not_found") {
		t.Fatalf("error = %q, want not_found", res.Content)
	}
}

func TestReadFDByLine(t *testing.T) {
	m := newTestManager()
	m.CreateFD("one\ntwo\nthree\n", "test")

	res := m.ReadFD(ReadParams{FDID: "fd:1", Mode: ModeLine, Start: 2, Count: 1})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
	if res.Content != "two\n" {
		t.Fatalf("got %q, want %q", res.Content, "two\n")
	}
}

func TestReadFDInvalidLine(t *testing.T) {
	m := newTestManager()
	m.CreateFD("one\ntwo\n", "test")

	res := m.ReadFD(ReadParams{FDID: "fd:1", Mode: ModeLine, Start: 99, Count: 1})
	if !res.IsError {
		t.Fatal("expected invalid_page error")
	}
	if !strings.Contains(res.Content.(string), "invalid_page") {
		t.Fatalf("error = %q, want invalid_page", res.Content)
	}
}

func TestReadFDByPageAndReconstruct(t *testing.T) {
	m := newTestManager()
	content := strings.Repeat("abcdefgh\n", 10)
	m.CreateFD(content, "test")

	f, ok := m.Get("fd:1")
	if !ok {
		t.Fatal("fd:1 not found")
	}

	var rebuilt strings.Builder
	for p := 1; p <= f.TotalPages; p++ {
		res := m.ReadFD(ReadParams{FDID: "fd:1", Mode: ModePage, Start: p, Count: 1})
		if res.IsError {
			t.Fatalf("page %d: unexpected error %v", p, res.Content)
		}
		rebuilt.WriteString(res.Content.(string))
	}
	if rebuilt.String() != content {
		t.Fatalf("reconstructed content mismatch:\ngot:  %q\nwant: %q", rebuilt.String(), content)
	}
}

func TestReadFDExtractToNewFD(t *testing.T) {
	m := newTestManager()
	m.CreateFD("alpha\nbeta\ngamma\ndelta\n", "test")

	res := m.ReadFD(ReadParams{FDID: "fd:1", Mode: ModeLine, Start: 2, Count: 2, ExtractToNewFD: true})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
	envelope := res.Content.(string)
	if !strings.Contains(envelope, "fd:2") {
		t.Fatalf("expected extraction to create fd:2, got %q", envelope)
	}

	out := m.ReadFD(ReadParams{FDID: "fd:2", ReadAll: true})
	if out.Content != "beta\ngamma\n" {
		t.Fatalf("extracted content = %q", out.Content)
	}
}

func TestShouldAutoWrap(t *testing.T) {
	m := newTestManager()
	if m.ShouldAutoWrap("calculator", 50) {
		t.Fatal("output under threshold should not auto-wrap")
	}
	if !m.ShouldAutoWrap("calculator", 500) {
		t.Fatal("output over threshold should auto-wrap")
	}
	m.RegisterFDTool("read_fd")
	if m.ShouldAutoWrap("read_fd", 500) {
		t.Fatal("registered FD tool output must never auto-wrap")
	}
}

func TestWriteFDToFilePolicy(t *testing.T) {
	m := newTestManager()
	m.CreateFD("exported content\n", "test")

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	res := m.WriteFDToFile(WriteParams{FDID: "fd:1", Path: path, Mode: WriteModeWrite, Create: true, ExistOK: false})
	if res.IsError {
		t.Fatalf("unexpected error creating new file: %v", res.Content)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(got) != "exported content\n" {
		t.Fatalf("file content = %q", got)
	}

	res = m.WriteFDToFile(WriteParams{FDID: "fd:1", Path: path, Mode: WriteModeWrite, Create: true, ExistOK: false})
	if !res.IsError || !strings.Contains(res.Content.(string), "file_exists") {
		t.Fatalf("expected file_exists error, got %v", res.Content)
	}

	res = m.WriteFDToFile(WriteParams{FDID: "fd:1", Path: path, Mode: WriteModeWrite, Create: true, ExistOK: true})
	if res.IsError {
		t.Fatalf("exist_ok=true should overwrite: %v", res.Content)
	}

	missing := filepath.Join(dir, "missing.txt")
	res = m.WriteFDToFile(WriteParams{FDID: "fd:1", Path: missing, Mode: WriteModeWrite, Create: false})
	if !res.IsError || !strings.Contains(res.Content.(string), "file_not_found") {
		t.Fatalf("expected file_not_found error, got %v", res.Content)
	}
}

func TestWriteFDToFileAppend(t *testing.T) {
	m := newTestManager()
	m.CreateFD("second\n", "test")

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	res := m.WriteFDToFile(WriteParams{FDID: "fd:1", Path: path, Mode: WriteModeAppend, Create: false})
	if res.IsError {
		t.Fatalf("append failed: %v", res.Content)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(got) != "first\nsecond\n" {
		t.Fatalf("appended content = %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := newTestManager()
	m.CreateFD("original\n", "test")

	clone := m.Clone()
	clone.CreateFD("only in clone\n", "test")

	if _, ok := m.Get("fd:2"); ok {
		t.Fatal("fd created on clone must not appear in original")
	}
	if _, ok := clone.Get("fd:1"); !ok {
		t.Fatal("clone should retain pre-existing fds")
	}
}

func TestCreateReferenceRequiresEnabled(t *testing.T) {
	m := NewManager(Config{Enabled: true, PageSize: 20, EnableReferences: false})
	_, err := m.CreateReference("notes", "some text")
	if err == nil {
		t.Fatal("expected error when references are disabled")
	}
}

func TestCreateReferenceAndRead(t *testing.T) {
	m := newTestManager()
	res, err := m.CreateReference("notes", "reference content\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %v", res.Content)
	}

	out := m.ReadFD(ReadParams{FDID: "ref:notes", ReadAll: true})
	if out.IsError {
		t.Fatalf("unexpected error reading reference: %v", out.Content)
	}
	if out.Content != "reference content\n" {
		t.Fatalf("got %q", out.Content)
	}
}

func TestPreload(t *testing.T) {
	src := newTestManager()
	src.CreateFD("shared content\n", "test")

	dst := newTestManager()
	if err := dst.Preload("fd:1", src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := dst.ReadFD(ReadParams{FDID: "fd:1", ReadAll: true})
	if out.Content != "shared content\n" {
		t.Fatalf("got %q", out.Content)
	}
}
