package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kadirpekel/llmproc/pkg/fd"
	"github.com/kadirpekel/llmproc/pkg/tool"
)

func newFDRuntimeContext() (tool.RuntimeContext, *fd.Manager) {
	mgr := fd.NewManager(fd.Config{
		Enabled:              true,
		PageSize:             20,
		MaxDirectOutputChars: 100,
		EnableReferences:     true,
	})
	return tool.RuntimeContext{Context: context.Background(), FDManager: mgr}, mgr
}

func TestReadFDHandlerRequiresManager(t *testing.T) {
	res := readFDHandler(tool.RuntimeContext{Context: context.Background()}, map[string]any{"fd": "fd:1"})
	if !res.IsError {
		t.Fatal("expected error without an FD manager")
	}
}

func TestReadFDHandlerReadAll(t *testing.T) {
	rt, mgr := newFDRuntimeContext()
	mgr.CreateFD("hello\nworld\n", "test")

	res := readFDHandler(rt, map[string]any{"fd": "fd:1", "read_all": true})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
	if res.Content != "hello\nworld\n" {
		t.Fatalf("got %q", res.Content)
	}
}

func TestReadFDHandlerDefaultsToPageMode(t *testing.T) {
	rt, mgr := newFDRuntimeContext()
	mgr.CreateFD("alpha\nbeta\n", "test")

	res := readFDHandler(rt, map[string]any{"fd": "fd:1"})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}
}

func TestReadFDHandlerMissingFD(t *testing.T) {
	rt, _ := newFDRuntimeContext()
	res := readFDHandler(rt, map[string]any{})
	if !res.IsError {
		t.Fatal("expected error for missing fd argument")
	}
}

func TestFDToFileHandlerRequiresManager(t *testing.T) {
	res := fdToFileHandler(tool.RuntimeContext{Context: context.Background()}, map[string]any{"fd": "fd:1", "file_path": "/tmp/x"})
	if !res.IsError {
		t.Fatal("expected error without an FD manager")
	}
}

func TestFDToFileHandlerWrites(t *testing.T) {
	rt, mgr := newFDRuntimeContext()
	mgr.CreateFD("payload\n", "test")

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	res := fdToFileHandler(rt, map[string]any{"fd": "fd:1", "file_path": path})
	if res.IsError {
		t.Fatalf("unexpected error: %v", res.Content)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(data) != "payload\n" {
		t.Fatalf("got %q", data)
	}
}

func TestFDToFileHandlerExistsError(t *testing.T) {
	rt, mgr := newFDRuntimeContext()
	mgr.CreateFD("payload\n", "test")

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := fdToFileHandler(rt, map[string]any{
		"fd": "fd:1", "file_path": path, "create": true, "exist_ok": false,
	})
	if !res.IsError {
		t.Fatal("expected file_exists error")
	}
	if !strings.Contains(res.Content.(string), "file_exists") {
		t.Fatalf("got %q", res.Content)
	}
}

func TestReadFDAndFDToFileAreContextAware(t *testing.T) {
	if !ReadFD().IsContextAware() {
		t.Fatal("read_fd must be context-aware")
	}
	if !FDToFile().IsContextAware() {
		t.Fatal("fd_to_file must be context-aware")
	}
}
