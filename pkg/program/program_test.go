package program

import "testing"

func TestEffectiveDisplayNameFallsBackToModel(t *testing.T) {
	p := New().WithModel("anthropic", "claude-3-5-sonnet")
	if got := p.EffectiveDisplayName(); got != "claude-3-5-sonnet" {
		t.Fatalf("got %q", got)
	}
	p.DisplayName = "Assistant"
	if got := p.EffectiveDisplayName(); got != "Assistant" {
		t.Fatalf("got %q", got)
	}
}

func TestResolvePathRelativeToSource(t *testing.T) {
	p := New()
	p.SourcePath = "/programs/sub/main.toml"
	if got := p.resolvePath("prompt.txt"); got != "/programs/sub/prompt.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestResolvePathAbsoluteUnchanged(t *testing.T) {
	p := New()
	p.SourcePath = "/programs/sub/main.toml"
	if got := p.resolvePath("/etc/prompt.txt"); got != "/etc/prompt.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestResolvePathNoSourceReturnsAsIs(t *testing.T) {
	p := New()
	if got := p.resolvePath("prompt.txt"); got != "prompt.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadPreloadFilesReportsMissing(t *testing.T) {
	p := New()
	p.PreloadFiles = []string{"/does/not/exist.txt"}
	contents, missing := p.loadPreloadFiles()
	if len(contents) != 0 {
		t.Fatalf("expected no contents, got %v", contents)
	}
	if len(missing) != 1 || missing[0] != "/does/not/exist.txt" {
		t.Fatalf("expected missing file reported, got %v", missing)
	}
}

func TestWithAliasAndWithTool(t *testing.T) {
	p := New().WithTool("calculator").WithAlias("calc", "calculator")
	if len(p.Tools.Enabled) != 1 || p.Tools.Enabled[0] != "calculator" {
		t.Fatalf("got %v", p.Tools.Enabled)
	}
	if p.Tools.Aliases["calc"] != "calculator" {
		t.Fatalf("got %v", p.Tools.Aliases)
	}
}
