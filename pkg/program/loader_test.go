package program

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadMinimalProgram(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[prompt]
system_prompt = "you are helpful"
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model != "claude-3-5-sonnet" || p.Provider != "anthropic" {
		t.Fatalf("got model=%q provider=%q", p.Model, p.Provider)
	}
	if p.SystemPrompt != "you are helpful" {
		t.Fatalf("got system prompt %q", p.SystemPrompt)
	}
	if !p.IsCompiled() {
		t.Fatal("expected loaded program to be compiled")
	}
}

func TestLoadRejectsUnknownTopLevelSection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[bogus_section]
foo = "bar"
`)
	if _, err := Load(path, LoadOptions{}); err == nil {
		t.Fatal("expected error for unknown top-level section")
	}
}

func TestLoadWarnsOnUnknownNestedKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"
typo_field = "oops"
`)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	if _, err := Load(path, LoadOptions{Logger: log}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a warning to be logged for the unknown nested key")
	}
}

func TestLoadSystemPromptFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prompt.txt", "you are a pirate")
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[prompt]
system_prompt_file = "prompt.txt"
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SystemPrompt != "you are a pirate" {
		t.Fatalf("got %q", p.SystemPrompt)
	}
}

func TestLoadLinkedProgramsRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.toml", `
[model]
name = "claude-3-5-haiku"
provider = "anthropic"

[prompt]
system_prompt = "I am a helper"
`)
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[prompt]
system_prompt = "I delegate"

[tools]
enabled = ["spawn"]

[linked_programs]
helper = "helper.toml"
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	helper, ok := p.LinkedPrograms["helper"]
	if !ok {
		t.Fatal("expected helper linked program")
	}
	if helper.Program.Model != "claude-3-5-haiku" {
		t.Fatalf("got %q", helper.Program.Model)
	}
}

func TestLoadLinkedProgramTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.toml", `
[model]
name = "claude-3-5-haiku"
provider = "anthropic"
`)
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[tools]
enabled = ["spawn"]

[linked_programs.helper]
path = "helper.toml"
description = "a helpful helper"
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	helper := p.LinkedPrograms["helper"]
	if helper.Description != "a helpful helper" {
		t.Fatalf("got %q", helper.Description)
	}
}

func TestLoadEnvVarExpansion(t *testing.T) {
	t.Setenv("LLMPROC_TEST_MODEL", "claude-3-5-sonnet")
	dir := t.TempDir()
	path := writeFile(t, dir, "main.toml", `
[model]
name = "${LLMPROC_TEST_MODEL}"
provider = "anthropic"
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model != "claude-3-5-sonnet" {
		t.Fatalf("got %q", p.Model)
	}
}

func TestLoadMCPToolsAllSentinel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[mcp]
config_path = "mcp.toml"

[mcp.tools]
weather = "all"
search = ["query", "lookup"]
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Tools.MCPTools["weather"]) != 1 || p.Tools.MCPTools["weather"][0] != "all" {
		t.Fatalf("got %v", p.Tools.MCPTools["weather"])
	}
	if len(p.Tools.MCPTools["search"]) != 2 {
		t.Fatalf("got %v", p.Tools.MCPTools["search"])
	}
}

func TestLoadEnvInfoVariablesAndCustom(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.toml", `
[model]
name = "claude-3-5-sonnet"
provider = "anthropic"

[env_info]
variables = ["platform"]
team = "platform-eng"
`)
	p, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.EnvInfo.Variables) != 1 || p.EnvInfo.Variables[0] != "platform" {
		t.Fatalf("got %v", p.EnvInfo.Variables)
	}
	if p.EnvInfo.Custom["team"] != "platform-eng" {
		t.Fatalf("got %v", p.EnvInfo.Custom)
	}
}

func TestLoadMissingFileIsFileNotFoundError(t *testing.T) {
	_, err := Load("/does/not/exist.toml", LoadOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	var fnf *FileNotFoundError
	if !errors.As(err, &fnf) {
		t.Fatalf("expected *FileNotFoundError, got %T: %v", err, err)
	}
}
