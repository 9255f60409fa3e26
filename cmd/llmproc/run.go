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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kadirpekel/llmproc/pkg/process"
	"github.com/kadirpekel/llmproc/pkg/program"
	"github.com/kadirpekel/llmproc/pkg/provider"
)

// RunCmd runs a program source file as a live process. The prompt to send
// comes from, in priority order: --prompt, stdin (when piped), the
// program's own demo prompts, or (failing all of those) an interactive
// chat loop read from the terminal.
type RunCmd struct {
	Program string `arg:"" help:"Path to a program source file (.toml)." type:"path"`

	Prompt              string `short:"p" help:"Prompt to send. Skips stdin/demo/interactive sourcing."`
	NonInteractive      bool   `short:"n" help:"Exit after the first response instead of opening a chat loop."`
	Quiet               bool   `short:"q" help:"Suppress tool-call and usage callbacks; print only the final response."`
	PauseBetweenPrompts bool   `name:"pause-between-prompts" help:"Pause for Enter between demo prompts (demo mode only)."`
}

func (c *RunCmd) Run(log *slog.Logger) error {
	ctx := context.Background()

	prog, err := program.Load(c.Program, program.LoadOptions{Logger: log})
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	proc, err := process.New(ctx, prog, process.Options{Logger: log, AllowFork: true})
	if err != nil {
		return fmt.Errorf("starting process: %w", err)
	}

	if !c.Quiet {
		proc.Observe(cliObserver())
	}

	switch {
	case c.Prompt != "":
		return c.runOnce(ctx, proc, c.Prompt)
	case stdinHasInput():
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		return c.runOnce(ctx, proc, strings.TrimSpace(string(input)))
	case len(prog.DemoPrompts) > 0:
		return c.runDemo(ctx, proc, prog)
	default:
		return c.runInteractive(ctx, proc)
	}
}

func (c *RunCmd) runOnce(ctx context.Context, proc *process.Process, prompt string) error {
	res, err := proc.Run(ctx, prompt, 0)
	if err != nil {
		return err
	}
	fmt.Println(res.Text)
	return nil
}

func (c *RunCmd) runDemo(ctx context.Context, proc *process.Process, prog *program.Program) error {
	pause := c.PauseBetweenPrompts || prog.PauseBetweenPrompts
	reader := bufio.NewReader(os.Stdin)
	for i, prompt := range prog.DemoPrompts {
		fmt.Printf("> %s\n", prompt)
		if err := c.runOnce(ctx, proc, prompt); err != nil {
			return err
		}
		if pause && i < len(prog.DemoPrompts)-1 {
			fmt.Print("-- press Enter to continue --")
			_, _ = reader.ReadString('\n')
		}
	}
	return nil
}

func (c *RunCmd) runInteractive(ctx context.Context, proc *process.Process) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		if err := c.runOnce(ctx, proc, line); err != nil {
			return err
		}
		if c.NonInteractive {
			return nil
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

// stdinHasInput reports whether stdin is piped rather than an interactive
// terminal, so a `cmd | llmproc run.toml` pipeline is picked up without an
// explicit --prompt flag.
func stdinHasInput() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// cliObserver prints tool activity and token usage to stderr as a run
// progresses, leaving stdout reserved for the assistant's own text.
func cliObserver() process.Observer {
	return process.Observer{
		ToolStart: func(name string, args map[string]any) {
			fmt.Fprintf(os.Stderr, "[tool] %s %v\n", name, args)
		},
		ToolEnd: func(name, result string, isError bool) {
			status := "ok"
			if isError {
				status = "error"
			}
			fmt.Fprintf(os.Stderr, "[tool] %s -> %s (%s)\n", name, truncate(result, 200), status)
		},
		APIResponse: func(usage provider.Usage) {
			fmt.Fprintf(os.Stderr, "[usage] in=%d out=%d cached=%d\n", usage.InputTokens, usage.OutputTokens, usage.CachedTokens)
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
