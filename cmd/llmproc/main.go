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

// Command llmproc runs a compiled program source file as a live process.
//
// Usage:
//
//	llmproc run.toml --prompt "what is 2+2?"
//	llmproc run.toml --non-interactive < prompt.txt
//	llmproc schema run.toml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI defines the command-line interface.
type CLI struct {
	Run    RunCmd    `cmd:"" default:"withargs" help:"Run a program source file."`
	Schema SchemaCmd `cmd:"" help:"Print the resolved tool catalog for a program source file."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("llmproc"),
		kong.Description("Run a compiled program source file as a live, tool-calling process."),
		kong.UsageOnError(),
	)

	log := newCLILogger(cli.LogLevel)

	if err := kctx.Run(&cli, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
