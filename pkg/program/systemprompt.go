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

package program

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"
)

// standardEnvVars lists the variable names "all" expands to, and the
// only names configure_env_info's whitelist form accepts.
var standardEnvVars = []string{"working_directory", "platform", "date"}

func standardEnvValue(name string) (string, bool) {
	switch name {
	case "working_directory":
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		return wd, true
	case "platform":
		return runtime.GOOS, true
	case "date":
		return time.Now().UTC().Format("2006-01-02"), true
	default:
		return "", false
	}
}

// BuildSystemPrompt renders the enriched system prompt: the compiled
// Program's base prompt, followed by an optional <env> block and a
// <preload> block carrying preloadedFiles (path -> content, already
// loaded by the caller per Program.loadPreloadFiles).
func BuildSystemPrompt(p *Program, preloadedFiles map[string]string) string {
	var b strings.Builder
	b.WriteString(p.SystemPrompt)

	if env := buildEnvBlock(p.EnvInfo); env != "" {
		b.WriteString("\n\n")
		b.WriteString(env)
	}

	if preload := buildPreloadBlock(preloadedFiles); preload != "" {
		b.WriteString("\n\n")
		b.WriteString(preload)
	}

	return b.String()
}

func buildEnvBlock(cfg EnvInfoConfig) string {
	names := cfg.Variables
	if len(names) == 1 && names[0] == "all" {
		names = standardEnvVars
	}
	if len(names) == 0 && len(cfg.Custom) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<env>\n")
	for _, name := range names {
		if value, ok := standardEnvValue(name); ok {
			fmt.Fprintf(&b, "%s: %s\n", name, value)
		}
	}
	customKeys := sortedKeys(cfg.Custom)
	for _, k := range customKeys {
		fmt.Fprintf(&b, "%s: %s\n", k, cfg.Custom[k])
	}
	b.WriteString("</env>")
	return b.String()
}

func buildPreloadBlock(files map[string]string) string {
	if len(files) == 0 {
		return ""
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<preload>\n")
	for _, name := range names {
		fmt.Fprintf(&b, "<file path=%q>\n%s\n</file>\n", name, files[name])
	}
	b.WriteString("</preload>")
	return b.String()
}
