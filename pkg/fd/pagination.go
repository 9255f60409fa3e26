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

package fd

import "strings"

// page is one page of a paginated FD: a contiguous slice of content plus
// the 1-based, inclusive line range it covers.
type page struct {
	StartLine int
	EndLine   int
	Content   string
}

// splitLinesKeepEnds splits content on "\n", keeping the terminator attached
// to the line it ends. The empty string splits to a single empty "line",
// matching the invariant that total_lines equals the number of line
// terminators plus one when content doesn't end with a terminator.
func splitLinesKeepEnds(content string) []string {
	if content == "" {
		return []string{""}
	}

	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i+1])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

// paginate splits content into pages of at most pageSize characters,
// preferring line boundaries: whole lines are accumulated greedily, and a
// single line exceeding pageSize is split at pageSize-character boundaries.
// Consecutive pages' line ranges are adjacent (a line split across pages
// appears in each of those pages' ranges) and their union covers
// 1..totalLines. Concatenating every page's Content reproduces content
// exactly.
func paginate(content string, pageSize int) (pages []page, totalLines int) {
	if pageSize < 1 {
		pageSize = 1
	}

	lines := splitLinesKeepEnds(content)
	totalLines = len(lines)

	var buf strings.Builder
	bufStartLine := 0

	flush := func(endLine int) {
		if buf.Len() == 0 && bufStartLine == 0 {
			return
		}
		pages = append(pages, page{StartLine: bufStartLine, EndLine: endLine, Content: buf.String()})
		buf.Reset()
		bufStartLine = 0
	}

	for idx, line := range lines {
		lineNum := idx + 1

		// A line that doesn't fit in what's left of the current page, but
		// would fit in a fresh page, starts a new page rather than being
		// split - only a line longer than a whole page gets split.
		if buf.Len() > 0 && buf.Len()+len(line) > pageSize {
			flush(lineNum - 1)
		}
		if buf.Len() == 0 {
			bufStartLine = lineNum
		}

		if len(line) <= pageSize {
			buf.WriteString(line)
			continue
		}

		// Line alone exceeds a full page: split at pageSize boundaries.
		remaining := line
		for len(remaining) > 0 {
			space := pageSize - buf.Len()
			if space <= 0 {
				flush(lineNum)
				bufStartLine = lineNum
				space = pageSize
			}
			if len(remaining) <= space {
				buf.WriteString(remaining)
				remaining = ""
			} else {
				buf.WriteString(remaining[:space])
				remaining = remaining[space:]
				flush(lineNum)
				bufStartLine = lineNum
			}
		}
	}
	flush(totalLines)

	if len(pages) == 0 {
		pages = []page{{StartLine: 1, EndLine: maxInt(totalLines, 1), Content: ""}}
	}
	return pages, totalLines
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
