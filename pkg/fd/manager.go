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

// Package fd implements the File-Descriptor Manager: large tool outputs are
// stored out-of-band and the model is handed a small, paginated handle
// instead of the raw content.
package fd

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kadirpekel/llmproc/pkg/toolresult"
)

// Mode selects the addressing scheme for a ReadFD call.
type Mode string

const (
	ModePage Mode = "page"
	ModeLine Mode = "line"
	ModeChar Mode = "char"
)

// Config configures a Manager, mirroring a Program's [file_descriptor]
// section.
type Config struct {
	Enabled               bool
	PageSize              int
	MaxDirectOutputChars  int
	MaxInputChars         int
	PageUserInput         bool
	EnableReferences      bool
}

// DefaultPageSize is used when Config.PageSize is not set.
const DefaultPageSize = 8000

// FD is a single file descriptor: immutable content plus precomputed
// pagination metadata.
type FD struct {
	ID             string
	Content        string
	PageSize       int
	TotalPages     int
	TotalLines     int
	CreationSource string

	lines []string
	pages []page
}

// Manager creates, reads, and exports file descriptors for a single
// Process. It is safe for concurrent use; all mutating operations are
// internally atomic, matching §5's "per-Process... internally atomic"
// requirement.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	fds     map[string]*FD
	refs    map[string]*FD
	nextID  int
	noAuto  map[string]bool // tool names registered via RegisterFDTool
}

// NewManager constructs a Manager from cfg, applying DefaultPageSize when
// cfg.PageSize is unset.
func NewManager(cfg Config) *Manager {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Manager{
		cfg:    cfg,
		fds:    make(map[string]*FD),
		refs:   make(map[string]*FD),
		noAuto: make(map[string]bool),
	}
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// RegisterFDTool marks name's output as exempt from auto-wrap, preventing
// the recursion of an FD-reading tool's own (small) output being wrapped
// into a new FD.
func (m *Manager) RegisterFDTool(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noAuto[name] = true
}

// ShouldAutoWrap reports whether a tool named name producing outputLen
// characters of output should be auto-wrapped into a new FD, per the
// Provider Executor's auto-wrap rule (§4.B).
func (m *Manager) ShouldAutoWrap(name string, outputLen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noAuto[name] {
		return false
	}
	max := m.cfg.MaxDirectOutputChars
	if max <= 0 {
		return false
	}
	return outputLen > max
}

// ShouldWrapInput reports whether oversized user input should be paged,
// per the input-paging half of the auto-wrap rule.
func (m *Manager) ShouldWrapInput(inputLen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cfg.PageUserInput {
		return false
	}
	max := m.cfg.MaxInputChars
	if max <= 0 {
		return false
	}
	return inputLen > max
}

func (m *Manager) buildFD(id, content, source string) *FD {
	pages, totalLines := paginate(content, m.cfg.PageSize)
	return &FD{
		ID:             id,
		Content:        content,
		PageSize:       m.cfg.PageSize,
		TotalPages:     len(pages),
		TotalLines:     totalLines,
		CreationSource: source,
		lines:          splitLinesKeepEnds(content),
		pages:          pages,
	}
}

// CreateFD allocates a new content FD from content, returning a success
// envelope describing the new fd_id, total_pages, total_lines, and a
// preview of page 1.
func (m *Manager) CreateFD(content, source string) *toolresult.Result {
	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("fd:%d", m.nextID)
	f := m.buildFD(id, content, source)
	m.fds[id] = f
	m.mu.Unlock()

	return toolresult.Success(fmt.Sprintf(
		"<fd_result fd=%q total_pages=%d total_lines=%d preview=%q/>",
		f.ID, f.TotalPages, f.TotalLines, preview(f.pages[0].Content)))
}

// CreateReference registers a reference FD (ref:<name>) from content
// produced by an upstream tool that extracts a named region of content.
// Reference FDs share the read/write/export contract of content FDs.
func (m *Manager) CreateReference(name, content string) (*toolresult.Result, error) {
	if !m.cfg.EnableReferences {
		return nil, newError(ErrNotFound, "ref:"+name, "reference FDs are not enabled", nil)
	}
	m.mu.Lock()
	id := "ref:" + name
	f := m.buildFD(id, content, "reference")
	m.refs[id] = f
	m.mu.Unlock()

	return toolresult.Success(fmt.Sprintf(
		"<fd_result fd=%q total_pages=%d total_lines=%d preview=%q/>",
		f.ID, f.TotalPages, f.TotalLines, preview(f.pages[0].Content))), nil
}

func preview(s string) string {
	const maxPreview = 200
	if len(s) <= maxPreview {
		return s
	}
	return s[:maxPreview] + "…"
}

// lookup finds an FD by id, searching content FDs and (when enabled)
// reference FDs.
func (m *Manager) lookup(id string) (*FD, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.HasPrefix(id, "ref:") {
		if !m.cfg.EnableReferences {
			return nil, newError(ErrNotFound, id, "reference FDs are not enabled", nil)
		}
		if f, ok := m.refs[id]; ok {
			return f, nil
		}
		return nil, newError(ErrNotFound, id, "no such reference", nil)
	}

	if f, ok := m.fds[id]; ok {
		return f, nil
	}
	return nil, newError(ErrNotFound, id, "no such file descriptor", nil)
}

// Get returns the FD registered under id, for callers (tests, read_file
// integration) that need direct access rather than an envelope.
func (m *Manager) Get(id string) (*FD, bool) {
	f, err := m.lookup(id)
	if err != nil {
		return nil, false
	}
	return f, true
}

// ReadParams configures a ReadFD call.
type ReadParams struct {
	FDID           string
	Mode           Mode
	Start          int
	Count          int
	ReadAll        bool
	ExtractToNewFD bool
	Source         string // creation_source recorded on an extracted FD
}

// ReadFD reads a range of an FD's content, or (ReadAll) its entirety, or
// (ExtractToNewFD) allocates a new FD from the selected range and reports
// its id instead of returning the range inline.
func (m *Manager) ReadFD(p ReadParams) *toolresult.Result {
	f, err := m.lookup(p.FDID)
	if err != nil {
		return errResult(err)
	}

	if p.ReadAll {
		return toolresult.Success(f.Content)
	}

	selected, err := selectRange(f, p.Mode, p.Start, p.Count)
	if err != nil {
		return errResult(err)
	}

	if p.ExtractToNewFD {
		source := p.Source
		if source == "" {
			source = "extract:" + f.ID
		}
		return m.CreateFD(selected, source)
	}
	return toolresult.Success(selected)
}

func selectRange(f *FD, mode Mode, start, count int) (string, error) {
	if count <= 0 {
		count = 1
	}
	switch mode {
	case ModeLine, "":
		if start < 1 || start > len(f.lines) {
			return "", newError(ErrInvalidPage, f.ID, fmt.Sprintf("line %d exceeds total lines %d", start, len(f.lines)), nil)
		}
		end := start - 1 + count
		if end > len(f.lines) {
			end = len(f.lines)
		}
		return strings.Join(f.lines[start-1:end], ""), nil

	case ModePage:
		if start < 1 || start > len(f.pages) {
			return "", newError(ErrInvalidPage, f.ID, fmt.Sprintf("page %d exceeds total pages %d", start, len(f.pages)), nil)
		}
		end := start - 1 + count
		if end > len(f.pages) {
			end = len(f.pages)
		}
		var sb strings.Builder
		for _, pg := range f.pages[start-1 : end] {
			sb.WriteString(pg.Content)
		}
		return sb.String(), nil

	case ModeChar:
		if start < 1 || start > len(f.Content)+1 {
			return "", newError(ErrInvalidPage, f.ID, fmt.Sprintf("char %d exceeds content length %d", start, len(f.Content)), nil)
		}
		end := start - 1 + count
		if end > len(f.Content) {
			end = len(f.Content)
		}
		return f.Content[start-1 : end], nil

	default:
		return "", newError(ErrReadError, f.ID, fmt.Sprintf("unknown read mode %q", mode), nil)
	}
}

func errResult(err error) *toolresult.Result {
	return &toolresult.Result{Content: err.Error(), IsError: true}
}

// WriteMode selects write vs. append for WriteFDToFile.
type WriteMode string

const (
	WriteModeWrite  WriteMode = "write"
	WriteModeAppend WriteMode = "append"
)

// WriteParams configures a WriteFDToFile call.
type WriteParams struct {
	FDID    string
	Path    string
	Mode    WriteMode
	Create  bool
	ExistOK bool
}

// WriteFDToFile exports an FD's content to path, applying the
// create/exist_ok policy matrix of §4.B.
func (m *Manager) WriteFDToFile(p WriteParams) *toolresult.Result {
	f, err := m.lookup(p.FDID)
	if err != nil {
		return errResult(err)
	}

	_, statErr := os.Stat(p.Path)
	exists := statErr == nil

	switch {
	case p.Create && !p.ExistOK && exists:
		return errResult(newError(ErrFileExists, f.ID, "file already exists: "+p.Path, nil))
	case !p.Create && !exists:
		return errResult(newError(ErrFileMissing, f.ID, "file does not exist: "+p.Path, nil))
	}

	flags := os.O_WRONLY | os.O_CREATE
	if p.Mode == WriteModeAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(p.Path, flags, 0o644)
	if err != nil {
		return errResult(newError(ErrWriteError, f.ID, "opening "+p.Path, err))
	}
	defer file.Close()

	if _, err := file.WriteString(f.Content); err != nil {
		return errResult(newError(ErrWriteError, f.ID, "writing "+p.Path, err))
	}

	return toolresult.Success(fmt.Sprintf("wrote %d bytes to %s", len(f.Content), p.Path))
}

// Clone returns a deep copy of the manager, used by Process.ForkProcess.
// Cloned FDs share no storage with the original.
func (m *Manager) Clone() *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := &Manager{
		cfg:    m.cfg,
		fds:    make(map[string]*FD, len(m.fds)),
		refs:   make(map[string]*FD, len(m.refs)),
		nextID: m.nextID,
		noAuto: make(map[string]bool, len(m.noAuto)),
	}
	for k, v := range m.fds {
		cp := *v
		clone.fds[k] = &cp
	}
	for k, v := range m.refs {
		cp := *v
		clone.refs[k] = &cp
	}
	for k, v := range m.noAuto {
		clone.noAuto[k] = v
	}
	return clone
}

// Preload copies a named FD (by id) from src into m under the same id,
// used by spawn's additional_preload_fds.
func (m *Manager) Preload(id string, src *Manager) error {
	f, ok := src.Get(id)
	if !ok {
		return newError(ErrNotFound, id, "no such file descriptor to preload", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	if strings.HasPrefix(id, "ref:") {
		m.refs[id] = &cp
	} else {
		m.fds[id] = &cp
	}
	return nil
}
