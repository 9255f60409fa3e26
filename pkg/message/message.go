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

// Package message defines the provider-independent conversation state used
// by a Process's message log.
//
// Messages are modeled as an ordered sequence of tagged blocks rather than
// provider-specific objects, so that goto, fork, and (eventually) persistence
// can operate on them without knowing which provider produced them.
package message

import "strings"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser            Role = "user"
	RoleAssistant       Role = "assistant"
	RoleToolResultBatch Role = "tool-result-bundle"
)

// BlockType identifies the kind of content a Block carries.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool-use"
	BlockToolResult BlockType = "tool-result"
)

// Block is one piece of structured message content.
type Block struct {
	Type BlockType

	// Text holds the block's text when Type == BlockText.
	Text string

	// ToolUse fields, valid when Type == BlockToolUse.
	ToolUseID   string
	ToolName    string
	ToolArgs    map[string]any

	// ToolResult fields, valid when Type == BlockToolResult.
	ToolResultForID string
	ToolResultText  string
	ToolResultError bool
}

// TextBlock builds a text content block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool-use content block.
func ToolUseBlock(id, name string, args map[string]any) Block {
	return Block{Type: BlockToolUse, ToolUseID: id, ToolName: name, ToolArgs: args}
}

// ToolResultBlock builds a tool-result content block.
func ToolResultBlock(forID, text string, isError bool) Block {
	return Block{Type: BlockToolResult, ToolResultForID: forID, ToolResultText: text, ToolResultError: isError}
}

// ID is a monotonic message identifier of the form "msg_<n>", assigned once
// at append time. It doubles as a zero-based index into the log it belongs
// to, which is what makes goto's positional addressing well defined.
type ID string

// Index returns the zero-based append index encoded in the id, or -1 if id
// is not a well-formed "msg_<n>" identifier.
func (id ID) Index() int {
	s := string(id)
	const prefix = "msg_"
	if !strings.HasPrefix(s, prefix) {
		return -1
	}
	n := 0
	digits := s[len(prefix):]
	if digits == "" {
		return -1
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// IDFromIndex renders the canonical id for a zero-based append index.
func IDFromIndex(i int) ID {
	return ID("msg_" + itoa(i))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// Message is one entry in a Process's ordered message log.
//
// Content is either a single string (Text, common for simple user input) or
// an ordered sequence of Blocks (Blocks, used for assistant responses and
// tool-result bundles). Exactly one of the two is populated.
type Message struct {
	Role   Role
	Text   string
	Blocks []Block
	ID     ID
}

// NewUserText builds a plain-text user message (id left zero; assigned by
// the log on append).
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// NewAssistantBlocks builds an assistant message from content blocks.
func NewAssistantBlocks(blocks []Block) Message {
	return Message{Role: RoleAssistant, Blocks: blocks}
}

// NewToolResultBundle builds a tool-result-bundle message from an ordered
// list of tool-result blocks.
func NewToolResultBundle(results []Block) Message {
	return Message{Role: RoleToolResultBatch, Blocks: results}
}

// IsEmpty reports whether the message carries no content at all. Empty
// messages are never appended to a log (see Log.Append) because providers
// error on an empty-content message (§8 invariant 13 / §3 invariant).
func (m Message) IsEmpty() bool {
	if strings.TrimSpace(m.Text) != "" {
		return false
	}
	if len(m.Blocks) == 0 {
		return true
	}
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			if strings.TrimSpace(b.Text) != "" {
				return false
			}
		case BlockToolUse, BlockToolResult:
			return false
		}
	}
	return true
}

// Text flattens a message's content into plain text, concatenating text
// blocks and ignoring tool-use/tool-result blocks. Used by
// Process.GetLastMessage.
func (m Message) FlattenText() string {
	if m.Text != "" {
		return m.Text
	}
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// Clone returns a deep copy of m, used by Process.ForkProcess.
func (m Message) Clone() Message {
	cp := m
	if m.Blocks != nil {
		cp.Blocks = make([]Block, len(m.Blocks))
		for i, b := range m.Blocks {
			nb := b
			if b.ToolArgs != nil {
				nb.ToolArgs = make(map[string]any, len(b.ToolArgs))
				for k, v := range b.ToolArgs {
					nb.ToolArgs[k] = v
				}
			}
			cp.Blocks[i] = nb
		}
	}
	return cp
}

// Log is an append-only, monotonically-identified message sequence.
type Log struct {
	messages []Message
}

// Append assigns the next id to msg and appends it, unless msg is empty (in
// which case it is silently dropped and ok is false) — see §8 invariant 13.
func (l *Log) Append(msg Message) (ID, bool) {
	if msg.IsEmpty() {
		return "", false
	}
	id := IDFromIndex(len(l.messages))
	msg.ID = id
	l.messages = append(l.messages, msg)
	return id, true
}

// Messages returns the full log in append order. The returned slice must
// not be mutated by callers.
func (l *Log) Messages() []Message {
	return l.messages
}

// Len returns the number of messages currently in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// LastID returns the id of the last appended message, or "" if the log is
// empty.
func (l *Log) LastID() ID {
	if len(l.messages) == 0 {
		return ""
	}
	return l.messages[len(l.messages)-1].ID
}

// TruncateTo truncates the log so that the message identified by id becomes
// the new tail (inclusive). It returns an error if id does not name a
// message strictly before the current tail is not required here — callers
// that need the "no forward goto" rule enforce it themselves, since Log is
// a low-level primitive reused by both goto and reset.
func (l *Log) TruncateTo(id ID) error {
	idx := id.Index()
	if idx < 0 || idx >= len(l.messages) {
		return &InvalidIDError{ID: id}
	}
	l.messages = l.messages[:idx+1]
	return nil
}

// Reset clears the log entirely.
func (l *Log) Reset() {
	l.messages = nil
}

// Clone returns a deep copy of the log, used by Process.ForkProcess.
func (l *Log) Clone() *Log {
	cp := &Log{messages: make([]Message, len(l.messages))}
	for i, m := range l.messages {
		cp.messages[i] = m.Clone()
	}
	return cp
}

// InvalidIDError reports that an id does not address any message in the
// log it was used against.
type InvalidIDError struct {
	ID ID
}

func (e *InvalidIDError) Error() string {
	return "message: no such id " + string(e.ID)
}
