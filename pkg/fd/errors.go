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

import "fmt"

// ErrorType enumerates the FD-specific error kinds named in §7.
type ErrorType string

const (
	ErrNotFound    ErrorType = "not_found"
	ErrInvalidPage ErrorType = "invalid_page"
	ErrFileExists  ErrorType = "file_exists"
	ErrFileMissing ErrorType = "file_not_found"
	ErrWriteError  ErrorType = "write_error"
	ErrReadError   ErrorType = "read_error"
)

// Error is the structured <fd_error type=...> payload §7 requires tool
// errors originating from the FD manager to carry.
type Error struct {
	Type    ErrorType
	FDID    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("<fd_error type=%q fd=%q>%s</fd_error>", e.Type, e.FDID, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, fdID, message string, err error) *Error {
	return &Error{Type: t, FDID: fdID, Message: message, Err: err}
}
