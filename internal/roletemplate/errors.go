// Copyright 2026 The Farmgate Authors
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

package roletemplate

import (
	"errors"
	"fmt"
)

// Machine-readable error codes. Callers branch on these to render
// friendly messages instead of displaying wrapped internals.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidPermissions   = "INVALID_PERMISSIONS"
	CodeDuplicateName        = "DUPLICATE_NAME"
	CodeTemplateNotFound     = "TEMPLATE_NOT_FOUND"
	CodeFarmNotFound         = "FARM_NOT_FOUND"
	CodeMemberNotFound       = "MEMBER_NOT_FOUND"
	CodeCannotEditSystemRole = "CANNOT_EDIT_SYSTEM_ROLE"
	CodePermissionDenied     = "PERMISSION_DENIED"

	// CodeStore wraps unexpected store/infrastructure failures; the
	// original cause is always attached.
	CodeStore = "STORE_ERROR"
)

// Error is a structured use-case error carrying the originating
// operation name and a machine code.
type Error struct {
	Op      string // originating use case, e.g. "roletemplate.create"
	Code    string
	Message string
	Err     error // wrapped cause, nil for pure business-rule failures
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Op, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Op, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a structured error.
func E(op, code, message string, err error) *Error {
	return &Error{Op: op, Code: code, Message: message, Err: err}
}

// ErrorCode extracts the machine code from err, or "" if err carries none.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrorMessage extracts the user-facing message from err, falling back
// to err.Error() for errors without one.
func ErrorMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
