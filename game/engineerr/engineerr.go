// Package engineerr defines the engine's error taxonomy: validation errors
// (never auto-retried), concurrency conflicts (callers poll and retry), and
// fatal invariant violations (abort the current resolution unit). Each error
// carries a stable code callers can match on.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindFatal
)

// Stable error codes surfaced to callers.
const (
	CodeInvalidSkills   = "invalid_skills"
	CodeDuplicateSkills = "duplicate_skills"
	CodeEmptyAction     = "empty_action"
	CodeWrongLocation   = "wrong_location"
	CodeAgentOnCooldown = "agent_on_cooldown"
	CodeQuestNotActive  = "quest_not_active"
	CodeNotFound        = "not_found"

	CodeQueueNotWaiting = "queue_not_waiting"
	CodeAlreadyJoined   = "already_joined"

	CodeMissingReference = "missing_reference"
)

// Error is a tagged engine error.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

// Validation creates a validation error.
func Validation(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a concurrency-conflict error.
func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, msg: fmt.Sprintf(format, args...)}
}

// Fatal creates an invariant-violation error.
func Fatal(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindFatal, Code: code, msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or (0, false) if err is not an engine error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// CodeOf returns the stable code of err, or "" for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindValidation
}

// IsConflict reports whether err is a concurrency conflict.
func IsConflict(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConflict
}

// IsFatal reports whether err is an invariant violation.
func IsFatal(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindFatal
}
