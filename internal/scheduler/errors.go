package scheduler

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes a scheduler failure the way the root package's
// UfoErrorCode categorizes a run failure.
type ErrorCode string

const (
	ErrCodeInvalidGraph  ErrorCode = "invalid graph"
	ErrCodeSetupFailed   ErrorCode = "task setup failed"
	ErrCodeTaskFailed    ErrorCode = "task execution failed"
	ErrCodeAlreadyClosed ErrorCode = "scheduler already closed"
)

// Error is a structured scheduler failure carrying the task that caused
// it, mirroring the root package's *Error (Op/Code/Msg/Inner) generalized
// from device+queue context to graph-node context.
type Error struct {
	Op     string
	Node   string
	Code   ErrorCode
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Node != "" {
		return fmt.Sprintf("scheduler: %s (op=%s node=%s)", msg, e.Op, e.Node)
	}
	return fmt.Sprintf("scheduler: %s (op=%s)", msg, e.Op)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewNodeError builds a structured error for a failure in a specific
// task's setup or run loop.
func NewNodeError(op, node string, code ErrorCode, inner error) *Error {
	msg := ""
	if inner != nil {
		msg = inner.Error()
	}
	return &Error{Op: op, Node: node, Code: code, Msg: msg, Inner: inner}
}

// IsCode reports whether err is a scheduler *Error of the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
