// Package ufo runs task graphs: directed pipelines of GENERATOR/
// PROCESSOR/REDUCTOR/SINK nodes exchanging n-dimensional float buffers,
// optionally offloaded to OpenCL devices.
package ufo

import (
	"errors"
	"fmt"
)

// Error represents a structured UFO error with context: an operation
// name, an optional graph-node name, a high-level category code, a
// message and an arbitrary key-value context map for extra detail.
type Error struct {
	Op      string         // Operation that failed (e.g., "Setup", "is_alright")
	Node    string         // Task unique name (empty if not node-specific)
	Code    UfoErrorCode   // High-level error category
	Msg     string         // Human-readable message
	Context map[string]any // Optional extra key-value context
	Inner   error          // Wrapped cause
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Node != "" {
		parts = append(parts, fmt.Sprintf("node=%s", e.Node))
	}
	for k, v := range e.Context {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("ufo: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("ufo: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// UfoErrorCode represents the high-level error categories a run can fail with.
type UfoErrorCode string

const (
	ErrCodeGraphStructure UfoErrorCode = "graph structure error"
	ErrCodeTaskSetup      UfoErrorCode = "task setup error"
	ErrCodeRequisition    UfoErrorCode = "requisition error"
	ErrCodeExecution      UfoErrorCode = "execution error"
	ErrCodeResource       UfoErrorCode = "resource error"
	ErrCodeIO             UfoErrorCode = "io error"
)

// NewError builds a plain, non-node-specific structured error.
func NewError(op string, code UfoErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewNodeError builds an error attributed to a specific graph node.
func NewNodeError(op, node string, code UfoErrorCode, msg string) *Error {
	return &Error{Op: op, Node: node, Code: code, Msg: msg}
}

// WrapError wraps inner with UFO context, preserving an existing
// structured error's code and node instead of reclassifying it.
func WrapError(op string, code UfoErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ue, ok := inner.(*Error); ok {
		return &Error{Op: op, Node: ue.Node, Code: ue.Code, Msg: ue.Msg, Context: ue.Context, Inner: ue.Inner}
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error of the given code.
func IsCode(err error, code UfoErrorCode) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}
