// Package ops implements the column operations that can be applied to a
// dataset snapshot.
//
// Every operation is a pure function of (frame, request): it returns a new
// frame and never writes to its input. Column operations see only the rows
// selected by the request's scope and are merged back positionally; frame
// operations (row dropping, one-hot encoding, arithmetic, column removal)
// receive the whole frame.
//
// Operations are registered at init time and looked up by key:
//
//	res, err := ops.Apply(frame, ops.Request{
//		Op:      "coerce",
//		Method:  "numeric",
//		Columns: []string{"price"},
//		Scope:   ops.ScopeExcludeFirst,
//	})
package ops

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// Request describes one operation invocation.
type Request struct {
	Op        string   `json:"op" yaml:"op" validate:"required"`
	Columns   []string `json:"columns,omitempty" yaml:"columns,omitempty" validate:"dive,required"`
	Scope     Scope    `json:"scope,omitempty" yaml:"scope,omitempty" validate:"omitempty,oneof=all exclude_first"`
	Method    string   `json:"method,omitempty" yaml:"method,omitempty"`
	Value     string   `json:"value,omitempty" yaml:"value,omitempty"`
	NewColumn string   `json:"new_column,omitempty" yaml:"new_column,omitempty"`
}

// String renders the request for logs and history entries.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString(r.Op)
	if r.Method != "" {
		b.WriteString(":" + r.Method)
	}
	if len(r.Columns) > 0 {
		b.WriteString(" [" + strings.Join(r.Columns, ", ") + "]")
	}
	if r.Scope == ScopeExcludeFirst {
		b.WriteString(" (excluding row 0)")
	}
	return b.String()
}

// Result is the outcome of an accepted operation.
type Result struct {
	Frame *dataset.Frame
	// MissingDelta is post-operation nulls minus pre-operation nulls over the
	// whole frame. Positive values mean cells failed to convert.
	MissingDelta int
	Warnings     []string
}

// ErrUnknownOp is wrapped by the ValidationError returned for unregistered keys.
var ErrUnknownOp = errors.New("unknown operation")

// ValidationError rejects a request because of bad user input. The frame is
// left untouched.
type ValidationError struct {
	Op  string
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ComputationError rejects a request whose inputs cannot be computed, such as
// a zero divisor. It is detected before any output is produced.
type ComputationError struct {
	Op  string
	Msg string
}

func (e *ComputationError) Error() string {
	return e.Op + ": " + e.Msg
}

func invalid(op, format string, args ...any) error {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func uncomputable(op, format string, args ...any) error {
	return &ComputationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsComputation reports whether err is a ComputationError.
func IsComputation(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}

// unchanged is returned by a column function that had nothing to do.
type unchanged struct {
	msg string
}

func (u *unchanged) Error() string { return u.msg }

func nothingToDo(format string, args ...any) error {
	return &unchanged{msg: fmt.Sprintf(format, args...)}
}

func totalNulls(f *dataset.Frame) int {
	n := 0
	for _, c := range f.Columns {
		n += c.NullCount()
	}
	return n
}
