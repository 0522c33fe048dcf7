package errors

import (
	"fmt"
	"io"
	"strings"
)

// LoxError is the interface implemented by all diagnostics the pipeline reports.
type LoxError interface {
	error
	Pos() Position
	Kind() string // "Scan", "Syntax" or "Runtime"
	// Message returns the bare message without location decoration.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// ScanError represents malformed lexical input.
type ScanError struct {
	Position
	Msg   string
	Cause error
}

func NewScanError(pos Position, msg string) *ScanError {
	return &ScanError{Position: pos, Msg: msg}
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Msg)
}
func (e *ScanError) Pos() Position   { return e.Position }
func (e *ScanError) Kind() string    { return "Scan" }
func (e *ScanError) Message() string { return e.Msg }
func (e *ScanError) Unwrap() error   { return e.Cause }

// SyntaxError represents a grammar violation or a static resolution violation.
type SyntaxError struct {
	Position
	Where string // " at 'x'", " at end" or ""
	Msg   string
	Cause error
}

func NewSyntaxError(pos Position, where, msg string) *SyntaxError {
	return &SyntaxError{Position: pos, Where: where, Msg: msg}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }

// RuntimeError represents a failure while evaluating a program. The position
// points at the token of the operation that failed.
type RuntimeError struct {
	Position
	Msg   string
	Cause error
}

func NewRuntimeError(pos Position, msg string) *RuntimeError {
	return &RuntimeError{Position: pos, Msg: msg}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Msg, e.Line)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }
func (e *RuntimeError) CausedBy(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// IsStatic reports whether err is a scan or syntax error.
func IsStatic(err LoxError) bool {
	switch err.(type) {
	case *ScanError, *SyntaxError:
		return true
	}
	return false
}

// --- Error Reporting ---

// DisplayErrors writes each error followed by the offending source line and a
// column marker. src is used when an error carries no source reference.
func DisplayErrors(w io.Writer, src string, errs []LoxError) {
	if len(errs) == 0 {
		return
	}

	fallback := strings.Split(src, "\n")

	for _, err := range errs {
		fmt.Fprintln(w, err.Error())

		pos := err.Pos()
		line := ""
		if pos.Source != nil {
			line = pos.Source.Line(pos.Line)
		} else if pos.Line >= 1 && pos.Line <= len(fallback) {
			line = strings.TrimRight(fallback[pos.Line-1], "\r")
		}
		line = strings.TrimRight(line, "\t ")
		if line == "" {
			continue
		}

		fmt.Fprintf(w, "  %s\n", line)
		col := pos.Column
		if col < 1 {
			col = 1
		}
		span := pos.EndPos - pos.StartPos
		if span < 1 {
			span = 1
		}
		fmt.Fprintf(w, "  %s^%s\n", strings.Repeat(" ", col-1), strings.Repeat("~", span-1))
	}
}
