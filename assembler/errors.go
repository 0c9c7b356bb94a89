package assembler

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/t8/ast"
)

// Sentinel errors. Every error returned by Assemble wraps one of them.
var (
	// ErrContract marks a malformed tree: an upstream bug, not bad input.
	ErrContract = errors.New("internal contract violation")
	// ErrOutOfRange is an immediate that does not fit its field.
	ErrOutOfRange = errors.New("immediate out of range")
	// ErrLabelNotFound is a label still unresolved after fixups.
	ErrLabelNotFound = errors.New("label not found")
	// ErrDuplicateLabel is a second definition of a label.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrNotRegister is an operand that should name a register but doesn't.
	ErrNotRegister = errors.New("expected register")
	// ErrNotImmediate is a register where an immediate value is required.
	ErrNotImmediate = errors.New("expected immediate")
	// ErrReused is returned when an Assembler is run twice.
	ErrReused = errors.New("assembler already used")
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// Reporter receives user-facing diagnostics.
type Reporter interface {
	Report(tok ast.Token, sev Severity, msg string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(tok ast.Token, sev Severity, msg string)

// Report calls f.
func (f ReporterFunc) Report(tok ast.Token, sev Severity, msg string) {
	f(tok, sev, msg)
}

type discard struct{}

func (discard) Report(ast.Token, Severity, string) {}

// Diagnostic is a user-facing error tied to a source token.
type Diagnostic struct {
	Token    ast.Token
	Severity Severity
	Message  string
	Err      error
}

func (d *Diagnostic) Error() string {
	if d.Token.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", d.Token.Line, d.Token.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// ContractError describes a malformed tree.
type ContractError struct {
	Node   *ast.Node
	Reason string
}

func (e *ContractError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%v: %s", ErrContract, e.Reason)
	}
	return fmt.Sprintf("%v: %s at %s", ErrContract, e.Reason, e.Node)
}

func (e *ContractError) Unwrap() error {
	return ErrContract
}

func contract(n *ast.Node, format string, args ...any) error {
	return &ContractError{Node: n, Reason: fmt.Sprintf(format, args...)}
}

// unresolvedError is raised by the evaluator for a label it cannot find yet.
type unresolvedError struct {
	ref *ast.Node
}

func (e *unresolvedError) Error() string {
	return fmt.Sprintf("unresolved label %q", e.ref.Name())
}
