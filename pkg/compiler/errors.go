package compiler

import (
	"fmt"

	"github.com/pkg/errors"
)

// Phase names as they appear in the user-visible error message. The casing
// here is intentional and matches what the original toolchain printed.
const (
	PhaseLexical        = "Lexical Analysis"
	PhaseSyntax         = "Syntax Analysis"
	PhaseSymbolCollect  = "Symbol Collection"
	PhaseCodeGeneration = "code Generation"
)

// CompileError is the one error type every pass raises. It carries the
// phase that detected the problem and the source line it happened on, so
// the driver can format it per the fixed two-line diagnostic convention
// without needing to know which pass produced it.
type CompileError struct {
	Phase string
	Line  int
	Msg   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("Error in phase %s, line %d:\n%s", e.Phase, e.Line, e.Msg)
}

// newError builds a CompileError and immediately wraps it with
// github.com/pkg/errors so a stack trace travels with it for --debug
// diagnostics. The stack never reaches the user-facing message: only
// CompileError.Error() is ever printed on the error channel.
func newError(phase string, line int, format string, args ...any) error {
	ce := &CompileError{Phase: phase, Line: line, Msg: fmt.Sprintf(format, args...)}
	return errors.WithStack(ce)
}

// asCompileError unwraps an error produced by newError back to its
// *CompileError, if any.
func asCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	for err != nil {
		if c, ok := err.(*CompileError); ok {
			ce = c
			break
		}
		cause := errors.Cause(err)
		if cause == err {
			break
		}
		err = cause
	}
	return ce, ce != nil
}
