package compiler

import (
	"github.com/sirupsen/logrus"
)

// Backend selects which of the two code generators (spec.md section
// 4.4/4.5) a Compile call uses.
type Backend int

const (
	BackendRegister Backend = iota
	BackendStack
)

// Result is everything a driver (cmd/pandac) needs after a successful
// Compile call: the emitted assembly plus the intermediate artifacts
// --debug wants to render (printer.go, ir.go's String()).
type Result struct {
	Assembly string

	// Debug-only; populated regardless of --debug so the driver can
	// choose to render them, but never written to disk unless asked.
	InitialAST  *DeclFunction
	DesugaredAST *DeclFunction
	StackIR     []Instruction // nil unless Backend == BackendStack
	RegisterIR  []IRList      // nil unless Backend == BackendRegister
	Allocated   []Instruction // nil unless Backend == BackendRegister
}

// Compile runs the whole pipeline over the source text src, front to
// back: Lex -> Parse -> Collect -> Desugar ->
// {GenerateStack | GenerateRegister -> Allocate} -> Emit.
// Per spec.md section 9 ("reset the label counter at the start of each
// compile run"), every call constructs its own fresh *LabelGenerator,
// so calling Compile repeatedly in one process (the bundled test
// suite) never leaks label numbering across runs.
func Compile(src string, backend Backend) (*Result, error) {
	logrus.Debug("compile: lexing")
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	logrus.Debug("compile: parsing")
	program, err := Parse(tokens)
	if err != nil {
		return nil, err
	}

	labels := NewLabelGenerator()

	logrus.Debug("compile: symbol collection")
	root, err := Collect(program, labels)
	if err != nil {
		return nil, err
	}

	res := &Result{InitialAST: root}

	logrus.Debug("compile: desugaring")
	desugared := Desugar(root)
	res.DesugaredAST = desugared

	switch backend {
	case BackendStack:
		logrus.Debug("compile: stack code generation")
		instrs, err := GenerateStack(desugared, labels)
		if err != nil {
			return nil, err
		}
		res.StackIR = instrs
		res.Assembly = Emit(instrs, labels)

	case BackendRegister:
		logrus.Debug("compile: register code generation")
		blocks, err := GenerateRegister(desugared, labels)
		if err != nil {
			return nil, err
		}
		res.RegisterIR = blocks

		logrus.Debug("compile: register allocation")
		allocated := Allocate(blocks)
		res.Allocated = allocated
		res.Assembly = Emit(allocated, labels)
	}

	logrus.WithFields(logrus.Fields{"backend": backendName(backend)}).Debug("compile: done")
	return res, nil
}

func backendName(b Backend) string {
	if b == BackendStack {
		return "stack"
	}
	return "register"
}
