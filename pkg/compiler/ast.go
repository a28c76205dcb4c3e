package compiler

import "fmt"

//  Top-level program structure

// Body is a lexical block: a list of declarations followed by a list of
// statements. Every function body, if/else branch, while body, and for
// body is a *Body. NumVars (number_of_variables) is filled in
// by the symbol collector (pkg compiler: collector.go) and consumed by
// the code generators to size the SUB $8*n,RSP local-data-area
// allocation.
type Body struct {
	Decls   []Decl
	Stmts   []Stmt
	Lineno  int
	NumVars int // set by the symbol collector

	// Desugared marks that desugar.go's DeclVariableInit-to-assignment
	// rewrite has already run over this body, so a second Desugar call
	// leaves it untouched instead of re-prepending the same synthesized
	// assignments (spec.md section 4.3's idempotence property).
	Desugared bool
}

func (b *Body) String() string {
	return fmt.Sprintf("Body(decls=%d, stmts=%d)", len(b.Decls), len(b.Stmts))
}

//  Declarations

// Decl is implemented by every node that introduces a binding.
type Decl interface {
	declNode()
	String() string
}

// DeclFunction represents  int name(params) { body }
type DeclFunction struct {
	Name   string
	Type   string // declared return type
	Params []Parameter
	Body   *Body
	Lineno int

	// Filled by the symbol collector.
	Scope          *SymbolTable
	NumParams      int
	StartLabel     string
	EndLabel       string
}

func (*DeclFunction) declNode() {}
func (f *DeclFunction) String() string {
	return fmt.Sprintf("DeclFunction(%s %s, params=%v)", f.Type, f.Name, f.Params)
}

// Parameter represents one formal parameter of a function.
type Parameter struct {
	Type   string
	Name   string
	Lineno int
}

func (p Parameter) String() string { return fmt.Sprintf("%s %s", p.Type, p.Name) }

// DeclVariable represents a plain declaration  int x;  with no initializer.
type DeclVariable struct {
	Type   string
	Name   string
	Lineno int
}

func (*DeclVariable) declNode() {}
func (d *DeclVariable) String() string {
	return fmt.Sprintf("DeclVariable(%s %s)", d.Type, d.Name)
}

// DeclVariableInit represents  int x = e;  — the desugarer prepends a
// StatementAssignment x = e to the body; the node itself survives
// desugaring unchanged and is then read as a plain declaration (its Init
// is ignored by later passes).
type DeclVariableInit struct {
	Type   string
	Name   string
	Init   Expr
	Lineno int
}

func (*DeclVariableInit) declNode() {}
func (d *DeclVariableInit) String() string {
	return fmt.Sprintf("DeclVariableInit(%s %s = %s)", d.Type, d.Name, d.Init)
}

//  Statements

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
	String() string
}

// StatementAssignment represents  lhs = rhs;
type StatementAssignment struct {
	Lhs    string
	Rhs    Expr
	Lineno int
}

func (*StatementAssignment) stmtNode() {}
func (a *StatementAssignment) String() string {
	return fmt.Sprintf("StatementAssignment(%s = %s)", a.Lhs, a.Rhs)
}

// StatementIfThenElse represents  if (exp) then [else else]
type StatementIfThenElse struct {
	Exp    Expr
	Then   *Body
	Else   *Body // nil if no else branch
	Lineno int

	// Filled by the symbol collector.
	SymbolTableThen *SymbolTable
	SymbolTableElse *SymbolTable
	ElseLabel       string
	EsleLabel       string // spelling preserved per spec.md's annotation names
}

func (*StatementIfThenElse) stmtNode() {}
func (i *StatementIfThenElse) String() string {
	if i.Else != nil {
		return fmt.Sprintf("StatementIfThenElse(if %s then %s else %s)", i.Exp, i.Then, i.Else)
	}
	return fmt.Sprintf("StatementIfThenElse(if %s then %s)", i.Exp, i.Then)
}

// StatementWhile represents  while (exp) body
type StatementWhile struct {
	Exp    Expr
	Body   *Body
	Lineno int

	SymbolTable *SymbolTable
	WhileLabel  string
	ElihwLabel  string
}

func (*StatementWhile) stmtNode() {}
func (w *StatementWhile) String() string {
	return fmt.Sprintf("StatementWhile(while %s do %s)", w.Exp, w.Body)
}

// StatementFor represents  for (iter; exp; assign) body
// iter is modeled as a DeclarationVariableInit whose induction variable is
// inserted into the for's own scope as a PARAMETER-kind symbol (see
// collector.go): this lets the stack/register codegens transport its
// initial value through the same precall/postreturn machinery used for
// ordinary function parameters.
type StatementFor struct {
	Iter   *DeclVariableInit
	Exp    Expr
	Assign *StatementAssignment
	Body   *Body
	Lineno int

	SymbolTable *SymbolTable
	ForLabel    string
	RofLabel    string
	NumParams   int // always 1: the induction variable, modeled as a parameter
}

func (*StatementFor) stmtNode() {}
func (f *StatementFor) String() string {
	return fmt.Sprintf("StatementFor(for %s; %s; %s do %s)", f.Iter, f.Exp, f.Assign, f.Body)
}

// StatementPrint represents  print(exp);
type StatementPrint struct {
	Exp    Expr
	Lineno int
}

func (*StatementPrint) stmtNode() {}
func (p *StatementPrint) String() string { return fmt.Sprintf("StatementPrint(%s)", p.Exp) }

// StatementReturn represents  return [exp];
type StatementReturn struct {
	Exp    Expr // nil for a bare "return;"
	Lineno int
}

func (*StatementReturn) stmtNode() {}
func (r *StatementReturn) String() string { return fmt.Sprintf("StatementReturn(%s)", r.Exp) }

//  Expressions

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	String() string
	Line() int
}

// ExpressionIdentifier is a read of a named variable.
type ExpressionIdentifier struct {
	Name   string
	Lineno int
}

func (*ExpressionIdentifier) exprNode()        {}
func (e *ExpressionIdentifier) String() string { return e.Name }
func (e *ExpressionIdentifier) Line() int      { return e.Lineno }

// ExpressionInteger is a compile-time integer constant.
type ExpressionInteger struct {
	Value  int64
	Lineno int
}

func (*ExpressionInteger) exprNode()        {}
func (e *ExpressionInteger) String() string { return fmt.Sprintf("%d", e.Value) }
func (e *ExpressionInteger) Line() int      { return e.Lineno }

// ExpressionFloat is a compile-time float constant. Reaching code
// generation with one of these is always a fatal "floats not
// implemented" error (spec.md section 4.4 / 4.5); floats are accepted
// by the lexer/parser so that syntactically valid-looking programs fail
// at the correct, documented phase instead of earlier.
type ExpressionFloat struct {
	Value  float64
	Lineno int
}

func (*ExpressionFloat) exprNode()        {}
func (e *ExpressionFloat) String() string { return fmt.Sprintf("%g", e.Value) }
func (e *ExpressionFloat) Line() int      { return e.Lineno }

// ExpressionBinop represents  lhs op rhs
type ExpressionBinop struct {
	Op     TokenType
	Lhs    Expr
	Rhs    Expr
	Lineno int
}

func (*ExpressionBinop) exprNode() {}
func (e *ExpressionBinop) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Lhs, e.Op, e.Rhs)
}
func (e *ExpressionBinop) Line() int { return e.Lineno }

// ExpressionCall represents  name(exp_list)
type ExpressionCall struct {
	Name    string
	ExpList []Expr
	Lineno  int
}

func (*ExpressionCall) exprNode() {}
func (e *ExpressionCall) String() string {
	return fmt.Sprintf("ExpressionCall(%s, args=%v)", e.Name, e.ExpList)
}
func (e *ExpressionCall) Line() int { return e.Lineno }
