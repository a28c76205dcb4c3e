package compiler

// Desugar rewrites every `type x = e;` declaration inside a Body into a
// plain declaration of x plus a synthesized assignment `x = e;` prepended
// ahead of the body's existing statements, in original left-to-right
// order (spec.md section 4.3). It operates on a deep copy of fn so the
// collector's annotated tree remains available for debug rendering
// (spec.md section 5's "each pass takes a deep copy" rule), and never
// mutates its input.
//
// The pass is idempotent: running it twice is a no-op, because every
// Body it rewrites is marked Desugared (and cloneBody copies the mark),
// so a second pass skips it. The DeclVariableInit decl nodes themselves
// are kept (later passes interpret them purely as declarations and
// ignore Init once desugared).
//
// StatementFor.Iter is never rewritten: its initializer expression is
// consumed directly by code generation, per spec.md section 4.3.
func Desugar(fn *DeclFunction) *DeclFunction {
	clone := cloneDeclFunction(fn)
	desugarBody(clone.Body)
	return clone
}

func desugarBody(b *Body) {
	if b.Desugared {
		return
	}
	b.Desugared = true

	var prelude []Stmt
	for _, d := range b.Decls {
		if init, ok := d.(*DeclVariableInit); ok {
			prelude = append(prelude, &StatementAssignment{
				Lhs:    init.Name,
				Rhs:    init.Init,
				Lineno: init.Lineno,
			})
		}
	}
	b.Stmts = append(prelude, b.Stmts...)

	for _, d := range b.Decls {
		if f, ok := d.(*DeclFunction); ok {
			desugarBody(f.Body)
		}
	}
	for _, s := range b.Stmts {
		desugarStmt(s)
	}
}

func desugarStmt(s Stmt) {
	switch stmt := s.(type) {
	case *StatementIfThenElse:
		desugarBody(stmt.Then)
		if stmt.Else != nil {
			desugarBody(stmt.Else)
		}
	case *StatementWhile:
		desugarBody(stmt.Body)
	case *StatementFor:
		desugarBody(stmt.Body)
	}
}

//  deep copy

func cloneDeclFunction(fn *DeclFunction) *DeclFunction {
	clone := *fn
	clone.Body = cloneBody(fn.Body)
	clone.Params = append([]Parameter(nil), fn.Params...)
	return &clone
}

func cloneBody(b *Body) *Body {
	if b == nil {
		return nil
	}
	clone := &Body{Lineno: b.Lineno, NumVars: b.NumVars, Desugared: b.Desugared}
	clone.Decls = make([]Decl, len(b.Decls))
	for i, d := range b.Decls {
		clone.Decls[i] = cloneDecl(d)
	}
	clone.Stmts = make([]Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		clone.Stmts[i] = cloneStmt(s)
	}
	return clone
}

func cloneDecl(d Decl) Decl {
	switch decl := d.(type) {
	case *DeclFunction:
		return cloneDeclFunction(decl)
	case *DeclVariable:
		c := *decl
		return &c
	case *DeclVariableInit:
		c := *decl
		return &c
	}
	return d
}

func cloneStmt(s Stmt) Stmt {
	switch stmt := s.(type) {
	case *StatementAssignment:
		c := *stmt
		return &c
	case *StatementIfThenElse:
		c := *stmt
		c.Then = cloneBody(stmt.Then)
		if stmt.Else != nil {
			c.Else = cloneBody(stmt.Else)
		}
		return &c
	case *StatementWhile:
		c := *stmt
		c.Body = cloneBody(stmt.Body)
		return &c
	case *StatementFor:
		c := *stmt
		iterCopy := *stmt.Iter
		c.Iter = &iterCopy
		assignCopy := *stmt.Assign
		c.Assign = &assignCopy
		c.Body = cloneBody(stmt.Body)
		return &c
	case *StatementPrint:
		c := *stmt
		return &c
	case *StatementReturn:
		c := *stmt
		return &c
	}
	return s
}
