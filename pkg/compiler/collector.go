package compiler

// Collector walks the AST depth-first with an explicit current-scope
// pointer, binding every declaration, parameter, and use to a scope and
// recording escape information (spec.md section 4.2).
type Collector struct {
	labels *LabelGenerator
}

// Collect wraps program (the parsed top-level Body) as the entry
// function "?main" and runs symbol collection over it. The returned
// *DeclFunction is the single root every later pass (desugar, codegen,
// allocate, emit) operates on.
func Collect(program *Body, labels *LabelGenerator) (*DeclFunction, error) {
	c := &Collector{labels: labels}
	root := NewRootSymbolTable()

	main := &DeclFunction{
		Name:       "?main",
		Type:       "void",
		Body:       program,
		Lineno:     program.Lineno,
		Scope:      root,
		StartLabel: "main",
		EndLabel:   "end_main",
	}

	if err := c.collectBody(program, root); err != nil {
		return nil, err
	}
	return main, nil
}

// collectBody assigns a fresh variable counter to body, recurses its
// declarations (which increment it), records NumVars, then recurses its
// statements.
func (c *Collector) collectBody(body *Body, scope *SymbolTable) error {
	varOffset := 0
	for _, d := range body.Decls {
		switch decl := d.(type) {
		case *DeclFunction:
			if err := c.collectFunctionDecl(decl, scope); err != nil {
				return err
			}
		case *DeclVariable:
			sym := Symbol{Type: decl.Type, Kind: VARIABLE, Info: varOffset}
			if err := scope.Insert(decl.Name, sym, decl.Lineno); err != nil {
				return err
			}
			varOffset++
		case *DeclVariableInit:
			sym := Symbol{Type: decl.Type, Kind: VARIABLE, Info: varOffset}
			if err := scope.Insert(decl.Name, sym, decl.Lineno); err != nil {
				return err
			}
			varOffset++
			if err := c.collectExpr(decl.Init, scope); err != nil {
				return err
			}
		}
	}
	body.NumVars = varOffset

	for _, s := range body.Stmts {
		if err := c.collectStmt(s, scope); err != nil {
			return err
		}
	}
	return nil
}

// collectFunctionDecl inserts fn's FUNCTION symbol in parentScope, then
// pushes a child scope for its parameters and body.
func (c *Collector) collectFunctionDecl(fn *DeclFunction, parentScope *SymbolTable) error {
	if err := parentScope.Insert(fn.Name, Symbol{Type: fn.Type, Kind: FUNCTION, Fn: fn}, fn.Lineno); err != nil {
		return err
	}

	childScope := NewChildSymbolTable(parentScope)
	fn.Scope = childScope

	base := c.labels.Next(fn.Name)
	fn.StartLabel = base
	fn.EndLabel = "end_" + base

	for i := range fn.Params {
		param := fn.Params[i]
		sym := Symbol{Type: param.Type, Kind: PARAMETER, Info: i}
		if err := childScope.Insert(param.Name, sym, param.Lineno); err != nil {
			return err
		}
	}
	fn.NumParams = len(fn.Params)

	return c.collectBody(fn.Body, childScope)
}

func (c *Collector) collectStmt(s Stmt, scope *SymbolTable) error {
	switch stmt := s.(type) {
	case *StatementAssignment:
		if _, declLevel, ok := scope.Lookup(stmt.Lhs); ok && declLevel < scope.Level {
			scope.MarkEscaping(stmt.Lhs)
		}
		return c.collectExpr(stmt.Rhs, scope)

	case *StatementIfThenElse:
		if err := c.collectExpr(stmt.Exp, scope); err != nil {
			return err
		}
		thenScope := NewChildSymbolTable(scope)
		stmt.SymbolTableThen = thenScope
		if err := c.collectBody(stmt.Then, thenScope); err != nil {
			return err
		}
		if stmt.Else != nil {
			elseScope := NewChildSymbolTable(scope)
			stmt.SymbolTableElse = elseScope
			if err := c.collectBody(stmt.Else, elseScope); err != nil {
				return err
			}
		}
		base := c.labels.Next("else")
		stmt.ElseLabel = base
		stmt.EsleLabel = c.labels.Next("esle")
		return nil

	case *StatementWhile:
		whileScope := NewChildSymbolTable(scope)
		stmt.SymbolTable = whileScope
		if err := c.collectExpr(stmt.Exp, whileScope); err != nil {
			return err
		}
		if err := c.collectBody(stmt.Body, whileScope); err != nil {
			return err
		}
		stmt.WhileLabel = c.labels.Next("while")
		stmt.ElihwLabel = c.labels.Next("elihw")
		return nil

	case *StatementFor:
		forScope := NewChildSymbolTable(scope)
		stmt.SymbolTable = forScope
		stmt.NumParams = 1
		iterSym := Symbol{Type: stmt.Iter.Type, Kind: PARAMETER, Info: 0, Escaping: true}
		if err := forScope.Insert(stmt.Iter.Name, iterSym, stmt.Iter.Lineno); err != nil {
			return err
		}
		if err := c.collectExpr(stmt.Iter.Init, scope); err != nil {
			return err
		}
		if err := c.collectExpr(stmt.Exp, forScope); err != nil {
			return err
		}
		if err := c.collectExpr(stmt.Assign.Rhs, forScope); err != nil {
			return err
		}
		if err := c.collectBody(stmt.Body, forScope); err != nil {
			return err
		}
		stmt.ForLabel = c.labels.Next("for")
		stmt.RofLabel = c.labels.Next("rof")
		return nil

	case *StatementPrint:
		return c.collectExpr(stmt.Exp, scope)

	case *StatementReturn:
		if stmt.Exp != nil {
			return c.collectExpr(stmt.Exp, scope)
		}
		return nil
	}
	return nil
}

func (c *Collector) collectExpr(e Expr, scope *SymbolTable) error {
	switch expr := e.(type) {
	case *ExpressionIdentifier:
		if _, declLevel, ok := scope.Lookup(expr.Name); ok && declLevel < scope.Level {
			scope.MarkEscaping(expr.Name)
		}
		return nil

	case *ExpressionBinop:
		if err := c.collectExpr(expr.Lhs, scope); err != nil {
			return err
		}
		return c.collectExpr(expr.Rhs, scope)

	case *ExpressionCall:
		for _, arg := range expr.ExpList {
			if err := c.collectExpr(arg, scope); err != nil {
				return err
			}
		}
		return nil

	case *ExpressionInteger, *ExpressionFloat:
		return nil
	}
	return nil
}
