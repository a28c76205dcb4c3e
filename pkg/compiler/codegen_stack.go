package compiler

// Fixed scratch registers used to shuttle values through the hardware
// stack inside a single expression evaluation. Because every operand is
// always immediately pushed back or consumed before the next one is
// produced, two fixed physical slots are enough — there is no need to
// run these through the allocator (codegen_register.go / allocator.go
// exist precisely to avoid this restriction for the register variant).
var (
	stackR1 = Reg(1) // %rbx
	stackR2 = Reg(2) // %rcx
)

// StackCodeGen lowers an annotated, desugared AST to a flat ILOC
// instruction stream using an implicit, unbounded evaluation stack:
// every intermediate value is materialized on the hardware stack rather
// than held in a named register.
type StackCodeGen struct {
	labels    *LabelGenerator
	scope     *SymbolTable
	funcStack []*DeclFunction
	bodyStack []*Body
	out       []Instruction
}

// GenerateStack runs the stack code generator over fn (normally the
// ?main wrapper returned by Collect, after Desugar).
func GenerateStack(fn *DeclFunction, labels *LabelGenerator) ([]Instruction, error) {
	cg := &StackCodeGen{labels: labels}
	if err := cg.genFunction(fn); err != nil {
		return nil, err
	}
	return cg.out, nil
}

func (cg *StackCodeGen) emit(i Instruction) { cg.out = append(cg.out, i) }

func (cg *StackCodeGen) currentFunc() *DeclFunction { return cg.funcStack[len(cg.funcStack)-1] }

// genFollowStaticLink walks hops parent-ARP links starting from the
// current RBP and leaves the result in RSL (%rdx), per spec.md section
// 3's frame offset table: "Follow parent ARP | Base RSL | Offset -7".
func (cg *StackCodeGen) genFollowStaticLink(hops int) {
	cg.emit(Inst(MOVE, Direct(TRBP), Direct(TRSL)))
	for i := 0; i < hops; i++ {
		cg.emit(Inst(MOVE, Indirect(TRSL, -7), Direct(TRSL)))
	}
}

func (cg *StackCodeGen) genFunction(fn *DeclFunction) error {
	cg.funcStack = append(cg.funcStack, fn)
	prevScope := cg.scope
	cg.scope = fn.Scope

	cg.emit(LabelInst(fn.StartLabel))
	cg.emit(MetaInst(PROLOG))
	cg.emit(Inst(SUB, Direct(Imm(8*fn.Body.NumVars)), Direct(TRSP)))
	if err := cg.genBody(fn.Body); err != nil {
		return err
	}
	cg.emit(LabelInst(fn.EndLabel))
	cg.emit(MetaInst(EPILOG))
	cg.emit(MetaInst(RET))

	cg.scope = prevScope
	cg.funcStack = cg.funcStack[:len(cg.funcStack)-1]

	for _, d := range fn.Body.Decls {
		if nested, ok := d.(*DeclFunction); ok {
			if err := cg.genFunction(nested); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cg *StackCodeGen) genBody(b *Body) error {
	for _, s := range b.Stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// genFramedBlock emits the PRECALL / ARP / pseudo-return-address /
// PROLOG / ... / EPILOG / ADD / ADD / POSTRETURN framing that if/while/for
// bodies share with real function calls (spec.md section 4.4). A real
// call reserves two qwords ahead of PROLOG — the pushed static link and
// the CALL-pushed return address — so that offset -7 ("follow parent
// ARP") always lands 56 bytes above the callee's RBP. A pseudo-frame
// never executes CALL/RET, so it must reserve both slots itself: the
// ARP is pushed explicitly (genFollowStaticLink(0) + PUSH leaves the
// current RBP in RSL, standing in for the static link), and a second,
// uninitialized slot is reserved with SUB $8,RSP to stand in for the
// return address CALL would otherwise have pushed. Skipping that second
// slot shifts offset -7 onto the last PRECALL-pushed register instead
// of the ARP.
func (cg *StackCodeGen) genFramedBlock(scope *SymbolTable, body *Body, emitBody func() error) error {
	cg.bodyStack = append(cg.bodyStack, body)
	prevScope := cg.scope

	cg.emit(MetaInst(PRECALL))
	cg.genFollowStaticLink(0)
	cg.emit(Inst(PUSH, Direct(TRSL)))
	cg.emit(Inst(SUB, Direct(Imm(8)), Direct(TRSP))) // pseudo return-address slot
	cg.emit(MetaInst(PROLOG))
	cg.emit(Inst(SUB, Direct(Imm(8*body.NumVars)), Direct(TRSP)))

	cg.scope = scope
	err := emitBody()
	cg.scope = prevScope

	cg.emit(MetaInst(EPILOG))
	cg.emit(Inst(ADD, Direct(Imm(8)), Direct(TRSP))) // undo pseudo return-address slot
	cg.emit(Inst(ADD, Direct(Imm(8)), Direct(TRSP))) // undo ARP push
	cg.emit(MetaInst(POSTRETURN))

	cg.bodyStack = cg.bodyStack[:len(cg.bodyStack)-1]
	return err
}

func (cg *StackCodeGen) genStmt(s Stmt) error {
	switch stmt := s.(type) {
	case *StatementAssignment:
		return cg.genAssignment(stmt)
	case *StatementIfThenElse:
		return cg.genIf(stmt)
	case *StatementWhile:
		return cg.genWhile(stmt)
	case *StatementFor:
		return cg.genFor(stmt)
	case *StatementPrint:
		if err := cg.genExpr(stmt.Exp); err != nil {
			return err
		}
		cg.emit(MetaInst(PRECALL))
		cg.emit(MetaInst(CALL_PRINTF))
		cg.emit(MetaInst(POSTRETURN))
		return nil
	case *StatementReturn:
		return cg.genReturn(stmt)
	}
	return nil
}

func (cg *StackCodeGen) genAssignment(stmt *StatementAssignment) error {
	if err := cg.genExpr(stmt.Rhs); err != nil {
		return err
	}
	sym, declLevel, ok := cg.scope.Lookup(stmt.Lhs)
	if !ok {
		return newError(PhaseCodeGeneration, stmt.Lineno, "undefined identifier '%s'.", stmt.Lhs)
	}
	cg.genFollowStaticLink(cg.scope.Level - declLevel)
	if sym.Kind == PARAMETER {
		cg.emit(Inst(POP, Indirect(TRSL, -(sym.Info+16))))
	} else {
		cg.emit(Inst(POP, Indirect(TRSL, sym.Info+1)))
	}
	return nil
}

func (cg *StackCodeGen) genCompareToZero(trueOnNonZero bool) {
	cg.emit(Inst(POP, Direct(stackR1)))
	cg.emit(Inst(MOVE, Direct(Imm(0)), Direct(stackR2)))
	cg.emit(Inst(CMP, Direct(stackR1), Direct(stackR2)))
}

func (cg *StackCodeGen) genIf(stmt *StatementIfThenElse) error {
	if err := cg.genExpr(stmt.Exp); err != nil {
		return err
	}
	cg.genCompareToZero(true)
	cg.emit(JumpInst(JE, stmt.ElseLabel))

	if err := cg.genFramedBlock(stmt.SymbolTableThen, stmt.Then, func() error { return cg.genBody(stmt.Then) }); err != nil {
		return err
	}
	cg.emit(JumpInst(JMP, stmt.EsleLabel))
	cg.emit(LabelInst(stmt.ElseLabel))
	if stmt.Else != nil {
		if err := cg.genFramedBlock(stmt.SymbolTableElse, stmt.Else, func() error { return cg.genBody(stmt.Else) }); err != nil {
			return err
		}
	}
	cg.emit(LabelInst(stmt.EsleLabel))
	return nil
}

func (cg *StackCodeGen) genWhile(stmt *StatementWhile) error {
	return cg.genFramedBlock(stmt.SymbolTable, stmt.Body, func() error {
		cg.emit(LabelInst(stmt.WhileLabel))
		if err := cg.genExpr(stmt.Exp); err != nil {
			return err
		}
		cg.genCompareToZero(true)
		cg.emit(JumpInst(JE, stmt.ElihwLabel))
		if err := cg.genBody(stmt.Body); err != nil {
			return err
		}
		cg.emit(JumpInst(JMP, stmt.WhileLabel))
		cg.emit(LabelInst(stmt.ElihwLabel))
		return nil
	})
}

func (cg *StackCodeGen) genFor(stmt *StatementFor) error {
	// The iteration initializer is evaluated in the enclosing scope and
	// pushed like a precall argument: the induction variable is modeled
	// as parameter 0 of this pseudo-frame (collector.go), so its initial
	// value must already be sitting in the parameter area before PRECALL.
	if err := cg.genExpr(stmt.Iter.Init); err != nil {
		return err
	}

	err := cg.genFramedBlock(stmt.SymbolTable, stmt.Body, func() error {
		cg.emit(LabelInst(stmt.ForLabel))
		if err := cg.genExpr(stmt.Exp); err != nil {
			return err
		}
		cg.genCompareToZero(true)
		cg.emit(JumpInst(JE, stmt.RofLabel))
		if err := cg.genBody(stmt.Body); err != nil {
			return err
		}
		if err := cg.genAssignment(stmt.Assign); err != nil {
			return err
		}
		cg.emit(JumpInst(JMP, stmt.ForLabel))
		cg.emit(LabelInst(stmt.RofLabel))
		return nil
	})
	if err != nil {
		return err
	}

	// Pop the single "parameter" pushed for the iterator, mirroring a
	// real call's final ADD $(8*nparams),RSP.
	cg.emit(Inst(ADD, Direct(Imm(8)), Direct(TRSP)))
	return nil
}

func (cg *StackCodeGen) genReturn(stmt *StatementReturn) error {
	if stmt.Exp != nil {
		if err := cg.genExpr(stmt.Exp); err != nil {
			return err
		}
		cg.emit(Inst(POP, Direct(TRRT)))
	}
	if len(cg.bodyStack) > 0 {
		total := 16 * 8 * len(cg.bodyStack)
		for _, b := range cg.bodyStack {
			total += 8 * b.NumVars
		}
		total += 8 * cg.currentFunc().Body.NumVars
		cg.emit(Inst(ADD, Direct(Imm(total)), Direct(TRSP)))
		cg.emit(Inst(MOVE, Direct(TRSP), Direct(TRBP)))
	}
	cg.emit(JumpInst(JMP, cg.currentFunc().EndLabel))
	return nil
}

func (cg *StackCodeGen) genExpr(e Expr) error {
	switch expr := e.(type) {
	case *ExpressionIdentifier:
		sym, declLevel, ok := cg.scope.Lookup(expr.Name)
		if !ok {
			return newError(PhaseCodeGeneration, expr.Lineno, "undefined identifier '%s'.", expr.Name)
		}
		cg.genFollowStaticLink(cg.scope.Level - declLevel)
		if sym.Kind == PARAMETER {
			cg.emit(Inst(PUSH, Indirect(TRSL, -(sym.Info+16))))
		} else {
			cg.emit(Inst(PUSH, Indirect(TRSL, sym.Info+1)))
		}
		return nil

	case *ExpressionInteger:
		cg.emit(Inst(PUSH, Direct(Imm(int(expr.Value)))))
		return nil

	case *ExpressionFloat:
		return newError(PhaseCodeGeneration, expr.Lineno, "Floats are not implemented, yet.")

	case *ExpressionBinop:
		if err := cg.genExpr(expr.Lhs); err != nil {
			return err
		}
		if err := cg.genExpr(expr.Rhs); err != nil {
			return err
		}
		if expr.Op.IsComparison() {
			trueLabel := cg.labels.Next("true")
			endLabel := cg.labels.Next("end")
			cg.emit(Inst(POP, Direct(stackR1)))
			cg.emit(Inst(POP, Direct(stackR2)))
			cg.emit(Inst(CMP, Direct(stackR1), Direct(stackR2)))
			cg.emit(JumpInst(CondFromToken(expr.Op), trueLabel))
			cg.emit(Inst(PUSH, Direct(Imm(0))))
			cg.emit(JumpInst(JMP, endLabel))
			cg.emit(LabelInst(trueLabel))
			cg.emit(Inst(PUSH, Direct(Imm(1))))
			cg.emit(LabelInst(endLabel))
			return nil
		}
		op := arithOp(expr.Op)
		cg.emit(Inst(POP, Direct(stackR1)))
		cg.emit(Inst(POP, Direct(stackR2)))
		cg.emit(Inst(op, Direct(stackR1), Direct(stackR2)))
		cg.emit(Inst(PUSH, Direct(stackR2)))
		return nil

	case *ExpressionCall:
		sym, declLevel, ok := cg.scope.Lookup(expr.Name)
		if !ok {
			return newError(PhaseCodeGeneration, expr.Lineno, "undefined function '%s'.", expr.Name)
		}
		return cg.genPrecall(expr.ExpList, declLevel, sym)
	}
	return nil
}

// genPrecall implements the "Call" protocol of spec.md section 4.4: push
// arguments right-to-left (so the left-most argument ends up on top),
// establish the callee's static link, CALL, and tear down.
func (cg *StackCodeGen) genPrecall(args []Expr, declLevel int, sym Symbol) error {
	for i := len(args) - 1; i >= 0; i-- {
		if err := cg.genExpr(args[i]); err != nil {
			return err
		}
	}
	cg.emit(MetaInst(PRECALL))
	cg.genFollowStaticLink(cg.scope.Level - declLevel)
	cg.emit(Inst(PUSH, Direct(TRSL)))
	cg.emit(JumpInst(CALL, sym.Fn.StartLabel))
	cg.emit(Inst(ADD, Direct(Imm(8)), Direct(TRSP)))
	cg.emit(MetaInst(POSTRETURN))
	if len(args) > 0 {
		cg.emit(Inst(ADD, Direct(Imm(8*len(args))), Direct(TRSP)))
	}
	if sym.Type != "void" {
		cg.emit(Inst(PUSH, Direct(TRRT)))
	}
	return nil
}

func arithOp(tt TokenType) Op {
	switch tt {
	case PLUS:
		return ADD
	case MINUS:
		return SUB
	case STAR:
		return MUL
	case SLASH:
		return DIV
	}
	panic("not an arithmetic operator")
}
