package compiler

// RegisterCodeGen runs the same AST traversal as StackCodeGen, but
// routes every intermediate value through an explicit virtual-register
// arena instead of the hardware stack, and builds its output as nested
// IRList blocks (one per function, with if/while/for bodies nested
// inside) so the allocator can treat each function as an independent
// program for interference purposes (spec.md section 4.5).
type RegisterCodeGen struct {
	labels   *LabelGenerator
	scope    *SymbolTable
	regCount int

	funcStack []*DeclFunction
	bodyStack []*Body

	usedSymbols   [][]string
	symbolRestore []map[string]int
}

// GenerateRegister runs the register code generator over fn, returning
// one IRList per top-level function (fn itself, plus every function
// nested in its body, in declaration order).
func GenerateRegister(fn *DeclFunction, labels *LabelGenerator) ([]IRList, error) {
	cg := &RegisterCodeGen{labels: labels}
	return cg.genProgram(fn)
}

func (cg *RegisterCodeGen) newReg() int {
	cg.regCount++
	return cg.regCount
}

func (cg *RegisterCodeGen) noteUsed(name string) {
	top := len(cg.usedSymbols) - 1
	cg.usedSymbols[top] = append(cg.usedSymbols[top], name)
}

// enterScope pushes a fresh used-symbols list and snapshots child's own
// current SR bindings (there are none yet on first entry, but a child
// scope can be re-entered — e.g. a function called recursively through
// the same *SymbolTable during a single compile — so snapshotting is
// always correct) before switching cg.scope to it.
func (cg *RegisterCodeGen) enterScope(child *SymbolTable) *SymbolTable {
	prev := cg.scope
	cg.symbolRestore = append(cg.symbolRestore, child.snapshotSR())
	cg.usedSymbols = append(cg.usedSymbols, nil)
	cg.scope = child
	return prev
}

// exitScope drops every SR binding this scope acquired during its own
// emission, restores whatever was there before entry, and switches
// cg.scope back to prev.
func (cg *RegisterCodeGen) exitScope(prev *SymbolTable) {
	top := len(cg.usedSymbols) - 1
	used := cg.usedSymbols[top]
	cg.usedSymbols = cg.usedSymbols[:top]
	cg.scope.ClearSR(used)

	snap := cg.symbolRestore[len(cg.symbolRestore)-1]
	cg.symbolRestore = cg.symbolRestore[:len(cg.symbolRestore)-1]
	cg.scope.restoreSR(snap)

	cg.scope = prev
}

func (cg *RegisterCodeGen) currentFunc() *DeclFunction { return cg.funcStack[len(cg.funcStack)-1] }

// genFollowStaticLink emits the same RSL-walk StackCodeGen uses, always
// starting from RBP even when hops is 0, so call sites and frame
// accesses share one addressing idiom across both code generators.
func (cg *RegisterCodeGen) genFollowStaticLink(list *IRList, hops int) {
	*list = append(*list, leaf(Inst(MOVE, Direct(TRBP), Direct(TRSL))))
	for i := 0; i < hops; i++ {
		*list = append(*list, leaf(Inst(MOVE, Indirect(TRSL, -7), Direct(TRSL))))
	}
}

func frameOperand(sym Symbol, base Target) Operand {
	if sym.Kind == PARAMETER {
		return Indirect(base, -(sym.Info + 16))
	}
	return Indirect(base, sym.Info+1)
}

func (cg *RegisterCodeGen) genProgram(fn *DeclFunction) ([]IRList, error) {
	block, err := cg.genFunctionBlock(fn)
	if err != nil {
		return nil, err
	}
	out := []IRList{block}
	for _, d := range fn.Body.Decls {
		if nestedFn, ok := d.(*DeclFunction); ok {
			rest, err := cg.genProgram(nestedFn)
			if err != nil {
				return nil, err
			}
			out = append(out, rest...)
		}
	}
	return out, nil
}

func (cg *RegisterCodeGen) genFunctionBlock(fn *DeclFunction) (IRList, error) {
	cg.funcStack = append(cg.funcStack, fn)
	prev := cg.enterScope(fn.Scope)

	var list IRList
	list = append(list, leaf(LabelInst(fn.StartLabel)))
	list = append(list, leaf(MetaInst(PROLOG)))
	list = append(list, leaf(Inst(SUB, Direct(Imm(8*fn.Body.NumVars)), Direct(TRSP))))

	body, err := cg.genBody(fn.Body)
	if err != nil {
		return nil, err
	}
	list = append(list, body...)

	list = append(list, leaf(LabelInst(fn.EndLabel)))
	list = append(list, leaf(MetaInst(EPILOG)))
	list = append(list, leaf(MetaInst(RET)))

	cg.exitScope(prev)
	cg.funcStack = cg.funcStack[:len(cg.funcStack)-1]
	return list, nil
}

func (cg *RegisterCodeGen) genBody(b *Body) (IRList, error) {
	var list IRList
	for _, s := range b.Stmts {
		sub, err := cg.genStmt(s)
		if err != nil {
			return nil, err
		}
		list = append(list, sub...)
	}
	return list, nil
}

// genFramedBlock mirrors codegen_stack.go's genFramedBlock instruction
// for instruction: PRECALL, a pushed static link, a reserved pseudo
// return-address slot, PROLOG, the local-size SUB, the caller's body,
// EPILOG, the two matching ADDs, POSTRETURN. A real call reserves two
// qwords ahead of PROLOG — the pushed static link and the CALL-pushed
// return address — so offset -7 ("follow parent ARP") always lands 56
// bytes above the callee's RBP; a pseudo-frame never executes CALL/RET,
// so it reserves that second slot itself via SUB $8,RSP, left
// uninitialized, rather than letting -7 land on the last PRECALL-pushed
// register.
func (cg *RegisterCodeGen) genFramedBlock(scope *SymbolTable, body *Body, emitBody func() (IRList, error)) (IRList, error) {
	cg.bodyStack = append(cg.bodyStack, body)
	prev := cg.enterScope(scope)

	var list IRList
	list = append(list, leaf(MetaInst(PRECALL)))
	cg.genFollowStaticLink(&list, 0)
	list = append(list, leaf(Inst(PUSH, Direct(TRSL))))
	list = append(list, leaf(Inst(SUB, Direct(Imm(8)), Direct(TRSP)))) // pseudo return-address slot
	list = append(list, leaf(MetaInst(PROLOG)))
	list = append(list, leaf(Inst(SUB, Direct(Imm(8*body.NumVars)), Direct(TRSP))))

	inner, err := emitBody()
	cg.exitScope(prev)
	if err != nil {
		return nil, err
	}
	list = append(list, nested(inner))

	list = append(list, leaf(MetaInst(EPILOG)))
	list = append(list, leaf(Inst(ADD, Direct(Imm(8)), Direct(TRSP)))) // undo pseudo return-address slot
	list = append(list, leaf(Inst(ADD, Direct(Imm(8)), Direct(TRSP)))) // undo ARP push
	list = append(list, leaf(MetaInst(POSTRETURN)))

	cg.bodyStack = cg.bodyStack[:len(cg.bodyStack)-1]
	return list, nil
}

func (cg *RegisterCodeGen) genStmt(s Stmt) (IRList, error) {
	switch stmt := s.(type) {
	case *StatementAssignment:
		var list IRList
		err := cg.genAssignment(&list, stmt)
		return list, err
	case *StatementIfThenElse:
		return cg.genIf(stmt)
	case *StatementWhile:
		return cg.genWhile(stmt)
	case *StatementFor:
		return cg.genFor(stmt)
	case *StatementPrint:
		var list IRList
		reg, err := cg.genExpr(&list, stmt.Exp)
		if err != nil {
			return nil, err
		}
		list = append(list, leaf(Inst(PUSH, Direct(Reg(reg)))))
		list = append(list, leaf(MetaInst(PRECALL)))
		list = append(list, leaf(MetaInst(CALL_PRINTF)))
		list = append(list, leaf(MetaInst(POSTRETURN)))
		return list, nil
	case *StatementReturn:
		var list IRList
		err := cg.genReturn(&list, stmt)
		return list, err
	}
	return nil, nil
}

func (cg *RegisterCodeGen) genAssignment(list *IRList, stmt *StatementAssignment) error {
	rhsReg, err := cg.genExpr(list, stmt.Rhs)
	if err != nil {
		return err
	}
	sym, declLevel, ok := cg.scope.Lookup(stmt.Lhs)
	if !ok {
		return newError(PhaseCodeGeneration, stmt.Lineno, "undefined identifier '%s'.", stmt.Lhs)
	}
	levelDiff := cg.scope.Level - declLevel

	if !sym.Escaping && levelDiff == 0 {
		if sym.SR == 0 {
			*list = append(*list, leaf(Inst(MOVE, Direct(Reg(rhsReg)), frameOperand(sym, TRBP))))
			cg.noteUsed(stmt.Lhs)
		}
		cg.scope.SetSR(stmt.Lhs, rhsReg)
		return nil
	}

	cg.genFollowStaticLink(list, levelDiff)
	*list = append(*list, leaf(Inst(MOVE, Direct(Reg(rhsReg)), frameOperand(sym, TRSL))))
	return nil
}

func (cg *RegisterCodeGen) genCompareBool(list *IRList, a, b int, op Op) int {
	trueLabel := cg.labels.Next("true")
	endLabel := cg.labels.Next("end")
	result := cg.newReg()
	*list = append(*list, leaf(Inst(CMP, Direct(Reg(a)), Direct(Reg(b)))))
	*list = append(*list, leaf(JumpInst(op, trueLabel)))
	*list = append(*list, leaf(Inst(MOVE, Direct(Imm(0)), Direct(Reg(result)))))
	*list = append(*list, leaf(JumpInst(JMP, endLabel)))
	*list = append(*list, leaf(LabelInst(trueLabel)))
	*list = append(*list, leaf(Inst(MOVE, Direct(Imm(1)), Direct(Reg(result)))))
	*list = append(*list, leaf(LabelInst(endLabel)))
	return result
}

func (cg *RegisterCodeGen) genIf(stmt *StatementIfThenElse) (IRList, error) {
	var list IRList
	condReg, err := cg.genExpr(&list, stmt.Exp)
	if err != nil {
		return nil, err
	}
	zero := cg.newReg()
	list = append(list, leaf(Inst(MOVE, Direct(Imm(0)), Direct(Reg(zero)))))
	list = append(list, leaf(Inst(CMP, Direct(Reg(condReg)), Direct(Reg(zero)))))
	list = append(list, leaf(JumpInst(JE, stmt.ElseLabel)))

	then, err := cg.genFramedBlock(stmt.SymbolTableThen, stmt.Then, func() (IRList, error) { return cg.genBody(stmt.Then) })
	if err != nil {
		return nil, err
	}
	list = append(list, then...)
	list = append(list, leaf(JumpInst(JMP, stmt.EsleLabel)))
	list = append(list, leaf(LabelInst(stmt.ElseLabel)))

	if stmt.Else != nil {
		els, err := cg.genFramedBlock(stmt.SymbolTableElse, stmt.Else, func() (IRList, error) { return cg.genBody(stmt.Else) })
		if err != nil {
			return nil, err
		}
		list = append(list, els...)
	}
	list = append(list, leaf(LabelInst(stmt.EsleLabel)))
	return list, nil
}

func (cg *RegisterCodeGen) genWhile(stmt *StatementWhile) (IRList, error) {
	return cg.genFramedBlock(stmt.SymbolTable, stmt.Body, func() (IRList, error) {
		var list IRList
		list = append(list, leaf(LabelInst(stmt.WhileLabel)))
		condReg, err := cg.genExpr(&list, stmt.Exp)
		if err != nil {
			return nil, err
		}
		zero := cg.newReg()
		list = append(list, leaf(Inst(MOVE, Direct(Imm(0)), Direct(Reg(zero)))))
		list = append(list, leaf(Inst(CMP, Direct(Reg(condReg)), Direct(Reg(zero)))))
		list = append(list, leaf(JumpInst(JE, stmt.ElihwLabel)))
		body, err := cg.genBody(stmt.Body)
		if err != nil {
			return nil, err
		}
		list = append(list, body...)
		list = append(list, leaf(JumpInst(JMP, stmt.WhileLabel)))
		list = append(list, leaf(LabelInst(stmt.ElihwLabel)))
		return list, nil
	})
}

func (cg *RegisterCodeGen) genFor(stmt *StatementFor) (IRList, error) {
	var outer IRList
	initReg, err := cg.genExpr(&outer, stmt.Iter.Init)
	if err != nil {
		return nil, err
	}
	outer = append(outer, leaf(Inst(PUSH, Direct(Reg(initReg)))))

	loop, err := cg.genFramedBlock(stmt.SymbolTable, stmt.Body, func() (IRList, error) {
		var list IRList
		list = append(list, leaf(LabelInst(stmt.ForLabel)))
		condReg, err := cg.genExpr(&list, stmt.Exp)
		if err != nil {
			return nil, err
		}
		zero := cg.newReg()
		list = append(list, leaf(Inst(MOVE, Direct(Imm(0)), Direct(Reg(zero)))))
		list = append(list, leaf(Inst(CMP, Direct(Reg(condReg)), Direct(Reg(zero)))))
		list = append(list, leaf(JumpInst(JE, stmt.RofLabel)))
		body, err := cg.genBody(stmt.Body)
		if err != nil {
			return nil, err
		}
		list = append(list, body...)
		if err := cg.genAssignment(&list, stmt.Assign); err != nil {
			return nil, err
		}
		list = append(list, leaf(JumpInst(JMP, stmt.ForLabel)))
		list = append(list, leaf(LabelInst(stmt.RofLabel)))
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	outer = append(outer, loop...)
	outer = append(outer, leaf(Inst(ADD, Direct(Imm(8)), Direct(TRSP))))
	return outer, nil
}

func (cg *RegisterCodeGen) genReturn(list *IRList, stmt *StatementReturn) error {
	if stmt.Exp != nil {
		reg, err := cg.genExpr(list, stmt.Exp)
		if err != nil {
			return err
		}
		*list = append(*list, leaf(Inst(MOVE, Direct(Reg(reg)), Direct(TRRT))))
	}
	if len(cg.bodyStack) > 0 {
		total := 16 * 8 * len(cg.bodyStack)
		for _, b := range cg.bodyStack {
			total += 8 * b.NumVars
		}
		total += 8 * cg.currentFunc().Body.NumVars
		*list = append(*list, leaf(Inst(ADD, Direct(Imm(total)), Direct(TRSP))))
		*list = append(*list, leaf(Inst(MOVE, Direct(TRSP), Direct(TRBP))))
	}
	*list = append(*list, leaf(JumpInst(JMP, cg.currentFunc().EndLabel)))
	return nil
}

func (cg *RegisterCodeGen) genExpr(list *IRList, e Expr) (int, error) {
	switch expr := e.(type) {
	case *ExpressionIdentifier:
		sym, declLevel, ok := cg.scope.Lookup(expr.Name)
		if !ok {
			return 0, newError(PhaseCodeGeneration, expr.Lineno, "undefined identifier '%s'.", expr.Name)
		}
		levelDiff := cg.scope.Level - declLevel
		if !sym.Escaping && levelDiff == 0 {
			if sym.SR != 0 {
				return sym.SR, nil
			}
			reg := cg.newReg()
			*list = append(*list, leaf(Inst(MOVE, frameOperand(sym, TRBP), Direct(Reg(reg)))))
			cg.scope.SetSR(expr.Name, reg)
			cg.noteUsed(expr.Name)
			return reg, nil
		}
		cg.genFollowStaticLink(list, levelDiff)
		reg := cg.newReg()
		*list = append(*list, leaf(Inst(MOVE, frameOperand(sym, TRSL), Direct(Reg(reg)))))
		return reg, nil

	case *ExpressionInteger:
		reg := cg.newReg()
		*list = append(*list, leaf(Inst(MOVE, Direct(Imm(int(expr.Value))), Direct(Reg(reg)))))
		return reg, nil

	case *ExpressionFloat:
		return 0, newError(PhaseCodeGeneration, expr.Lineno, "Floats are not implemented, yet.")

	case *ExpressionBinop:
		lhsReg, err := cg.genExpr(list, expr.Lhs)
		if err != nil {
			return 0, err
		}
		rhsReg, err := cg.genExpr(list, expr.Rhs)
		if err != nil {
			return 0, err
		}
		if expr.Op.IsComparison() {
			return cg.genCompareBool(list, lhsReg, rhsReg, CondFromToken(expr.Op)), nil
		}
		*list = append(*list, leaf(Inst(arithOp(expr.Op), Direct(Reg(lhsReg)), Direct(Reg(rhsReg)))))
		return rhsReg, nil

	case *ExpressionCall:
		sym, declLevel, ok := cg.scope.Lookup(expr.Name)
		if !ok {
			return 0, newError(PhaseCodeGeneration, expr.Lineno, "undefined function '%s'.", expr.Name)
		}
		return cg.genPrecall(list, expr.ExpList, declLevel, sym)
	}
	return 0, nil
}

// genPrecall mirrors codegen_stack.go's genPrecall: arguments are
// materialized into registers and pushed right-to-left, the static link
// is pushed, the call is made, and the frame is torn down.
func (cg *RegisterCodeGen) genPrecall(list *IRList, args []Expr, declLevel int, sym Symbol) (int, error) {
	argRegs := make([]int, len(args))
	for i := len(args) - 1; i >= 0; i-- {
		reg, err := cg.genExpr(list, args[i])
		if err != nil {
			return 0, err
		}
		argRegs[i] = reg
		*list = append(*list, leaf(Inst(PUSH, Direct(Reg(reg)))))
	}
	*list = append(*list, leaf(MetaInst(PRECALL)))
	cg.genFollowStaticLink(list, cg.scope.Level-declLevel)
	*list = append(*list, leaf(Inst(PUSH, Direct(TRSL))))
	*list = append(*list, leaf(JumpInst(CALL, sym.Fn.StartLabel)))
	*list = append(*list, leaf(Inst(ADD, Direct(Imm(8)), Direct(TRSP))))
	*list = append(*list, leaf(MetaInst(POSTRETURN)))
	if len(args) > 0 {
		*list = append(*list, leaf(Inst(ADD, Direct(Imm(8*len(args))), Direct(TRSP))))
	}
	if sym.Type == "void" {
		return 0, nil
	}
	reg := cg.newReg()
	*list = append(*list, leaf(Inst(MOVE, Direct(TRRT), Direct(Reg(reg)))))
	return reg, nil
}
