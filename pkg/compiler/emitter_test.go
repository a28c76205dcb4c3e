package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitProgramProlog(t *testing.T) {
	out := Emit(nil, NewLabelGenerator())
	assert.Contains(t, out, ".data")
	assert.Contains(t, out, `form: .string "%d\n"`)
	assert.Contains(t, out, ".text")
	assert.Contains(t, out, ".globl main")
}

func TestEmitDropsDeadMove(t *testing.T) {
	instrs := []Instruction{
		MetaInst(PROLOG),
		Inst(SUB, Direct(Imm(8)), Direct(TRSP)),
		Inst(MOVE, Direct(Imm(1)), Direct(Reg(0))), // dead: val 0 means unassigned
		MetaInst(EPILOG),
	}
	out := Emit(instrs, NewLabelGenerator())
	assert.NotContains(t, out, "movq $1,")
}

func TestEmitRendersLiveMove(t *testing.T) {
	instrs := []Instruction{
		MetaInst(PROLOG),
		Inst(SUB, Direct(Imm(8)), Direct(TRSP)),
		Inst(MOVE, Direct(Imm(1)), Direct(Reg(1))),
		MetaInst(EPILOG),
	}
	out := Emit(instrs, NewLabelGenerator())
	assert.Contains(t, out, "movq $1, %rbx")
}

func TestEmitSpillsColorAboveNine(t *testing.T) {
	instrs := []Instruction{
		MetaInst(PROLOG),
		Inst(SUB, Direct(Imm(16)), Direct(TRSP)), // 2 locals
		Inst(MOVE, Direct(Imm(42)), Direct(Reg(10))),
		Inst(ADD, Direct(Reg(10)), Direct(Reg(1))),
		MetaInst(EPILOG),
	}
	out := Emit(instrs, NewLabelGenerator())

	assert.Contains(t, out, "subq $8, %rsp", "a fresh spill slot must reserve stack space")
	assert.Contains(t, out, "%r14")
	assert.Contains(t, out, "-24(%rbp)", "spill slot sits just below the frame's 2 declared locals")
}

func TestEmitDivLowering(t *testing.T) {
	instrs := []Instruction{
		MetaInst(PROLOG),
		Inst(SUB, Direct(Imm(0)), Direct(TRSP)),
		Inst(DIV, Direct(Reg(1)), Direct(Reg(2))),
		MetaInst(EPILOG),
	}
	out := Emit(instrs, NewLabelGenerator())
	assert.Contains(t, out, "cqo")
	assert.Contains(t, out, "idivq")
	assert.Regexp(t, `movq %rcx, %rax|movq %r\w+, %rax`, out)
}

func TestEmitCallPrintfUsesExactlyTwoAlignedLabels(t *testing.T) {
	instrs := []Instruction{MetaInst(CALL_PRINTF)}
	out := Emit(instrs, NewLabelGenerator())

	count := strings.Count(out, "aligned_")
	// one definition + one use for each of the two labels = 4 occurrences,
	// across exactly two distinct label names.
	assert.Contains(t, out, "aligned_0")
	assert.Contains(t, out, "aligned_1")
	assert.NotContains(t, out, "aligned_2")
	assert.Greater(t, count, 0)
	assert.Contains(t, out, "callq printf@plt")
	assert.Contains(t, out, "shlq $3, %rax")
}

func TestEmitPrologEpilogPushPopBalance(t *testing.T) {
	instrs := []Instruction{MetaInst(PROLOG), MetaInst(EPILOG)}
	out := Emit(instrs, NewLabelGenerator())
	assert.Equal(t, strings.Count(out, "pushq"), strings.Count(out, "popq"))
}

func TestEmitPrecallPostreturnBalance(t *testing.T) {
	instrs := []Instruction{MetaInst(PRECALL), MetaInst(POSTRETURN)}
	out := Emit(instrs, NewLabelGenerator())
	assert.Equal(t, strings.Count(out, "pushq"), strings.Count(out, "popq"))
}
