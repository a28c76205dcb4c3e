package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetStringForms(t *testing.T) {
	assert.Equal(t, "$5", Imm(5).String())
	assert.Equal(t, "foo", Mem("foo").String())
	assert.Equal(t, "%rbp", TRBP.String())
	assert.Equal(t, "%rsp", TRSP.String())
	assert.Equal(t, "%rax", TRRT.String())
	assert.Equal(t, "%rdx", TRSL.String())
}

func TestOperandIndirectRendersNegativeOffset(t *testing.T) {
	op := Indirect(TRBP, 2)
	assert.Equal(t, "-16(%rbp)", op.String())
}

func TestOperandDirectRendersBareTarget(t *testing.T) {
	op := Direct(Reg(3))
	assert.Equal(t, "r3", op.String())
}

func TestCondFromTokenRoundTrips(t *testing.T) {
	cases := map[TokenType]Op{
		EQUALS:     JE,
		NOT_EQ:     JNE,
		LESS:       JL,
		LESS_EQ:    JLE,
		GREATER:    JG,
		GREATER_EQ: JGE,
	}
	for tt, op := range cases {
		assert.Equal(t, op, CondFromToken(tt))
	}
}

func TestInvertCondIsAnInvolution(t *testing.T) {
	for _, op := range []Op{JE, JNE, JL, JLE, JG, JGE} {
		assert.Equal(t, op, InvertCond(InvertCond(op)))
		assert.NotEqual(t, op, InvertCond(op))
	}
}

func TestOpIsArithAndIsCondJump(t *testing.T) {
	assert.True(t, ADD.IsArith())
	assert.True(t, SUB.IsArith())
	assert.True(t, MUL.IsArith())
	assert.True(t, DIV.IsArith())
	assert.False(t, CMP.IsArith())
	assert.False(t, MOVE.IsArith())

	assert.True(t, JL.IsCondJump())
	assert.False(t, JMP.IsCondJump())
}

func TestRegOperandIndicesAndTouchesReg(t *testing.T) {
	inst := Inst(ADD, Direct(Reg(1)), Direct(Imm(2)), Direct(Reg(3)))
	assert.Equal(t, []int{0, 2}, inst.regOperandIndices())
	assert.True(t, inst.touchesReg())

	plain := Inst(ADD, Direct(Imm(1)), Direct(Imm(2)))
	assert.False(t, plain.touchesReg())
	assert.Nil(t, plain.regOperandIndices())
}

func TestInstructionConstructors(t *testing.T) {
	l := LabelInst("loop_0")
	assert.Equal(t, LABEL, l.Op)
	assert.Equal(t, "loop_0:", l.String())

	j := JumpInst(JMP, "loop_0")
	assert.Equal(t, "loop_0", j.Label)
	assert.Equal(t, "JMP loop_0", j.String())

	m := MetaInst(PROLOG)
	assert.Equal(t, META, m.Op)
	assert.Equal(t, PROLOG, m.M)
}

func TestIRListLeafAndNested(t *testing.T) {
	l := leaf(Inst(MOVE, Direct(Imm(1)), Direct(Reg(1))))
	assert.False(t, l.isBlock())

	n := nested(IRList{l})
	assert.True(t, n.isBlock())
	assert.Len(t, n.Block, 1)
}
