package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAndCollect(t *testing.T, src string) *DeclFunction {
	t.Helper()
	tokens, err := Lex(src)
	require.NoError(t, err)
	program, err := Parse(tokens)
	require.NoError(t, err)
	root, err := Collect(program, NewLabelGenerator())
	require.NoError(t, err)
	return root
}

func TestDesugarPrependsAssignmentForInitializedDecl(t *testing.T) {
	root := parseAndCollect(t, `int x = 10; print(x);`)
	desugared := Desugar(root)

	require.Len(t, desugared.Body.Stmts, 2)
	assign, ok := desugared.Body.Stmts[0].(*StatementAssignment)
	require.True(t, ok, "expected a synthesized assignment first")
	assert.Equal(t, "x", assign.Lhs)
	assert.IsType(t, &ExpressionInteger{}, assign.Rhs)

	// the DeclVariableInit itself must survive, per spec.md section 4.3
	require.Len(t, desugared.Body.Decls, 1)
	assert.IsType(t, &DeclVariableInit{}, desugared.Body.Decls[0])
}

func TestDesugarIsIdempotent(t *testing.T) {
	root := parseAndCollect(t, `int x = 1; int y = 2; if (x < y) { int z = 3; print(z); }`)

	once := Desugar(root)
	twice := Desugar(once)

	assert.Equal(t, once.Body.String(), twice.Body.String())
	require.Len(t, once.Body.Stmts, len(twice.Body.Stmts))
	for i := range once.Body.Stmts {
		assert.Equal(t, once.Body.Stmts[i].String(), twice.Body.Stmts[i].String())
	}
}

func TestDesugarDoesNotRewriteForIterInit(t *testing.T) {
	root := parseAndCollect(t, `for (int i = 0; i < 3; i = i + 1) { print(i); }`)
	desugared := Desugar(root)

	forStmt, ok := desugared.Body.Stmts[0].(*StatementFor)
	require.True(t, ok)
	// Iter.Init must be untouched — no prelude assignment synthesized for it.
	assert.IsType(t, &ExpressionInteger{}, forStmt.Iter.Init)
	require.Len(t, forStmt.Body.Stmts, 1)
	assert.IsType(t, &StatementPrint{}, forStmt.Body.Stmts[0])
}

func TestDesugarDoesNotMutateInput(t *testing.T) {
	root := parseAndCollect(t, `int x = 5; print(x);`)
	originalStmtCount := len(root.Body.Stmts)

	_ = Desugar(root)

	assert.Equal(t, originalStmtCount, len(root.Body.Stmts), "Desugar must not mutate its input")
	assert.False(t, root.Body.Desugared)
}
