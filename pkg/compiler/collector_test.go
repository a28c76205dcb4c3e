package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectMarksOuterLocalEscapingWhenReadByNestedFunction(t *testing.T) {
	root := parseAndCollect(t, `int outer() { int a; a = 7; int inner() { return a + 1; } return inner(); } print(outer());`)

	var outer *DeclFunction
	for _, d := range root.Body.Decls {
		if fn, ok := d.(*DeclFunction); ok && fn.Name == "outer" {
			outer = fn
		}
	}
	require.NotNil(t, outer, "expected to find function outer")

	sym, ok := outer.Scope.LookupLocal("a")
	require.True(t, ok)
	assert.True(t, sym.Escaping, "outer's local 'a' must be marked escaping since inner() reads it")
}

func TestCollectDoesNotMarkPurelyLocalVariableEscaping(t *testing.T) {
	root := parseAndCollect(t, `int f() { int a; a = 1; return a; } print(f());`)

	var f *DeclFunction
	for _, d := range root.Body.Decls {
		if fn, ok := d.(*DeclFunction); ok && fn.Name == "f" {
			f = fn
		}
	}
	require.NotNil(t, f)

	sym, ok := f.Scope.LookupLocal("a")
	require.True(t, ok)
	assert.False(t, sym.Escaping)
}

func TestCollectForInductionVariableIsParameterAndEscaping(t *testing.T) {
	root := parseAndCollect(t, `for (int i = 0; i < 3; i = i + 1) { print(i); }`)

	forStmt, ok := root.Body.Stmts[0].(*StatementFor)
	require.True(t, ok)

	sym, ok := forStmt.SymbolTable.LookupLocal("i")
	require.True(t, ok)
	assert.Equal(t, PARAMETER, sym.Kind)
	assert.True(t, sym.Escaping)
	assert.Equal(t, 1, forStmt.NumParams)
}

func TestCollectForSharesOneScopeForConditionAndBody(t *testing.T) {
	root := parseAndCollect(t, `for (int i = 0; i < 3; i = i + 1) { int seen; seen = i; }`)
	forStmt := root.Body.Stmts[0].(*StatementFor)

	// "seen" must be declared in the SAME scope as "i" — no extra nested
	// scope for the body, mirroring StatementWhile's single-scope shape.
	_, ok := forStmt.SymbolTable.LookupLocal("seen")
	assert.True(t, ok)
	_, ok = forStmt.SymbolTable.LookupLocal("i")
	assert.True(t, ok)
}

func TestCollectRejectsRedeclarationInSameScope(t *testing.T) {
	_, err := func() (*DeclFunction, error) {
		tokens, err := Lex(`int x; int x;`)
		require.NoError(t, err)
		program, err := Parse(tokens)
		require.NoError(t, err)
		return Collect(program, NewLabelGenerator())
	}()
	require.Error(t, err)
	ce, ok := asCompileError(err)
	require.True(t, ok)
	assert.Equal(t, PhaseSymbolCollect, ce.Phase)
	assert.Equal(t, "Redeclaration of function 'x' in the same scope.", ce.Msg)
}

func TestCollectAllowsShadowingInNestedScope(t *testing.T) {
	root := parseAndCollect(t, `int x; if (1) { int x; x = 2; }`)
	ifStmt := root.Body.Stmts[0].(*StatementIfThenElse)
	_, ok := ifStmt.SymbolTableThen.LookupLocal("x")
	assert.True(t, ok, "shadowing an outer name in a nested scope is legal")
}
