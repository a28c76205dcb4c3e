package compiler

import (
	"fmt"
	"strings"
)

// DotWriter renders the annotated AST and a function's symbol-table
// chain as Graphviz .dot source (spec.md section 4.11, debug-only).
// Each node gets a unique id so repeated structurally-identical
// subtrees (e.g. two "return;" statements) still render as distinct
// graph nodes.
type DotWriter struct {
	sb      strings.Builder
	counter int
}

func newDotWriter() *DotWriter { return &DotWriter{} }

func (w *DotWriter) next() string {
	w.counter++
	return fmt.Sprintf("n%d", w.counter)
}

func (w *DotWriter) node(id, label string) {
	fmt.Fprintf(&w.sb, "  %s [label=%q];\n", id, label)
}

func (w *DotWriter) edge(from, to string) {
	fmt.Fprintf(&w.sb, "  %s -> %s;\n", from, to)
}

// DotAST renders root as a single Graphviz digraph named title.
func DotAST(root *DeclFunction, title string) string {
	w := newDotWriter()
	w.sb.WriteString("digraph " + title + " {\n")
	w.sb.WriteString("  node [shape=box,fontname=monospace];\n")
	w.function(root)
	w.sb.WriteString("}\n")
	return w.sb.String()
}

func (w *DotWriter) function(fn *DeclFunction) string {
	id := w.next()
	w.node(id, fmt.Sprintf("Function %s %s(%v)\\nstart=%s end=%s",
		fn.Type, fn.Name, fn.Params, fn.StartLabel, fn.EndLabel))
	bodyID := w.body(fn.Body)
	w.edge(id, bodyID)
	return id
}

func (w *DotWriter) body(b *Body) string {
	id := w.next()
	w.node(id, fmt.Sprintf("Body\\nnumVars=%d", b.NumVars))
	for _, d := range b.Decls {
		if nested, ok := d.(*DeclFunction); ok {
			w.edge(id, w.function(nested))
			continue
		}
		declID := w.next()
		w.node(declID, d.String())
		w.edge(id, declID)
	}
	for _, s := range b.Stmts {
		w.edge(id, w.stmt(s))
	}
	return id
}

func (w *DotWriter) stmt(s Stmt) string {
	switch stmt := s.(type) {
	case *StatementIfThenElse:
		id := w.next()
		w.node(id, fmt.Sprintf("If\\nelse=%s esle=%s", stmt.ElseLabel, stmt.EsleLabel))
		w.edge(id, w.expr(stmt.Exp))
		w.edge(id, w.body(stmt.Then))
		if stmt.Else != nil {
			w.edge(id, w.body(stmt.Else))
		}
		return id

	case *StatementWhile:
		id := w.next()
		w.node(id, fmt.Sprintf("While\\nwhile=%s elihw=%s", stmt.WhileLabel, stmt.ElihwLabel))
		w.edge(id, w.expr(stmt.Exp))
		w.edge(id, w.body(stmt.Body))
		return id

	case *StatementFor:
		id := w.next()
		w.node(id, fmt.Sprintf("For\\nfor=%s rof=%s", stmt.ForLabel, stmt.RofLabel))
		iterID := w.next()
		w.node(iterID, stmt.Iter.String())
		w.edge(id, iterID)
		w.edge(id, w.expr(stmt.Exp))
		w.edge(id, w.expr(stmt.Assign.Rhs))
		w.edge(id, w.body(stmt.Body))
		return id

	default:
		id := w.next()
		w.node(id, s.String())
		return id
	}
}

func (w *DotWriter) expr(e Expr) string {
	id := w.next()
	switch expr := e.(type) {
	case *ExpressionBinop:
		w.node(id, fmt.Sprintf("Binop %s", expr.Op))
		w.edge(id, w.expr(expr.Lhs))
		w.edge(id, w.expr(expr.Rhs))
	case *ExpressionCall:
		w.node(id, fmt.Sprintf("Call %s", expr.Name))
		for _, arg := range expr.ExpList {
			w.edge(id, w.expr(arg))
		}
	default:
		w.node(id, e.String())
	}
	return id
}

// DotSymbolTable renders scope and every ancestor as a chain of cluster
// subgraphs, one per lexical level. Each scope is a single node labeled
// with its symbol dump, and an edge links each scope to the next deeper
// one.
func DotSymbolTable(scope *SymbolTable, title string) string {
	w := newDotWriter()
	w.sb.WriteString("digraph " + title + " {\n")
	w.sb.WriteString("  node [shape=plaintext,fontname=monospace];\n")

	var levels []*SymbolTable
	for s := scope; s != nil; s = s.Parent {
		levels = append(levels, s)
	}
	var prevID string
	for i := len(levels) - 1; i >= 0; i-- {
		t := levels[i]
		id := fmt.Sprintf("scope_%d", t.Level)
		fmt.Fprintf(&w.sb, "  subgraph cluster_%d {\n    label=\"level %d\";\n", t.Level, t.Level)
		fmt.Fprintf(&w.sb, "    %s [label=%q];\n", id, t.String())
		w.sb.WriteString("  }\n")
		if prevID != "" {
			w.edge(prevID, id)
		}
		prevID = id
	}
	w.sb.WriteString("}\n")
	return w.sb.String()
}
