package compiler

import "fmt"

// TokenType identifies the category of a lexed token. Each comparison
// operator maps to one ILOC conditional jump (JE/JNE/...) through
// CondFromToken in ir.go.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	IDENTIFIER // variable / function name
	INT_LIT    // decimal integer literal
	FLOAT_LIT  // decimal float literal, e.g. 1.0

	// Keywords
	INT
	FLOAT
	BOOL
	VOID
	PRINT
	RETURN
	IF
	ELSE
	WHILE
	FOR

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /

	// Assignment / comparison
	ASSIGN  // =
	EQUALS  // ==
	NOT_EQ  // !=
	LESS    // <
	GREATER // >
	LESS_EQ // <=
	GREATER_EQ
)

var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INT_LIT:    "INT_LIT",
	FLOAT_LIT:  "FLOAT_LIT",
	INT:        "INT",
	FLOAT:      "FLOAT",
	BOOL:       "BOOL",
	VOID:       "VOID",
	PRINT:      "PRINT",
	RETURN:     "RETURN",
	IF:         "IF",
	ELSE:       "ELSE",
	WHILE:      "WHILE",
	FOR:        "FOR",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	ASSIGN:     "ASSIGN",
	EQUALS:     "EQUALS",
	NOT_EQ:     "NOT_EQ",
	LESS:       "LESS",
	GREATER:    "GREATER",
	LESS_EQ:    "LESS_EQ",
	GREATER_EQ: "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsComparison reports whether tt is one of the six comparison operators,
// the only class of token that CondFromToken in ir.go maps to an ILOC
// conditional jump.
func (tt TokenType) IsComparison() bool {
	switch tt {
	case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
		return true
	}
	return false
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // exact source text that was matched
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-10q line %d", t.Type, t.Lexeme, t.Line)
}
