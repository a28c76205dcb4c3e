package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	tokens, err := Lex("int x; if while for")
	require.NoError(t, err)

	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{INT, IDENTIFIER, SEMICOLON, IF, WHILE, FOR, EOF}, types)
}

func TestLexIntAndFloatLiterals(t *testing.T) {
	tokens, err := Lex("42 3.14 7")
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, INT_LIT, tokens[0].Type)
	assert.Equal(t, "42", tokens[0].Lexeme)
	assert.Equal(t, FLOAT_LIT, tokens[1].Type)
	assert.Equal(t, "3.14", tokens[1].Lexeme)
	assert.Equal(t, INT_LIT, tokens[2].Type)
}

func TestLexTwoCharOperatorsDoNotGreedilyConsumeSingleChar(t *testing.T) {
	tokens, err := Lex("< <= > >= == != =")
	require.NoError(t, err)
	var types []TokenType
	for _, tok := range tokens[:len(tokens)-1] {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{LESS, LESS_EQ, GREATER, GREATER_EQ, EQUALS, NOT_EQ, ASSIGN}, types)
}

func TestLexSkipsLineComments(t *testing.T) {
	tokens, err := Lex("int x; # this is a comment\nint y;")
	require.NoError(t, err)
	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{INT, IDENTIFIER, SEMICOLON, INT, IDENTIFIER, SEMICOLON, EOF}, types)
}

func TestLexTracksLineNumbers(t *testing.T) {
	tokens, err := Lex("int x;\nint y;\nint z;")
	require.NoError(t, err)
	require.True(t, len(tokens) >= 9)
	assert.Equal(t, 2, tokens[3].Line)
	assert.Equal(t, 3, tokens[6].Line)
}

func TestLexRejectsUnexpectedCharacter(t *testing.T) {
	_, err := Lex("int x; @ int y;")
	require.Error(t, err)
	ce, ok := asCompileError(err)
	require.True(t, ok)
	assert.Equal(t, PhaseLexical, ce.Phase)
}

func TestLexRejectsLoneBang(t *testing.T) {
	_, err := Lex("x ! y")
	require.Error(t, err)
	ce, ok := asCompileError(err)
	require.True(t, ok)
	assert.Equal(t, PhaseLexical, ce.Phase)
}
