package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexBasicMatch(t *testing.T) {
	toks, err := Lex(`MATCH (n:Person)-[:KNOWS]->(m) WHERE n.age > 21 RETURN n`)
	require.NoError(t, err)
	assert.Equal(t, []Kind{
		MATCH, LPAREN, IDENT, COLON, IDENT, RPAREN,
		DASH, LBRACKET, COLON, IDENT, RBRACKET, ARROW_TO, LPAREN, IDENT, RPAREN,
		WHERE, IDENT, DOT, IDENT, GT, INT,
		RETURN, IDENT, EOF,
	}, kinds(toks))
}

func TestLexKeywordsCaseInsensitive(t *testing.T) {
	toks, err := Lex(`match Where AnD true FALSE null`)
	require.NoError(t, err)
	require.Len(t, toks, 7)
	assert.Equal(t, MATCH, toks[0].Kind)
	assert.Equal(t, "MATCH", toks[0].Literal)
	assert.Equal(t, WHERE, toks[1].Kind)
	assert.Equal(t, AND, toks[2].Kind)
	assert.Equal(t, TRUE, toks[3].Kind)
	assert.Equal(t, FALSE, toks[4].Kind)
	assert.Equal(t, NULL, toks[5].Kind)
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := Lex(`"hello\nworld" 'it\'s'`)
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, "hello\nworld", toks[0].Literal)
	assert.Equal(t, "it's", toks[1].Literal)
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := Lex(`"unterminated`)
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
}

func TestLexNumbers(t *testing.T) {
	toks, err := Lex(`42 3.14 1.5e10 -7`)
	require.NoError(t, err)
	assert.Equal(t, INT, toks[0].Kind)
	assert.Equal(t, "42", toks[0].Literal)
	assert.Equal(t, FLOAT, toks[1].Kind)
	assert.Equal(t, "3.14", toks[1].Literal)
	assert.Equal(t, FLOAT, toks[2].Kind)
	assert.Equal(t, "1.5e10", toks[2].Literal)
	assert.Equal(t, DASH, toks[3].Kind)
	assert.Equal(t, INT, toks[4].Kind)
}

func TestLexParameter(t *testing.T) {
	toks, err := Lex(`$name $age1`)
	require.NoError(t, err)
	assert.Equal(t, PARAM, toks[0].Kind)
	assert.Equal(t, "name", toks[0].Literal)
	assert.Equal(t, PARAM, toks[1].Kind)
	assert.Equal(t, "age1", toks[1].Literal)
}

func TestLexParameterMissingName(t *testing.T) {
	_, err := Lex(`$`)
	require.Error(t, err)
}

func TestLexComparisonOperators(t *testing.T) {
	toks, err := Lex(`= <> < > <= >=`)
	require.NoError(t, err)
	assert.Equal(t, []Kind{EQ, NEQ, LT, GT, LTE, GTE, EOF}, kinds(toks))
}

func TestLexLineComment(t *testing.T) {
	toks, err := Lex("MATCH (n) // this is ignored\nRETURN n")
	require.NoError(t, err)
	assert.Equal(t, []Kind{MATCH, LPAREN, IDENT, RPAREN, RETURN, IDENT, EOF}, kinds(toks))
}

func TestLexPositionTracking(t *testing.T) {
	toks, err := Lex("MATCH\n  (n)")
	require.NoError(t, err)
	require.True(t, len(toks) >= 2)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
}

func TestLexUnexpectedCharacter(t *testing.T) {
	_, err := Lex(`MATCH (n) ~ RETURN n`)
	require.Error(t, err)
}

func TestLexEmptyInput(t *testing.T) {
	toks, err := Lex("")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, EOF, toks[0].Kind)
}
