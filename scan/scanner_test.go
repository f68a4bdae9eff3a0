package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/token"
)

func scanAll(t *testing.T, input string) []Token {
	t.Helper()
	diags := &diag.Bag{}
	s := New(input, "test.wls", diags)
	var toks []Token
	for {
		tt := s.NextToken()
		toks = append(toks, Token{Type: tt, Value: s.Value(), Start: s.Start(), Stop: s.Stop()})
		if tt == token.EOFToken {
			break
		}
	}
	return toks
}

func tokenTypes(toks []Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestScanner_PassageMarkerAndDirective(t *testing.T) {
	toks := scanAll(t, "@title: My Story\n:: Start\n")
	types := tokenTypes(toks)
	require.Contains(t, types, token.DirectiveToken)
	require.Contains(t, types, token.PassageMarkerToken)
}

func TestScanner_ChoiceContextRule(t *testing.T) {
	// '+' at line start is a choice marker; '+' mid-expression is text.
	toks := scanAll(t, "+ Go north -> North\n")
	assert.Equal(t, token.ChoiceOnceToken, toks[0].Type)

	toks2 := scanAll(t, "a + b\n")
	foundPlusAsText := false
	for _, tok := range toks2 {
		if tok.Type == token.TextToken && tok.Value == "+" {
			foundPlusAsText = true
		}
	}
	assert.True(t, foundPlusAsText, "'+' mid-line should not be a choice token")
}

func TestScanner_BoldAtLineStartIsNotAChoiceMarker(t *testing.T) {
	// "**bold**" at true line start must not be misread as a two-level
	// sticky-choice marker: the second '*' has no whitespace/EOL after it.
	toks := scanAll(t, "**bold** text\n* A real choice -> Target\n")
	assert.NotEqual(t, token.ChoiceStickyToken, toks[0].Type, "leading '*' of \"**bold**\" is not a choice marker")

	var sawRealChoice bool
	for _, tok := range toks {
		if tok.Type == token.ChoiceStickyToken {
			sawRealChoice = true
		}
	}
	assert.True(t, sawRealChoice, "the real \"* A real choice\" line must still scan as a choice marker")
}

func TestScanner_MultiLevelChoiceMarkerRun(t *testing.T) {
	// "++" is one two-level once-only choice marker, not a once-only
	// marker followed by plain '+' text.
	toks := scanAll(t, "++ Deep choice -> Target\n")
	require.Equal(t, token.ChoiceOnceToken, toks[0].Type)
	require.Equal(t, token.ChoiceOnceToken, toks[1].Type)
	assert.NotEqual(t, token.TextToken, toks[1].Type)
}

func TestScanner_StringEscapes(t *testing.T) {
	toks := scanAll(t, `"hello \"world\""` + "\n")
	require.Equal(t, token.StringToken, toks[0].Type)
	assert.Equal(t, `hello "world"`, toks[0].Value)
}

func TestScanner_UnterminatedString(t *testing.T) {
	diags := &diag.Bag{}
	s := New(`"unterminated`, "test.wls", diags)
	tt := s.NextToken()
	assert.Equal(t, token.UnterminatedStringErrorToken, tt)
	assert.True(t, diags.HasErrors())
}

func TestScanner_VarInterpolation(t *testing.T) {
	toks := scanAll(t, "$health and $_temp and ${1+2}\n")
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, token.VarInterpToken, toks[0].Type)
	assert.Equal(t, "health", toks[0].Value)
}

func TestScanner_Keywords_OnlyAtLineStart(t *testing.T) {
	toks := scanAll(t, "LIST Foo: a, b\nx LIST y\n")
	assert.Equal(t, token.ListKeywordToken, toks[0].Type)

	// second "LIST" is not at line start, so it is plain text.
	sawKeywordMidLine := false
	for _, tok := range toks[5:] {
		if tok.Type == token.ListKeywordToken {
			sawKeywordMidLine = true
		}
	}
	assert.False(t, sawKeywordMidLine)
}

func TestScanner_ElifAndElseAndBlockClose(t *testing.T) {
	toks := scanAll(t, "{if x}a{elif y}b{else}c{/}\n")
	types := tokenTypes(toks)
	assert.Contains(t, types, token.ElifToken)
	assert.Contains(t, types, token.ElseToken)
	assert.Contains(t, types, token.BlockCloseToken)
}
