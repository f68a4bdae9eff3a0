package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
)

func diagCodes(diags []diag.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestParse_HeaderAndVarsAndPassage(t *testing.T) {
	src := `@title: Test Story
@author: Someone
@ifid: 550E8400-E29B-41D4-A716-446655440000
@vars
  health: 10
  name: "Alex"

:: Start
Hello, $name!
+ Go north -> North
* Stay sticky -> Start

:: North
You arrive in the north.
`
	st, diags := Parse(src, "test.wls")
	require.NotNil(t, st)
	assert.Equal(t, "Test Story", st.Metadata.Title)
	assert.Equal(t, "Someone", st.Metadata.Author)
	assert.False(t, st.Metadata.IFIDInvalid)

	hv, ok := st.Variables["health"]
	require.True(t, ok)
	assert.Equal(t, ast.TypeFloat, hv.Type)

	nv, ok := st.Variables["name"]
	require.True(t, ok)
	assert.Equal(t, ast.TypeString, nv.Type)
	assert.Equal(t, "Alex", nv.Default.Str)

	start, ok := st.PassageByName("Start")
	require.True(t, ok)
	require.Len(t, start.Choices, 2)
	assert.Equal(t, "North", start.Choices[0].Target)
	assert.Equal(t, ast.ChoiceOnce, start.Choices[0].Kind)
	assert.Equal(t, ast.ChoiceSticky, start.Choices[1].Kind)

	for _, d := range diags {
		assert.NotEqual(t, diag.Error, d.Severity, "unexpected error diagnostic: %s", d.String())
	}
}

func TestParse_DanglingChoiceReference(t *testing.T) {
	src := `:: Start
+ Go nowhere -> Nowhere
`
	_, diags := Parse(src, "test.wls")
	require.Contains(t, diagCodes(diags), diag.RefUndefinedTarget)
}

func TestParse_DuplicatePassageName(t *testing.T) {
	src := `:: Room
First.

:: Room
Second.
`
	st, diags := Parse(src, "test.wls")
	require.Contains(t, diagCodes(diags), diag.StrDuplicatePassage)

	pg, ok := st.PassageByName("Room")
	require.True(t, ok)
	assert.Equal(t, "First.\n\n", pg.Content)
}

func TestParse_TunnelCallAndReturn(t *testing.T) {
	src := `:: Start
-> Detour ->
Back again.

:: Detour
A quick aside.
<-
`
	st, _ := Parse(src, "test.wls")
	start, ok := st.PassageByName("Start")
	require.True(t, ok)
	require.Len(t, start.TunnelCalls, 1)
	assert.Equal(t, "Detour", start.TunnelCalls[0].Target)

	detour, ok := st.PassageByName("Detour")
	require.True(t, ok)
	assert.True(t, detour.HasTunnelReturn)
}

func TestParse_InvalidIFID(t *testing.T) {
	src := `@ifid: not-a-real-ifid
:: Start
Hi.
`
	st, diags := Parse(src, "test.wls")
	assert.True(t, st.Metadata.IFIDInvalid)
	require.Contains(t, diagCodes(diags), diag.MetaInvalidIFID)
}

func TestParse_EscapedChoiceTextWithBrackets(t *testing.T) {
	src := `:: Start
+ [He said \[hello\]] -> Start
+ Pick up the \[rusty\] key -> Start
`
	result, _ := Parse(src, "test.wls")
	pg, ok := result.PassageByName("Start")
	require.True(t, ok)
	require.Len(t, pg.Choices, 2)
	assert.Equal(t, `He said [hello]`, pg.Choices[0].Text, "bracket-wrapped text loses its wrapper and unescapes")
	assert.Equal(t, `Pick up the [rusty] key`, pg.Choices[1].Text, "unwrapped text still unescapes its own brackets")
}

func TestParse_NamespaceNestingGuard(t *testing.T) {
	var b strings.Builder
	for i := 0; i <= maxBlockNesting; i++ {
		b.WriteString("NAMESPACE N\n")
	}
	b.WriteString(":: Start\nHi.\n")

	_, diags := Parse(b.String(), "test.wls")
	require.Contains(t, diagCodes(diags), diag.SynNestingTooDeep)
	for _, d := range diags {
		if d.Code == diag.SynNestingTooDeep {
			assert.Equal(t, diag.Error, d.Severity)
		}
	}
}

func TestParse_StyleBraceNestingGuard(t *testing.T) {
	var b strings.Builder
	b.WriteString("STYLE {\n")
	for i := 0; i < maxBlockNesting+1; i++ {
		b.WriteString("{\n")
	}
	for i := 0; i < maxBlockNesting+2; i++ {
		b.WriteString("}\n")
	}
	b.WriteString("\n:: Start\nHi.\n")

	_, diags := Parse(b.String(), "test.wls")
	require.Contains(t, diagCodes(diags), diag.SynNestingTooDeep)
}

func TestParse_NamespaceScoping(t *testing.T) {
	src := `NAMESPACE Chapter1
:: Intro
Welcome.
END NAMESPACE

:: Intro
Top-level intro.
`
	st, _ := Parse(src, "test.wls")
	nested, ok := st.PassageByName("Chapter1::Intro")
	require.True(t, ok)
	assert.Equal(t, "Chapter1", nested.Namespace)

	top, ok := st.PassageByName("Intro")
	require.True(t, ok)
	assert.Equal(t, "", top.Namespace)
}

func TestParse_ListArrayMapDeclarations(t *testing.T) {
	src := `LIST Inventory: sword, *shield, torch
ARRAY Scores: 1, 2, 3
MAP Config: { difficulty: "hard", seed: 42 }

:: Start
Hi.
`
	st, _ := Parse(src, "test.wls")

	l, ok := st.Lists["Inventory"]
	require.True(t, ok)
	require.Len(t, l.Items, 3)
	assert.True(t, l.Items[1].Active)

	arr, ok := st.Arrays["Scores"]
	require.True(t, ok)
	require.Len(t, arr.Values, 3)

	m, ok := st.Maps["Config"]
	require.True(t, ok)
	assert.Equal(t, "hard", m.Entries["difficulty"].Str)
	assert.Equal(t, float64(42), m.Entries["seed"].Num)
}
