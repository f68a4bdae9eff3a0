package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writewhisker/whisker-core/ast"
)

func TestParseInline_BoldItalicCodeAndInterpolation(t *testing.T) {
	nodes := ParseInline("Hello **$name**, you have `$gold` gold and _tired_ legs.")
	require.NotEmpty(t, nodes)

	var sawBold, sawCode, sawItalic bool
	for _, n := range nodes {
		switch n.Kind {
		case ast.InlineBold:
			sawBold = true
			require.Len(t, n.Children, 1)
			assert.Equal(t, ast.InlineVarInterp, n.Children[0].Kind)
			assert.Equal(t, "name", n.Children[0].Name)
		case ast.InlineCode:
			sawCode = true
			assert.Equal(t, "$gold", n.Text)
		case ast.InlineItalic:
			sawItalic = true
		}
	}
	assert.True(t, sawBold, "expected a bold node wrapping the $name interpolation")
	assert.True(t, sawCode, "expected an inline code node")
	assert.True(t, sawItalic, "expected an italic node")
}

func TestParseInline_Hook(t *testing.T) {
	nodes := ParseInline("The door [door: is ajar] creaks.")
	require.Len(t, nodes, 3)
	assert.Equal(t, ast.InlineHook, nodes[1].Kind)
	assert.Equal(t, "door", nodes[1].Name)
	assert.Equal(t, "is ajar", nodes[1].Text)
}

func TestParseBlocks_FencedCodeAndMedia(t *testing.T) {
	src := "Intro line.\n\n```lua\nprint(1)\nprint(2)\n```\n\n!image[cover](art.png)\n---\n> a quote\n- a list item\n"
	blocks := ParseBlocks(src)

	kinds := make([]ast.BlockKind, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind
	}
	assert.Equal(t, []ast.BlockKind{
		ast.BlockParagraph,
		ast.BlockFencedCode,
		ast.BlockImage,
		ast.BlockHorizontalRule,
		ast.BlockQuote,
		ast.BlockListItem,
	}, kinds)

	for _, b := range blocks {
		if b.Kind == ast.BlockFencedCode {
			assert.Equal(t, "lua", b.Lang)
			assert.Equal(t, "print(1)\nprint(2)", b.Text)
		}
		if b.Kind == ast.BlockImage {
			assert.Equal(t, "cover", b.Text)
			assert.Equal(t, "art.png", b.URL)
		}
	}
}

func TestParseHookOps(t *testing.T) {
	ops := ParseHookOps(`Text. (show: "lantern") more text (hide: "lantern", "torch")`)
	require.Len(t, ops, 2)
	assert.Equal(t, "show", ops[0].Op)
	assert.Equal(t, []string{"lantern"}, ops[0].Args)
	assert.Equal(t, "hide", ops[1].Op)
	assert.Equal(t, []string{"lantern", "torch"}, ops[1].Args)
}

func TestParseContent_MatchesBlocksAndHookOps(t *testing.T) {
	raw := "Door creaks. (show: \"lantern\")\n\nSecond paragraph."
	blocks, ops := ParseContent(raw)
	assert.Len(t, blocks, 2)
	require.Len(t, ops, 1)
	assert.Equal(t, "show", ops[0].Op)
}

func TestParse_PassageCarriesParsedContent(t *testing.T) {
	src := `:: Start
The door (show: "lantern") creaks open.

A second paragraph with **bold** text.
`
	st, _ := Parse(src, "test.wls")
	pg, ok := st.PassageByName("Start")
	require.True(t, ok)
	require.NotEmpty(t, pg.ParsedContent)
	require.Len(t, pg.HookOps, 1)
	assert.Equal(t, "show", pg.HookOps[0].Op)
}
