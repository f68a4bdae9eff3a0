package parse

import (
	"regexp"
	"strings"

	"github.com/writewhisker/whisker-core/ast"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern = regexp.MustCompile(`(?:\*(.+?)\*|_(.+?)_)`)
	strikePattern = regexp.MustCompile(`~~(.+?)~~`)
	codePattern   = regexp.MustCompile("`([^`]+)`")
	hookPattern   = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*):\s*(.*?)\]`)
)

// ParseInline tokenizes a single line of prose into a flat
// ast.InlineNode sequence (spec §3 Rich text; C3). It is invoked both
// eagerly, via ParseContent against a whole passage body, and lazily by
// callers that only have a fragment of text in hand (a Choice's Text, a
// Gather's Content).
func ParseInline(text string) []ast.InlineNode {
	return parseInlineSegment(text)
}

type inlineMatch struct {
	start, end int
	node       ast.InlineNode
}

func parseInlineSegment(text string) []ast.InlineNode {
	candidates := []inlineMatch{}
	for _, m := range hookPattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, inlineMatch{m[0], m[1], ast.InlineNode{Kind: ast.InlineHook, Name: text[m[2]:m[3]], Text: text[m[4]:m[5]]}})
	}
	for _, m := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, inlineMatch{m[0], m[1], ast.InlineNode{Kind: ast.InlineBold, Children: parseInlineSegment(text[m[2]:m[3]])}})
	}
	for _, m := range strikePattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, inlineMatch{m[0], m[1], ast.InlineNode{Kind: ast.InlineStrikethrough, Children: parseInlineSegment(text[m[2]:m[3]])}})
	}
	for _, m := range codePattern.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, inlineMatch{m[0], m[1], ast.InlineNode{Kind: ast.InlineCode, Text: text[m[2]:m[3]]}})
	}
	for _, m := range italicPattern.FindAllStringSubmatchIndex(text, -1) {
		inner := m[2]
		innerEnd := m[3]
		if inner < 0 {
			inner, innerEnd = m[4], m[5]
		}
		candidates = append(candidates, inlineMatch{m[0], m[1], ast.InlineNode{Kind: ast.InlineItalic, Children: parseInlineSegment(text[inner:innerEnd])}})
	}

	// Resolve overlaps by preferring the earliest, then longest match —
	// a simple greedy scan is sufficient since WLS rich text never
	// requires full CommonMark-grade ambiguity resolution (spec §1
	// Non-goals).
	selected := []inlineMatch{}
	sortMatches(candidates)
	cursor := 0
	for _, c := range candidates {
		if c.start < cursor {
			continue
		}
		selected = append(selected, c)
		cursor = c.end
	}

	var out []ast.InlineNode
	pos := 0
	for _, c := range selected {
		if c.start > pos {
			out = append(out, plainRun(text[pos:c.start])...)
		}
		out = append(out, c.node)
		pos = c.end
	}
	if pos < len(text) {
		out = append(out, plainRun(text[pos:])...)
	}
	return out
}

func sortMatches(ms []inlineMatch) {
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && (ms[j].start < ms[j-1].start ||
			(ms[j].start == ms[j-1].start && ms[j].end > ms[j-1].end)); j-- {
			ms[j], ms[j-1] = ms[j-1], ms[j]
		}
	}
}

var interpPattern = regexp.MustCompile(`\$(\{[^}]*\}|_[A-Za-z0-9_]+|[A-Za-z_][A-Za-z0-9_]*)`)

// plainRun splits a literal (non-markup) run further into text and
// variable-interpolation nodes, since `$name`/`$_temp`/`${expr}` may
// appear inside otherwise-plain prose.
func plainRun(text string) []ast.InlineNode {
	idxs := interpPattern.FindAllStringSubmatchIndex(text, -1)
	if len(idxs) == 0 {
		if text == "" {
			return nil
		}
		return []ast.InlineNode{{Kind: ast.InlineText, Text: text}}
	}
	var out []ast.InlineNode
	pos := 0
	for _, m := range idxs {
		if m[0] > pos {
			out = append(out, ast.InlineNode{Kind: ast.InlineText, Text: text[pos:m[0]]})
		}
		payload := text[m[2]:m[3]]
		switch {
		case strings.HasPrefix(payload, "{"):
			out = append(out, ast.InlineNode{Kind: ast.InlineExprInterp, Name: payload[1 : len(payload)-1]})
		case strings.HasPrefix(payload, "_"):
			out = append(out, ast.InlineNode{Kind: ast.InlineTempVarInterp, Name: payload})
		default:
			out = append(out, ast.InlineNode{Kind: ast.InlineVarInterp, Name: payload})
		}
		pos = m[1]
	}
	if pos < len(text) {
		out = append(out, ast.InlineNode{Kind: ast.InlineText, Text: text[pos:]})
	}
	return out
}

var (
	hrPattern    = regexp.MustCompile(`^-{3,}$`)
	mediaPattern = regexp.MustCompile(`^!(image|audio|video|embed)\[(.*?)\]\((.*?)\)$`)
	fenceOpen    = regexp.MustCompile("^```\\s*([A-Za-z0-9_+-]*)\\s*$")
)

// ParseBlocks splits text into block-level nodes (spec §3 Rich text,
// media directives). Fenced code blocks are recognized across lines;
// everything else is one block per non-blank line.
func ParseBlocks(text string) []ast.BlockNode {
	lines := strings.Split(text, "\n")
	var out []ast.BlockNode
	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			i++
			continue
		case fenceOpen.MatchString(trimmed):
			lang := fenceOpen.FindStringSubmatch(trimmed)[1]
			var body []string
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) != "```" {
				body = append(body, lines[i])
				i++
			}
			i++ // consume closing fence
			out = append(out, ast.BlockNode{Kind: ast.BlockFencedCode, Lang: lang, Text: strings.Join(body, "\n")})
		case hrPattern.MatchString(trimmed):
			out = append(out, ast.BlockNode{Kind: ast.BlockHorizontalRule})
			i++
		case mediaPattern.MatchString(trimmed):
			m := mediaPattern.FindStringSubmatch(trimmed)
			kind := map[string]ast.BlockKind{"image": ast.BlockImage, "audio": ast.BlockAudio, "video": ast.BlockVideo, "embed": ast.BlockEmbed}[m[1]]
			out = append(out, ast.BlockNode{Kind: kind, Text: m[2], URL: m[3]})
			i++
		case strings.HasPrefix(trimmed, "> "):
			body := strings.TrimPrefix(trimmed, "> ")
			out = append(out, ast.BlockNode{Kind: ast.BlockQuote, Text: body, Inline: ParseInline(body)})
			i++
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			body := trimmed[2:]
			out = append(out, ast.BlockNode{Kind: ast.BlockListItem, Text: body, Inline: ParseInline(body)})
			i++
		default:
			out = append(out, ast.BlockNode{Kind: ast.BlockParagraph, Text: trimmed, Inline: ParseInline(trimmed)})
			i++
		}
	}
	return out
}

var hookOpPattern = regexp.MustCompile(`\((show|hide|toggle|replace|append|prepend):\s*(.*?)\)`)

// ParseHookOps scans text for `(op: args)` hook-operation calls.
func ParseHookOps(text string) []ast.HookOp {
	var out []ast.HookOp
	for _, m := range hookOpPattern.FindAllStringSubmatch(text, -1) {
		var args []string
		for _, a := range strings.Split(m[2], ",") {
			a = strings.TrimSpace(a)
			a = strings.Trim(a, `"'`)
			if a != "" {
				args = append(args, a)
			}
		}
		out = append(out, ast.HookOp{Op: m[1], Args: args})
	}
	return out
}

// ParseContent runs the Content Parser (C3) over a passage's full raw
// body, producing the block/inline tree and hook-operation list a
// renderer consumes (spec §4.2 step 4 "content extraction", §4.7 step 5
// "refresh parsed_content"). It is the single entry point both the
// structural parser and the incremental re-parser call — so a passage's
// ParsedContent/HookOps are never more stale than its Choices/Gathers.
func ParseContent(raw string) (blocks []ast.BlockNode, hookOps []ast.HookOp) {
	return ParseBlocks(raw), ParseHookOps(raw)
}
