package parse

import (
	"regexp"
	"strings"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/scan"
	"github.com/writewhisker/whisker-core/token"
)

var inlineBlockPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// ExtractFlow walks a passage's raw body to pull out its choices, gathers
// and tunnel calls (spec §3 Choice/Gather/Tunnel call, §4.2 step 4). It
// drives its own scan.Scanner over the body text and classifies each line
// from the scanner's own choice-context token stream (spec §4.1) rather
// than inspecting raw characters itself, so a line is only ever read as a
// choice or gather when the scanner's context rule agrees — the same rule
// that keeps inline markup like "**bold**" from being misread as a sticky
// choice marker. It runs as its own pass over the already-isolated body
// text rather than sharing the top-level token stream, since flow markup
// is scoped entirely within one passage and never needs to coordinate
// with declarations or other passages. It is exported so the incremental
// parser (C7) can re-run it alone against a single edited passage.
func ExtractFlow(raw string, pg *ast.Passage, diags *diag.Bag, uri string) {
	indentWidths := lineIndentWidths(raw)
	baseLine := pg.Span.Start.Line + 1

	// The scanner's own lexical diagnostics (e.g. invalid UTF-8) would
	// carry body-relative rather than document-absolute positions here,
	// since it only ever sees the isolated passage body; it is given a
	// throwaway bag rather than risk misreporting a location through the
	// real diags.
	sc := scan.New(raw, uri, &diag.Bag{})
	line := 0
	tt := sc.NextToken()
	for tt != token.EOFToken {
		switch tt {
		case token.NewlineToken:
			line++
			tt = sc.NextToken()
			continue

		case token.IndentToken:
			tt = sc.NextToken()
			continue

		case token.ChoiceOnceToken, token.ChoiceStickyToken:
			kind := ast.ChoiceOnce
			if tt == token.ChoiceStickyToken {
				kind = ast.ChoiceSticky
			}
			marker := tt
			runLen := 1
			nt := sc.NextToken()
			for nt == marker {
				runLen++
				nt = sc.NextToken()
			}
			body, nt := restOfLine(sc, raw, nt)
			pos := token.Pos{URI: uri, Line: baseLine + line, Col: indentWidths[line] + 1}
			choice := parseChoiceBody(body, indentWidths[line]/2+runLen-1, kind, pos)
			if choice.Target == "" && choice.Text == "" {
				diags.Warnf(diag.LnkEmptyChoiceTarget, pos, "choice has neither text nor target")
			}
			pg.Choices = append(pg.Choices, choice)
			tt = nt
			continue

		case token.GatherToken:
			runLen := 1
			nt := sc.NextToken()
			for nt == token.GatherToken {
				runLen++
				nt = sc.NextToken()
			}
			body, nt := restOfLine(sc, raw, nt)
			pos := token.Pos{URI: uri, Line: baseLine + line, Col: indentWidths[line] + 1}
			pg.Gathers = append(pg.Gathers, ast.Gather{
				Depth:   indentWidths[line]/2 + runLen - 1,
				Content: strings.TrimSpace(body),
				Pos:     pos,
			})
			tt = nt
			continue

		case token.ArrowToken:
			nt := sc.NextToken()
			body, nt := restOfLine(sc, raw, nt)
			target := strings.TrimSpace(body)
			if strings.HasSuffix(target, "->") {
				target = strings.TrimSpace(strings.TrimSuffix(target, "->"))
			}
			if target != "" {
				pg.TunnelCalls = append(pg.TunnelCalls, ast.TunnelCall{Target: target, Position: line})
			}
			tt = nt
			continue

		case token.TunnelReturnToken:
			pg.HasTunnelReturn = true
			_, nt := restOfLine(sc, raw, tt)
			tt = nt
			continue

		default:
			_, nt := restOfLine(sc, raw, tt)
			tt = nt
			continue
		}
	}
}

// restOfLine captures the raw text from the scanner's current position
// (just after whatever token produced "after") through the end of the
// current physical line, discarding the rest of that line's tokens so the
// scanner's state (prevType, atLineStart) lands correctly for the next
// line. It returns the captured text and the token that ended the scan
// (NEWLINE or EOF).
func restOfLine(sc *scan.Scanner, raw string, after token.Type) (string, token.Type) {
	start := sc.CurrentOffset()
	nt := after
	for nt != token.NewlineToken && nt != token.EOFToken {
		nt = sc.NextToken()
	}
	end := sc.CurrentOffset()
	if end > len(raw) {
		end = len(raw)
	}
	if start > end {
		start = end
	}
	return raw[start:end], nt
}

// lineIndentWidths returns, for each line index in raw, the count of
// leading space/tab bytes. Used only to measure choice/gather nesting
// depth alongside marker run length; line classification itself goes
// through the scanner's token stream, not this.
func lineIndentWidths(raw string) []int {
	lines := strings.Split(raw, "\n")
	widths := make([]int, len(lines))
	for i, l := range lines {
		widths[i] = len(l) - len(strings.TrimLeft(l, " \t"))
	}
	return widths
}

// parseChoiceBody splits a choice line's remainder into display text,
// divert target, and the optional inline `{if cond}` / `{do action}`
// blocks (spec §3 Choice).
func parseChoiceBody(body string, depth int, kind ast.ChoiceKind, pos token.Pos) ast.Choice {
	var condition, action string
	body = inlineBlockPattern.ReplaceAllStringFunc(body, func(m string) string {
		inner := strings.TrimSpace(m[1 : len(m)-1])
		switch {
		case strings.HasPrefix(inner, "if "):
			condition = strings.TrimSpace(strings.TrimPrefix(inner, "if "))
		case strings.HasPrefix(inner, "do "):
			action = strings.TrimSpace(strings.TrimPrefix(inner, "do "))
		}
		return ""
	})

	text, target := body, ""
	if idx := strings.Index(body, "->"); idx >= 0 {
		text = body[:idx]
		target = strings.TrimSpace(body[idx+2:])
	}
	return ast.Choice{
		Text:      unwrapChoiceText(text),
		Target:    target,
		Condition: condition,
		Action:    action,
		Kind:      kind,
		Depth:     depth,
		Span:      ast.Span{Start: pos, End: pos},
	}
}

// unwrapChoiceText strips the outer `[...]` wrapper a choice's display
// text is conventionally written in (spec §4.2, Testable Scenario 1) when
// present, then unescapes `\[`/`\]` to literal brackets either way — text
// that was never bracket-wrapped may still carry escaped brackets of its
// own (e.g. "the \[rusty\] key").
func unwrapChoiceText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	return unescapeChoiceBrackets(s)
}

func unescapeChoiceBrackets(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '[' || s[i+1] == ']') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
