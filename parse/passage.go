package parse

import (
	"strings"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/token"
)

// passageMetaKeys mirrors recognizedHeaderKeys for the per-passage
// directive lines read right after `:: Name` (spec §4.2 step 4).
var passageMetaKeys = map[string]bool{
	"position": true, "color": true, "notes": true,
	"fallback": true, "onenter": true, "onexit": true, "tags": true,
}

// parsePassage consumes one `:: Name [tag1 tag2]` marker, its optional
// meta-directive lines, and its body up to the next passage marker or
// EOF, or, inside a namespace, up to the `END` that closes it (spec §3
// Passage, §4.2 step 4, C3 content extraction).
func (p *parser) parsePassage() {
	startPos := p.currentPos()
	p.advance() // past '::'
	name, ok := p.expectName("passage")
	if !ok {
		p.skipToSyncAnchor()
		return
	}

	var tags []string
	for {
		p.skipInline()
		if p.tt != token.TextToken {
			break
		}
		tags = append(tags, p.sc.Token())
		p.advance()
	}

	qname, ns := p.qualify(name)
	id := p.story.NextPassageID(qname)
	pg := ast.NewPassage(id, name, qname, ns)
	pg.Tags = tags
	pg.Span.Start = startPos

	p.skipPlainNewlines()
	p.parsePassageMeta(pg)

	bodyStart := p.sc.CurrentOffset()
	for p.tt != token.PassageMarkerToken && p.tt != token.EOFToken {
		if p.tt == token.EndKeywordToken && len(p.nsStack) > 0 {
			break // `END NAMESPACE` belongs to the top-level loop
		}
		p.advance()
	}
	bodyEnd := p.sc.CurrentOffset()
	pg.Span.End = p.currentPos()
	raw := p.sc.RawBetween(bodyStart, bodyEnd)
	pg.Content = raw

	ExtractFlow(raw, pg, p.diags, p.sc.URI())
	pg.ParsedContent, pg.HookOps = ParseContent(raw)

	if _, exists := p.story.PassageByName(qname); exists {
		p.diags.Warnf(diag.StrDuplicatePassage, startPos, "duplicate passage name %q; first occurrence wins", qname)
	}
	if err := p.story.AddPassage(pg); err != nil {
		// id collision is an internal invariant violation, not a
		// source-level defect; surface it rather than silently drop it.
		p.diags.Errorf(diag.StrDuplicatePassage, startPos, "%v", err)
	}
	if ns != "" {
		if n, ok := p.story.Namespaces[ns]; ok {
			n.Passages = append(n.Passages, qname)
		}
	}
}

// parsePassageMeta consumes the run of indented `key: value` lines that
// may immediately follow a passage marker (spec §4.2 step 4), the same
// shape as the `@vars` block's lines.
func (p *parser) parsePassageMeta(pg *ast.Passage) {
	for p.tt == token.IndentToken {
		p.advance()
		if p.tt != token.TextToken {
			p.skipToNextLine()
			continue
		}
		key := strings.ToLower(p.sc.Token())
		if !passageMetaKeys[key] {
			p.skipToNextLine()
			continue
		}
		p.advance()
		p.skipInline()
		if p.tt != token.ColonToken {
			p.skipToNextLine()
			continue
		}
		p.advance()
		value := p.sc.RestOfLineRaw()
		p.applyPassageMeta(pg, key, value)
		p.advance()
		p.skipPlainNewlines()
	}
}

func (p *parser) applyPassageMeta(pg *ast.Passage, key, value string) {
	switch key {
	case "position":
		pg.Meta.Position = value
	case "color":
		pg.Meta.Color = value
	case "notes":
		pg.Meta.Notes = value
	case "fallback":
		pg.Meta.Fallback = value
	case "onenter":
		pg.Meta.OnEnter = value
	case "onexit":
		pg.Meta.OnExit = value
	case "tags":
		for _, t := range strings.Split(value, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				pg.Tags = append(pg.Tags, t)
			}
		}
	default:
		if pg.Meta.Extra == nil {
			pg.Meta.Extra = make(map[string]string)
		}
		pg.Meta.Extra[key] = value
	}
}
