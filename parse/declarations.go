package parse

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/token"
)

// parseTopLevel is the C2 Structural Parser's main loop (spec §4.2 step
// 3): declarations and passages may appear in any order after the header
// and `@vars` block, and the loop runs until EOF.
func (p *parser) parseTopLevel() {
	for {
		p.skipTrivia()
		switch p.tt {
		case token.EOFToken:
			return
		case token.ListKeywordToken:
			p.parseListDecl()
		case token.ArrayKeywordToken:
			p.parseArrayDecl()
		case token.MapKeywordToken:
			p.parseMapDecl()
		case token.IncludeKeywordToken:
			p.parseIncludeDecl()
		case token.FunctionKeywordToken:
			p.parseFunctionDecl()
		case token.NamespaceKeywordToken:
			p.parseNamespaceOpen()
		case token.EndKeywordToken:
			p.parseNamespaceClose()
		case token.ThemeKeywordToken:
			p.parseThemeDecl()
		case token.StyleKeywordToken:
			p.parseStyleDecl()
		case token.PassageMarkerToken:
			p.parsePassage()
		default:
			p.diags.Warnf(diag.SynMissingName, p.currentPos(),
				"unexpected token %s at top level; skipping line", p.tt)
			p.skipToNextLine()
		}
	}
}

// expectName returns the current token's text if it is a TEXT token,
// else records a diagnostic and returns "".
func (p *parser) expectName(what string) (string, bool) {
	p.skipInline()
	if p.tt != token.TextToken {
		p.diags.Errorf(diag.SynMissingName, p.currentPos(), "expected %s name", what)
		return "", false
	}
	name := p.sc.Token()
	p.advance()
	return name, true
}

func (p *parser) parseListDecl() {
	p.advance() // past LIST
	name, ok := p.expectName("list")
	if !ok {
		p.skipToNextLine()
		return
	}
	p.skipInline()
	if p.tt != token.ColonToken {
		p.diags.Errorf(diag.SynMissingName, p.currentPos(), "expected ':' after list name %q", name)
		p.skipToNextLine()
		return
	}
	p.advance()
	l := &ast.List{Name: name}
	for p.tt != token.NewlineToken && p.tt != token.EOFToken {
		p.skipInline()
		active := false
		if p.tt == token.TextToken && p.sc.Token() == "*" {
			active = true
			p.advance()
		}
		itemName, ok := p.expectName("list item")
		if !ok {
			break
		}
		l.Items = append(l.Items, ast.ListItem{Name: itemName, Active: active})
		p.skipInline()
		if p.tt == token.CommaToken {
			p.advance()
			continue
		}
		break
	}
	p.story.Lists[name] = l
	p.skipToNextLine()
}

func (p *parser) parseArrayDecl() {
	p.advance() // past ARRAY
	name, ok := p.expectName("array")
	if !ok {
		p.skipToNextLine()
		return
	}
	p.skipInline()
	if p.tt != token.ColonToken {
		p.diags.Errorf(diag.SynMissingName, p.currentPos(), "expected ':' after array name %q", name)
		p.skipToNextLine()
		return
	}
	p.advance()
	arr := &ast.Array{Name: name}
	for {
		v, ok := p.parseValueToken()
		if !ok {
			break
		}
		arr.Values = append(arr.Values, v)
		p.skipInline()
		if p.tt == token.CommaToken {
			p.advance()
			continue
		}
		break
	}
	p.story.Arrays[name] = arr
	p.skipToNextLine()
}

// parseValueToken consumes one literal token (string/number/boolean/bare
// word) and returns its Value; ok is false when the current token is not
// a literal (end of list).
func (p *parser) parseValueToken() (ast.Value, bool) {
	p.skipInline()
	switch p.tt {
	case token.StringToken:
		v := ast.StringValue(p.sc.Value())
		p.advance()
		return v, true
	case token.NumberToken:
		_, _, n, _ := parseLiteral(p.sc.Token())
		v := ast.NumberValue(n)
		p.advance()
		return v, true
	case token.BooleanToken:
		v := ast.BoolValue(strings.EqualFold(p.sc.Token(), "true"))
		p.advance()
		return v, true
	case token.TextToken:
		v := ast.StringValue(p.sc.Token())
		p.advance()
		return v, true
	default:
		return ast.Value{}, false
	}
}

func (p *parser) parseMapDecl() {
	p.advance() // past MAP
	name, ok := p.expectName("map")
	if !ok {
		p.skipToNextLine()
		return
	}
	p.skipInline()
	if p.tt != token.ColonToken {
		p.diags.Errorf(diag.SynMissingName, p.currentPos(), "expected ':' after map name %q", name)
		p.skipToNextLine()
		return
	}
	p.advance()
	m := ast.NewMap(name)
	p.skipTrivia()
	p.skipInline()
	if p.tt == token.BlockStartToken {
		p.advance()
		for {
			p.skipTrivia()
			p.skipInline()
			if p.tt == token.BlockEndToken {
				p.advance()
				break
			}
			if p.tt == token.EOFToken {
				p.diags.Errorf(diag.SynMissingClosingBrace, p.currentPos(), "unterminated map %q", name)
				break
			}
			key, ok := p.expectName("map key")
			if !ok {
				break
			}
			p.skipInline()
			if p.tt != token.ColonToken {
				break
			}
			p.advance()
			v, ok := p.parseValueToken()
			if !ok {
				break
			}
			m.Set(key, v)
			p.skipInline()
			if p.tt == token.CommaToken {
				p.advance()
			}
		}
	}
	p.story.Maps[name] = m
	p.skipToNextLine()
}

func (p *parser) parseIncludeDecl() {
	p.advance() // past INCLUDE
	p.skipInline()
	if p.tt != token.StringToken {
		p.diags.Errorf(diag.SynMissingName, p.currentPos(), "expected quoted path after INCLUDE")
		p.skipToNextLine()
		return
	}
	path := p.sc.Value()
	p.story.Includes = append(p.story.Includes, &ast.Include{Path: path})
	p.advance()
	p.skipToNextLine()
}

func (p *parser) parseFunctionDecl() {
	p.advance() // past FUNCTION
	name, ok := p.expectName("function")
	if !ok {
		p.skipToSyncAnchor()
		return
	}
	var params []string
	p.skipInline()
	if p.tt == token.LeftParenToken {
		p.advance()
		for p.tt != token.RightParenToken && p.tt != token.EOFToken {
			p.skipInline()
			if p.tt == token.RightParenToken {
				break
			}
			if pname, ok := p.expectName("parameter"); ok {
				params = append(params, pname)
			} else {
				break
			}
			p.skipInline()
			if p.tt == token.CommaToken {
				p.advance()
			}
		}
		p.skipInline()
		if p.tt == token.RightParenToken {
			p.advance()
		}
	}
	p.skipToNextLine()
	bodyStart := p.sc.CurrentOffset()
	for p.tt != token.EndKeywordToken && p.tt != token.EOFToken {
		p.advance()
	}
	bodyEnd := p.sc.CurrentOffset()
	body := strings.TrimSpace(p.sc.RawBetween(bodyStart, bodyEnd))
	if p.tt == token.EndKeywordToken {
		p.advance()
		p.skipOptionalKeywordSuffix("FUNCTION")
	}

	qname, ns := p.qualify(name)
	fn := &ast.Function{Name: name, Params: params, Body: body, QualifiedName: qname, Namespace: ns}
	p.story.Functions[qname] = fn
	if ns != "" {
		if n, ok := p.story.Namespaces[ns]; ok {
			n.Functions = append(n.Functions, qname)
		}
	}
	p.skipToNextLine()
}

// skipOptionalKeywordSuffix consumes a trailing bare-word token matching
// word (case-insensitively), supporting the `END NAMESPACE` / `END
// FUNCTION` sugar form without requiring it (spec §4.4).
func (p *parser) skipOptionalKeywordSuffix(word string) {
	p.skipInline()
	if p.tt == token.TextToken && strings.EqualFold(strings.TrimSpace(p.sc.Token()), word) {
		p.advance()
	}
}

func (p *parser) parseNamespaceOpen() {
	p.advance() // past NAMESPACE
	name, ok := p.expectName("namespace")
	if !ok {
		p.skipToNextLine()
		return
	}
	if p.nestingGuard >= maxBlockNesting {
		p.diags.Errorf(diag.SynNestingTooDeep, p.currentPos(),
			"namespace nesting exceeds the maximum depth of %d; skipping %q", maxBlockNesting, name)
		p.skipToNextLine()
		return
	}

	qname, parent := p.qualify(name)
	ns := &ast.Namespace{Name: name, QualifiedName: qname, Parent: parent}
	p.story.Namespaces[qname] = ns
	if parent != "" {
		if pn, ok := p.story.Namespaces[parent]; ok {
			pn.Nested = append(pn.Nested, qname)
		}
	}
	p.nsStack = append(p.nsStack, norm.NFC.String(name))
	p.nestingGuard++
	p.skipToNextLine()
}

func (p *parser) parseNamespaceClose() {
	p.advance() // past END
	p.skipOptionalKeywordSuffix("NAMESPACE")
	if len(p.nsStack) == 0 {
		p.diags.Errorf(diag.ModUnmatchedEndNamespace, p.currentPos(), "unmatched END NAMESPACE")
		p.skipToNextLine()
		return
	}
	p.nsStack = p.nsStack[:len(p.nsStack)-1]
	if p.nestingGuard > 0 {
		p.nestingGuard--
	}
	p.skipToNextLine()
}

func (p *parser) parseThemeDecl() {
	p.advance() // past THEME
	name, ok := p.expectName("theme")
	if !ok {
		name = "default"
	}
	p.skipTrivia()
	p.skipInline()
	if p.tt != token.BlockStartToken {
		p.skipToNextLine()
		return
	}
	p.advance()
	start := p.sc.CurrentOffset()
	depth := 1
	for depth > 0 && p.tt != token.EOFToken {
		switch p.tt {
		case token.BlockStartToken:
			depth++
			if depth > maxBlockNesting {
				p.diags.Errorf(diag.SynNestingTooDeep, p.currentPos(),
					"brace nesting in THEME %q exceeds the maximum depth of %d", name, maxBlockNesting)
				p.skipToNextLine()
				return
			}
		case token.BlockEndToken:
			depth--
			if depth == 0 {
				break
			}
		}
		if depth == 0 {
			break
		}
		p.advance()
	}
	end := p.sc.CurrentOffset()
	p.story.Styles[name] = strings.TrimSpace(p.sc.RawBetween(start, end))
	if p.tt == token.BlockEndToken {
		p.advance()
	}
	p.skipToNextLine()
}

func (p *parser) parseStyleDecl() {
	p.advance() // past STYLE
	p.skipTrivia()
	p.skipInline()
	if p.tt != token.BlockStartToken {
		p.skipToNextLine()
		return
	}
	p.advance()
	start := p.sc.CurrentOffset()
	depth := 1
	for depth > 0 && p.tt != token.EOFToken {
		switch p.tt {
		case token.BlockStartToken:
			depth++
			if depth > maxBlockNesting {
				p.diags.Errorf(diag.SynNestingTooDeep, p.currentPos(),
					"brace nesting in STYLE exceeds the maximum depth of %d", maxBlockNesting)
				p.skipToNextLine()
				return
			}
		case token.BlockEndToken:
			depth--
			if depth == 0 {
				break
			}
		}
		if depth == 0 {
			break
		}
		p.advance()
	}
	end := p.sc.CurrentOffset()
	p.story.Styles["global"] = strings.TrimSpace(p.sc.RawBetween(start, end))
	if p.tt == token.BlockEndToken {
		p.advance()
	}
	p.skipToNextLine()
}
