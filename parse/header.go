package parse

import (
	"fmt"
	"strings"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/token"
)

// recognizedHeaderKeys mirrors RecognizedSettingKeys' role but for the
// `@key: value` header directives of spec §3 Metadata/§4.2 step 1; any
// other directive name is preserved verbatim in Metadata.Extra rather
// than rejected, since hosts are free to carry custom front-matter.
var recognizedHeaderKeys = map[string]bool{
	"title": true, "author": true, "version": true, "ifid": true,
	"description": true, "created": true, "modified": true,
	"theme": true, "fallback": true, "seed": true, "tags": true,
	"start": true, "var": true,
}

// parseHeader consumes the leading run of `@key: value` directives (spec
// §4.2 step 1). It stops at the first non-DIRECTIVE, non-trivia token.
func (p *parser) parseHeader() {
	for {
		p.skipTrivia()
		if p.tt != token.DirectiveToken {
			return
		}
		name := p.sc.DirectiveName()
		value := p.sc.DirectiveValue()
		pos := p.currentPos()
		p.applyHeaderDirective(strings.ToLower(name), value, pos)
		p.advance()
	}
}

func (p *parser) applyHeaderDirective(name, value string, pos token.Pos) {
	m := &p.story.Metadata
	switch name {
	case "title":
		m.Title = value
	case "author":
		m.Author = value
	case "version":
		m.Version = value
	case "ifid":
		m.IFID = value
		if !ast.ValidIFID(value) {
			m.IFIDInvalid = true
			msg := fmt.Sprintf("IFID %q is not a canonical UUID (%s)", value, ast.IFIDMask)
			p.diags.Add(diag.New(diag.Warning, diag.MetaInvalidIFID, pos, msg).WithSuggestion(ast.NewIFID()))
		}
	case "description":
		m.Description = value
	case "created":
		m.Created = value
	case "modified":
		m.Modified = value
	case "theme":
		m.Theme = value
	case "fallback":
		m.Fallback = value
	case "seed":
		m.Seed = value
	case "tags":
		for _, t := range strings.Split(value, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				m.Tags = append(m.Tags, t)
			}
		}
	case "start":
		p.pendingStartName = strings.TrimSpace(value)
	case "var":
		p.applyHeaderVar(value, pos)
	default:
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[name] = value
	}
}

// applyHeaderVar parses the single-line `@var: name = expr` form (spec
// §4.2 Open Question: one-line vs. split-line `@vars`; both are accepted,
// normalized to a Variable exactly as the indented form would produce).
func (p *parser) applyHeaderVar(value string, pos token.Pos) {
	eq := strings.Index(value, "=")
	if eq < 0 {
		p.diags.Errorf(diag.SynMissingEquals, pos, "@var directive missing '='")
		return
	}
	name := strings.TrimSpace(value[:eq])
	rest := value[eq+1:]
	p.addVariableFromLiteral(name, rest, pos.Line)
}

func (p *parser) addVariableFromLiteral(name, rest string, line int) {
	kind, s, n, b := parseLiteral(rest)
	v := &ast.Variable{Name: name, DeclaredLine: line, HasDefault: true}
	switch kind {
	case "bool":
		v.Type = ast.TypeBoolean
		v.Default = ast.BoolValue(b)
	case "number":
		v.Type = ast.TypeFloat
		v.Default = ast.NumberValue(n)
	default:
		v.Type = ast.TypeString
		v.Default = ast.StringValue(s)
	}
	p.story.AddVariable(v)
}

// parseVarsBlock consumes an optional `@vars` block: the VARS_START
// token followed by a run of indented `name: value` lines (spec §3
// Variable declaration, §4.2 step 2).
func (p *parser) parseVarsBlock() {
	p.skipTrivia()
	if p.tt != token.VarsStartToken {
		return
	}
	p.advance()
	for {
		p.skipPlainNewlines()
		if p.tt != token.IndentToken {
			return
		}
		p.advance() // past indent
		if p.tt != token.TextToken {
			p.skipToNextLine()
			continue
		}
		name := p.sc.Token()
		line := p.currentPos().Line
		p.advance()
		p.skipInline()
		if p.tt != token.ColonToken {
			p.skipToNextLine()
			continue
		}
		// still on ':', so the scanner cursor sits right after it
		raw := p.sc.RestOfLineRaw()
		p.addVariableFromLiteral(name, raw, line)
		p.advance() // resync token stream past the line we hand-scanned
	}
}

// skipPlainNewlines advances past NEWLINE tokens only, leaving INDENT (if
// any) for the caller to inspect — unlike skipTrivia, which would also
// consume the INDENT that distinguishes a vars-block line from the first
// unindented line that ends the block.
func (p *parser) skipPlainNewlines() {
	for p.tt == token.NewlineToken {
		p.advance()
	}
}
