// Package parse implements the Structural Parser (C2), Content Parser
// (C3), Module & Namespace Resolver (C4) and Semantic Validator (C5) from
// spec §4.2-§4.5, assembling a *ast.Story from WLS source text.
//
// Following the teacher's convention in sqlparser.Parse/Document.Parse:
// functions are documented to expect the scanner positioned on what they
// consume, and on return leave it positioned at the token that starts the
// next construct. Recovery on a syntax error skips to the next line or to
// the next synchronization anchor (a passage marker), never panicking for
// a source-level defect (spec §7).
package parse

import (
	"github.com/sirupsen/logrus"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/scan"
	"github.com/writewhisker/whisker-core/token"
)

// IncludeResolver loads the content addressed by an `INCLUDE "path"`
// directive (spec §4.4). The core never performs I/O itself (spec §5);
// hosts supply a resolver backed by their own filesystem/VFS.
type IncludeResolver interface {
	Resolve(path string) (content string, uri string, err error)
}

// Option configures a Parse call.
type Option func(*parser)

// WithIncludeResolver enables INCLUDE resolution during parsing.
func WithIncludeResolver(r IncludeResolver) Option {
	return func(p *parser) { p.includeResolver = r }
}

// WithLogger overrides the default logrus logger the parser carries and
// hands on to INCLUDE sub-parses. The parser itself writes no log
// entries through it.
func WithLogger(l *logrus.Logger) Option {
	return func(p *parser) { p.log = l }
}

type parser struct {
	sc    *scan.Scanner
	story *ast.Story
	diags *diag.Bag
	tt    token.Type
	log   *logrus.Logger

	nsStack           []string
	pendingStartName  string
	includeResolver   IncludeResolver
	includeDepth      int
	visitedIncludes   map[string]bool
	nestingGuard      int
}

const maxBlockNesting = 128

// Parse runs the full C1-C5 pipeline over source and returns the
// resulting Story together with its diagnostics in source order (spec
// §8 P4). Parsing never panics for a source-level defect; the returned
// Story is always usable, and HasErrors on the diagnostics indicates
// `success` per spec §7.
func Parse(source, uri string, opts ...Option) (*ast.Story, []diag.Diagnostic) {
	diags := &diag.Bag{}
	st := ast.New()
	p := &parser{
		sc:              scan.New(source, uri, diags),
		story:           st,
		diags:           diags,
		log:             defaultLogger(),
		visitedIncludes: map[string]bool{uri: true},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.advance()
	p.parseHeader()
	p.parseVarsBlock()
	p.parseTopLevel()
	p.resolveStart()
	p.resolveIncludes()

	Validate(st, diags)

	st.Diagnostics = diags
	return st, diags.Sorted()
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

func (p *parser) advance() token.Type {
	p.tt = p.sc.NextToken()
	return p.tt
}

// skipTrivia advances past NEWLINE/INDENT, leaving p.tt at the next
// significant token.
func (p *parser) skipTrivia() {
	for p.tt == token.NewlineToken || p.tt == token.IndentToken {
		p.advance()
	}
}

// skipInline advances past mid-line whitespace runs. The scanner only
// ever classifies a run of spaces/tabs as IndentToken when it sits at
// true line start (spec §4.1); everywhere else it is a plain TextToken
// whose value happens to be blank, so declaration grammars that expect
// e.g. a name right after a keyword need to skip it explicitly.
func (p *parser) skipInline() {
	for p.tt == token.TextToken && isBlank(p.sc.Token()) {
		p.advance()
	}
}

func isBlank(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

// skipToNextLine is the syntactic-error recovery strategy from spec §7:
// consume tokens until (and including) the next NEWLINE, or EOF.
func (p *parser) skipToNextLine() {
	for p.tt != token.NewlineToken && p.tt != token.EOFToken {
		p.advance()
	}
	if p.tt == token.NewlineToken {
		p.advance()
	}
}

// skipToSyncAnchor recovers to the next passage marker or EOF, used when
// a declaration is malformed enough that line-skipping would not escape
// it (e.g. an unterminated block).
func (p *parser) skipToSyncAnchor() {
	for p.tt != token.PassageMarkerToken && p.tt != token.EOFToken {
		p.advance()
	}
}

func (p *parser) currentPos() token.Pos { return p.sc.Start() }
