// Package scan implements the WLS line-aware tokenizer (spec §4.1, C1).
//
// Like sqlparser.Scanner in the teacher repo, this is a hand-written state
// machine keyed on the first byte of each token, not a table of regexes;
// the outer NextToken applies a small amount of extra state on top of the
// raw byte-level nextToken to implement context-sensitive rules (here: the
// choice/gather-vs-text ambiguity of `+`, `*`, `-`, mirroring the teacher's
// own `go`-batch-separator state machine).
package scan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/smasher164/xid"

	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/token"
)

// Token is one lexical item: its type, its exact source text, and the
// span of source it covers.
type Token struct {
	Type  token.Type
	Value string // decoded/interesting payload (see per-type doc below)
	Start token.Pos
	Stop  token.Pos
}

// Scanner is a cursor over a UTF-8 WLS source string. It has no internal
// suspension points (spec §5): one NextToken call is synchronous and
// non-blocking.
type Scanner struct {
	input string
	uri   string

	start int // byte offset of the token currently being built
	cur   int // current cursor byte offset

	startLine, stopLine             int // 0-based line counters
	indexAtStartLine, indexAtStopLine int // byte offset right after the preceding '\n'

	tokenType token.Type

	// prevType drives the choice-context rule (spec §4.1): '+', '*', '-'
	// are only flow tokens when the previously emitted token was one of
	// NEWLINE, INDENT, BLOCK_END, BLOCK_CLOSE, ELSE, or we are at the
	// very start of the stream.
	prevType  token.Type
	haveEmitted bool

	// atLineStart tracks whether we have seen anything other than
	// NEWLINE/INDENT since the last newline; used to gate keyword
	// recognition (LIST, FUNCTION, etc. are only keywords at line start).
	atLineStart bool

	// namedValue holds the decoded payload of whichever directive,
	// interpolation, string, or elif token was most recently scanned.
	namedValue namedValue

	diags *diag.Bag
}

// New creates a Scanner over input. uri identifies the source document for
// diagnostics/positions and may be empty for throwaway parses.
func New(input, uri string, diags *diag.Bag) *Scanner {
	return &Scanner{
		input:       input,
		uri:         uri,
		atLineStart: true,
		diags:       diags,
	}
}

func (s *Scanner) TokenType() token.Type { return s.tokenType }

func (s *Scanner) Token() string { return s.input[s.start:s.cur] }

// Value returns the most useful decoded payload for the current token:
// the unescaped string body for StringToken, the name/expr for the
// interpolation and elif tokens, and the raw token text otherwise.
func (s *Scanner) Value() string {
	switch s.tokenType {
	case token.StringToken, token.UnterminatedStringErrorToken,
		token.VarInterpToken, token.TempVarInterpToken, token.ExprInterpToken,
		token.ElifToken:
		return s.namedValue.value
	default:
		return s.Token()
	}
}

// URI returns the scanner's associated document URI.
func (s *Scanner) URI() string { return s.uri }

// Start returns the position of the first byte of the current token.
func (s *Scanner) Start() token.Pos {
	return token.Pos{
		URI:    s.uri,
		Line:   s.startLine + 1,
		Col:    runewidth.StringWidth(s.input[s.indexAtStartLine:s.start]) + 1,
		Offset: s.start,
	}
}

// Stop returns the position just past the last byte of the current token.
func (s *Scanner) Stop() token.Pos {
	return token.Pos{
		URI:    s.uri,
		Line:   s.stopLine + 1,
		Col:    runewidth.StringWidth(s.input[s.indexAtStopLine:s.cur]) + 1,
		Offset: s.cur,
	}
}

func (s *Scanner) bumpLine(afterOffset int) {
	s.stopLine++
	s.indexAtStopLine = afterOffset
}

// SkipTrivia advances past NEWLINE/INDENT tokens if the scanner is
// currently positioned on one, leaving it at the next significant token.
func (s *Scanner) SkipTrivia() token.Type {
	for s.haveEmitted && s.tokenType.IsTrivia() {
		s.NextToken()
	}
	return s.tokenType
}

// NextNonTrivia advances to and returns the next non-trivia token.
func (s *Scanner) NextNonTrivia() token.Type {
	for {
		tt := s.NextToken()
		if !tt.IsTrivia() {
			return tt
		}
	}
}

// NextToken scans the next token, applying the choice-context and
// line-start state machines, and advances the cursor past it.
func (s *Scanner) NextToken() token.Type {
	tt := s.rawNextToken()

	switch tt {
	case token.NewlineToken:
		s.atLineStart = true
	case token.IndentToken:
		// leave atLineStart true
	default:
		s.atLineStart = false
	}

	s.tokenType = tt
	s.prevType = tt
	s.haveEmitted = true
	return tt
}

// qualifiesForFlowContext implements spec §4.1's choice-context rule: a
// `+`/`*`/`-` rune is a flow marker only right after NEWLINE, INDENT,
// BLOCK_END, BLOCK_CLOSE, ELSE, stream start, or a same-marker flow token
// (so a run like "++"/"--" reads as one multi-level marker rather than a
// marker followed by plain text, spec §3 Choice/Gather nesting depth).
// The run must also be followed by whitespace/EOL/EOF: "* text" is a
// choice, but "**bold**" is not — the second '*' of a bold run has
// nothing but more non-whitespace after it, so it can never be mistaken
// for a choice/gather marker even when it sits at true line start.
func (s *Scanner) qualifiesForFlowContext(flowTok token.Type, marker rune) bool {
	prevOK := !s.haveEmitted
	if !prevOK {
		switch s.prevType {
		case token.NewlineToken, token.IndentToken, token.BlockEndToken, token.BlockCloseToken, token.ElseToken, flowTok:
			prevOK = true
		}
	}
	if !prevOK {
		return false
	}
	return s.markerRunFollowedByBoundary(marker)
}

// markerRunFollowedByBoundary reports whether, starting at the cursor
// (already advanced past the marker rune just consumed), the remainder of
// any run of the same marker rune is followed by whitespace, a newline,
// or EOF.
func (s *Scanner) markerRunFollowedByBoundary(marker rune) bool {
	i := s.cur
	for i < len(s.input) {
		r, w := utf8.DecodeRuneInString(s.input[i:])
		if r != marker {
			break
		}
		i += w
	}
	if i >= len(s.input) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s.input[i:])
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// rawNextToken performs the byte-level dispatch; comments are consumed
// internally and never returned as tokens.
func (s *Scanner) rawNextToken() token.Type {
	for {
		s.start = s.cur
		s.startLine = s.stopLine
		s.indexAtStartLine = s.indexAtStopLine

		r, w := utf8.DecodeRuneInString(s.input[s.cur:])
		if w == 0 {
			return token.EOFToken
		}
		if r == utf8.RuneError && w == 1 && !utf8.ValidString(s.input[s.cur:s.cur+1]) {
			s.cur++
			s.diags.Errorf(diag.SynUnexpectedCharacter, s.Start(), "invalid UTF-8 byte")
			return token.UnexpectedCharacterErrorToken
		}

		switch {
		case r == '\n':
			s.cur += w
			s.bumpLine(s.cur)
			return token.NewlineToken
		case r == '\r':
			// treat \r and \r\n uniformly as a newline
			s.cur += w
			if r2, w2 := utf8.DecodeRuneInString(s.input[s.cur:]); r2 == '\n' {
				s.cur += w2
			}
			s.bumpLine(s.cur)
			return token.NewlineToken
		case r == ' ' || r == '\t':
			return s.scanHorizontalWhitespace()
		case r == '/' && s.peekRune(w) == '/':
			s.skipLineComment()
			continue
		case r == '/' && s.peekRune(w) == '*':
			if !s.skipBlockComment() {
				return token.UnterminatedCommentErrorToken
			}
			continue
		case r == ':' && s.peekRune(w) == ':':
			s.cur += 2 * w
			return token.PassageMarkerToken
		case r == ':':
			s.cur += w
			return token.ColonToken
		case r == '@':
			if tt, ok := s.tryScanDirectiveOrVars(); ok {
				return tt
			}
			s.cur += w
			return token.TextToken
		case r == '$':
			if tt, ok := s.tryScanInterpolation(); ok {
				return tt
			}
			s.cur += w
			return token.TextToken
		case r == '+':
			s.cur += w
			if s.qualifiesForFlowContext(token.ChoiceOnceToken, '+') {
				return token.ChoiceOnceToken
			}
			return token.TextToken
		case r == '*':
			s.cur += w
			if s.qualifiesForFlowContext(token.ChoiceStickyToken, '*') {
				return token.ChoiceStickyToken
			}
			return token.TextToken
		case r == '-' && s.peekRune(w) == '>':
			s.cur += 2 * w
			return token.ArrowToken
		case r == '-':
			s.cur += w
			if s.qualifiesForFlowContext(token.GatherToken, '-') {
				return token.GatherToken
			}
			return token.TextToken
		case r == '<' && s.peekRune(w) == '-':
			s.cur += 2 * w
			return token.TunnelReturnToken
		case r == '{':
			return s.scanBraceToken()
		case r == '}':
			s.cur += w
			return token.BlockEndToken
		case r == '|':
			s.cur += w
			return token.PipeToken
		case r == '[':
			s.cur += w
			return token.LeftBracketToken
		case r == ']':
			s.cur += w
			return token.RightBracketToken
		case r == '(':
			s.cur += w
			return token.LeftParenToken
		case r == ')':
			s.cur += w
			return token.RightParenToken
		case r == ',':
			s.cur += w
			return token.CommaToken
		case r == '.':
			s.cur += w
			return token.DotToken
		case r == '=':
			s.cur += w
			return token.EqualToken
		case r == '"' || r == '\'':
			return s.scanString(r)
		case r >= '0' && r <= '9':
			return s.scanNumber()
		case (r == '-' || r == '+') && isDigit(s.peekRune(w)):
			return s.scanNumber()
		case unicode.IsLetter(r) || r == '_':
			return s.scanWordOrKeyword()
		default:
			s.cur += w
			return token.TextToken
		}
	}
}

func (s *Scanner) peekRune(afterWidth int) rune {
	r, _ := utf8.DecodeRuneInString(s.input[s.cur+afterWidth:])
	return r
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (s *Scanner) scanHorizontalWhitespace() token.Type {
	for {
		r, w := utf8.DecodeRuneInString(s.input[s.cur:])
		if r != ' ' && r != '\t' {
			break
		}
		s.cur += w
	}
	if s.atLineStart {
		return token.IndentToken
	}
	return token.TextToken
}

func (s *Scanner) skipLineComment() {
	idx := strings.IndexByte(s.input[s.cur:], '\n')
	if idx < 0 {
		s.cur = len(s.input)
		return
	}
	s.cur += idx // stop right before the newline; NEWLINE is scanned next
}

func (s *Scanner) skipBlockComment() bool {
	s.cur += 2 // consume "/*"
	for {
		idx := strings.IndexAny(s.input[s.cur:], "*\n")
		if idx < 0 {
			s.cur = len(s.input)
			s.diags.Errorf(diag.SynUnterminatedComment, s.Start(), "unterminated block comment")
			return false
		}
		if s.input[s.cur+idx] == '\n' {
			s.cur += idx + 1
			s.bumpLine(s.cur)
			continue
		}
		// saw '*'; check for closing '*/'
		if s.cur+idx+1 < len(s.input) && s.input[s.cur+idx+1] == '/' {
			s.cur += idx + 2
			return true
		}
		s.cur += idx + 1
	}
}

// tryScanDirectiveOrVars looks ahead from '@' without committing unless it
// finds either `@identifier:` (a DIRECTIVE, value = rest of line trimmed)
// or the literal keyword `@vars`.
func (s *Scanner) tryScanDirectiveOrVars() (token.Type, bool) {
	i := s.cur + 1 // past '@'
	nameStart := i
	for i < len(s.input) {
		r, w := utf8.DecodeRuneInString(s.input[i:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		i += w
	}
	name := s.input[nameStart:i]
	if name == "" {
		return 0, false
	}
	if i < len(s.input) && s.input[i] == ':' {
		lineEnd := strings.IndexByte(s.input[i:], '\n')
		var valueEnd int
		if lineEnd < 0 {
			valueEnd = len(s.input)
		} else {
			valueEnd = i + lineEnd
		}
		value := strings.TrimSpace(s.input[i+1 : valueEnd])
		s.cur = valueEnd
		s.namedValue = namedValue{name: name, value: value}
		return token.DirectiveToken, true
	}
	if strings.EqualFold(name, "vars") {
		// must be followed by end-of-line or EOF to count as the @vars keyword
		if i >= len(s.input) || s.input[i] == '\n' || s.input[i] == '\r' || s.input[i] == ' ' || s.input[i] == '\t' {
			s.cur = i
			return token.VarsStartToken, true
		}
	}
	return 0, false
}

// namedValue stashes the split name/value of the most recently scanned
// DIRECTIVE token; Token() alone only exposes the raw matched text.
type namedValue struct {
	name, value string
}

// DirectiveName returns the directive name for the current DIRECTIVE token.
func (s *Scanner) DirectiveName() string { return s.namedValue.name }

// DirectiveValue returns the trimmed rest-of-line value for the current
// DIRECTIVE token.
func (s *Scanner) DirectiveValue() string { return s.namedValue.value }

func (s *Scanner) tryScanInterpolation() (token.Type, bool) {
	i := s.cur + 1 // past '$'
	if i < len(s.input) && s.input[i] == '{' {
		depth := 1
		j := i + 1
		for j < len(s.input) && depth > 0 {
			switch s.input[j] {
			case '{':
				depth++
			case '}':
				depth--
			case '\n':
				s.bumpLine(j + 1)
			}
			j++
		}
		if depth != 0 {
			return 0, false
		}
		s.namedValue = namedValue{value: s.input[i+1 : j-1]}
		s.cur = j
		return token.ExprInterpToken, true
	}
	temp := false
	nameStart := i
	if i < len(s.input) && s.input[i] == '_' {
		temp = true
	}
	j := i
	for j < len(s.input) {
		r, w := utf8.DecodeRuneInString(s.input[j:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		j += w
	}
	if j == nameStart {
		return 0, false
	}
	name := s.input[nameStart:j]
	s.cur = j
	if temp {
		s.namedValue = namedValue{value: name}
		return token.TempVarInterpToken, true
	}
	s.namedValue = namedValue{value: name}
	return token.VarInterpToken, true
}

// CurrentOffset returns the byte offset of the start of the current
// token, for callers that need to capture a verbatim multi-token span
// (e.g. a FUNCTION body or a STYLE block).
func (s *Scanner) CurrentOffset() int { return s.start }

// RawBetween returns the raw, untokenized source text between two byte
// offsets previously obtained from CurrentOffset.
func (s *Scanner) RawBetween(from, to int) string {
	if from < 0 || to > len(s.input) || from > to {
		return ""
	}
	return s.input[from:to]
}

// RestOfLineRaw returns the untokenized remainder of the current line,
// trimmed, and advances the cursor past it without producing a token.
// Used where the grammar calls for a free-text remainder beyond what the
// token stream itself captures, e.g. an `@vars` block's `name: value`
// line once `name` and `:` have already been consumed as tokens.
func (s *Scanner) RestOfLineRaw() string {
	idx := strings.IndexByte(s.input[s.cur:], '\n')
	var end int
	if idx < 0 {
		end = len(s.input)
	} else {
		end = s.cur + idx
	}
	text := s.input[s.cur:end]
	s.start = s.cur
	s.cur = end
	return strings.TrimSpace(text)
}

// InterpName returns the variable/expression payload of the current
// VAR_INTERP / TEMP_VAR_INTERP / EXPR_INTERP token.
func (s *Scanner) InterpName() string { return s.namedValue.value }

func (s *Scanner) scanBraceToken() token.Type {
	rest := s.input[s.cur:]
	switch {
	case strings.HasPrefix(rest, "{/}"):
		s.cur += len("{/}")
		return token.BlockCloseToken
	case strings.HasPrefix(rest, "{else}"):
		s.cur += len("{else}")
		return token.ElseToken
	case strings.HasPrefix(rest, "{elif"):
		closeIdx := strings.IndexByte(rest, '}')
		if closeIdx < 0 {
			s.cur++
			return token.BlockStartToken
		}
		expr := strings.TrimSpace(rest[len("{elif"):closeIdx])
		s.namedValue = namedValue{value: expr}
		for _, r := range rest[:closeIdx+1] {
			if r == '\n' {
				s.bumpLine(0)
			}
		}
		s.cur += closeIdx + 1
		return token.ElifToken
	default:
		s.cur++
		return token.BlockStartToken
	}
}

func (s *Scanner) scanString(quote rune) token.Type {
	s.cur++ // consume opening quote
	var sb strings.Builder
	for {
		if s.cur >= len(s.input) {
			s.diags.Errorf(diag.SynUnterminatedString, s.Start(), "unterminated string literal")
			s.namedValue = namedValue{value: sb.String()}
			return token.UnterminatedStringErrorToken
		}
		r, w := utf8.DecodeRuneInString(s.input[s.cur:])
		if r == quote {
			s.cur += w
			s.namedValue = namedValue{value: sb.String()}
			return token.StringToken
		}
		if r == '\n' {
			s.diags.Errorf(diag.SynUnterminatedString, s.Start(), "unterminated string literal (reached end of line)")
			s.namedValue = namedValue{value: sb.String()}
			return token.UnterminatedStringErrorToken
		}
		if r == '\\' {
			s.cur += w
			r2, w2 := utf8.DecodeRuneInString(s.input[s.cur:])
			switch r2 {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteRune(r2)
			}
			s.cur += w2
			continue
		}
		sb.WriteRune(r)
		s.cur += w
	}
}

func (s *Scanner) scanNumber() token.Type {
	if s.input[s.cur] == '+' || s.input[s.cur] == '-' {
		s.cur++
	}
	for s.cur < len(s.input) && isDigit(rune(s.input[s.cur])) {
		s.cur++
	}
	if s.cur < len(s.input) && s.input[s.cur] == '.' {
		s.cur++
		for s.cur < len(s.input) && isDigit(rune(s.input[s.cur])) {
			s.cur++
		}
	}
	if s.cur < len(s.input) && (s.input[s.cur] == 'e' || s.input[s.cur] == 'E') {
		save := s.cur
		s.cur++
		if s.cur < len(s.input) && (s.input[s.cur] == '+' || s.input[s.cur] == '-') {
			s.cur++
		}
		digits := s.cur
		for s.cur < len(s.input) && isDigit(rune(s.input[s.cur])) {
			s.cur++
		}
		if s.cur == digits {
			s.cur = save // no exponent digits; back out
		}
	}
	return token.NumberToken
}

var keywords = map[string]token.Type{
	"LIST":      token.ListKeywordToken,
	"ARRAY":     token.ArrayKeywordToken,
	"MAP":       token.MapKeywordToken,
	"INCLUDE":   token.IncludeKeywordToken,
	"FUNCTION":  token.FunctionKeywordToken,
	"NAMESPACE": token.NamespaceKeywordToken,
	"END":       token.EndKeywordToken,
	"THEME":     token.ThemeKeywordToken,
	"STYLE":     token.StyleKeywordToken,
}

func (s *Scanner) scanWordOrKeyword() token.Type {
	for {
		r, w := utf8.DecodeRuneInString(s.input[s.cur:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || xid.Continue(r)) {
			break
		}
		s.cur += w
	}
	word := s.Token()
	if s.atLineStart {
		if kw, ok := keywords[word]; ok {
			return kw
		}
	}
	switch word {
	case "true", "false":
		s.namedValue = namedValue{value: word}
		return token.BooleanToken
	}
	return token.TextToken
}
