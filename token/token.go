// Package token defines the closed set of lexical token types produced by
// the WLS scanner (spec §4.1), plus the source-position type shared by the
// scanner, parser, story model and diagnostics.
package token

// Pos is a 1-based line/column source location, paired with the byte
// offset into the document and the document's URI (empty for ad-hoc
// parses that have no associated editor document).
type Pos struct {
	URI    string
	Line   int
	Col    int
	Offset int
}

// Type identifies the lexical class of a scanned token.
type Type int

const (
	// Structural
	PassageMarkerToken Type = iota + 1 // ::
	DirectiveToken                     // @name: value
	VarsStartToken                     // @vars

	// Choices/flow
	ChoiceOnceToken   // +
	ChoiceStickyToken // *
	ArrowToken        // ->
	TunnelReturnToken // <-
	GatherToken       // - in choice-context

	// Blocks
	BlockStartToken // {
	BlockEndToken    // }
	BlockCloseToken  // {/}
	ElseToken        // {else}
	ElifToken        // {elif <expr>}
	PipeToken        // |

	// Interpolation
	VarInterpToken     // $name
	TempVarInterpToken // $_name
	ExprInterpToken    // ${expr}

	// Literals
	TextToken
	StringToken
	NumberToken
	BooleanToken

	// Trivia
	NewlineToken
	IndentToken

	// Keywords (recognized at line start)
	ListKeywordToken
	ArrayKeywordToken
	MapKeywordToken
	IncludeKeywordToken
	FunctionKeywordToken
	NamespaceKeywordToken
	EndKeywordToken
	ThemeKeywordToken
	StyleKeywordToken

	// Punctuation used while scanning declarations/blocks
	LeftBracketToken  // [
	RightBracketToken // ]
	LeftParenToken    // (
	RightParenToken   // )
	CommaToken        // ,
	ColonToken        // :
	EqualToken        // =
	DotToken          // .

	// Errors
	UnterminatedStringErrorToken
	UnexpectedCharacterErrorToken
	UnterminatedCommentErrorToken

	EOFToken
)

// descriptions mirrors the teacher's tokenToDescription map, with a
// completeness check wired into init().
var descriptions = map[Type]string{
	PassageMarkerToken: "PassageMarkerToken",
	DirectiveToken:     "DirectiveToken",
	VarsStartToken:     "VarsStartToken",

	ChoiceOnceToken:   "ChoiceOnceToken",
	ChoiceStickyToken: "ChoiceStickyToken",
	ArrowToken:        "ArrowToken",
	TunnelReturnToken: "TunnelReturnToken",
	GatherToken:       "GatherToken",

	BlockStartToken: "BlockStartToken",
	BlockEndToken:   "BlockEndToken",
	BlockCloseToken: "BlockCloseToken",
	ElseToken:       "ElseToken",
	ElifToken:       "ElifToken",
	PipeToken:       "PipeToken",

	VarInterpToken:     "VarInterpToken",
	TempVarInterpToken: "TempVarInterpToken",
	ExprInterpToken:    "ExprInterpToken",

	TextToken:    "TextToken",
	StringToken:  "StringToken",
	NumberToken:  "NumberToken",
	BooleanToken: "BooleanToken",

	NewlineToken: "NewlineToken",
	IndentToken:  "IndentToken",

	ListKeywordToken:      "ListKeywordToken",
	ArrayKeywordToken:     "ArrayKeywordToken",
	MapKeywordToken:       "MapKeywordToken",
	IncludeKeywordToken:   "IncludeKeywordToken",
	FunctionKeywordToken:  "FunctionKeywordToken",
	NamespaceKeywordToken: "NamespaceKeywordToken",
	EndKeywordToken:       "EndKeywordToken",
	ThemeKeywordToken:     "ThemeKeywordToken",
	StyleKeywordToken:     "StyleKeywordToken",

	LeftBracketToken:  "LeftBracketToken",
	RightBracketToken: "RightBracketToken",
	LeftParenToken:    "LeftParenToken",
	RightParenToken:   "RightParenToken",
	CommaToken:        "CommaToken",
	ColonToken:        "ColonToken",
	EqualToken:        "EqualToken",
	DotToken:          "DotToken",

	UnterminatedStringErrorToken:  "UnterminatedStringErrorToken",
	UnexpectedCharacterErrorToken: "UnexpectedCharacterErrorToken",
	UnterminatedCommentErrorToken: "UnterminatedCommentErrorToken",

	EOFToken: "EOFToken",
}

func init() {
	for tt := PassageMarkerToken; tt <= EOFToken; tt++ {
		if descriptions[tt] == "" {
			panic("token: missing description for token type")
		}
	}
}

func (tt Type) String() string {
	return descriptions[tt]
}

func (tt Type) GoString() string {
	return descriptions[tt]
}

// IsError reports whether tt is one of the scanner's error token types.
func (tt Type) IsError() bool {
	switch tt {
	case UnterminatedStringErrorToken, UnexpectedCharacterErrorToken, UnterminatedCommentErrorToken:
		return true
	default:
		return false
	}
}

// IsTrivia reports whether tt is skipped by SkipWhitespace-style helpers.
func (tt Type) IsTrivia() bool {
	return tt == NewlineToken || tt == IndentToken
}
