// Package diag defines the diagnostic model shared by every parsing stage
// (spec §3 Diagnostic, §7 Error Handling Design, §8 property P4).
package diag

import (
	"fmt"
	"sort"

	"github.com/writewhisker/whisker-core/token"
)

// Severity classifies how serious a Diagnostic is. The parser never aborts
// on Warning or Info; it may omit a module from the model on Error
// (structural failures) but always returns a usable Story.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Stable diagnostic codes (spec §6). Grouped by the subsystem that raises
// them; new codes should be appended within their group, never renumbered,
// since editors may persist them across sessions.
const (
	SynUnexpectedCharacter  = "WLS-SYN-001"
	SynUnterminatedString   = "WLS-SYN-002"
	SynUnterminatedComment  = "WLS-SYN-003"
	SynMissingEquals        = "WLS-SYN-010"
	SynMissingClosingBrace  = "WLS-SYN-011"
	SynMissingName          = "WLS-SYN-012"
	SynMalformedBatchMarker = "WLS-SYN-013"
	SynInvalidHookOp        = "WLS-SYN-020"
	SynNestingTooDeep       = "WLS-SYN-021"

	RefUndefinedTarget = "WLS-REF-001"

	StrDuplicatePassage = "WLS-STR-001"
	StrNotReachable     = "WLS-STR-002"

	ModUnmatchedEndNamespace = "WLS-MOD-008"
	ModIncludeDepthExceeded  = "WLS-MOD-009"
	ModIncludeCycle          = "WLS-MOD-010"
	ModUnresolvedInclude     = "WLS-MOD-011"

	MetaInvalidIFID = "WLS-META-001"

	PrsUnknownSetting     = "WLS-PRS-001"
	PrsInvalidSettingType = "WLS-PRS-002"
	PrsInvalidVariable    = "WLS-PRS-003"
	PrsTypeMismatch       = "WLS-PRS-004"

	LnkEmptyChoiceTarget = "WLS-LNK-005"
)

// Diagnostic is an immutable record of one parse-time observation.
type Diagnostic struct {
	Severity    Severity
	Code        string
	Message     string
	Pos         token.Pos
	Suggestion  string
	RelatedText string // optional related-token context, verbatim source text
}

func (d Diagnostic) String() string {
	loc := fmt.Sprintf("%d:%d", d.Pos.Line, d.Pos.Col)
	if d.Pos.URI != "" {
		loc = d.Pos.URI + ":" + loc
	}
	if d.Suggestion != "" {
		return fmt.Sprintf("%s: %s [%s] %s (suggestion: %s)", loc, d.Severity, d.Code, d.Message, d.Suggestion)
	}
	return fmt.Sprintf("%s: %s [%s] %s", loc, d.Severity, d.Code, d.Message)
}

func New(sev Severity, code string, pos token.Pos, message string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Message: message, Pos: pos}
}

func (d Diagnostic) WithSuggestion(s string) Diagnostic {
	d.Suggestion = s
	return d
}

func (d Diagnostic) WithRelated(text string) Diagnostic {
	d.RelatedText = text
	return d
}

// Bag accumulates diagnostics during a single parse call and exposes them
// in source order (spec P4: ascending by line then column).
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) Errorf(code string, pos token.Pos, format string, args ...any) {
	b.Add(New(Error, code, pos, fmt.Sprintf(format, args...)))
}

func (b *Bag) Warnf(code string, pos token.Pos, format string, args ...any) {
	b.Add(New(Warning, code, pos, fmt.Sprintf(format, args...)))
}

func (b *Bag) Infof(code string, pos token.Pos, format string, args ...any) {
	b.Add(New(Info, code, pos, fmt.Sprintf(format, args...)))
}

// Sorted returns the accumulated diagnostics ordered by (line, column),
// satisfying P4. The Bag's own insertion order already tends to be
// source order because parsing is a single forward pass, but Sort makes
// the guarantee explicit and stable regardless of how diagnostics were
// accumulated (e.g. validator passes that run after the structural pass).
func (b *Bag) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos.Line != out[j].Pos.Line {
			return out[i].Pos.Line < out[j].Pos.Line
		}
		return out[i].Pos.Col < out[j].Pos.Col
	})
	return out
}

// HasErrors reports whether any accumulated diagnostic is Error severity;
// this is the `success = (#errors == 0)` contract from spec §7.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}
