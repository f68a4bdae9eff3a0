package ast

import "github.com/alecthomas/repr"

// Repr returns a deep, field-by-field dump of the Story, in the style of
// sqltest/querydump.go's use of repr for query-result fixtures in the
// teacher repo. Intended for golden-file tests and editor-side debug
// panels, not for runtime consumption.
func (s *Story) Repr() string {
	return repr.String(s, repr.Indent("  "), repr.OmitEmpty(true))
}

// Repr dumps a single passage, useful when golden-diffing just the
// passage an incremental re-parse touched (spec §4.7, §8 P3).
func (p *Passage) Repr() string {
	return repr.String(p, repr.Indent("  "), repr.OmitEmpty(true))
}
