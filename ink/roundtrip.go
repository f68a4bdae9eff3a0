package ink

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/writewhisker/whisker-core/ast"
)

// DiffKind classifies one discrepancy found by Compare (spec §8 property
// P6: Ink round-trip on minimal stories).
type DiffKind string

const (
	DiffMissingPassage        DiffKind = "missing_passage"
	DiffExtraPassage          DiffKind = "extra_passage"
	DiffContentMismatch       DiffKind = "content_mismatch"
	DiffMissingVariable       DiffKind = "missing_variable"
	DiffVariableTypeMismatch  DiffKind = "variable_type_mismatch"
	DiffStartMismatch         DiffKind = "start_mismatch"
)

// Diff is one discrepancy between two Stories.
type Diff struct {
	Kind    DiffKind
	Subject string // passage/variable name, or "" for DiffStartMismatch
	Detail  string
}

// Compare reports every structural discrepancy between want and got,
// intended for asserting that export-then-import reproduces the
// original Story (spec §8 P6). Passage content is compared with
// google/go-cmp rather than ==, so a future multi-field content model
// diffs cleanly instead of collapsing to a single opaque mismatch.
func Compare(want, got *ast.Story) []Diff {
	var diffs []Diff

	seen := make(map[string]bool)
	for _, wp := range want.Passages() {
		seen[wp.QualifiedName] = true
		gp, ok := got.PassageByName(wp.QualifiedName)
		if !ok {
			diffs = append(diffs, Diff{Kind: DiffMissingPassage, Subject: wp.QualifiedName})
			continue
		}
		if d := cmp.Diff(wp.Content, gp.Content); d != "" {
			diffs = append(diffs, Diff{Kind: DiffContentMismatch, Subject: wp.QualifiedName, Detail: d})
		}
	}
	for _, gp := range got.Passages() {
		if !seen[gp.QualifiedName] {
			diffs = append(diffs, Diff{Kind: DiffExtraPassage, Subject: gp.QualifiedName})
		}
	}

	for _, wv := range want.VariablesInOrder() {
		gv, ok := got.Variables[wv.Name]
		if !ok {
			diffs = append(diffs, Diff{Kind: DiffMissingVariable, Subject: wv.Name})
			continue
		}
		if gv.Type != wv.Type {
			diffs = append(diffs, Diff{
				Kind:    DiffVariableTypeMismatch,
				Subject: wv.Name,
				Detail:  fmt.Sprintf("want %s, got %s", wv.Type, gv.Type),
			})
		}
	}

	wantStart := want.ResolveStartPassage()
	gotStart := got.ResolveStartPassage()
	switch {
	case wantStart == nil && gotStart == nil:
		// both empty; nothing to compare
	case wantStart == nil || gotStart == nil:
		diffs = append(diffs, Diff{Kind: DiffStartMismatch, Detail: "one story has no resolvable start passage"})
	case wantStart.QualifiedName != gotStart.QualifiedName:
		diffs = append(diffs, Diff{
			Kind:   DiffStartMismatch,
			Detail: fmt.Sprintf("want %q, got %q", wantStart.QualifiedName, gotStart.QualifiedName),
		})
	}

	return diffs
}
