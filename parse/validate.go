package parse

import (
	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/token"
)

// Validate runs the Semantic Validator (C5, spec §4.5) over an already
// structurally-parsed Story, appending diagnostics to diags. It is safe
// to call more than once (e.g. after an incremental re-parse patches a
// single passage) since it only reads the Story and never mutates it.
func Validate(st *ast.Story, diags *diag.Bag) {
	validateReferences(st, diags)
	validateSettings(st, diags)
	validateVariables(st, diags)
	validateReachability(st, diags)
}

// validateReferences checks every choice target and tunnel-call target
// against the passage table, skipping reserved targets (spec §4.5
// "reference closure", §8 P5).
func validateReferences(st *ast.Story, diags *diag.Bag) {
	for _, pg := range st.Passages() {
		for _, c := range pg.Choices {
			if c.Target == "" || ast.ReservedTargets[c.Target] {
				continue
			}
			if _, ok := st.PassageByName(c.Target); !ok {
				diags.Add(diag.New(diag.Warning, diag.RefUndefinedTarget, c.Span.Start,
					"choice target "+quote(c.Target)+" does not match any passage").WithRelated(c.Text))
			}
		}
		for _, tc := range pg.TunnelCalls {
			if tc.Target == "" || ast.ReservedTargets[tc.Target] {
				continue
			}
			if _, ok := st.PassageByName(tc.Target); !ok {
				pos := token.Pos{URI: pg.Span.Start.URI, Line: pg.Span.Start.Line}
				diags.Warnf(diag.RefUndefinedTarget, pos, "tunnel call target %q does not match any passage", tc.Target)
			}
		}
	}
	if st.StartPassageID == "" {
		if sp := st.ResolveStartPassage(); sp == nil && len(st.Passages()) == 0 {
			diags.Infof(diag.RefUndefinedTarget, token.Pos{}, "story has no passages")
		}
	}
}

func quote(s string) string { return "\"" + s + "\"" }

// validateSettings sanity-checks the typed Settings fields' ranges.
// Settings is a typed struct rather than a free map, so the only
// unknown-key surface is the YAML loader, which already rejects unknown
// keys (Settings.UnmarshalYAML).
func validateSettings(st *ast.Story, diags *diag.Bag) {
	s := &st.Settings
	if s.TunnelLimit <= 0 {
		diags.Warnf(diag.PrsInvalidSettingType, token.Pos{}, "tunnel_limit must be positive, got %d", s.TunnelLimit)
	}
	if s.MaxIncludeDepth <= 0 {
		diags.Warnf(diag.PrsInvalidSettingType, token.Pos{}, "max_include_depth must be positive, got %d", s.MaxIncludeDepth)
	}
}

// validateVariables checks a declared default's dynamic type against any
// explicit type annotation recorded for the variable (spec §4.5 Variables).
func validateVariables(st *ast.Story, diags *diag.Bag) {
	for _, v := range st.VariablesInOrder() {
		if !v.HasDefault || v.Type == ast.TypeInvalid {
			continue
		}
		if dt := v.Default.DynamicType(); dt != ast.TypeInvalid && dt != v.Type {
			diags.Warnf(diag.PrsTypeMismatch, token.Pos{Line: v.DeclaredLine},
				"variable %q declared as %s but default value looks like %s", v.Name, v.Type, dt)
		}
	}
}

// validateReachability flags passages no choice, tunnel call, or the
// start passage ever points to (spec §4.5, WLS-STR-002). The resolved
// start passage is the only root; namespace membership does not make a
// passage reachable.
func validateReachability(st *ast.Story, diags *diag.Bag) {
	reachable := map[string]bool{}
	var queue []*ast.Passage
	if sp := st.ResolveStartPassage(); sp != nil {
		reachable[sp.ID] = true
		queue = append(queue, sp)
	}
	for len(queue) > 0 {
		pg := queue[0]
		queue = queue[1:]
		targets := make([]string, 0, len(pg.Choices)+len(pg.TunnelCalls))
		for _, c := range pg.Choices {
			targets = append(targets, c.Target)
		}
		for _, tc := range pg.TunnelCalls {
			targets = append(targets, tc.Target)
		}
		for _, t := range targets {
			if t == "" || ast.ReservedTargets[t] {
				continue
			}
			next, ok := st.PassageByName(t)
			if !ok || reachable[next.ID] {
				continue
			}
			reachable[next.ID] = true
			queue = append(queue, next)
		}
	}
	for _, pg := range st.Passages() {
		if !reachable[pg.ID] {
			diags.Infof(diag.StrNotReachable, pg.Span.Start, "passage %q is not reachable from the start passage", pg.QualifiedName)
		}
	}
}
