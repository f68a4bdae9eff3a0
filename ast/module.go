package ast

// Include is a pending or resolved `INCLUDE "path"` declaration (spec §3
// Module, §4.4).
type Include struct {
	Path     string
	Resolved bool
}

// Function captures a `FUNCTION name(p1, p2) ... END` declaration; its
// body is stored verbatim, since expression/statement evaluation is the
// runtime's concern, not the parser's (spec §1 Non-goals, §4.4).
type Function struct {
	Name          string
	Params        []string
	Body          string
	QualifiedName string
	Namespace     string
}

// Namespace is a `NAMESPACE X ... END NAMESPACE` scope (spec §3 Module,
// §4.4). Passages and Functions list the qualified names of entities
// declared directly inside this namespace; Nested lists child namespaces.
type Namespace struct {
	Name          string
	QualifiedName string
	Parent        string
	Nested        []string
	Passages      []string
	Functions     []string
}
