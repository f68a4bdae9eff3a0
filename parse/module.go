package parse

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/scan"
)

// qualify builds the `::`-joined qualified name for name given the
// current namespace stack, and returns the immediate enclosing
// namespace's qualified name ("" at global scope) — spec §3 Module,
// §4.4 Namespace scoping. Both name and each namespace segment are
// normalized to NFC first: a passage named with a combining-mark
// sequence and one written precomposed must resolve to the same
// qualified name, or a choice target written the "other" way would
// dangle for no reason visible to the author.
func (p *parser) qualify(name string) (qualifiedName string, namespace string) {
	name = norm.NFC.String(name)
	if len(p.nsStack) == 0 {
		return name, ""
	}
	namespace = strings.Join(p.nsStack, "::")
	return namespace + "::" + name, namespace
}

// resolveStart applies the deferred `@start` directive once every passage
// has been registered (spec §4.2 final step): falls back to a passage
// literally named "Start", then the first declared passage, handled by
// Story.ResolveStartPassage itself when no explicit id was set.
func (p *parser) resolveStart() {
	if p.pendingStartName == "" {
		return
	}
	if pg, ok := p.story.PassageByName(p.pendingStartName); ok {
		_ = p.story.SetStartPassage(pg.ID)
		return
	}
	p.diags.Errorf(diag.RefUndefinedTarget, p.currentPos(),
		"@start references undefined passage %q", p.pendingStartName)
}

// resolveIncludes resolves every INCLUDE declaration through the
// configured IncludeResolver, merging the included Story's passages,
// variables and collections into the parent (spec §4.4). Cycles and
// depth overruns are reported, never followed.
func (p *parser) resolveIncludes() {
	if p.includeResolver == nil {
		for _, inc := range p.story.Includes {
			if !inc.Resolved {
				p.diags.Warnf(diag.ModUnresolvedInclude, p.currentPos(),
					"INCLUDE %q not resolved: no resolver configured", inc.Path)
			}
		}
		return
	}
	// Index-based: resolveOneInclude may append further Includes to this
	// same slice (a nested INCLUDE inside the included content), which a
	// range loop over a pre-captured slice header would miss.
	for i := 0; i < len(p.story.Includes); i++ {
		p.resolveOneInclude(p.story.Includes[i])
	}
}

func (p *parser) resolveOneInclude(inc *ast.Include) {
	if inc.Resolved {
		return
	}
	if p.includeDepth >= p.story.Settings.MaxIncludeDepth {
		p.diags.Errorf(diag.ModIncludeDepthExceeded, p.currentPos(),
			"INCLUDE %q exceeds max include depth %d", inc.Path, p.story.Settings.MaxIncludeDepth)
		return
	}
	if p.visitedIncludes[inc.Path] {
		p.diags.Errorf(diag.ModIncludeCycle, p.currentPos(), "INCLUDE cycle detected at %q", inc.Path)
		return
	}
	content, uri, err := p.includeResolver.Resolve(inc.Path)
	if err != nil {
		p.diags.Errorf(diag.ModUnresolvedInclude, p.currentPos(), "INCLUDE %q: %v", inc.Path, err)
		return
	}
	p.visitedIncludes[inc.Path] = true

	// The included document is parsed directly into the parent Story, so
	// its passages/variables/collections merge in place; only the
	// include-cycle bookkeeping and nesting depth are per-sub-parse.
	sub := &parser{
		sc:              scan.New(content, uri, p.diags),
		story:           p.story,
		diags:           p.diags,
		log:             p.log,
		includeResolver: p.includeResolver,
		includeDepth:    p.includeDepth + 1,
		visitedIncludes: p.visitedIncludes,
		nsStack:         append([]string(nil), p.nsStack...),
	}
	sub.advance()
	sub.parseHeader()
	sub.parseVarsBlock()
	sub.parseTopLevel()
	inc.Resolved = true
}
