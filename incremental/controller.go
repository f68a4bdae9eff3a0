// Package incremental implements the Incremental Parser (C7, spec §4.7):
// a per-URI document cache that lets an editor host apply a single
// ranged text edit and get back an updated Story without paying for a
// full reparse when the edit is confined to one passage's body.
package incremental

import (
	"strings"
	"sync"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
	"github.com/writewhisker/whisker-core/parse"
)

// Edit is a single ranged text replacement, expressed as byte offsets
// into the document's current content (spec §4.7).
type Edit struct {
	StartOffset int
	EndOffset   int
	NewText     string
}

// passageRange records the byte span a passage's source occupies in the
// cached content, from its `::` marker through the byte before the next
// marker (or EOF).
type passageRange struct {
	id          string
	startOffset int
	endOffset   int
}

// docState is the per-URI cache entry (spec §4.7: "full_ast, content,
// line_map, passage_ranges").
type docState struct {
	content       string
	lineStarts    []int // byte offset of the start of each line
	story         *ast.Story
	diags         []diag.Diagnostic
	passageRanges []passageRange
	opts          []parse.Option
}

// Controller owns the document cache for a set of open URIs. Its mutex
// (modelled on the teacher repo's connection-pool discipline in
// dbintf.go) guards only the shared URI map, so calls for different URIs
// may run concurrently; calls for the same URI are not synchronized and
// must be serialized by the caller.
type Controller struct {
	mu   sync.Mutex
	docs map[string]*docState
}

// NewController returns an empty Controller.
func NewController() *Controller {
	return &Controller{docs: make(map[string]*docState)}
}

// ParseDocument performs a full parse of content and caches the result
// under uri, replacing any previous state for that URI.
func (c *Controller) ParseDocument(uri, content string, opts ...parse.Option) (*ast.Story, []diag.Diagnostic) {
	st, diags := parse.Parse(content, uri, opts...)
	ds := &docState{
		content:       content,
		lineStarts:    computeLineStarts(content),
		story:         st,
		diags:         diags,
		passageRanges: computePassageRanges(content, st),
		opts:          opts,
	}
	c.mu.Lock()
	c.docs[uri] = ds
	c.mu.Unlock()
	return st, diags
}

// Close drops the cached state for uri.
func (c *Controller) Close(uri string) {
	c.mu.Lock()
	delete(c.docs, uri)
	c.mu.Unlock()
}

// UpdateDocument applies a single ranged edit to the cached document at
// uri and returns the updated Story. full reports whether a complete
// reparse was performed (spec §4.7, §8 property P3: the result must be
// structurally identical to parsing the edited content from scratch
// either way).
func (c *Controller) UpdateDocument(uri string, edit Edit) (st *ast.Story, diags []diag.Diagnostic, full bool) {
	c.mu.Lock()
	ds, ok := c.docs[uri]
	c.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	newContent := splice(ds.content, edit)

	if !editIsConfinedToOnePassage(ds, edit) {
		st, diags = c.ParseDocument(uri, newContent, ds.opts...)
		return st, diags, true
	}

	target := findEnclosingPassage(ds, edit.StartOffset)
	if target == nil {
		st, diags = c.ParseDocument(uri, newContent, ds.opts...)
		return st, diags, true
	}

	st, diags = c.reparsePassageInPlace(uri, ds, *target, edit, newContent)
	return st, diags, false
}

// editIsConfinedToOnePassage implements the "full-reparse trigger" rules
// from spec §4.7: a missing/unknown range, text that could introduce or
// remove a passage marker, or an edit touching a passage's marker line
// (its name and tags are only read by a full parse) forces a full reparse.
func editIsConfinedToOnePassage(ds *docState, edit Edit) bool {
	if edit.StartOffset < 0 || edit.EndOffset > len(ds.content) || edit.StartOffset > edit.EndOffset {
		return false
	}
	if strings.Contains(edit.NewText, "::") {
		return false
	}
	oldText := ds.content[edit.StartOffset:edit.EndOffset]
	if strings.Contains(oldText, "::") {
		return false
	}
	for _, pr := range ds.passageRanges {
		if edit.StartOffset >= pr.startOffset && edit.EndOffset <= pr.endOffset {
			nl := strings.IndexByte(ds.content[pr.startOffset:pr.endOffset], '\n')
			return nl >= 0 && edit.StartOffset > pr.startOffset+nl
		}
	}
	return false
}

func findEnclosingPassage(ds *docState, offset int) *passageRange {
	for i := range ds.passageRanges {
		pr := ds.passageRanges[i]
		if offset >= pr.startOffset && offset <= pr.endOffset {
			return &pr
		}
	}
	return nil
}

// reparsePassageInPlace re-extracts just the edited passage's flow
// structure and content, then re-runs the (cheap, whole-story) semantic
// validator, and shifts the byte ranges of every later passage by the
// edit's length delta instead of recomputing them from scratch.
func (c *Controller) reparsePassageInPlace(uri string, ds *docState, target passageRange, edit Edit, newContent string) (*ast.Story, []diag.Diagnostic) {
	delta := len(edit.NewText) - (edit.EndOffset - edit.StartOffset)

	pg, ok := ds.story.PassageByID(target.id)
	if !ok {
		return c.ParseDocument(uri, newContent, ds.opts...)
	}

	newEnd := target.endOffset + delta
	rawBody := bodyAfterMarkerLine(newContent[target.startOffset:newEnd])

	diags := &diag.Bag{}
	reparsePassageBody(pg, rawBody, uri, diags)

	shifted := make([]passageRange, len(ds.passageRanges))
	for i, pr := range ds.passageRanges {
		if pr.startOffset > target.startOffset {
			pr.startOffset += delta
			pr.endOffset += delta
		} else if pr.id == target.id {
			pr.endOffset = newEnd
		}
		shifted[i] = pr
	}

	parse.Validate(ds.story, diags)
	sorted := diags.Sorted()
	ds.story.Diagnostics = diags

	ds.content = newContent
	ds.lineStarts = computeLineStarts(newContent)
	ds.passageRanges = shifted
	ds.diags = sorted

	c.mu.Lock()
	c.docs[uri] = ds
	c.mu.Unlock()

	return ds.story, sorted
}

func splice(content string, edit Edit) string {
	return content[:edit.StartOffset] + edit.NewText + content[edit.EndOffset:]
}

func computeLineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// computePassageRanges scans content for `::` markers at line start and
// records each passage's byte span, matched up against the already
// structurally-parsed Story's passage order.
func computePassageRanges(content string, st *ast.Story) []passageRange {
	passages := st.Passages()
	if len(passages) == 0 {
		return nil
	}
	var markerOffsets []int
	lines := strings.Split(content, "\n")
	offset := 0
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "::") {
			markerOffsets = append(markerOffsets, offset)
		}
		offset += len(line) + 1
	}
	ranges := make([]passageRange, 0, len(passages))
	for i, pg := range passages {
		if i >= len(markerOffsets) {
			break
		}
		start := markerOffsets[i]
		end := len(content)
		if i+1 < len(markerOffsets) {
			end = markerOffsets[i+1]
		}
		ranges = append(ranges, passageRange{id: pg.ID, startOffset: start, endOffset: end})
	}
	return ranges
}

// bodyAfterMarkerLine strips the `:: Name [tags]` marker line (and any
// immediately-following indented meta lines) from a passage's raw span,
// leaving just the body extractFlow/content operate on. This mirrors
// parsePassage's own split, applied here without a full tokenizer pass
// since the marker line's shape is not changing (the full-reparse guard
// above already catches any edit that could).
func bodyAfterMarkerLine(span string) string {
	idx := strings.IndexByte(span, '\n')
	if idx < 0 {
		return ""
	}
	rest := span[idx+1:]
	for {
		trimmed := strings.TrimLeft(rest, " \t")
		if trimmed == rest || !startsWithIndent(rest) {
			break
		}
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return ""
		}
		rest = rest[nl+1:]
	}
	return rest
}

func startsWithIndent(s string) bool {
	return len(s) > 0 && (s[0] == ' ' || s[0] == '\t')
}

// reparsePassageBody resets a Passage's flow-derived fields and
// re-extracts them from freshly edited raw body text, leaving its
// identity (ID/Name/QualifiedName/Namespace/Span.Start) untouched.
func reparsePassageBody(pg *ast.Passage, rawBody, uri string, diags *diag.Bag) {
	pg.Content = rawBody
	pg.Choices = nil
	pg.Gathers = nil
	pg.TunnelCalls = nil
	pg.HasTunnelReturn = false
	parse.ExtractFlow(rawBody, pg, diags, uri)
	pg.ParsedContent, pg.HookOps = parse.ParseContent(rawBody)
}
