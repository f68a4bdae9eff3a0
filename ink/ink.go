// Package ink implements the Ink-JSON Interchange importer/exporter (C8,
// spec §4.8): a lossy but structurally faithful bridge between a Story
// and a JSON document describing knots, stitches, choices and diverts in
// Ink's vocabulary. The wire schema is the literal container-array shape
// spec §4.8 names — {inkVersion, root, listDefs} — where root is a
// heterogeneous array: a divert string to the start knot, one single-key
// knot-container object per top-level knot, and a trailing "done"
// sentinel closing the story. It keeps Ink's core concepts (inkVersion,
// knot/stitch naming, the choice flag bits, and the divert-to-"done"
// sentinel) intact without reimplementing inklecate's full compiled-JSON
// encoding.
package ink

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/writewhisker/whisker-core/ast"
)

// MinSupportedVersion is the lowest inkVersion this importer accepts
// (spec §4.8).
const MinSupportedVersion = 19

// DefaultExportVersion is the inkVersion stamped on exported documents.
const DefaultExportVersion = 20

// Choice flag bits (spec §4.8), matching ink's own compiled encoding.
const (
	FlagOnceOnly             = 16
	FlagInvisibleDefault     = 8
	FlagHasChoiceOnlyContent = 4
	FlagHasStartContent      = 2
	FlagHasCondition         = 1
)

// doneSentinel is the divert target ink (and this exporter) use in place
// of a real knot name to mean "end of story"; it is also the literal
// final element of the root array (spec §4.8).
const doneSentinel = "done"

// divertPrefix marks a root-array string element as a divert rather than
// a plain knot name.
const divertPrefix = "->"

// document is the decode shape of an Ink-JSON document: root is decoded
// element-by-element since its entries are heterogeneous (a leading
// divert string, middle single-key knot containers, a trailing "done").
type document struct {
	InkVersion int                       `json:"inkVersion"`
	Root       []json.RawMessage         `json:"root"`
	ListDefs   map[string]map[string]int `json:"listDefs,omitempty"`
}

// exportDocument is the encode shape; interface{} elements let
// json.Marshal emit the mixed string/object/string root array directly.
type exportDocument struct {
	InkVersion int                       `json:"inkVersion"`
	Root       []interface{}             `json:"root"`
	ListDefs   map[string]map[string]int `json:"listDefs,omitempty"`
}

type knot struct {
	Text     []string        `json:"text,omitempty"`
	Choices  []choiceJSON    `json:"choices,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Stitches map[string]knot `json:"stitches,omitempty"`
}

type choiceJSON struct {
	Text      string `json:"text"`
	Divert    string `json:"divert"`
	Flags     int    `json:"flags"`
	Condition string `json:"condition,omitempty"`
}

// Import decodes an Ink-JSON document into a Story (spec §4.8 Import).
// It validates inkVersion and the root array's shape — at least a start
// divert and a closing "done" sentinel — and reports an error for
// anything that doesn't match; the parser-level diagnostics machinery is
// not used here since a malformed interchange document is a host-level
// error, not a source-level one.
func Import(data []byte) (*ast.Story, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ink: invalid JSON: %w", err)
	}
	if doc.InkVersion < MinSupportedVersion {
		return nil, fmt.Errorf("ink: inkVersion %d is below the minimum supported version %d", doc.InkVersion, MinSupportedVersion)
	}
	if len(doc.Root) < 2 {
		return nil, fmt.Errorf("ink: root array must have at least a start divert and a %q sentinel", doneSentinel)
	}

	start, err := decodeDivertElement(doc.Root[0])
	if err != nil {
		return nil, fmt.Errorf("ink: root[0]: %w", err)
	}
	if err := expectDoneElement(doc.Root[len(doc.Root)-1]); err != nil {
		return nil, fmt.Errorf("ink: root[%d]: %w", len(doc.Root)-1, err)
	}

	st := ast.New()
	st.Metadata.Extra = map[string]string{"ink_version": fmt.Sprintf("%d", doc.InkVersion)}

	for i, raw := range doc.Root[1 : len(doc.Root)-1] {
		container, err := decodeKnotContainer(raw)
		if err != nil {
			return nil, fmt.Errorf("ink: root[%d]: %w", i+1, err)
		}
		for name, k := range container {
			importKnot(st, name, "", k)
		}
	}
	if start != "" {
		if pg, ok := st.PassageByName(start); ok {
			_ = st.SetStartPassage(pg.ID)
		}
	}
	for listName, members := range doc.ListDefs {
		l := &ast.List{Name: listName}
		for _, m := range orderedListMembers(members) {
			l.Items = append(l.Items, ast.ListItem{Name: m})
		}
		st.Lists[listName] = l
	}
	return st, nil
}

// decodeDivertElement unmarshals a root-array element expected to be a
// bare divert string (e.g. "->Start") and strips the "->" prefix.
func decodeDivertElement(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected a divert string: %w", err)
	}
	if !strings.HasPrefix(s, divertPrefix) {
		return "", fmt.Errorf("divert element %q missing %q prefix", s, divertPrefix)
	}
	return strings.TrimPrefix(s, divertPrefix), nil
}

// expectDoneElement requires a root-array element to be the literal
// "done" sentinel closing the story.
func expectDoneElement(raw json.RawMessage) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("expected the %q sentinel: %w", doneSentinel, err)
	}
	if s != doneSentinel {
		return fmt.Errorf("expected the %q sentinel, got %q", doneSentinel, s)
	}
	return nil
}

// decodeKnotContainer unmarshals a root-array middle element: a
// single-key object mapping one top-level knot name to its body.
func decodeKnotContainer(raw json.RawMessage) (map[string]knot, error) {
	var container map[string]knot
	if err := json.Unmarshal(raw, &container); err != nil {
		return nil, fmt.Errorf("expected a knot container object: %w", err)
	}
	if len(container) != 1 {
		return nil, fmt.Errorf("knot container must have exactly one key, got %d", len(container))
	}
	return container, nil
}

// orderedListMembers returns a list's member names ordered by their
// 1-based ordinal in the interchange document (spec §4.8 lists carry no
// active-subset flag, only declaration order).
func orderedListMembers(members map[string]int) []string {
	ordered := make([]string, len(members))
	for name, idx := range members {
		if idx >= 1 && idx <= len(members) {
			ordered[idx-1] = name
		}
	}
	out := make([]string, 0, len(ordered))
	for _, name := range ordered {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func importKnot(st *ast.Story, name, namespace string, k knot) {
	qname := name
	if namespace != "" {
		qname = namespace + "::" + name
	}
	id := st.NextPassageID(qname)
	pg := ast.NewPassage(id, name, qname, namespace)
	pg.Tags = append([]string(nil), k.Tags...)
	pg.Content = flattenInkText(k.Text)
	for _, c := range k.Choices {
		pg.Choices = append(pg.Choices, choiceFromJSON(c))
	}
	// NextPassageID just minted id a line above; a collision here means
	// Story's own counter invariant broke, not a defect in the imported
	// document, so this is not reported through the normal error return.
	if err := st.AddPassage(pg); err != nil {
		panic(errors.Wrapf(err, "ink: importing knot %q", qname))
	}

	stitchNames := sortedKeys(k.Stitches)
	for _, sname := range stitchNames {
		importKnot(st, sname, qname, k.Stitches[sname])
	}
}

func flattenInkText(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimPrefix(l, "^"))
	}
	return strings.Join(out, "\n")
}

func choiceFromJSON(c choiceJSON) ast.Choice {
	kind := ast.ChoiceSticky
	if c.Flags&FlagOnceOnly != 0 {
		kind = ast.ChoiceOnce
	}
	target := c.Divert
	if target == doneSentinel {
		target = "END"
	}
	condition := ""
	if c.Flags&FlagHasCondition != 0 {
		condition = c.Condition
	}
	return ast.Choice{
		Text:      c.Text,
		Target:    target,
		Condition: condition,
		Kind:      kind,
	}
}

// Export encodes a Story into the Ink-JSON root-array shape (spec §4.8
// Export). Passages are grouped into knots/stitches by splitting their
// qualified name on "::": the first segment is the knot, anything after
// is nested as a stitch. A choice targeting the story's reserved "END"
// target is exported using the "done" sentinel divert rather than a knot
// name; the root array itself always ends with that same sentinel.
func Export(st *ast.Story) ([]byte, error) {
	knots := make(map[string]knot)
	for _, pg := range st.Passages() {
		knotName, stitchPath := splitKnotPath(pg.QualifiedName)
		k := knots[knotName]
		placeInKnot(&k, stitchPath, exportKnot(pg))
		knots[knotName] = k
	}

	startName := ""
	if sp := st.ResolveStartPassage(); sp != nil {
		startName = topLevelKnotName(sp.QualifiedName)
	}

	root := make([]interface{}, 0, len(knots)+2)
	root = append(root, divertPrefix+startName)
	for _, name := range sortedKeys(knots) {
		root = append(root, map[string]knot{name: knots[name]})
	}
	root = append(root, doneSentinel)

	doc := exportDocument{
		InkVersion: DefaultExportVersion,
		Root:       root,
	}
	for name, l := range st.Lists {
		if doc.ListDefs == nil {
			doc.ListDefs = make(map[string]map[string]int)
		}
		members := make(map[string]int, len(l.Items))
		for i, it := range l.Items {
			members[it.Name] = i + 1
		}
		doc.ListDefs[name] = members
	}
	return json.MarshalIndent(doc, "", "  ")
}

func exportKnot(pg *ast.Passage) knot {
	k := knot{Tags: pg.Tags}
	if pg.Content != "" {
		for _, line := range strings.Split(pg.Content, "\n") {
			k.Text = append(k.Text, "^"+line)
		}
	}
	for _, c := range pg.Choices {
		k.Choices = append(k.Choices, choiceToJSON(c))
	}
	return k
}

func choiceToJSON(c ast.Choice) choiceJSON {
	flags := 0
	if c.Kind == ast.ChoiceOnce {
		flags |= FlagOnceOnly
	}
	if c.Condition != "" {
		flags |= FlagHasCondition
	}
	divert := c.Target
	if divert == "END" {
		divert = doneSentinel
	}
	return choiceJSON{Text: c.Text, Divert: divert, Flags: flags, Condition: c.Condition}
}

func topLevelKnotName(qualifiedName string) string {
	name, _ := splitKnotPath(qualifiedName)
	return name
}

func splitKnotPath(qualifiedName string) (knotName string, stitchPath []string) {
	parts := strings.Split(qualifiedName, "::")
	return parts[0], parts[1:]
}

func placeInKnot(k *knot, path []string, leaf knot) {
	if len(path) == 0 {
		k.Text = leaf.Text
		k.Choices = leaf.Choices
		if k.Tags == nil {
			k.Tags = leaf.Tags
		}
		return
	}
	if k.Stitches == nil {
		k.Stitches = make(map[string]knot)
	}
	child := k.Stitches[path[0]]
	placeInKnot(&child, path[1:], leaf)
	k.Stitches[path[0]] = child
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
