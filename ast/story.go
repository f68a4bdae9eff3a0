// Package ast implements the canonical Whisker story model (spec §3, C6):
// typed value types plus builder methods enforcing the model's invariants.
// Entities are owned by their parent (Story owns passages, variables,
// collections, modules; a Passage owns its choices/gathers/tunnel calls);
// cross-references between entities (a choice's target passage, an
// include's module, a namespace's nested namespaces) are carried by name
// or id and resolved through lookup tables, never by pointer cycles —
// mirroring the ownership discipline of sqlparser.Document owning
// Create/Declare/Error slices in the teacher repo.
package ast

import (
	"fmt"

	"github.com/writewhisker/whisker-core/diag"
)

// Metadata holds the free-form header fields of a Story (spec §3, §4.2).
type Metadata struct {
	Title       string
	Author      string
	Version     string
	IFID        string
	IFIDInvalid bool
	Description string
	Created     string
	Modified    string
	Theme       string
	Fallback    string
	Seed        string
	Tags        []string
	Extra       map[string]string // unrecognized header directives, keyed by directive name
}

// Story is the root of a parsed work. It is built incrementally by the
// parser and is treated as immutable by consumers once parsing completes,
// except through the builder methods below (used by incremental re-parse
// and the Ink importer, both of which construct a Story the same way a
// full parse does).
type Story struct {
	Metadata Metadata

	passages       []*Passage          // insertion order == source order
	passagesByID   map[string]*Passage
	passagesByName map[string]*Passage // first-occurrence wins (spec §3)

	StartPassageID string

	Variables   map[string]*Variable
	variableOrd []string

	Lists  map[string]*List
	Arrays map[string]*Array
	Maps   map[string]*Map

	Includes   []*Include
	Functions  map[string]*Function
	Namespaces map[string]*Namespace

	Settings Settings

	Styles map[string]string // STYLE { --css-var: value; ... } declarations

	Diagnostics *diag.Bag

	passageCounter int
}

// New returns an empty Story with its containers initialized and default
// Settings (spec §3 Settings).
func New() *Story {
	return &Story{
		passagesByID:   make(map[string]*Passage),
		passagesByName: make(map[string]*Passage),
		Variables:      make(map[string]*Variable),
		Lists:          make(map[string]*List),
		Arrays:         make(map[string]*Array),
		Maps:           make(map[string]*Map),
		Functions:      make(map[string]*Function),
		Namespaces:     make(map[string]*Namespace),
		Styles:         make(map[string]string),
		Settings:       DefaultSettings(),
		Diagnostics:    &diag.Bag{},
	}
}

// NextPassageID allocates the next stable id for a passage with the given
// qualified name: `passage_<counter>_<qname>` (spec §3 Passage).
func (s *Story) NextPassageID(qualifiedName string) string {
	s.passageCounter++
	return fmt.Sprintf("passage_%d_%s", s.passageCounter, qualifiedName)
}

// AddPassage registers a passage. It fails only if another passage
// already holds the same id (an internal invariant violation — ids are
// generator-assigned and should never collide). A duplicate *name* is not
// an error: it is recorded as a WLS-STR-001 warning by the caller and the
// first occurrence remains authoritative in PassageByName.
func (s *Story) AddPassage(p *Passage) error {
	if _, exists := s.passagesByID[p.ID]; exists {
		return fmt.Errorf("ast: duplicate passage id %q", p.ID)
	}
	s.passages = append(s.passages, p)
	s.passagesByID[p.ID] = p
	if _, exists := s.passagesByName[p.QualifiedName]; !exists {
		s.passagesByName[p.QualifiedName] = p
	}
	return nil
}

// Passages returns passages in insertion (source) order.
func (s *Story) Passages() []*Passage { return s.passages }

// PassageByID looks up a passage by its stable id.
func (s *Story) PassageByID(id string) (*Passage, bool) {
	p, ok := s.passagesByID[id]
	return p, ok
}

// PassageByName looks up a passage by qualified name; on duplicate names
// the first-occurring passage is returned, per spec §3.
func (s *Story) PassageByName(qualifiedName string) (*Passage, bool) {
	p, ok := s.passagesByName[qualifiedName]
	return p, ok
}

// SetStartPassage fails if no passage with the given id exists.
func (s *Story) SetStartPassage(id string) error {
	if _, ok := s.passagesByID[id]; !ok {
		return fmt.Errorf("ast: no such passage id %q", id)
	}
	s.StartPassageID = id
	return nil
}

// ResolveStartPassage resolves the start passage: an explicit @start directive,
// else a passage literally named "Start", else the first declared
// passage (spec §4.2 "resolve the start passage").
func (s *Story) ResolveStartPassage() *Passage {
	if s.StartPassageID != "" {
		if p, ok := s.passagesByID[s.StartPassageID]; ok {
			return p
		}
	}
	if p, ok := s.passagesByName["Start"]; ok {
		return p
	}
	if len(s.passages) > 0 {
		return s.passages[0]
	}
	return nil
}

// AddVariable registers a top-level variable declaration, preserving
// first-declared-wins ordering for iteration.
func (s *Story) AddVariable(v *Variable) {
	if _, exists := s.Variables[v.Name]; !exists {
		s.variableOrd = append(s.variableOrd, v.Name)
	}
	s.Variables[v.Name] = v
}

// VariablesInOrder returns variables in declaration order.
func (s *Story) VariablesInOrder() []*Variable {
	out := make([]*Variable, 0, len(s.variableOrd))
	for _, name := range s.variableOrd {
		out = append(out, s.Variables[name])
	}
	return out
}

// ReservedTargets are divert/choice/tunnel targets that are never resolved
// against the passage table (spec §4.2, §4.5).
var ReservedTargets = map[string]bool{
	"END":     true,
	"BACK":    true,
	"RESTART": true,
}
