package ast

// VarType is the closed set of recognized variable declaration types
// (spec §3 Variable declaration, §4.5 Variables).
type VarType int

const (
	TypeInvalid VarType = iota
	TypeInteger
	TypeFloat
	TypeString
	TypeBoolean
	TypeList
	TypeArray
	TypeMap
)

func (t VarType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeList:
		return "list"
	case TypeArray:
		return "array"
	case TypeMap:
		return "map"
	default:
		return "invalid"
	}
}

// ParseVarType maps a lower-case type tag to a VarType; ok is false for
// anything outside the recognized schema (spec §4.5).
func ParseVarType(tag string) (VarType, bool) {
	switch tag {
	case "integer":
		return TypeInteger, true
	case "float":
		return TypeFloat, true
	case "string":
		return TypeString, true
	case "boolean":
		return TypeBoolean, true
	case "list":
		return TypeList, true
	case "array":
		return TypeArray, true
	case "map":
		return TypeMap, true
	default:
		return TypeInvalid, false
	}
}

// Variable is a declared story-level variable (spec §3 Variable declaration).
type Variable struct {
	Name         string
	Type         VarType
	Default      Value
	HasDefault   bool
	ListValues   []ListItem // only populated when Type == TypeList
	DeclaredLine int        // source line of the declaration, for diagnostics
}

// Value is a dynamically-typed literal: one of nil, bool, float64, string,
// or []Value/map[string]Value (one level of nesting, per spec §3 Map).
type Value struct {
	Kind  ValueKind
	Bool  bool
	Num   float64
	Str   string
	List  []Value
	Table map[string]Value
}

type ValueKind int

const (
	ValueNil ValueKind = iota
	ValueBool
	ValueNumber
	ValueString
	ValueList
	ValueTable
)

func BoolValue(b bool) Value    { return Value{Kind: ValueBool, Bool: b} }
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }
func ListValue(items []Value) Value { return Value{Kind: ValueList, List: items} }
func TableValue(m map[string]Value) Value { return Value{Kind: ValueTable, Table: m} }

// DynamicType reports the VarType a Value would match, for the
// default/declared-type mismatch check in spec §4.5.
func (v Value) DynamicType() VarType {
	switch v.Kind {
	case ValueBool:
		return TypeBoolean
	case ValueNumber:
		return TypeFloat
	case ValueString:
		return TypeString
	case ValueList:
		return TypeArray
	case ValueTable:
		return TypeMap
	default:
		return TypeInvalid
	}
}

// ListItem is one named member of a LIST declaration's enumeration.
type ListItem struct {
	Name   string
	Active bool // whether this member is in the "active" subset
}

// List is an ordered symbol set with an active subset (spec §3 Collections).
type List struct {
	Name   string
	Items  []ListItem
}

// Array is an ordered value sequence (spec §3 Collections).
type Array struct {
	Name   string
	Values []Value
}

// Map is a string-keyed value table with recursive one-level array/scalar
// values (spec §3 Collections).
type Map struct {
	Name    string
	Keys    []string // preserves declaration order
	Entries map[string]Value
}

func NewMap(name string) *Map {
	return &Map{Name: name, Entries: make(map[string]Value)}
}

func (m *Map) Set(key string, v Value) {
	if _, exists := m.Entries[key]; !exists {
		m.Keys = append(m.Keys, key)
	}
	m.Entries[key] = v
}
