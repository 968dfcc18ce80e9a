// Package scene defines the data model shared by the query engine and the
// scene data sources: node identifiers, field values and the Source contract.
package scene

import "strings"

// PathSeparator separates the components of a hierarchical node path.
const PathSeparator = "|"

// NodeID identifies one scene object by its full path. DAG nodes carry a
// leading separator ("|root|mesh"); dependency nodes are bare names ("childSet").
type NodeID string

// ShortName returns the last path component of the node identifier.
func (id NodeID) ShortName() string {
	s := string(id)
	if i := strings.LastIndex(s, PathSeparator); i >= 0 {
		return s[i+len(PathSeparator):]
	}
	return s
}

// Value returns the identifier as a text value.
func (id NodeID) Value() Value {
	return Text(string(id))
}

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindBool
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "absent"
	}
}

// Value is the result of resolving a scalar field, or one element of a
// multi-valued field. It is comparable and can be used as a map key.
type Value struct {
	kind ValueKind
	b    bool
	s    string
}

// Absent returns the value used for fields that have no answer.
func Absent() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether v is the absent marker.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsText returns the text held by v.
func (v Value) AsText() (string, bool) {
	return v.s, v.kind == KindText
}

// AsNode interprets a text value as a node identifier.
func (v Value) AsNode() (NodeID, bool) {
	if v.kind != KindText {
		return "", false
	}
	return NodeID(v.s), true
}

// String renders v the way query literals spell it: none, true, false, or the text.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindText:
		return v.s
	default:
		return "none"
	}
}
