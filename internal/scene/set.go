package scene

import "sort"

// NodeSet is an unordered set of node identifiers.
type NodeSet map[NodeID]struct{}

// NewNodeSet returns a set holding ids.
func NewNodeSet(ids ...NodeID) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s NodeSet) Add(id NodeID) { s[id] = struct{}{} }

// Len returns the number of nodes in the set.
func (s NodeSet) Len() int { return len(s) }

// Has reports whether id is in the set.
func (s NodeSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Clone returns a shallow copy of the set.
func (s NodeSet) Clone() NodeSet {
	out := make(NodeSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union returns the nodes present in s or other.
func (s NodeSet) Union(other NodeSet) NodeSet {
	out := s.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns the nodes present in both s and other.
func (s NodeSet) Intersect(other NodeSet) NodeSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(NodeSet, len(small))
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Difference returns the nodes in s that are not in other.
func (s NodeSet) Difference(other NodeSet) NodeSet {
	out := make(NodeSet, len(s))
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same nodes.
func (s NodeSet) Equal(other NodeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order.
func (s NodeSet) Sorted() []NodeID {
	out := make([]NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValueSet is an unordered set of field values.
type ValueSet map[Value]struct{}

// NewValueSet returns a set holding values.
func NewValueSet(values ...Value) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v into the set.
func (s ValueSet) Add(v Value) { s[v] = struct{}{} }

// Has reports whether v is in the set.
func (s ValueSet) Has(v Value) bool {
	_, ok := s[v]
	return ok
}

// Intersects reports whether s and other share at least one value.
func (s ValueSet) Intersects(other ValueSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for v := range small {
		if large.Has(v) {
			return true
		}
	}
	return false
}
