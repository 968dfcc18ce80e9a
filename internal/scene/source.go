package scene

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned by sources asked about a node they do not know.
var ErrNodeNotFound = errors.New("node not found")

// Filter selects a category of nodes for bulk listing.
type Filter int

const (
	FilterDefault      Filter = iota // nodes created with every new scene
	FilterReferenced                 // nodes brought in by file references
	FilterDisplayLayer               // display layer nodes
)

func (f Filter) String() string {
	switch f {
	case FilterReferenced:
		return "referenced"
	case FilterDisplayLayer:
		return "displayLayer"
	default:
		return "default"
	}
}

// Direction selects which side of a connection to follow.
type Direction int

const (
	Upstream Direction = iota
	Downstream
)

func (d Direction) String() string {
	if d == Downstream {
		return "downstream"
	}
	return "upstream"
}

// NodeInfo is one row of a full scene enumeration.
type NodeInfo struct {
	ID   NodeID
	Type string
}

// Source is the contract a scene data source must satisfy. Implementations are
// called synchronously and are expected to be local and reliable; failures are
// surfaced to the caller without retries.
//
// Display-layer membership is expressed as downstream connections of each
// display-layer node.
type Source interface {
	ListAll() ([]NodeInfo, error)
	List(filter Filter) ([]NodeID, error)
	Parent(id NodeID) (NodeID, bool, error)
	Children(id NodeID) ([]NodeID, error)
	Shapes(id NodeID) ([]NodeID, error)
	SetMemberships(id NodeID) ([]NodeID, error)
	InheritedTypes(id NodeID) ([]string, error)
	Connections(id NodeID, dir Direction) ([]NodeID, error)
	AttributeExists(id NodeID, attr string) (bool, error)
	// AttributeValue returns exactly one of Absent, Bool or Text.
	AttributeValue(id NodeID, attr string) (Value, error)
}

// SourceError wraps a failure reported by a Source.
type SourceError struct {
	Op   string
	Node NodeID
	Err  error
}

func (e *SourceError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("data source %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("data source %s %s: %v", e.Op, e.Node, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
