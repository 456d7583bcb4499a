package actor

import "fmt"

// LocalNode is the sentinel node name used for addresses that have not been
// assigned to a specific cluster node. A single-process deployment never
// needs anything else; the field exists so a cluster membership protocol
// has somewhere to write a real node identifier.
const LocalNode = "local"

// Address is an actor's stable logical identity. Equality is by Path, which
// is immutable for the life of the actor and unique within the system.
type Address struct {
	// ID is the caller-chosen or generated identifier for the actor,
	// unique within (Node, Type).
	ID string

	// Type groups actors that share a behavior/role, e.g. "counter" or
	// "worker". Used by listByType.
	Type string

	// Node is the logical node the actor resides on. LocalNode is the
	// unset sentinel for single-process deployments.
	Node string

	// Path is the canonical "actor://<node>/<type>/<id>" rendering of
	// the address and is the cache/registry key used throughout the
	// directory.
	Path string
}

// NewAddress builds an Address for the given node/type/id, computing its
// canonical Path. An empty node is normalized to LocalNode.
func NewAddress(node, typ, id string) Address {
	if node == "" {
		node = LocalNode
	}

	return Address{
		ID:   id,
		Type: typ,
		Node: node,
		Path: formatPath(node, typ, id),
	}
}

func formatPath(node, typ, id string) string {
	return fmt.Sprintf("actor://%s/%s/%s", node, typ, id)
}

// IsZero reports whether this is the unset Address{}.
func (a Address) IsZero() bool {
	return a.Path == ""
}

// String implements fmt.Stringer by returning the canonical path.
func (a Address) String() string {
	return a.Path
}
