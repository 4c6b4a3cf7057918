package hierarchy

import (
	"fmt"
	"sort"
)

// Store is an append-only arena of nodes. Once added, a node's type,
// description, Aux payload, and metadata never change, callers that
// need a different view of the same data build a new node and link it
// via a Topology instead of mutating this one.
type Store struct {
	types []NodeType
	descs []string
	auxes []any
	metas [][]byte
	// events holds DrawDispatchDma and Sync node indices in creation
	// (therefore ascending) order, so EventIndex can binary-search it.
	events []NodeIndex
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a new node and returns its index. metadata is copied.
func (s *Store) Add(t NodeType, desc string, aux any, metadata []byte) NodeIndex {
	idx := NodeIndex(len(s.types))
	s.types = append(s.types, t)
	s.descs = append(s.descs, desc)
	s.auxes = append(s.auxes, aux)
	var md []byte
	if len(metadata) > 0 {
		md = append([]byte(nil), metadata...)
	}
	s.metas = append(s.metas, md)
	if t == NodeDrawDispatchDma || t == NodeSync {
		s.events = append(s.events, idx)
	}
	return idx
}

// NumNodes returns how many nodes have been added.
func (s *Store) NumNodes() int { return len(s.types) }

// Type returns a node's type.
func (s *Store) Type(n NodeIndex) NodeType { return s.types[n] }

// Desc returns a node's human-readable description.
func (s *Store) Desc(n NodeIndex) string { return s.descs[n] }

// Metadata returns a node's opaque metadata blob, nil if it has none.
func (s *Store) Metadata(n NodeIndex) []byte { return s.metas[n] }

func (s *Store) mustType(n NodeIndex, want NodeType) {
	if s.types[n] != want {
		panic(fmt.Sprintf("hierarchy: node %d is %s, want %s", n, s.types[n], want))
	}
}

// Submit returns n's Aux. Panics if n is not a Submit node.
func (s *Store) Submit(n NodeIndex) SubmitAux {
	s.mustType(n, NodeSubmit)
	return s.auxes[n].(SubmitAux)
}

// Ib returns n's Aux. Panics if n is not an Ib node.
func (s *Store) Ib(n NodeIndex) IbAux {
	s.mustType(n, NodeIb)
	return s.auxes[n].(IbAux)
}

// Packet returns n's Aux. Panics if n is not a Packet node.
func (s *Store) Packet(n NodeIndex) PacketAux {
	s.mustType(n, NodePacket)
	return s.auxes[n].(PacketAux)
}

// RegField returns n's Aux. Panics if n is not a Reg or Field node.
func (s *Store) RegField(n NodeIndex) RegFieldAux {
	if s.types[n] != NodeReg && s.types[n] != NodeField {
		panic(fmt.Sprintf("hierarchy: node %d is %s, want Reg or Field", n, s.types[n]))
	}
	return s.auxes[n].(RegFieldAux)
}

// Marker returns n's Aux. Panics if n is not a Marker node.
func (s *Store) Marker(n NodeIndex) MarkerAux {
	s.mustType(n, NodeMarker)
	return s.auxes[n].(MarkerAux)
}

// Event returns n's Aux. Panics if n is not a DrawDispatchDma node.
func (s *Store) Event(n NodeIndex) EventAux {
	s.mustType(n, NodeDrawDispatchDma)
	return s.auxes[n].(EventAux)
}

// Sync returns n's Aux. Panics if n is not a Sync node.
func (s *Store) Sync(n NodeIndex) SyncAux {
	s.mustType(n, NodeSync)
	return s.auxes[n].(SyncAux)
}

// EventIndex returns n's 1-based rank among all event nodes (in creation
// order), or 0 if n is not an event node.
func (s *Store) EventIndex(n NodeIndex) int {
	i := sort.Search(len(s.events), func(i int) bool { return s.events[i] >= n })
	if i < len(s.events) && s.events[i] == n {
		return i + 1
	}
	return 0
}

// EventNodeIndices returns every event (DrawDispatchDma or Sync) node
// index, in creation order.
func (s *Store) EventNodeIndices() []NodeIndex {
	return append([]NodeIndex(nil), s.events...)
}
