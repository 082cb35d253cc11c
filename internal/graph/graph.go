// Package graph flattens composed modules into a node store that can be
// walked, indexed by kind and exported to SQLite.
package graph

import (
	"errors"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ErrNotFound is returned for IDs that are not in the store.
var ErrNotFound = errors.New("node not found")

// Kind classifies a node.
type Kind int

const (
	KindModule Kind = iota
	KindFunc
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFunc:
		return "func"
	default:
		return "value"
	}
}

// Node is one binding of a composed module.
type Node struct {
	// ID is the slash-joined path of names from the root.
	ID     string
	Parent string // "" for top-level nodes
	Name   string
	Kind   Kind
	// Value holds leaf data for KindValue nodes.
	Value    any
	Children []string // child IDs, modules only
}

// Graph is the read side shared by MemoryStore and anything that renders
// a tree.
type Graph interface {
	GetNode(id string) (*Node, error)
	ListChildren(id string) ([]string, error)
}

// Target receives nodes. Children are added before their parent.
type Target interface {
	AddRoot(n *Node)
	AddNode(n *Node)
}

// MemoryStore holds nodes in memory with a per-kind bitmap index.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string

	kinds       map[Kind]*roaring.Bitmap
	nodeIntID   map[string]uint32
	intToNodeID []string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[string]*Node),
		roots:     []string{},
		kinds:     make(map[Kind]*roaring.Bitmap),
		nodeIntID: make(map[string]uint32),
	}
}

// AddRoot registers a node as top-level and adds it to the store.
func (s *MemoryStore) AddRoot(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(n)
	for _, r := range s.roots {
		if r == n.ID {
			return
		}
	}
	s.roots = append(s.roots, n.ID)
}

// AddNode adds a non-root node to the store.
func (s *MemoryStore) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(n)
}

// put stores n and moves it to its kind's bitmap. Must be called with s.mu held.
func (s *MemoryStore) put(n *Node) {
	intID, ok := s.nodeIntID[n.ID]
	if !ok {
		intID = uint32(len(s.intToNodeID))
		s.nodeIntID[n.ID] = intID
		s.intToNodeID = append(s.intToNodeID, n.ID)
	} else if old, ok := s.nodes[n.ID]; ok {
		s.kinds[old.Kind].Remove(intID)
	}
	s.nodes[n.ID] = n

	bm, exists := s.kinds[n.Kind]
	if !exists {
		bm = roaring.New()
		s.kinds[n.Kind] = bm
	}
	bm.Add(intID)
}

// GetNode implements Graph.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[strings.TrimPrefix(id, "/")]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren implements Graph. "" and "/" list the roots.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" || id == "/" {
		return s.roots, nil
	}
	n, ok := s.nodes[strings.TrimPrefix(id, "/")]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Children, nil
}

// Len returns the number of nodes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Count returns the number of nodes of kind k.
func (s *MemoryStore) Count(k Kind) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bm, ok := s.kinds[k]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// OfKind returns the IDs of every node of kind k in insertion order.
func (s *MemoryStore) OfKind(k Kind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.kinds[k]
	if !ok {
		return nil
	}
	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, s.intToNodeID[it.Next()])
	}
	return ids
}

// SkipChildren may be returned by a WalkFunc to skip a module's children.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each node with its depth below the starting level.
type WalkFunc func(n *Node, depth int) error

// Walk visits g depth first, parents before children, starting with the
// children of id. Returning SkipChildren from fn prunes that subtree; any
// other error stops the walk and is returned.
func Walk(g Graph, id string, fn WalkFunc) error {
	return walk(g, id, 0, fn)
}

func walk(g Graph, id string, depth int, fn WalkFunc) error {
	children, err := g.ListChildren(id)
	if err != nil {
		return err
	}
	for _, c := range children {
		n, err := g.GetNode(c)
		if err != nil {
			return err
		}
		if err := fn(n, depth); err != nil {
			if errors.Is(err, SkipChildren) {
				continue
			}
			return err
		}
		if n.Kind == KindModule {
			if err := walk(g, n.ID, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ Graph = (*MemoryStore)(nil)
var _ Target = (*MemoryStore)(nil)
