package search

import (
	"fmt"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
)

// Node is one dataset state in the search graph
type Node struct {
	ID          int
	Parent      int // -1 for the root
	Frame       *dataset.Frame
	Reward      float64
	Cumulative  float64
	Improvement float64
	Level       int
	Applied     []string
}

// Edge links a parent to the child produced by one transformation
type Edge struct {
	From           int
	To             int
	Transformation string
}

// Graph is an append-only arena of nodes indexed by id
type Graph struct {
	nodes    []*Node
	children map[int][]Edge
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{children: make(map[int][]Edge)}
}

// AddRoot creates node 0. It fails if the graph already has a root.
func (g *Graph) AddRoot(frame *dataset.Frame, reward float64) (*Node, error) {
	if len(g.nodes) > 0 {
		return nil, fmt.Errorf("graph already has a root")
	}
	root := &Node{ID: 0, Parent: -1, Frame: frame, Reward: reward, Applied: []string{}}
	g.nodes = append(g.nodes, root)
	return root, nil
}

// AddChild appends a node under parent, labeled by the transformation
func (g *Graph) AddChild(parent int, frame *dataset.Frame, transformation string, reward, cumulative float64) (*Node, error) {
	p, ok := g.Node(parent)
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrNodeNotFound, parent)
	}

	applied := make([]string, len(p.Applied), len(p.Applied)+1)
	copy(applied, p.Applied)
	applied = append(applied, transformation)

	n := &Node{
		ID:          len(g.nodes),
		Parent:      parent,
		Frame:       frame,
		Reward:      reward,
		Cumulative:  cumulative,
		Improvement: reward - p.Reward,
		Level:       p.Level + 1,
		Applied:     applied,
	}
	g.nodes = append(g.nodes, n)
	g.children[parent] = append(g.children[parent], Edge{From: parent, To: n.ID, Transformation: transformation})
	return n, nil
}

// Node returns the node with the given id
func (g *Graph) Node(id int) (*Node, bool) {
	if id < 0 || id >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id], true
}

// Root returns node 0, or nil before AddRoot
func (g *Graph) Root() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	return g.nodes[0]
}

// Len is the total number of nodes including the root
func (g *Graph) Len() int { return len(g.nodes) }

// Derived is the number of nodes created by transformations
func (g *Graph) Derived() int { return max(len(g.nodes)-1, 0) }

// Nodes returns all nodes in id order
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Children returns the outgoing edges of a node
func (g *Graph) Children(id int) []Edge {
	return append([]Edge(nil), g.children[id]...)
}

// Edges returns every edge ordered by child id
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.Derived())
	for _, n := range g.nodes[min(1, len(g.nodes)):] {
		edges = append(edges, Edge{From: n.Parent, To: n.ID, Transformation: n.Applied[len(n.Applied)-1]})
	}
	return edges
}
