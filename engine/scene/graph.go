// Package scene keeps drawable elements in a tagged tree. Nodes live in an
// arena and are addressed by NodeID; an id whose node was removed is stale
// and rejected rather than aliasing a newer node.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
)

const rootTag = "root"

var (
	ErrStaleNode    = errors.New("scene node does not exist")
	ErrDuplicateTag = errors.New("a sibling already uses this tag")
	ErrNilElement   = errors.New("scene element is nil")
	ErrRootNode     = errors.New("operation not allowed on the root node")
	ErrCycle        = errors.New("node cannot be moved below itself")
	ErrNotGroup     = errors.New("only group nodes can have children")
)

// Element is anything the graph can draw and transform.
type Element interface {
	Draw() renderer.DrawStatus
	Translate(dx, dy float32)
	Rotate(angle float32, axis math.Axis)
	Scale(sx, sy float32)
	SetView(view mgl32.Mat4)
	Destroy() error
}

// NodeID addresses a node. The zero value is never valid.
type NodeID struct {
	index      uint32
	generation uint32
}

func (id NodeID) String() string {
	return fmt.Sprintf("node(%d@%d)", id.index, id.generation)
}

type node struct {
	tag        string
	element    Element
	parent     uint32
	children   []uint32
	generation uint32
	live       bool
}

// Graph is a tree of groups (inner nodes) and leaves (elements). It is not
// safe for concurrent use; callbacks that mutate the graph while it is
// being walked panic.
type Graph struct {
	nodes      []node
	free       []uint32
	traversing int
	view       mgl32.Mat4
}

func NewGraph() *Graph {
	g := &Graph{view: mgl32.Ident4()}
	// generations start at 1 so the zero NodeID never resolves
	g.nodes = append(g.nodes, node{tag: rootTag, generation: 1, live: true})
	return g
}

// Root is the group every other node descends from.
func (g *Graph) Root() NodeID {
	return NodeID{index: 0, generation: g.nodes[0].generation}
}

func (g *Graph) get(id NodeID) (*node, error) {
	if int(id.index) >= len(g.nodes) {
		return nil, fmt.Errorf("%w: %s", ErrStaleNode, id)
	}
	n := &g.nodes[id.index]
	if !n.live || n.generation != id.generation {
		return nil, fmt.Errorf("%w: %s", ErrStaleNode, id)
	}
	return n, nil
}

func (g *Graph) idOf(index uint32) NodeID {
	return NodeID{index: index, generation: g.nodes[index].generation}
}

func (g *Graph) mutating() {
	if g.traversing > 0 {
		panic("scene: graph mutated while it is being traversed")
	}
}

func (g *Graph) childByTag(parent *node, tag string) (uint32, bool) {
	for _, c := range parent.children {
		if g.nodes[c].tag == tag {
			return c, true
		}
	}
	return 0, false
}

func (g *Graph) insert(parent NodeID, tag string, element Element) (NodeID, error) {
	g.mutating()
	p, err := g.get(parent)
	if err != nil {
		return NodeID{}, err
	}
	if p.element != nil {
		return NodeID{}, fmt.Errorf("%w: '%s'", ErrNotGroup, p.tag)
	}
	if tag == "" {
		tag = uuid.NewString()
	}
	if _, dup := g.childByTag(p, tag); dup {
		return NodeID{}, fmt.Errorf("%w: '%s'", ErrDuplicateTag, tag)
	}

	n := node{tag: tag, element: element, parent: parent.index, live: true}
	var index uint32
	if last := len(g.free) - 1; last >= 0 {
		index = g.free[last]
		g.free = g.free[:last]
		n.generation = g.nodes[index].generation + 1
		g.nodes[index] = n
	} else {
		index = uint32(len(g.nodes))
		n.generation = 1
		g.nodes = append(g.nodes, n)
	}
	// p may have moved when the arena grew
	g.nodes[parent.index].children = append(g.nodes[parent.index].children, index)
	if element != nil {
		element.SetView(g.view)
	}
	return g.idOf(index), nil
}

// AddChild appends element as a leaf below parent. An empty tag is replaced
// by a generated one; tags are unique among siblings.
func (g *Graph) AddChild(parent NodeID, tag string, element Element) (NodeID, error) {
	if element == nil {
		return NodeID{}, ErrNilElement
	}
	return g.insert(parent, tag, element)
}

// AddGroup appends an empty group below parent.
func (g *Graph) AddGroup(parent NodeID, tag string) (NodeID, error) {
	return g.insert(parent, tag, nil)
}

// GetChild looks tag up among the direct children of parent only.
func (g *Graph) GetChild(parent NodeID, tag string) (NodeID, bool) {
	p, err := g.get(parent)
	if err != nil {
		return NodeID{}, false
	}
	if c, ok := g.childByTag(p, tag); ok {
		return g.idOf(c), true
	}
	return NodeID{}, false
}

// Find searches the whole tree depth first, parents before children, and
// returns the first node tagged tag.
func (g *Graph) Find(tag string) (NodeID, bool) {
	var found NodeID
	ok := false
	g.walk(0, func(index uint32) bool {
		if g.nodes[index].tag == tag {
			found, ok = g.idOf(index), true
			return false
		}
		return true
	})
	return found, ok
}

// walk visits the subtree of index in pre-order until visit returns false.
func (g *Graph) walk(index uint32, visit func(index uint32) bool) bool {
	g.traversing++
	defer func() { g.traversing-- }()
	return g.walkLocked(index, visit)
}

func (g *Graph) walkLocked(index uint32, visit func(uint32) bool) bool {
	if !visit(index) {
		return false
	}
	for _, c := range g.nodes[index].children {
		if !g.walkLocked(c, visit) {
			return false
		}
	}
	return true
}

// Walk calls fn for every node in the subtree of id, id included, in draw
// order. element is nil for groups. fn must not mutate the graph.
func (g *Graph) Walk(id NodeID, fn func(id NodeID, tag string, element Element)) error {
	if _, err := g.get(id); err != nil {
		return err
	}
	g.walk(id.index, func(index uint32) bool {
		n := &g.nodes[index]
		fn(g.idOf(index), n.tag, n.element)
		return true
	})
	return nil
}

func (g *Graph) Element(id NodeID) (Element, error) {
	n, err := g.get(id)
	if err != nil {
		return nil, err
	}
	return n.element, nil
}

func (g *Graph) Tag(id NodeID) (string, error) {
	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	return n.tag, nil
}

// Children returns the direct children of id in insertion order.
func (g *Graph) Children(id NodeID) ([]NodeID, error) {
	n, err := g.get(id)
	if err != nil {
		return nil, err
	}
	ids := make([]NodeID, 0, len(n.children))
	for _, c := range n.children {
		ids = append(ids, g.idOf(c))
	}
	return ids, nil
}

func (g *Graph) Parent(id NodeID) (NodeID, error) {
	if _, err := g.get(id); err != nil {
		return NodeID{}, err
	}
	if id.index == 0 {
		return NodeID{}, ErrRootNode
	}
	return g.idOf(g.nodes[id.index].parent), nil
}

// Len counts the live nodes, root included.
func (g *Graph) Len() int {
	return len(g.nodes) - len(g.free)
}

// Draw draws every element of the subtree of id in insertion order. A failure
// does not stop the traversal; the first one is returned.
func (g *Graph) Draw(id NodeID) renderer.DrawStatus {
	if _, err := g.get(id); err != nil {
		return renderer.StatusFailed(err)
	}
	result := renderer.StatusSuccess()
	g.walk(id.index, func(index uint32) bool {
		if e := g.nodes[index].element; e != nil {
			if s := e.Draw(); !s.OK() && result.OK() {
				result = s
			}
		}
		return true
	})
	return result
}

func (g *Graph) each(id NodeID, fn func(Element)) error {
	return g.Walk(id, func(_ NodeID, _ string, e Element) {
		if e != nil {
			fn(e)
		}
	})
}

// Translate moves every element of the subtree of id.
func (g *Graph) Translate(id NodeID, dx, dy float32) error {
	return g.each(id, func(e Element) { e.Translate(dx, dy) })
}

// Rotate rotates every element of the subtree of id by angle radians.
func (g *Graph) Rotate(id NodeID, angle float32, axis math.Axis) error {
	return g.each(id, func(e Element) { e.Rotate(angle, axis) })
}

func (g *Graph) Scale(id NodeID, sx, sy float32) error {
	return g.each(id, func(e Element) { e.Scale(sx, sy) })
}

// SetView hands the camera matrix to every element, current and future.
func (g *Graph) SetView(view mgl32.Mat4) {
	g.view = view
	g.each(g.Root(), func(e Element) { e.SetView(view) })
}

func (g *Graph) isAncestor(ancestor, index uint32) bool {
	for index != 0 {
		if index == ancestor {
			return true
		}
		index = g.nodes[index].parent
	}
	return ancestor == 0
}

// Move reparents id below newParent, keeping its subtree.
func (g *Graph) Move(id, newParent NodeID) error {
	g.mutating()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if id.index == 0 {
		return ErrRootNode
	}
	p, err := g.get(newParent)
	if err != nil {
		return err
	}
	if p.element != nil {
		return fmt.Errorf("%w: '%s'", ErrNotGroup, p.tag)
	}
	if g.isAncestor(id.index, newParent.index) {
		return ErrCycle
	}
	if n.parent == newParent.index {
		return nil
	}
	if _, dup := g.childByTag(p, n.tag); dup {
		return fmt.Errorf("%w: '%s'", ErrDuplicateTag, n.tag)
	}

	g.detach(id.index)
	n.parent = newParent.index
	p.children = append(p.children, id.index)
	return nil
}

func (g *Graph) detach(index uint32) {
	parent := &g.nodes[g.nodes[index].parent]
	for i, c := range parent.children {
		if c == index {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return
		}
	}
}

// Remove deletes id and its subtree, destroying their elements. Ids of
// removed nodes become stale.
func (g *Graph) Remove(id NodeID) error {
	g.mutating()
	if _, err := g.get(id); err != nil {
		return err
	}
	if id.index == 0 {
		return ErrRootNode
	}
	g.detach(id.index)
	return g.release(id.index)
}

func (g *Graph) release(index uint32) error {
	n := &g.nodes[index]
	var errs []error
	for _, c := range n.children {
		errs = append(errs, g.release(c))
	}
	if n.element != nil {
		errs = append(errs, n.element.Destroy())
	}
	n.live = false
	n.element = nil
	n.children = nil
	g.free = append(g.free, index)
	return errors.Join(errs...)
}

// Destroy removes every node below the root.
func (g *Graph) Destroy() error {
	g.mutating()
	var errs []error
	for _, c := range g.nodes[0].children {
		errs = append(errs, g.release(c))
	}
	g.nodes[0].children = nil
	return errors.Join(errs...)
}
