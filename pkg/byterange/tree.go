package byterange

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// A Tree is a hierarchy of byte ranges over one shared backing buffer.
//
// Nodes live in an arena owned by the Tree and refer to their parent by index,
// so a node's absolute offset is the sum of the starts along its parent chain.
// The mutex lets independent subtrees (e.g. the slices of a fat binary) be
// built from separate goroutines.
type Tree struct {
	mu     sync.RWMutex
	nodes  []node
	buf    []byte
	hasBuf bool
}

type node struct {
	rng      Range
	parent   int
	children []int
	data     any
}

// A Node is a handle to one range of a Tree.
type Node struct {
	t  *Tree
	id int
}

// New returns a tree whose root covers all of buf.
func New(buf []byte) *Tree {
	t := &Tree{buf: buf, hasBuf: true}
	t.nodes = append(t.nodes, node{rng: Range{0, int64(len(buf))}, parent: -1})
	return t
}

// NewSized returns a tree of the given length with no buffer attached.
func NewSized(length int64) *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, node{rng: Range{0, length}, parent: -1})
	return t
}

func (t *Tree) Root() Node { return Node{t: t, id: 0} }

// Buffer returns the backing buffer, or nil if none is attached.
func (t *Tree) Buffer() []byte { return t.buf }

// Size returns the number of nodes in the tree.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

func (n Node) IsZero() bool { return n.t == nil }
func (n Node) Tree() *Tree  { return n.t }
func (n Node) ID() int      { return n.id }

// Range returns the node's range relative to its parent.
func (n Node) Range() Range {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	return n.t.nodes[n.id].rng
}

func (n Node) Start() int64 { return n.Range().Start }
func (n Node) Stop() int64  { return n.Range().Stop }
func (n Node) Len() int64   { return n.Range().Len() }

func (n Node) Data() any {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	return n.t.nodes[n.id].data
}

func (n Node) SetData(data any) {
	n.t.mu.Lock()
	n.t.nodes[n.id].data = data
	n.t.mu.Unlock()
}

// Parent returns the node's parent; ok is false for the root.
func (n Node) Parent() (Node, bool) {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	p := n.t.nodes[n.id].parent
	if p < 0 {
		return Node{}, false
	}
	return Node{t: n.t, id: p}, true
}

// Children returns the node's subranges sorted by start.
func (n Node) Children() []Node {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	ids := n.t.nodes[n.id].children
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{t: n.t, id: id}
	}
	return out
}

func (n Node) NumChildren() int {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	return len(n.t.nodes[n.id].children)
}

// AddSubrange creates a child covering [offset, offset+length) of n.
func (n Node) AddSubrange(offset, length int64, data any) (Node, error) {
	n.t.mu.Lock()
	defer n.t.mu.Unlock()
	id, err := n.t.addSubrange(n.id, offset, length, data)
	if err != nil {
		return Node{}, err
	}
	return Node{t: n.t, id: id}, nil
}

// checkBounds reports whether [offset, offset+length) fits in node pid.
// The sum is never formed so a huge length cannot wrap.
func (t *Tree) checkBounds(pid int, offset, length int64) error {
	plen := t.nodes[pid].rng.Len()
	if offset < 0 || length < 0 || offset > plen || length > plen-offset {
		return errors.Wrapf(ErrOutOfBounds, "subrange %d+%d of %d-byte range", offset, length, plen)
	}
	return nil
}

func (t *Tree) addSubrange(pid int, offset, length int64, data any) (int, error) {
	if err := t.checkBounds(pid, offset, length); err != nil {
		return -1, err
	}
	r := Range{Start: offset, Stop: offset + length}

	idx, err := t.insertPos(pid, r)
	if err != nil {
		return -1, err
	}
	t.nodes = append(t.nodes, node{rng: r, parent: pid, data: data})
	id := len(t.nodes) - 1
	t.nodes[pid].children = slices.Insert(t.nodes[pid].children, idx, id)
	return id, nil
}

func (t *Tree) insertPos(pid int, r Range) (int, error) {
	children := t.nodes[pid].children
	if len(children) == 0 || r.Greater(t.nodes[children[len(children)-1]].rng) {
		return len(children), nil
	}
	for i, c := range children {
		cr := t.nodes[c].rng
		if r.Less(cr) {
			return i, nil
		}
		if r.Greater(cr) {
			continue
		}
		return -1, errors.Wrapf(ErrOverlap, "new range %d-%d overlaps %d-%d", r.Start, r.Stop, cr.Start, cr.Stop)
	}
	return len(children), nil
}

// InsertSubrange creates a child covering [offset, offset+length) of n and
// moves every existing child inside that span beneath it. A child that only
// partially overlaps the span is a boundary violation.
func (n Node) InsertSubrange(offset, length int64, data any) (Node, error) {
	t := n.t
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkBounds(n.id, offset, length); err != nil {
		return Node{}, err
	}
	span := Range{Start: offset, Stop: offset + length}
	var (
		contained []int
		remaining []int
	)
	for _, c := range t.nodes[n.id].children {
		cr := t.nodes[c].rng
		if cr.Less(span) || cr.Greater(span) {
			remaining = append(remaining, c)
			continue
		}
		if !span.Contains(cr) {
			return Node{}, errors.Wrapf(ErrBoundaryViolation, "subrange %d-%d spans boundary of %d-%d",
				cr.Start, cr.Stop, span.Start, span.Stop)
		}
		contained = append(contained, c)
	}

	saved := t.nodes[n.id].children
	t.nodes[n.id].children = remaining
	id, err := t.addSubrange(n.id, offset, length, data)
	if err != nil {
		t.nodes[n.id].children = saved
		return Node{}, err
	}

	for _, c := range contained {
		cn := &t.nodes[c]
		cn.rng = Range{Start: cn.rng.Start - offset, Stop: cn.rng.Stop - offset}
		cn.parent = id
	}
	t.nodes[id].children = contained
	return Node{t: t, id: id}, nil
}

func (t *Tree) absStart(id int) int64 {
	var start int64
	for id >= 0 {
		start += t.nodes[id].rng.Start
		id = t.nodes[id].parent
	}
	return start
}

// AbsStart returns the node's offset in the backing buffer.
func (n Node) AbsStart() int64 {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	return n.t.absStart(n.id)
}

// AbsRange returns the node's absolute [start, stop).
func (n Node) AbsRange() (int64, int64) {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	abs := n.t.absStart(n.id)
	return abs, abs + n.t.nodes[n.id].rng.Len()
}

// AbsSpan converts the node-relative span [start, stop) to absolute offsets.
func (n Node) AbsSpan(start, stop int64) (int64, int64) {
	abs := n.AbsStart()
	return abs + start, abs + stop
}

// DoesPartition reports whether the node's children cover it exactly, with
// no gaps, and every child partitions in turn. A leaf always partitions.
func (n Node) DoesPartition() bool {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	return n.t.partitions(n.id)
}

func (t *Tree) partitions(id int) bool {
	children := t.nodes[id].children
	if len(children) == 0 {
		return true
	}
	var cur int64
	for _, c := range children {
		cr := t.nodes[c].rng
		if cr.Start != cur {
			return false
		}
		if !t.partitions(c) {
			return false
		}
		cur = cr.Stop
	}
	return cur == t.nodes[id].rng.Len()
}

// Bytes returns the node-relative span [start, stop) of the root buffer.
func (n Node) Bytes(start, stop int64) ([]byte, error) {
	t := n.t
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.hasBuf {
		return nil, ErrNoBuffer
	}
	if start < 0 || stop < start || stop > t.nodes[n.id].rng.Len() {
		return nil, errors.Wrapf(ErrOutOfBounds, "bytes %d-%d of %d-byte range", start, stop, t.nodes[n.id].rng.Len())
	}
	abs := t.absStart(n.id)
	if abs+stop > int64(len(t.buf)) {
		return nil, errors.Wrapf(ErrOutOfBounds, "bytes %d-%d past end of buffer", abs+start, abs+stop)
	}
	return t.buf[abs+start : abs+stop], nil
}

// All returns every byte of the node.
func (n Node) All() ([]byte, error) { return n.Bytes(0, n.Len()) }

// A VisitFunc is called for each node of a traversal with its absolute span
// and its depth below the node the traversal started from. A nil result is
// left out of the traversal's results.
type VisitFunc func(n Node, absStart, absStop int64, depth int) any

type visit struct {
	id         int
	start, end int64
	depth      int
}

func (t *Tree) walk(id int, abs int64, depth int, leavesOnly bool, out []visit) []visit {
	nd := &t.nodes[id]
	if !leavesOnly || len(nd.children) == 0 {
		out = append(out, visit{id: id, start: abs, end: abs + nd.rng.Len(), depth: depth})
	}
	for _, c := range nd.children {
		out = t.walk(c, abs+t.nodes[c].rng.Start, depth+1, leavesOnly, out)
	}
	return out
}

func (n Node) traverse(fn VisitFunc, leavesOnly bool) []any {
	n.t.mu.RLock()
	order := n.t.walk(n.id, n.t.absStart(n.id), 0, leavesOnly, nil)
	n.t.mu.RUnlock()

	var results []any
	for _, v := range order {
		if r := fn(Node{t: n.t, id: v.id}, v.start, v.end, v.depth); r != nil {
			results = append(results, r)
		}
	}
	return results
}

// Iterate walks the subtree rooted at n in pre-order, children sorted by start.
func (n Node) Iterate(fn VisitFunc) []any { return n.traverse(fn, false) }

// IterateLeaves is Iterate restricted to nodes without children.
func (n Node) IterateLeaves(fn VisitFunc) []any { return n.traverse(fn, true) }

// ScanGap fills every span of n not covered by a child with a new child whose
// data is produced by filler. Nothing is added to a node without children.
// filler must not call back into the tree.
func (n Node) ScanGap(filler func(start, stop int64) any) error {
	t := n.t
	t.mu.Lock()
	defer t.mu.Unlock()

	children := t.nodes[n.id].children
	if len(children) == 0 {
		return nil
	}
	var gaps []Range
	var cur int64
	for _, c := range children {
		cr := t.nodes[c].rng
		if cr.Start > cur {
			gaps = append(gaps, Range{Start: cur, Stop: cr.Start})
		}
		cur = cr.Stop
	}
	if end := t.nodes[n.id].rng.Len(); end > cur {
		gaps = append(gaps, Range{Start: cur, Stop: end})
	}
	for _, g := range gaps {
		if _, err := t.addSubrange(n.id, g.Start, g.Len(), filler(g.Start, g.Stop)); err != nil {
			return err
		}
	}
	return nil
}

func (n Node) String() string {
	if n.t == nil {
		return "<BytesRange:nil>"
	}
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()
	nd := n.t.nodes[n.id]
	var sb strings.Builder
	fmt.Fprintf(&sb, "<BytesRange:%d-%d", nd.rng.Start, nd.rng.Stop)
	for i, c := range nd.children {
		sep := ","
		if i == 0 {
			sep = ":"
		}
		cr := n.t.nodes[c].rng
		fmt.Fprintf(&sb, "%s%d-%d", sep, cr.Start, cr.Stop)
	}
	sb.WriteString(">")
	return sb.String()
}
