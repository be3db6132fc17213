// Package treeplot draws the tree MrBayes sampled last as a rectangular
// phylogram.
package treeplot

import (
	"fmt"
	"math"

	"github.com/evolbioinfo/gotree/tree"
)

// LabelThreshold is the shortest branch length that gets a label.
const LabelThreshold = 0.01

// BranchLabel formats a branch length for display. Short branches stay
// unlabeled so near-zero lengths do not clutter the plot; a negative length
// means the branch had none.
func BranchLabel(length float64) string {
	if length > LabelThreshold {
		return fmt.Sprintf("%.2f", length)
	}
	return ""
}

// Placed is a node with its drawing coordinates, in tree units: X is the
// distance from the root, Y the tip row.
type Placed struct {
	Name     string
	X, Y     float64
	ParentX  float64
	Length   float64 // -1 for the root or a branch without length
	Label    string  // BranchLabel(Length)
	Tip      bool
	Root     bool
	Children []int // indexes into Layout.Nodes
}

// Layout is a tree flattened for drawing. Nodes[0] is the root.
type Layout struct {
	Nodes []Placed
	Tips  int
	MaxX  float64
	// UnitLengths is set when the tree carried no branch lengths and every
	// branch was drawn with length 1.
	UnitLengths bool
}

// NewLayout places every node of t. Tips are spaced one row apart in
// traversal order; internal nodes sit midway between their first and last
// child.
func NewLayout(t *tree.Tree) (*Layout, error) {
	root := t.Root()
	if root == nil {
		return nil, fmt.Errorf("treeplot: tree has no root")
	}
	l := &Layout{UnitLengths: !hasLengths(root, nil)}
	l.place(root, nil, 0, 0, -1)
	return l, nil
}

func hasLengths(n, parent *tree.Node) bool {
	for i, c := range n.Neigh() {
		if c == parent {
			continue
		}
		if n.Edges()[i].Length() > 0 || hasLengths(c, n) {
			return true
		}
	}
	return false
}

// place appends n and its subtree and returns n's index.
func (l *Layout) place(n, parent *tree.Node, parentX, x, length float64) int {
	idx := len(l.Nodes)
	l.Nodes = append(l.Nodes, Placed{
		Name:    n.Name(),
		X:       x,
		ParentX: parentX,
		Length:  length,
		Label:   BranchLabel(length),
		Root:    parent == nil,
	})
	if x > l.MaxX {
		l.MaxX = x
	}

	var children []int
	for i, c := range n.Neigh() {
		if c == parent {
			continue
		}
		bl := n.Edges()[i].Length()
		step := bl
		switch {
		case l.UnitLengths:
			step = 1
		case bl < 0 || math.IsNaN(bl):
			step, bl = 0, -1
		}
		children = append(children, l.place(c, n, x, x+step, bl))
	}

	p := &l.Nodes[idx]
	if len(children) == 0 {
		p.Tip = true
		p.Y = float64(l.Tips)
		l.Tips++
		return idx
	}
	p.Children = children
	p.Y = (l.Nodes[children[0]].Y + l.Nodes[children[len(children)-1]].Y) / 2
	return idx
}

// niceStep picks a tick spacing of 1, 2 or 5 times a power of ten close to
// span/target.
func niceStep(span float64, target int) float64 {
	if span <= 0 || target <= 0 {
		return 1
	}
	raw := span / float64(target)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / mag; {
	case f < 1.5:
		return mag
	case f < 3.5:
		return 2 * mag
	case f < 7.5:
		return 5 * mag
	default:
		return 10 * mag
	}
}
