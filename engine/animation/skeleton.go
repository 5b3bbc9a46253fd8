package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// NoParent is the Parent value of the root node.
const NoParent = -1

// SkeletonNode is one node of the bind-pose hierarchy.
type SkeletonNode struct {
	// Name is the normalized node name.
	Name string

	// BindTransform is the node's rest transform relative to its parent.
	BindTransform mgl32.Mat4

	// Parent is the index of the parent node, or NoParent for the root.
	Parent int

	// Children are the indices of the node's children in source order.
	Children []int
}

// Skeleton is the static node hierarchy of a clip, stored as an arena of nodes addressed by index.
// Nodes are laid out in pre-order: the root is node 0 and every parent precedes its descendants.
type Skeleton struct {
	nodes []SkeletonNode
	depth int
}

// NewSkeleton deep-copies a source node tree into an arena, normalizing every node name.
// The copy walks the tree with an explicit stack, so arbitrarily deep sources cannot overflow the call stack.
//
// Parameters:
//   - root: the root of the source hierarchy
//   - normalize: maps a source node name to its lookup key; nil keeps names unchanged
//
// Returns:
//   - *Skeleton: the copied hierarchy
//   - error: ErrMissingRoot when root is nil, ErrMalformedHierarchy when a node is reachable twice
func NewSkeleton(root *model.SourceNode, normalize func(string) string) (*Skeleton, error) {
	if root == nil {
		return nil, common.ErrMissingRoot
	}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}

	type frame struct {
		src    *model.SourceNode
		parent int
		depth  int
	}

	s := &Skeleton{}
	visited := make(map[*model.SourceNode]struct{})
	stack := []frame{{src: root, parent: NoParent, depth: 1}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.src == nil {
			continue
		}
		if _, seen := visited[f.src]; seen {
			return nil, errors.Wrapf(common.ErrMalformedHierarchy, "node %q reached twice", f.src.Name)
		}
		visited[f.src] = struct{}{}

		idx := len(s.nodes)
		s.nodes = append(s.nodes, SkeletonNode{
			Name:          normalize(f.src.Name),
			BindTransform: f.src.Transform,
			Parent:        f.parent,
		})
		if f.parent != NoParent {
			s.nodes[f.parent].Children = append(s.nodes[f.parent].Children, idx)
		}
		s.depth = max(s.depth, f.depth)

		// Push in reverse so children pop, and therefore get indexed, in source order.
		for i := len(f.src.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{src: f.src.Children[i], parent: idx, depth: f.depth + 1})
		}
	}

	return s, nil
}

// Len returns the number of nodes.
func (s *Skeleton) Len() int {
	return len(s.nodes)
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (s *Skeleton) Depth() int {
	return s.depth
}

// Root returns the index of the root node, always 0.
func (s *Skeleton) Root() int {
	return 0
}

// Node returns the node at index i. The returned node must not be modified.
//
// Parameters:
//   - i: the node index
//
// Returns:
//   - *SkeletonNode: the node
func (s *Skeleton) Node(i int) *SkeletonNode {
	return &s.nodes[i]
}

// Find returns the index of the first node, in pre-order, with the given normalized name.
//
// Parameters:
//   - name: the normalized node name
//
// Returns:
//   - int: the node index, or -1 if no node has that name
func (s *Skeleton) Find(name string) int {
	for i := range s.nodes {
		if s.nodes[i].Name == name {
			return i
		}
	}
	return -1
}
