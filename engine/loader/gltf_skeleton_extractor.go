package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfSyntheticRootName names the root inserted above a scene with several top-level nodes.
const gltfSyntheticRootName = "__scene_root__"

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc       *gltf.Document
	normalize func(string) string
}

// gltfSkeletonExtractor defines the interface for extracting the node hierarchy and skin bindings from a decoded glTF document.
type gltfSkeletonExtractor interface {
	// ExtractHierarchy converts the default scene's node graph into a single-rooted SourceNode tree.
	// A scene with several top-level nodes gets a synthetic identity root above them.
	//
	// Returns:
	//   - *model.SourceNode: the root of the hierarchy
	//   - error: ErrMissingRoot when the document has no nodes, or an error for a bad child index
	ExtractHierarchy() (*model.SourceNode, error)

	// ExtractBindings converts a skin into a binding table. Joint i of the skin is bound to slot i
	// with its inverse bind matrix as offset.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *model.MeshBindings: the skin's binding table
	//   - error: error if extraction fails
	ExtractBindings(skinIndex int) (*model.MeshBindings, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - normalize: maps joint node names to binding table keys
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document, normalize func(string) string) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc, normalize: normalize}
}

func (e *gltfSkeletonExtractorImpl) ExtractHierarchy() (*model.SourceNode, error) {
	doc := e.doc
	if len(doc.Nodes) == 0 {
		return nil, common.ErrMissingRoot
	}

	// One SourceNode per glTF node; children are linked by pointer so a node with two parents
	// or a cycle surfaces as a revisit when the hierarchy is copied into a Skeleton.
	nodes := make([]*model.SourceNode, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if n == nil {
			return nil, errors.Errorf("node %d is null", i)
		}
		nodes[i] = &model.SourceNode{
			Name:      gltfNodeName(doc, uint32(i)),
			Transform: gltfNodeTransform(n),
		}
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) >= len(nodes) {
				return nil, errors.Errorf("node %d: child index %d out of range", i, c)
			}
			nodes[i].Children = append(nodes[i].Children, nodes[c])
		}
	}

	roots, err := e.sceneRoots()
	if err != nil {
		return nil, err
	}
	switch len(roots) {
	case 0:
		return nil, common.ErrMissingRoot
	case 1:
		return nodes[roots[0]], nil
	}

	root := &model.SourceNode{Name: gltfSyntheticRootName, Transform: mgl32.Ident4()}
	for _, r := range roots {
		root.Children = append(root.Children, nodes[r])
	}
	return root, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractBindings(skinIndex int) (*model.MeshBindings, error) {
	doc := e.doc
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, errors.Errorf("skin index %d out of range", skinIndex)
	}
	skin := doc.Skins[skinIndex]

	names := make([]string, len(skin.Joints))
	for i, j := range skin.Joints {
		if int(j) >= len(doc.Nodes) {
			return nil, errors.Errorf("skin %d: joint %d references missing node %d", skinIndex, i, j)
		}
		names[i] = e.normalize(gltfNodeName(doc, j))
	}

	var offsets []mgl32.Mat4
	if skin.InverseBindMatrices != nil {
		var err error
		offsets, err = gltfReadMat4s(doc, *skin.InverseBindMatrices)
		if err != nil {
			return nil, errors.Wrapf(err, "skin %d inverse bind matrices", skinIndex)
		}
		if len(offsets) < len(names) {
			return nil, errors.Errorf("skin %d: %d inverse bind matrices for %d joints", skinIndex, len(offsets), len(names))
		}
	}

	return model.NewMeshBindings(names, offsets), nil
}

// sceneRoots returns the top-level nodes of the default scene, falling back to every parentless node.
func (e *gltfSkeletonExtractorImpl) sceneRoots() ([]uint32, error) {
	doc := e.doc

	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil {
			idx = int(*doc.Scene)
		}
		if idx >= len(doc.Scenes) || doc.Scenes[idx] == nil {
			return nil, errors.Errorf("default scene %d out of range", idx)
		}
		for _, r := range doc.Scenes[idx].Nodes {
			if int(r) >= len(doc.Nodes) {
				return nil, errors.Errorf("scene %d: root index %d out of range", idx, r)
			}
		}
		return doc.Scenes[idx].Nodes, nil
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			hasParent[c] = true
		}
	}
	var roots []uint32
	for i, p := range hasParent {
		if !p {
			roots = append(roots, uint32(i))
		}
	}
	return roots, nil
}

// --- Helper Functions ---

// gltfNodeName returns a node's name, or a stable placeholder for unnamed nodes.
func gltfNodeName(doc *gltf.Document, i uint32) string {
	if n := doc.Nodes[i]; n != nil && n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node_%d", i)
}

// gltfNodeTransform returns a node's local transform from its matrix or its TRS properties.
// Zero-valued properties are treated as their glTF defaults.
func gltfNodeTransform(n *gltf.Node) mgl32.Mat4 {
	m := mgl32.Mat4(n.Matrix)
	if m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		return m
	}

	t := mgl32.Vec3(n.Translation)
	r := mgl32.QuatIdent()
	if n.Rotation != [4]float32{} {
		r = gltfQuat(n.Rotation).Normalize()
	}
	s := mgl32.Vec3{1, 1, 1}
	if n.Scale != [3]float32{} {
		s = mgl32.Vec3(n.Scale)
	}
	return common.ComposeTRS(t, r, s)
}

// gltfQuat converts a glTF [x, y, z, w] rotation into a quaternion.
func gltfQuat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}
