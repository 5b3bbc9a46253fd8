package model

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// --- Source Types ---
//
// The source types are the already-parsed, format-agnostic animation representation handed to the
// animation loader. Importers (glTF, or any other interchange format) produce them; nothing in this
// package reads files.

// SourceNode is one node of the imported node hierarchy.
type SourceNode struct {
	// Name is the node name exactly as it appears in the source, vendor prefix included.
	Name string

	// Transform is the node's bind-pose transform relative to its parent (column-major).
	Transform mgl32.Mat4

	// Children are the node's children in source order.
	Children []*SourceNode
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float64

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float64

	// Value is the quaternion value at this keyframe.
	Value mgl32.Quat
}

// SourceChannel contains keyframe data for a single animated node.
type SourceChannel struct {
	// NodeName is the name of the node this channel animates, vendor prefix included.
	NodeName string

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// SourceAnimation represents a single animation (walk, run, attack, etc.) in a source scene.
type SourceAnimation struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in ticks.
	Duration float64

	// TicksPerSecond is the tick rate of the animation clock. Zero means unspecified.
	TicksPerSecond float64

	// Channels contains animation data for each animated node.
	Channels []SourceChannel
}

// SourceScene is a parsed animation source: one node hierarchy and every animation bundled with it.
type SourceScene struct {
	// Name identifies the source (usually its file path).
	Name string

	// Root is the root of the node hierarchy.
	Root *SourceNode

	// Animations are all animations in the source, in source order.
	Animations []SourceAnimation
}

// --- Binding Types ---

// BindingEntry is the skinning slot of one bone.
type BindingEntry struct {
	// Index is the slot in the skinning matrix array written for this bone.
	Index int

	// Offset is the inverse bind-pose matrix taking mesh-space geometry into the bone's rest space.
	Offset mgl32.Mat4
}

// BoneBindingTable maps normalized bone names to their binding entries.
type BoneBindingTable map[string]BindingEntry

// Clone returns an independent copy of the table.
//
// Returns:
//   - BoneBindingTable: the copy
func (t BoneBindingTable) Clone() BoneBindingTable {
	out := make(BoneBindingTable, len(t))
	for name, entry := range t {
		out[name] = entry
	}
	return out
}

// Names returns the table's bone names ordered by binding index.
//
// Returns:
//   - []string: bone names sorted by index, ties broken by name
func (t BoneBindingTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := t[names[i]], t[names[j]]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return names[i] < names[j]
	})
	return names
}

// MeshBindings is what the mesh importer hands to the animation loader: the mesh's bind-pose bone table
// and the counter the next new bone index is taken from.
type MeshBindings struct {
	// Table maps normalized bone names to binding entries.
	Table BoneBindingTable

	// BoneCount is the next unused bone index.
	BoneCount int
}

// NewMeshBindings builds MeshBindings from bone names in index order and their offset matrices.
// Missing offsets default to identity. A repeated name keeps its first index.
//
// Parameters:
//   - names: bone names; names[i] gets index i
//   - offsets: inverse bind matrices, aligned with names
//
// Returns:
//   - *MeshBindings: the bindings with BoneCount set to len(names)
func NewMeshBindings(names []string, offsets []mgl32.Mat4) *MeshBindings {
	mb := &MeshBindings{
		Table:     make(BoneBindingTable, len(names)),
		BoneCount: len(names),
	}
	for i, name := range names {
		if _, exists := mb.Table[name]; exists {
			// first occurrence keeps the name; the slot stays reserved
			continue
		}
		offset := mgl32.Ident4()
		if i < len(offsets) {
			offset = offsets[i]
		}
		mb.Table[name] = BindingEntry{Index: i, Offset: offset}
	}
	return mb
}
