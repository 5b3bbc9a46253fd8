package animation

import (
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// unbound marks a node with no bone or no skinning slot.
const unbound = -1

// Clip is a fully built, immutable animation: the bind hierarchy, one Bone per animated channel,
// and the binding table extended with animation-only bones.
//
// All name lookups are resolved when the clip is built. Per node, the clip stores which bone (if any)
// animates it and which skinning slot (if any) it writes, so evaluation never hashes a string.
// A Clip is read-only and may be shared by any number of Animators on any goroutines.
type Clip struct {
	name           string
	duration       float64
	ticksPerSecond float64

	skeleton  *Skeleton
	bones     []*Bone
	bindings  model.BoneBindingTable
	boneCount int

	boneByName  map[string]int
	nodeBones   []int
	nodeSlots   []int
	nodeOffsets []mgl32.Mat4
	slotsNeeded int
}

// ClipConfig carries the pieces a Clip is assembled from.
type ClipConfig struct {
	// Name is the clip identifier.
	Name string

	// Duration is the clip length in ticks; must be positive.
	Duration float64

	// TicksPerSecond is the tick rate; must be positive.
	TicksPerSecond float64

	// Skeleton is the bind hierarchy with normalized names.
	Skeleton *Skeleton

	// Bones are the animated bones, unique by name.
	Bones []*Bone

	// Bindings is the extended binding table. The clip keeps its own copy.
	Bindings model.BoneBindingTable

	// BoneCount is the bone counter after extension.
	BoneCount int
}

// NewClip assembles a Clip and resolves every node's bone and skinning slot.
//
// Parameters:
//   - cfg: the clip parts
//
// Returns:
//   - *Clip: the clip
//   - error: when the skeleton is missing, the timing is invalid, two bones share a name, or a slot is negative
func NewClip(cfg ClipConfig) (*Clip, error) {
	if cfg.Skeleton == nil || cfg.Skeleton.Len() == 0 {
		return nil, common.ErrMissingRoot
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return nil, errors.Wrapf(common.ErrInvalidDuration, "duration %v", cfg.Duration)
	}
	if !(cfg.TicksPerSecond > 0) || math.IsInf(cfg.TicksPerSecond, 0) {
		return nil, errors.Wrapf(common.ErrInvalidTicksPerSecond, "ticks per second %v", cfg.TicksPerSecond)
	}

	c := &Clip{
		name:           cfg.Name,
		duration:       cfg.Duration,
		ticksPerSecond: cfg.TicksPerSecond,
		skeleton:       cfg.Skeleton,
		bones:          append([]*Bone(nil), cfg.Bones...),
		bindings:       cfg.Bindings.Clone(),
		boneCount:      cfg.BoneCount,
		boneByName:     make(map[string]int, len(cfg.Bones)),
	}

	for name, entry := range c.bindings {
		if entry.Index < 0 {
			return nil, errors.Errorf("binding %q has negative index %d", name, entry.Index)
		}
		c.slotsNeeded = max(c.slotsNeeded, entry.Index+1)
	}

	for i, b := range c.bones {
		if _, dup := c.boneByName[b.Name()]; dup {
			return nil, errors.Wrapf(common.ErrDuplicateChannel, "bone %q", b.Name())
		}
		c.boneByName[b.Name()] = i
	}

	n := c.skeleton.Len()
	c.nodeBones = make([]int, n)
	c.nodeSlots = make([]int, n)
	c.nodeOffsets = make([]mgl32.Mat4, n)
	for i := 0; i < n; i++ {
		name := c.skeleton.Node(i).Name

		c.nodeBones[i] = unbound
		if b, ok := c.boneByName[name]; ok {
			c.nodeBones[i] = b
		}

		c.nodeSlots[i] = unbound
		c.nodeOffsets[i] = mgl32.Ident4()
		if entry, ok := c.bindings[name]; ok {
			c.nodeSlots[i] = entry.Index
			c.nodeOffsets[i] = entry.Offset
		}
	}

	return c, nil
}

// Name returns the clip identifier.
func (c *Clip) Name() string {
	return c.name
}

// Duration returns the clip length in ticks.
func (c *Clip) Duration() float64 {
	return c.duration
}

// TicksPerSecond returns the tick rate.
func (c *Clip) TicksPerSecond() float64 {
	return c.ticksPerSecond
}

// DurationSeconds returns the clip length in seconds.
func (c *Clip) DurationSeconds() float64 {
	return c.duration / c.ticksPerSecond
}

// Skeleton returns the bind hierarchy.
func (c *Clip) Skeleton() *Skeleton {
	return c.skeleton
}

// Bones returns the animated bones. The slice must not be modified.
func (c *Clip) Bones() []*Bone {
	return c.bones
}

// Bone looks up an animated bone by normalized name.
//
// Parameters:
//   - name: the normalized bone name
//
// Returns:
//   - *Bone: the bone, or nil
//   - bool: true if the clip animates that name
func (c *Clip) Bone(name string) (*Bone, bool) {
	i, ok := c.boneByName[name]
	if !ok {
		return nil, false
	}
	return c.bones[i], true
}

// Bindings returns a copy of the extended binding table.
func (c *Clip) Bindings() model.BoneBindingTable {
	return c.bindings.Clone()
}

// Binding looks up one binding entry by normalized name.
//
// Parameters:
//   - name: the normalized bone name
//
// Returns:
//   - model.BindingEntry: the entry
//   - bool: true if the name is bound
func (c *Clip) Binding(name string) (model.BindingEntry, bool) {
	entry, ok := c.bindings[name]
	return entry, ok
}

// BoneCount returns the bone counter after the loader's extension.
// Feed it back as MeshBindings.BoneCount to keep indices stable across loads.
func (c *Clip) BoneCount() int {
	return c.boneCount
}

// SlotsNeeded returns one past the highest index in the binding table.
// Bound names missing from the hierarchy still count, so a buffer of this size holds every slot.
func (c *Clip) SlotsNeeded() int {
	return c.slotsNeeded
}

// NodeBone returns the bone animating node i.
//
// Parameters:
//   - i: the node index
//
// Returns:
//   - *Bone: the bone, or nil when the node keeps its bind transform
func (c *Clip) NodeBone(i int) *Bone {
	if b := c.nodeBones[i]; b != unbound {
		return c.bones[b]
	}
	return nil
}

// NodeSlot returns the skinning slot written by node i.
//
// Parameters:
//   - i: the node index
//
// Returns:
//   - int: the slot index
//   - mgl32.Mat4: the node's offset matrix
//   - bool: false when the node writes no slot
func (c *Clip) NodeSlot(i int) (int, mgl32.Mat4, bool) {
	slot := c.nodeSlots[i]
	if slot == unbound {
		return 0, mgl32.Mat4{}, false
	}
	return slot, c.nodeOffsets[i], true
}
