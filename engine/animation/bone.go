package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Bone is a named, indexed joint driven by three keyframe tracks.
// A Bone is immutable after construction and safe to share between goroutines.
type Bone struct {
	name  string
	index int

	positions *KeyframeTrack[mgl32.Vec3]
	rotations *KeyframeTrack[mgl32.Quat]
	scales    *KeyframeTrack[mgl32.Vec3]
}

// NewBone builds a Bone from the keyframes of one source channel.
// Every key list must be non-empty and strictly increasing in time.
//
// Parameters:
//   - name: the normalized bone name
//   - index: the bone's skinning slot, unique within a clip
//   - channel: the position, rotation and scale keyframes
//
// Returns:
//   - *Bone: the bone
//   - error: a wrapped ErrEmptyTrack or ErrNonMonotonicKeys naming the offending track
func NewBone(name string, index int, channel model.SourceChannel) (*Bone, error) {
	if index < 0 {
		return nil, errors.Errorf("bone %q: negative index %d", name, index)
	}

	positions, err := NewVectorTrack(channel.PositionKeys)
	if err != nil {
		return nil, errors.Wrapf(err, "bone %q position track", name)
	}
	rotations, err := NewRotationTrack(channel.RotationKeys)
	if err != nil {
		return nil, errors.Wrapf(err, "bone %q rotation track", name)
	}
	scales, err := NewVectorTrack(channel.ScaleKeys)
	if err != nil {
		return nil, errors.Wrapf(err, "bone %q scale track", name)
	}

	return &Bone{
		name:      name,
		index:     index,
		positions: positions,
		rotations: rotations,
		scales:    scales,
	}, nil
}

// Name returns the normalized bone name.
func (b *Bone) Name() string {
	return b.name
}

// Index returns the bone's skinning slot.
func (b *Bone) Index() int {
	return b.index
}

// Positions returns the translation track.
func (b *Bone) Positions() *KeyframeTrack[mgl32.Vec3] {
	return b.positions
}

// Rotations returns the rotation track.
func (b *Bone) Rotations() *KeyframeTrack[mgl32.Quat] {
	return b.rotations
}

// Scales returns the scale track.
func (b *Bone) Scales() *KeyframeTrack[mgl32.Vec3] {
	return b.scales
}

// Update samples all three tracks at time t and composes the bone's local transform as T * R * S.
// The same time-range precondition as KeyframeTrack.Evaluate applies.
//
// Parameters:
//   - t: the sample time in ticks
//
// Returns:
//   - mgl32.Mat4: the local transform relative to the parent node
func (b *Bone) Update(t float64) mgl32.Mat4 {
	return common.ComposeTRS(
		b.positions.Evaluate(t),
		b.rotations.Evaluate(t),
		b.scales.Evaluate(t),
	)
}
