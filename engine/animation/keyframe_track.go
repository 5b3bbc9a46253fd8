package animation

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Keyframe is a single timestamped sample of a channel.
type Keyframe[T any] struct {
	// Time is the sample timestamp in ticks.
	Time float64

	// Value is the sampled value.
	Value T
}

// KeyframeTrack is an immutable, time-ordered sequence of samples for one channel of one bone.
// It always holds at least one sample and its timestamps are strictly increasing.
type KeyframeTrack[T any] struct {
	keys        []Keyframe[T]
	interpolate func(a, b T, f float32) T
}

// NewVectorTrack builds a position or scale track that blends samples with a componentwise lerp.
//
// Parameters:
//   - keys: the samples in time order
//
// Returns:
//   - *KeyframeTrack[mgl32.Vec3]: the track
//   - error: ErrEmptyTrack or ErrNonMonotonicKeys when the samples are unusable
func NewVectorTrack(keys []model.VectorKeyframe) (*KeyframeTrack[mgl32.Vec3], error) {
	converted := make([]Keyframe[mgl32.Vec3], len(keys))
	for i, k := range keys {
		converted[i] = Keyframe[mgl32.Vec3]{Time: k.Time, Value: k.Value}
	}
	return newKeyframeTrack(converted, LerpVec3)
}

// NewRotationTrack builds a rotation track that blends samples with a shortest-arc slerp.
// Sample values are normalized on the way in.
//
// Parameters:
//   - keys: the samples in time order
//
// Returns:
//   - *KeyframeTrack[mgl32.Quat]: the track
//   - error: ErrEmptyTrack or ErrNonMonotonicKeys when the samples are unusable
func NewRotationTrack(keys []model.QuaternionKeyframe) (*KeyframeTrack[mgl32.Quat], error) {
	converted := make([]Keyframe[mgl32.Quat], len(keys))
	for i, k := range keys {
		converted[i] = Keyframe[mgl32.Quat]{Time: k.Time, Value: k.Value.Normalize()}
	}
	return newKeyframeTrack(converted, SlerpQuat)
}

func newKeyframeTrack[T any](keys []Keyframe[T], interpolate func(a, b T, f float32) T) (*KeyframeTrack[T], error) {
	if len(keys) == 0 {
		return nil, common.ErrEmptyTrack
	}
	for i := 1; i < len(keys); i++ {
		if !(keys[i].Time > keys[i-1].Time) {
			return nil, errors.Wrapf(common.ErrNonMonotonicKeys, "sample %d at %v follows %v", i, keys[i].Time, keys[i-1].Time)
		}
	}
	return &KeyframeTrack[T]{keys: keys, interpolate: interpolate}, nil
}

// Len returns the number of samples.
func (k *KeyframeTrack[T]) Len() int {
	return len(k.keys)
}

// Key returns the sample at index i.
func (k *KeyframeTrack[T]) Key(i int) Keyframe[T] {
	return k.keys[i]
}

// StartTime returns the timestamp of the first sample.
func (k *KeyframeTrack[T]) StartTime() float64 {
	return k.keys[0].Time
}

// EndTime returns the timestamp of the last sample.
func (k *KeyframeTrack[T]) EndTime() float64 {
	return k.keys[len(k.keys)-1].Time
}

// Evaluate samples the track at time t.
//
// A single-sample track returns its sample for every t. Otherwise t must lie in
// [StartTime, EndTime]; the bracketing samples are blended with f = (t - t_i) / (t_{i+1} - t_i).
// A t outside that range is a caller bug and panics with a *common.PreconditionError.
//
// Parameters:
//   - t: the sample time in ticks
//
// Returns:
//   - T: the interpolated value
func (k *KeyframeTrack[T]) Evaluate(t float64) T {
	if len(k.keys) == 1 {
		return k.keys[0].Value
	}

	// next is the first sample strictly after t, so keys[next-1].Time <= t < keys[next].Time.
	next := sort.Search(len(k.keys), func(i int) bool { return k.keys[i].Time > t })
	if next == 0 {
		common.Preconditionf("KeyframeTrack.Evaluate", "time %v precedes first sample at %v", t, k.keys[0].Time)
	}
	if next == len(k.keys) {
		last := k.keys[len(k.keys)-1]
		if t == last.Time {
			return last.Value
		}
		common.Preconditionf("KeyframeTrack.Evaluate", "time %v is past last sample at %v", t, last.Time)
	}

	a, b := k.keys[next-1], k.keys[next]
	if t == a.Time {
		return a.Value
	}
	f := float32((t - a.Time) / (b.Time - a.Time))
	return k.interpolate(a.Value, b.Value, f)
}

// LerpVec3 linearly interpolates each component from a to b.
//
// Parameters:
//   - a: value at f = 0
//   - b: value at f = 1
//   - f: blend factor in [0, 1]
//
// Returns:
//   - mgl32.Vec3: the blended vector
func LerpVec3(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

// SlerpQuat spherically interpolates from a to b along the shorter arc and renormalizes the result.
//
// Parameters:
//   - a: rotation at f = 0
//   - b: rotation at f = 1
//   - f: blend factor in [0, 1]
//
// Returns:
//   - mgl32.Quat: the unit-length blended rotation
func SlerpQuat(a, b mgl32.Quat, f float32) mgl32.Quat {
	// q and -q are the same rotation; pick the one on a's hemisphere.
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, f).Normalize()
}
