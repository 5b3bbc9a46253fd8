package animator

import (
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBones is the default length of the final skinning matrix array.
const DefaultMaxBones = 200

// animator is the implementation of the Animator interface.
type animator struct {
	clip *animation.Clip

	currentTime   float64
	playbackSpeed float64
	enabled       bool

	maxBones      int
	finalMatrices []mgl32.Mat4
	stack         []poseFrame

	debugBone string
	debugSlot int
	debugLog  *logrus.Entry

	logger logrus.FieldLogger

	provider        bind_group_provider.BindGroupProvider
	binding         int
	stagedWriteData []bind_group_provider.BufferWrite
}

// poseFrame is one pending node of the hierarchy walk.
type poseFrame struct {
	node   int
	parent mgl32.Mat4
}

// Animator evaluates one animation Clip over time and writes the final skinning matrices for a mesh.
//
// An Animator owns its playback time and its output array; the Clip it plays is shared read-only, so any
// number of Animators may play the same Clip on different goroutines. A single Animator is not safe for
// concurrent use: UpdateAnimation and the consumer of FinalMatrices must run on the same goroutine or
// be synchronized externally.
//
// Playback loops unconditionally. Output slots that a walk does not reach keep their previous value,
// starting from identity.
type Animator interface {
	// UpdateAnimation advances playback by deltaTime seconds, wraps the time into [0, duration),
	// and re-poses the whole hierarchy from the root. No-op while the animator is disabled.
	//
	// Parameters:
	//   - deltaTime: elapsed wall time in seconds; must be finite
	UpdateAnimation(deltaTime float64)

	// CalculateBoneTransform poses the subtree rooted at node at the current time.
	// Each node uses its bone's sampled transform when the clip animates it and its bind transform otherwise;
	// nodes with a binding write global * offset into their slot of the final matrix array.
	// A slot at or past MaxBones panics with a *common.PreconditionError.
	//
	// Parameters:
	//   - node: the skeleton index of the subtree root
	//   - parentTransform: the accumulated global transform of node's parent
	CalculateBoneTransform(node int, parentTransform mgl32.Mat4)

	// FinalMatrices returns the final skinning matrices, indexed by bone slot.
	// The slice is owned by the animator and is overwritten by the next update.
	//
	// Returns:
	//   - []mgl32.Mat4: MaxBones matrices
	FinalMatrices() []mgl32.Mat4

	// FinalMatrix returns the final skinning matrix of one slot.
	//
	// Parameters:
	//   - slot: the bone slot
	//
	// Returns:
	//   - mgl32.Mat4: the matrix
	FinalMatrix(slot int) mgl32.Mat4

	// Clip returns the clip being played.
	//
	// Returns:
	//   - *animation.Clip: the clip
	Clip() *animation.Clip

	// CurrentTime returns the playback position in ticks, always in [0, duration).
	//
	// Returns:
	//   - float64: the playback position
	CurrentTime() float64

	// SetTime moves playback to t ticks, wrapped into [0, duration). The pose is not recomputed
	// until the next UpdateAnimation.
	//
	// Parameters:
	//   - t: the playback position in ticks; must be finite
	SetTime(t float64)

	// Reset returns playback to time 0 and restores every final matrix to identity.
	Reset()

	// PlaybackSpeed returns the playback speed multiplier.
	//
	// Returns:
	//   - float64: the multiplier
	PlaybackSpeed() float64

	// SetPlaybackSpeed sets the playback speed multiplier. Negative speeds play backwards.
	//
	// Parameters:
	//   - speed: the multiplier; must be finite
	SetPlaybackSpeed(speed float64)

	// Enabled reports whether UpdateAnimation advances and poses.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled turns evaluation on or off. A disabled animator keeps its time and its matrices.
	//
	// Parameters:
	//   - enabled: the new state
	SetEnabled(enabled bool)

	// MaxBones returns the length of the final matrix array.
	//
	// Returns:
	//   - int: the capacity
	MaxBones() int

	// Flush stages a write of the whole final matrix array to the skinning provider's buffer.
	// No-op when no provider was configured with WithProvider.
	//
	// Returns:
	//   - int: the number of bytes staged
	Flush() int

	// StagedWriteData returns and clears the pending GPU buffer writes.
	// The caller should submit them with bind_group_provider.WriteBuffers.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the slice of pending buffer writes
	StagedWriteData() []bind_group_provider.BufferWrite
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator playing clip from time 0 with every final matrix set to identity.
//
// Parameters:
//   - clip: the clip to play
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: the animator
//   - error: when clip is nil or writes a slot at or past MaxBones
func NewAnimator(clip *animation.Clip, options ...AnimatorBuilderOption) (Animator, error) {
	if clip == nil {
		return nil, errors.New("animator requires a clip")
	}

	a := &animator{
		clip:          clip,
		playbackSpeed: 1,
		enabled:       true,
		maxBones:      DefaultMaxBones,
		debugSlot:     -1,
		logger:        logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(a)
	}

	if a.maxBones <= 0 {
		return nil, errors.Errorf("max bones must be positive, got %d", a.maxBones)
	}
	if need := clip.SlotsNeeded(); need > a.maxBones {
		return nil, errors.Wrapf(common.ErrTooManyBones, "clip %q needs %d slots, capacity %d", clip.Name(), need, a.maxBones)
	}
	if math.IsNaN(a.playbackSpeed) || math.IsInf(a.playbackSpeed, 0) {
		return nil, errors.Errorf("playback speed must be finite, got %v", a.playbackSpeed)
	}

	a.finalMatrices = make([]mgl32.Mat4, a.maxBones)
	a.resetMatrices()
	a.stack = make([]poseFrame, 0, clip.Skeleton().Depth()+1)

	if a.debugBone != "" {
		if entry, ok := clip.Binding(a.debugBone); ok {
			a.debugSlot = entry.Index
			a.debugLog = a.logger.WithFields(logrus.Fields{"bone": a.debugBone, "slot": entry.Index})
		} else {
			a.logger.WithField("bone", a.debugBone).Warn("debug bone has no binding in clip")
		}
	}

	return a, nil
}

func (a *animator) UpdateAnimation(deltaTime float64) {
	if math.IsNaN(deltaTime) || math.IsInf(deltaTime, 0) {
		common.Preconditionf("Animator.UpdateAnimation", "delta time %v is not finite", deltaTime)
	}
	if !a.enabled {
		return
	}

	a.currentTime = a.wrap(a.currentTime + deltaTime*a.clip.TicksPerSecond()*a.playbackSpeed)
	a.CalculateBoneTransform(a.clip.Skeleton().Root(), mgl32.Ident4())

	if a.debugLog != nil && a.debugLog.Logger.IsLevelEnabled(logrus.DebugLevel) {
		a.debugLog.WithFields(logrus.Fields{
			"time":   a.currentTime,
			"matrix": a.finalMatrices[a.debugSlot],
		}).Debug("debug bone pose")
	}
}

func (a *animator) CalculateBoneTransform(node int, parentTransform mgl32.Mat4) {
	skeleton := a.clip.Skeleton()
	if node < 0 || node >= skeleton.Len() {
		common.Preconditionf("Animator.CalculateBoneTransform", "node %d out of range [0, %d)", node, skeleton.Len())
	}

	a.stack = append(a.stack[:0], poseFrame{node: node, parent: parentTransform})
	for len(a.stack) > 0 {
		f := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]

		n := skeleton.Node(f.node)
		local := n.BindTransform
		if bone := a.clip.NodeBone(f.node); bone != nil {
			local = bone.Update(a.currentTime)
		}
		global := f.parent.Mul4(local)

		if slot, offset, ok := a.clip.NodeSlot(f.node); ok {
			if slot >= len(a.finalMatrices) {
				common.Preconditionf("Animator.CalculateBoneTransform", "bone %q slot %d exceeds capacity %d", n.Name, slot, len(a.finalMatrices))
			}
			a.finalMatrices[slot] = global.Mul4(offset)
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			a.stack = append(a.stack, poseFrame{node: n.Children[i], parent: global})
		}
	}
}

func (a *animator) FinalMatrices() []mgl32.Mat4 {
	return a.finalMatrices
}

func (a *animator) FinalMatrix(slot int) mgl32.Mat4 {
	return a.finalMatrices[slot]
}

func (a *animator) Clip() *animation.Clip {
	return a.clip
}

func (a *animator) CurrentTime() float64 {
	return a.currentTime
}

func (a *animator) SetTime(t float64) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		common.Preconditionf("Animator.SetTime", "time %v is not finite", t)
	}
	a.currentTime = a.wrap(t)
}

func (a *animator) Reset() {
	a.currentTime = 0
	a.resetMatrices()
}

func (a *animator) PlaybackSpeed() float64 {
	return a.playbackSpeed
}

func (a *animator) SetPlaybackSpeed(speed float64) {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		common.Preconditionf("Animator.SetPlaybackSpeed", "speed %v is not finite", speed)
	}
	a.playbackSpeed = speed
}

func (a *animator) Enabled() bool {
	return a.enabled
}

func (a *animator) SetEnabled(enabled bool) {
	a.enabled = enabled
}

func (a *animator) MaxBones() int {
	return a.maxBones
}

func (a *animator) Flush() int {
	if a.provider == nil {
		return 0
	}
	data := PackSkinningMatrices(a.finalMatrices)
	a.stagedWriteData = append(a.stagedWriteData, bind_group_provider.BufferWrite{
		Provider: a.provider,
		Binding:  a.binding,
		Offset:   0,
		Data:     data,
	})
	return len(data)
}

func (a *animator) StagedWriteData() []bind_group_provider.BufferWrite {
	w := a.stagedWriteData
	a.stagedWriteData = nil
	return w
}

// wrap folds t into [0, duration). Times past the end loop to the start, negative times loop from the end.
func (a *animator) wrap(t float64) float64 {
	d := a.clip.Duration()
	if t >= 0 && t < d {
		return t
	}
	t = math.Mod(t, d)
	if t < 0 {
		t += d
	}
	// t + d can round up to d for tiny negative t.
	if t >= d {
		t = 0
	}
	return t
}

func (a *animator) resetMatrices() {
	for i := range a.finalMatrices {
		a.finalMatrices[i] = mgl32.Ident4()
	}
}
