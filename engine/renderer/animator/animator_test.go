package animator

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

var (
	rootOffset  = mgl32.Translate3D(0, 0, -1)
	childOffset = mgl32.Translate3D(0, -1, 0)
)

// twoBoneClip builds root -> child, where the root slides from x=0 to x=1 over one second
// and the child sits one unit above it in bind pose.
func twoBoneClip(t *testing.T) *animation.Clip {
	t.Helper()

	skeleton, err := animation.NewSkeleton(&model.SourceNode{
		Name:      "root",
		Transform: mgl32.Ident4(),
		Children: []*model.SourceNode{
			{Name: "child", Transform: mgl32.Translate3D(0, 1, 0)},
		},
	}, nil)
	require.NoError(t, err)

	root, err := animation.NewBone("root", 0, model.SourceChannel{
		NodeName: "root",
		PositionKeys: []model.VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{1, 0, 0}},
		},
		RotationKeys: []model.QuaternionKeyframe{{Time: 0, Value: mgl32.QuatIdent()}},
		ScaleKeys:    []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{1, 1, 1}}},
	})
	require.NoError(t, err)

	clip, err := animation.NewClip(animation.ClipConfig{
		Name:           "slide",
		Duration:       1,
		TicksPerSecond: 1,
		Skeleton:       skeleton,
		Bones:          []*animation.Bone{root},
		Bindings: model.BoneBindingTable{
			"root":  {Index: 0, Offset: rootOffset},
			"child": {Index: 1, Offset: childOffset},
		},
		BoneCount: 2,
	})
	require.NoError(t, err)
	return clip
}

func assertMat(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	assert.True(t, got.ApproxEqualThreshold(want, eps), "want %v\ngot  %v", want, got)
}

func assertPanicsWithPrecondition(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		_, ok := r.(*common.PreconditionError)
		assert.True(t, ok, "panic value %T is not a *common.PreconditionError", r)
	}()
	fn()
}

func TestUpdateAnimationPosesHierarchy(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t), WithMaxBones(4))
	require.NoError(t, err)

	a.UpdateAnimation(0.5)
	assert.InDelta(t, 0.5, a.CurrentTime(), 1e-12)
	assertMat(t, mgl32.Translate3D(0.5, 0, 0).Mul4(rootOffset), a.FinalMatrix(0))
	// child global is T(0.5,0,0) * T(0,1,0); its offset cancels the bind translation
	assertMat(t, mgl32.Translate3D(0.5, 0, 0), a.FinalMatrix(1))

	// Slots nobody writes stay identity.
	assert.Equal(t, mgl32.Ident4(), a.FinalMatrix(2))
	assert.Equal(t, mgl32.Ident4(), a.FinalMatrix(3))
	assert.Len(t, a.FinalMatrices(), 4)
}

func TestUpdateAnimationWrapsTime(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t))
	require.NoError(t, err)

	a.UpdateAnimation(0.5)
	a.UpdateAnimation(0.6)
	assert.InDelta(t, 0.1, a.CurrentTime(), 1e-9)
	assertMat(t, mgl32.Translate3D(0.1, 0, 0).Mul4(rootOffset), a.FinalMatrix(0))

	a.UpdateAnimation(3)
	assert.InDelta(t, 0.1, a.CurrentTime(), 1e-9)

	// Landing exactly on the duration wraps to the start.
	a.SetTime(0)
	a.UpdateAnimation(1)
	assert.Equal(t, 0.0, a.CurrentTime())
}

func TestPlaybackSpeed(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t), WithPlaybackSpeed(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, a.PlaybackSpeed())

	a.UpdateAnimation(0.2)
	assert.InDelta(t, 0.4, a.CurrentTime(), 1e-12)

	a.SetPlaybackSpeed(-1)
	a.UpdateAnimation(0.5)
	assert.InDelta(t, 0.9, a.CurrentTime(), 1e-12)
	assertMat(t, mgl32.Translate3D(0.9, 0, 0).Mul4(rootOffset), a.FinalMatrix(0))

	a.SetPlaybackSpeed(0)
	a.UpdateAnimation(10)
	assert.InDelta(t, 0.9, a.CurrentTime(), 1e-12)
}

func TestSetTimeAndReset(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t))
	require.NoError(t, err)

	a.SetTime(2.25)
	assert.InDelta(t, 0.25, a.CurrentTime(), 1e-12)
	a.SetTime(-0.25)
	assert.InDelta(t, 0.75, a.CurrentTime(), 1e-12)

	a.UpdateAnimation(0)
	assert.NotEqual(t, mgl32.Ident4(), a.FinalMatrix(0))

	a.Reset()
	assert.Equal(t, 0.0, a.CurrentTime())
	for _, m := range a.FinalMatrices() {
		assert.Equal(t, mgl32.Ident4(), m)
	}
}

func TestDisabledAnimatorKeepsState(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t), WithEnabled(false))
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	a.UpdateAnimation(0.3)
	assert.Equal(t, 0.0, a.CurrentTime())
	assert.Equal(t, mgl32.Ident4(), a.FinalMatrix(0))

	a.SetEnabled(true)
	a.UpdateAnimation(0.3)
	frozen := a.FinalMatrix(0)

	a.SetEnabled(false)
	a.UpdateAnimation(0.3)
	assert.InDelta(t, 0.3, a.CurrentTime(), 1e-12)
	assert.Equal(t, frozen, a.FinalMatrix(0))
}

func TestCalculateBoneTransformSubtree(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t))
	require.NoError(t, err)

	parent := mgl32.Translate3D(5, 0, 0)
	a.CalculateBoneTransform(1, parent)
	assertMat(t, mgl32.Translate3D(5, 0, 0), a.FinalMatrix(1))
	assert.Equal(t, mgl32.Ident4(), a.FinalMatrix(0))

	assertPanicsWithPrecondition(t, func() { a.CalculateBoneTransform(2, mgl32.Ident4()) })
	assertPanicsWithPrecondition(t, func() { a.CalculateBoneTransform(-1, mgl32.Ident4()) })
}

func TestSlotPastCapacityPanics(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t), WithMaxBones(2))
	require.NoError(t, err)

	impl := a.(*animator)
	impl.finalMatrices = impl.finalMatrices[:1]
	assertPanicsWithPrecondition(t, func() { a.UpdateAnimation(0.1) })
}

func TestNonFiniteInputsPanic(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t))
	require.NoError(t, err)

	assertPanicsWithPrecondition(t, func() { a.UpdateAnimation(math.NaN()) })
	assertPanicsWithPrecondition(t, func() { a.UpdateAnimation(math.Inf(1)) })
	assertPanicsWithPrecondition(t, func() { a.SetTime(math.Inf(-1)) })
	assertPanicsWithPrecondition(t, func() { a.SetPlaybackSpeed(math.NaN()) })
}

func TestNewAnimatorErrors(t *testing.T) {
	_, err := NewAnimator(nil)
	assert.Error(t, err)

	_, err = NewAnimator(twoBoneClip(t), WithMaxBones(1))
	assert.True(t, errors.Is(err, common.ErrTooManyBones), "got %v", err)

	_, err = NewAnimator(twoBoneClip(t), WithMaxBones(0))
	assert.Error(t, err)

	_, err = NewAnimator(twoBoneClip(t), WithPlaybackSpeed(math.Inf(1)))
	assert.Error(t, err)

	a, err := NewAnimator(twoBoneClip(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxBones, a.MaxBones())
	assert.Equal(t, "slide", a.Clip().Name())
}

func TestFlushStagesSkinningMatrices(t *testing.T) {
	a, err := NewAnimator(twoBoneClip(t), WithMaxBones(3))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Flush())
	assert.Empty(t, a.StagedWriteData())

	provider := bind_group_provider.NewBindGroupProvider("skinning")
	a, err = NewAnimator(twoBoneClip(t), WithMaxBones(3), WithProvider(provider, 2))
	require.NoError(t, err)
	a.UpdateAnimation(0.5)

	n := a.Flush()
	assert.Equal(t, 3*64, n)

	writes := a.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Same(t, provider, writes[0].Provider)
	assert.Equal(t, 2, writes[0].Binding)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Equal(t, PackSkinningMatrices(a.FinalMatrices()), writes[0].Data)
	assert.Empty(t, a.StagedWriteData())

	// Staged data is a copy, not a view of the live matrices.
	a.UpdateAnimation(0.25)
	assert.NotEqual(t, PackSkinningMatrices(a.FinalMatrices()), writes[0].Data)
}

func TestDebugBoneLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	a, err := NewAnimator(twoBoneClip(t), WithDebugBone("child"), WithLogger(logger))
	require.NoError(t, err)
	a.UpdateAnimation(0.5)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "debug bone pose", entry.Message)
	assert.Equal(t, 1, entry.Data["slot"])
	assertMat(t, mgl32.Translate3D(0.5, 0, 0), entry.Data["matrix"].(mgl32.Mat4))

	hook.Reset()
	_, err = NewAnimator(twoBoneClip(t), WithDebugBone("tail"), WithLogger(logger))
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestDebugBoneQuietAboveDebugLevel(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	a, err := NewAnimator(twoBoneClip(t), WithDebugBone("child"), WithLogger(logger))
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(20, func() { a.UpdateAnimation(0.01) })
	assert.Zero(t, allocs)
	assert.Empty(t, hook.AllEntries())
}

func TestPackSkinningMatrices(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	data := PackSkinningMatrices([]mgl32.Mat4{m})
	require.Len(t, data, 64)

	g := GPUSkinningMatrix{Matrix: m}
	assert.Equal(t, 64, g.Size())
	for i, v := range m {
		assert.Equal(t, math.Float32bits(v), binary.LittleEndian.Uint32(data[i*4:]), "element %d", i)
	}
	// Translation sits in the fourth column.
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(data[13*4:])))
	assert.Contains(t, GPUSkinningMatricesSource, "mat4x4<f32>")
}

func TestReflectSkinningLayout(t *testing.T) {
	layout, err := ReflectSkinningLayout()
	require.NoError(t, err)
	assert.Equal(t, 1, layout.Group)
	assert.Equal(t, 0, layout.Binding)
	assert.Equal(t, uint64(64), layout.Stride)
	assert.Equal(t, uint64(200*64), layout.BufferSize(DefaultMaxBones))
}
