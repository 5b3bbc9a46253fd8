package animation

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

func vecKeys(pairs ...any) []model.VectorKeyframe {
	keys := make([]model.VectorKeyframe, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		keys = append(keys, model.VectorKeyframe{Time: pairs[i].(float64), Value: pairs[i+1].(mgl32.Vec3)})
	}
	return keys
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

func TestVectorTrackSingleSample(t *testing.T) {
	track, err := NewVectorTrack(vecKeys(2.0, mgl32.Vec3{1, 2, 3}))
	require.NoError(t, err)

	for _, tm := range []float64{-10, 0, 2, 3.5, 1e9} {
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, track.Evaluate(tm), "t=%v", tm)
	}
}

func TestVectorTrackInterpolation(t *testing.T) {
	track, err := NewVectorTrack(vecKeys(
		0.0, mgl32.Vec3{0, 0, 0},
		1.0, mgl32.Vec3{2, 4, -2},
		3.0, mgl32.Vec3{2, 0, 0},
	))
	require.NoError(t, err)

	tests := []struct {
		name string
		t    float64
		want mgl32.Vec3
	}{
		{"first endpoint", 0, mgl32.Vec3{0, 0, 0}},
		{"midpoint", 0.5, mgl32.Vec3{1, 2, -1}},
		{"interior key", 1, mgl32.Vec3{2, 4, -2}},
		{"quarter of second span", 1.5, mgl32.Vec3{2, 3, -1.5}},
		{"last endpoint", 3, mgl32.Vec3{2, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := track.Evaluate(tt.t)
			assert.True(t, got.ApproxEqualThreshold(tt.want, eps), "got %v want %v", got, tt.want)
		})
	}
}

func TestVectorTrackEndpointsAreExact(t *testing.T) {
	a, b := mgl32.Vec3{0.1, 0.7, 1.3}, mgl32.Vec3{9.9, -3.3, 0.01}
	track, err := NewVectorTrack(vecKeys(0.0, a, 1.0, b))
	require.NoError(t, err)

	assert.Equal(t, a, track.Evaluate(0))
	assert.Equal(t, b, track.Evaluate(1))
}

func TestVectorTrackOutOfRangePanics(t *testing.T) {
	track, err := NewVectorTrack(vecKeys(0.0, mgl32.Vec3{}, 1.0, mgl32.Vec3{1, 1, 1}))
	require.NoError(t, err)

	assertPanicsWithPrecondition(t, func() { track.Evaluate(-0.001) })
	assertPanicsWithPrecondition(t, func() { track.Evaluate(1.001) })
	assertPanicsWithPrecondition(t, func() { track.Evaluate(math.NaN()) })
}

func TestNewTrackRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []model.VectorKeyframe
		want error
	}{
		{"empty", nil, common.ErrEmptyTrack},
		{"duplicate time", vecKeys(0.0, mgl32.Vec3{}, 0.0, mgl32.Vec3{}), common.ErrNonMonotonicKeys},
		{"decreasing time", vecKeys(1.0, mgl32.Vec3{}, 0.5, mgl32.Vec3{}), common.ErrNonMonotonicKeys},
		{"NaN time", vecKeys(0.0, mgl32.Vec3{}, math.NaN(), mgl32.Vec3{}), common.ErrNonMonotonicKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVectorTrack(tt.keys)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRotationTrackSlerpMidpoint(t *testing.T) {
	q0 := mgl32.QuatIdent()
	q1 := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	track, err := NewRotationTrack([]model.QuaternionKeyframe{
		{Time: 0, Value: q0},
		{Time: 1, Value: q1},
	})
	require.NoError(t, err)

	got := track.Evaluate(0.5)
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	assert.True(t, got.ApproxEqualThreshold(want, eps), "got %v want %v", got, want)
	assert.InDelta(t, 1.0, got.Len(), eps)

	assert.True(t, track.Evaluate(0).ApproxEqualThreshold(q0, eps))
	assert.True(t, track.Evaluate(1).ApproxEqualThreshold(q1, eps))
}

func TestRotationTrackTakesShortestArc(t *testing.T) {
	q0 := mgl32.QuatRotate(mgl32.DegToRad(10), mgl32.Vec3{0, 0, 1})
	// Negated quaternion: same 30 degree rotation on the opposite hemisphere.
	q1 := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 0, 1}).Scale(-1)
	track, err := NewRotationTrack([]model.QuaternionKeyframe{
		{Time: 0, Value: q0},
		{Time: 2, Value: q1},
	})
	require.NoError(t, err)

	got := track.Evaluate(1)
	want := mgl32.QuatRotate(mgl32.DegToRad(20), mgl32.Vec3{0, 0, 1})
	assert.True(t, got.ApproxEqualThreshold(want, eps) || got.ApproxEqualThreshold(want.Scale(-1), eps), "got %v want ±%v", got, want)
}

func TestRotationTrackUnitNorm(t *testing.T) {
	track, err := NewRotationTrack([]model.QuaternionKeyframe{
		{Time: 0, Value: mgl32.Quat{W: 2, V: mgl32.Vec3{0, 0, 0}}},
		{Time: 1, Value: mgl32.QuatRotate(2.5, mgl32.Vec3{1, 1, 0}.Normalize())},
		{Time: 2, Value: mgl32.QuatRotate(-1.2, mgl32.Vec3{0, 1, 1}.Normalize())},
	})
	require.NoError(t, err)

	for tm := 0.0; tm <= 2.0; tm += 0.05 {
		assert.InDelta(t, 1.0, track.Evaluate(tm).Len(), 1e-4, "t=%v", tm)
	}
}

func TestSlerpNearlyEqualQuaternions(t *testing.T) {
	a := mgl32.QuatRotate(0.5, mgl32.Vec3{1, 0, 0})
	b := mgl32.QuatRotate(0.5001, mgl32.Vec3{1, 0, 0})
	got := SlerpQuat(a, b, 0.5)
	assert.InDelta(t, 1.0, got.Len(), eps)
	assert.True(t, got.ApproxEqualThreshold(a, 1e-3))
}
