package loader

import (
	"io"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestLoader(opts ...LoaderBuilderOption) AnimationLoader {
	return NewAnimationLoader(BackendTypeGLTF, append([]LoaderBuilderOption{WithLogger(quietLogger())}, opts...)...)
}

func srcNode(name string, transform mgl32.Mat4, children ...*model.SourceNode) *model.SourceNode {
	return &model.SourceNode{Name: name, Transform: transform, Children: children}
}

func posChannel(name string, keys ...model.VectorKeyframe) model.SourceChannel {
	return model.SourceChannel{NodeName: name, PositionKeys: keys}
}

// testScene is a Mixamo-style rig: Hips -> Spine, with a walk animating Hips and an
// extra Tail channel that neither the mesh nor the hierarchy knows.
func testScene() *model.SourceScene {
	return &model.SourceScene{
		Name: "walk.glb",
		Root: srcNode("mixamorig:Hips", mgl32.Ident4(),
			srcNode("mixamorig:Spine", mgl32.Translate3D(0, 1, 0)),
		),
		Animations: []model.SourceAnimation{{
			Name:           "Walk",
			Duration:       2,
			TicksPerSecond: 1,
			Channels: []model.SourceChannel{
				posChannel("mixamorig:Hips",
					model.VectorKeyframe{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
					model.VectorKeyframe{Time: 2, Value: mgl32.Vec3{2, 0, 0}}),
				posChannel("mixamorig:Tail", model.VectorKeyframe{Time: 0, Value: mgl32.Vec3{0, 0, -1}}),
			},
		}},
	}
}

func TestLoadExtendsCopyOfMeshBindings(t *testing.T) {
	mesh := model.NewMeshBindings([]string{"Hips", "Spine"}, nil)

	clip, err := newTestLoader().Load(testScene(), mesh)
	require.NoError(t, err)

	hips, ok := clip.Binding("Hips")
	require.True(t, ok)
	assert.Equal(t, 0, hips.Index)

	tail, ok := clip.Binding("Tail")
	require.True(t, ok)
	assert.Equal(t, 2, tail.Index)
	assert.Equal(t, mgl32.Ident4(), tail.Offset)
	assert.Equal(t, 3, clip.BoneCount())

	// The caller's table is untouched.
	assert.Len(t, mesh.Table, 2)
	assert.NotContains(t, mesh.Table, "Tail")
	assert.Equal(t, 2, mesh.BoneCount)

	bone, ok := clip.Bone("Hips")
	require.True(t, ok)
	assert.Equal(t, 0, bone.Index())
	_, ok = clip.Bone("mixamorig:Hips")
	assert.False(t, ok)
	assert.Equal(t, "Spine", clip.Skeleton().Node(1).Name)
}

func TestLoadIndicesAreStableAcrossLoads(t *testing.T) {
	ldr := newTestLoader()
	mesh := model.NewMeshBindings([]string{"Hips", "Spine"}, nil)

	first, err := ldr.Load(testScene(), mesh)
	require.NoError(t, err)
	second, err := ldr.Load(testScene(), mesh)
	require.NoError(t, err)
	assert.Equal(t, first.Bindings(), second.Bindings())

	// Feeding the extended table back keeps every index.
	third, err := ldr.Load(testScene(), &model.MeshBindings{Table: first.Bindings(), BoneCount: first.BoneCount()})
	require.NoError(t, err)
	assert.Equal(t, first.Bindings(), third.Bindings())
	assert.Equal(t, 3, third.BoneCount())
}

func TestLoadCounterSkipsExistingIndices(t *testing.T) {
	mesh := &model.MeshBindings{
		Table:     model.BoneBindingTable{"Hips": {Index: 5, Offset: mgl32.Ident4()}},
		BoneCount: 1,
	}
	clip, err := newTestLoader().Load(testScene(), mesh)
	require.NoError(t, err)

	tail, _ := clip.Binding("Tail")
	assert.Equal(t, 6, tail.Index)
	assert.Equal(t, 7, clip.BoneCount())
	assert.Equal(t, 7, clip.SlotsNeeded())
}

func TestLoadWithoutMeshBindings(t *testing.T) {
	clip, err := newTestLoader().Load(testScene(), nil)
	require.NoError(t, err)

	hips, _ := clip.Binding("Hips")
	tail, _ := clip.Binding("Tail")
	assert.Equal(t, 0, hips.Index)
	assert.Equal(t, 1, tail.Index)
	_, ok := clip.Binding("Spine")
	assert.False(t, ok)
}

func TestLoadFillsMissingTracksFromBindPose(t *testing.T) {
	scene := testScene()
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	scene.Animations[0].Channels = []model.SourceChannel{{
		NodeName:     "mixamorig:Spine",
		RotationKeys: []model.QuaternionKeyframe{{Time: 0, Value: mgl32.QuatIdent()}, {Time: 1, Value: rot}},
	}}

	clip, err := newTestLoader().Load(scene, nil)
	require.NoError(t, err)

	spine, ok := clip.Bone("Spine")
	require.True(t, ok)

	// Translation is held at the bind pose, and the rotation track is padded out to the duration.
	local := spine.Update(2)
	assert.True(t, local.Col(3).ApproxEqualThreshold(mgl32.Vec4{0, 1, 0, 1}, 1e-5), "got %v", local.Col(3))
	assert.Equal(t, 0.0, spine.Rotations().StartTime())
	assert.Equal(t, 2.0, spine.Rotations().EndTime())
	assert.Equal(t, 1, spine.Scales().Len())
}

func TestLoadPadsTracksToClipBounds(t *testing.T) {
	scene := testScene()
	scene.Animations[0].Channels = []model.SourceChannel{posChannel("mixamorig:Hips",
		model.VectorKeyframe{Time: 0.5, Value: mgl32.Vec3{1, 0, 0}},
		model.VectorKeyframe{Time: 1.5, Value: mgl32.Vec3{3, 0, 0}},
	)}

	clip, err := newTestLoader().Load(scene, nil)
	require.NoError(t, err)

	hips, _ := clip.Bone("Hips")
	track := hips.Positions()
	require.Equal(t, 4, track.Len())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, track.Evaluate(0))
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, track.Evaluate(0.25))
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, track.Evaluate(2))
}

func TestLoadTiming(t *testing.T) {
	scene := testScene()
	scene.Animations[0].TicksPerSecond = 0
	scene.Animations[0].Duration = 0

	clip, err := newTestLoader().Load(scene, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTicksPerSecond, clip.TicksPerSecond())
	assert.Equal(t, 2.0, clip.Duration())

	clip, err = newTestLoader(WithDefaultTicksPerSecond(30)).Load(scene, nil)
	require.NoError(t, err)
	assert.Equal(t, 30.0, clip.TicksPerSecond())
}

func TestLoadSelectsClip(t *testing.T) {
	scene := testScene()
	run := scene.Animations[0]
	run.Name = "Run"
	run.Duration = 4
	scene.Animations = append(scene.Animations, run)

	clip, err := newTestLoader().Load(scene, nil)
	require.NoError(t, err)
	assert.Equal(t, "Walk", clip.Name())

	clip, err = newTestLoader(WithClipIndex(1)).Load(scene, nil)
	require.NoError(t, err)
	assert.Equal(t, "Run", clip.Name())

	clip, err = newTestLoader(WithClipName("Run"), WithClipIndex(0)).Load(scene, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, clip.Duration())

	_, err = newTestLoader(WithClipName("Jump")).Load(scene, nil)
	assert.True(t, errors.Is(err, common.ErrNoAnimation))

	_, err = newTestLoader(WithClipIndex(2)).Load(scene, nil)
	assert.True(t, errors.Is(err, common.ErrNoAnimation))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SourceScene)
		opts   []LoaderBuilderOption
		want   error
	}{
		{"missing root", func(s *model.SourceScene) { s.Root = nil }, nil, common.ErrMissingRoot},
		{"no animation", func(s *model.SourceScene) { s.Animations = nil }, nil, common.ErrNoAnimation},
		{"no channels", func(s *model.SourceScene) { s.Animations[0].Channels = nil }, nil, common.ErrNoChannels},
		{"duplicate channel", func(s *model.SourceScene) {
			s.Animations[0].Channels = append(s.Animations[0].Channels, posChannel("Hips", model.VectorKeyframe{}))
		}, nil, common.ErrDuplicateChannel},
		{"non-monotonic keys", func(s *model.SourceScene) {
			s.Animations[0].Channels[0].PositionKeys[1].Time = 0
		}, nil, common.ErrNonMonotonicKeys},
		{"negative tick rate", func(s *model.SourceScene) { s.Animations[0].TicksPerSecond = -1 }, nil, common.ErrInvalidTicksPerSecond},
		{"no duration", func(s *model.SourceScene) {
			s.Animations[0].Duration = 0
			s.Animations[0].Channels = s.Animations[0].Channels[1:]
		}, nil, common.ErrInvalidDuration},
		{"malformed hierarchy", func(s *model.SourceScene) {
			s.Root.Children = append(s.Root.Children, s.Root.Children[0])
		}, nil, common.ErrMalformedHierarchy},
		{"too many bones", func(*model.SourceScene) {}, []LoaderBuilderOption{WithMaxBones(1)}, common.ErrTooManyBones},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := testScene()
			tt.mutate(scene)

			clip, err := newTestLoader(tt.opts...).Load(scene, nil)
			require.Error(t, err)
			assert.Nil(t, clip)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var loadErr *common.LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, "walk.glb", loadErr.Source)
		})
	}

	_, err := newTestLoader().Load(nil, nil)
	assert.True(t, errors.Is(err, common.ErrMissingRoot))
}

func TestNameNormalizer(t *testing.T) {
	n := NewNameNormalizer(DefaultNamePrefix, "", "Armature|")
	assert.Equal(t, []string{"mixamorig:", "Armature|"}, n.Prefixes())

	assert.Equal(t, "Hips", n.Normalize("mixamorig:Hips"))
	assert.Equal(t, "Hips", n.Normalize("Armature|Hips"))
	assert.Equal(t, "Hips", n.Normalize("Hips"))
	assert.Equal(t, "Armature|Hips", n.Normalize("mixamorig:Armature|Hips"))

	assert.Equal(t, "mixamorig:Hips", NewNameNormalizer().Normalize("mixamorig:Hips"))
	assert.Equal(t, "Hips", newTestLoader().Normalize("mixamorig:Hips"))
	assert.Equal(t, "mixamorig:Hips", newTestLoader(WithNamePrefix()).Normalize("mixamorig:Hips"))
}
