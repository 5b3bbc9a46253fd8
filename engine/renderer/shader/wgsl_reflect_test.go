package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `
/* per-instance data
   /* nested */ still a comment */
struct Light {
    position: vec3<f32>, // w is unused
    intensity: f32,
};

struct Scene {
    count: u32,
    lights: array<Light, 4>,
    tint: vec4f,
};

struct Palette {
    header: vec2<u32>,
    @align(16) entries: array<mat4x4<f32>>,
};

@group(0) @binding(2) var<uniform> scene: Scene;
@group(1) @binding(0) var<storage, read> palette: Palette;
`

func TestReflectStructLayouts(t *testing.T) {
	r := Reflect(testSource)

	light, ok := r.StructLayout("Light")
	require.True(t, ok)
	assert.Equal(t, Layout{Size: 16, Align: 16}, light)

	// count at 0, lights at 16 (4 * 16), tint at 80
	scene, ok := r.StructLayout("Scene")
	require.True(t, ok)
	assert.Equal(t, Layout{Size: 96, Align: 16}, scene)

	// Only the fixed prefix counts for a trailing runtime-sized array.
	palette, ok := r.StructLayout("Palette")
	require.True(t, ok)
	assert.Equal(t, Layout{Size: 16, Align: 16}, palette)

	_, ok = r.StructLayout("Missing")
	assert.False(t, ok)
}

func TestReflectBindingsAndStrides(t *testing.T) {
	r := Reflect(testSource)

	b, ok := r.Binding("palette")
	require.True(t, ok)
	assert.Equal(t, Binding{Group: 1, Binding: 0, Name: "palette", TypeName: "Palette"}, b)

	b, ok = r.Binding("scene")
	require.True(t, ok)
	assert.Equal(t, 2, b.Binding)

	stride, err := r.ArrayStride("Palette", "entries")
	require.NoError(t, err)
	assert.Equal(t, uint64(64), stride)

	stride, err = r.ArrayStride("Scene", "lights")
	require.NoError(t, err)
	assert.Equal(t, uint64(16), stride)

	_, err = r.ArrayStride("Scene", "tint")
	assert.ErrorContains(t, err, "not an array")
	_, err = r.ArrayStride("Scene", "nope")
	assert.Error(t, err)
	_, err = r.ArrayStride("Nope", "entries")
	assert.Error(t, err)
}
