package animator

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/shader"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// GPUSkinningMatricesSource is the canonical WGSL definition of the skinning matrix storage block.
// Each element matches GPUSkinningMatrix exactly (64 bytes, std430 aligned).
//
//go:embed assets/skinning_matrices.wgsl
var GPUSkinningMatricesSource string

// GPUSkinningMatrix is the GPU-aligned representation of one final skinning matrix.
// Size: 64 bytes (std430 aligned).
type GPUSkinningMatrix struct {
	Matrix [16]float32 // offset 0, size 64 (mat4x4<f32>, column-major)
}

// Size returns the size of the GPUSkinningMatrix struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUSkinningMatrix) Size() int {
	return int(unsafe.Sizeof(*g))
}

// PackSkinningMatrices copies a matrix array into a byte buffer laid out as the WGSL SkinningMatrices block.
// The result does not alias the input, so it stays valid after the next update.
//
// Parameters:
//   - matrices: the final skinning matrices, indexed by bone slot
//
// Returns:
//   - []byte: len(matrices) * 64 bytes
func PackSkinningMatrices(matrices []mgl32.Mat4) []byte {
	view := common.SliceToBytes(matrices)
	out := make([]byte, len(view))
	copy(out, view)
	return out
}

// SkinningLayout is the GPU-side layout of the skinning matrix buffer as declared in GPUSkinningMatricesSource.
type SkinningLayout struct {
	// Group and Binding locate the storage buffer in the vertex shader.
	Group   int
	Binding int

	// Stride is the byte distance between consecutive matrices.
	Stride uint64
}

// BufferSize returns the byte size of a buffer holding maxBones matrices.
func (l SkinningLayout) BufferSize(maxBones int) uint64 {
	return l.Stride * uint64(max(maxBones, 0))
}

// ReflectSkinningLayout reads the skinning buffer layout from GPUSkinningMatricesSource and checks
// that it matches the packing of PackSkinningMatrices.
//
// Returns:
//   - SkinningLayout: the binding location and matrix stride
//   - error: if the shader does not declare the buffer or its stride differs from GPUSkinningMatrix
func ReflectSkinningLayout() (SkinningLayout, error) {
	r := shader.Reflect(GPUSkinningMatricesSource)

	b, ok := r.Binding("skinning")
	if !ok {
		return SkinningLayout{}, errors.New("skinning shader declares no skinning binding")
	}
	stride, err := r.ArrayStride(b.TypeName, "bones")
	if err != nil {
		return SkinningLayout{}, errors.Wrap(err, "skinning shader")
	}
	if size := (&GPUSkinningMatrix{}).Size(); stride != uint64(size) {
		return SkinningLayout{}, errors.Errorf("skinning shader stride %d does not match packed matrix size %d", stride, size)
	}
	return SkinningLayout{Group: b.Group, Binding: b.Binding, Stride: stride}, nil
}
