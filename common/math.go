package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// ComposeTRS builds a local transform from translation, rotation and scale.
// Matrices are column-major with column vectors, so the result is T * R * S:
// a point is scaled first, then rotated, then translated.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion, expected to be unit length
//   - s: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the composed transform
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	m := r.Mat4()

	// Scaling the rotation columns is R * S without a second full multiply.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] *= s[col]
		}
	}

	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// DecomposeTRS decomposes a 4x4 column-major matrix into translation, rotation and scale.
// This is an approximation that assumes no shear. A mirrored matrix (negative determinant)
// gets a negative x scale so ComposeTRS rebuilds it.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - mgl32.Vec3: translation
//   - mgl32.Quat: unit rotation quaternion
//   - mgl32.Vec3: per-axis scale
func DecomposeTRS(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	t := m.Col(3).Vec3()

	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	s := mgl32.Vec3{cols[0].Len(), cols[1].Len(), cols[2].Len()}
	if m.Mat3().Det() < 0 {
		s[0] = -s[0]
	}

	for i := range cols {
		// Avoid division by zero
		if mgl32.Abs(s[i]) >= 0.0001 {
			cols[i] = cols[i].Mul(1 / s[i])
		}
	}

	rot := mgl32.Mat4FromCols(cols[0].Vec4(0), cols[1].Vec4(0), cols[2].Vec4(0), mgl32.Vec4{0, 0, 0, 1})
	return t, mgl32.Mat4ToQuat(rot).Normalize(), s
}
