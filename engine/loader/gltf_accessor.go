package loader

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfReadAccessor decodes the accessor at index through the modeler package.
func gltfReadAccessor(doc *gltf.Document, index uint32) (any, error) {
	if int(index) >= len(doc.Accessors) || doc.Accessors[index] == nil {
		return nil, errors.Errorf("accessor index %d out of range", index)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read accessor %d", index)
	}
	return data, nil
}

// gltfReadScalars reads a SCALAR float accessor, widening each value to float64.
func gltfReadScalars(doc *gltf.Document, index uint32) ([]float64, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	values, ok := data.([]float32)
	if !ok {
		return nil, errors.Errorf("accessor %d: expected float scalars, got %T", index, data)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

// gltfReadVec3s reads a VEC3 float accessor.
func gltfReadVec3s(doc *gltf.Document, index uint32) ([]mgl32.Vec3, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	values, ok := data.([][3]float32)
	if !ok {
		return nil, errors.Errorf("accessor %d: expected float vec3, got %T", index, data)
	}
	out := make([]mgl32.Vec3, len(values))
	for i, v := range values {
		out[i] = mgl32.Vec3(v)
	}
	return out, nil
}

// gltfReadRotations reads a VEC4 rotation accessor stored as floats or as normalized integers.
func gltfReadRotations(doc *gltf.Document, index uint32) ([]mgl32.Quat, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}

	var raw [][4]float32
	switch values := data.(type) {
	case [][4]float32:
		raw = values
	case [][4]int8:
		raw = gltfDenormalize(values, func(c int8) float32 { return max(float32(c)/127, -1) })
	case [][4]uint8:
		raw = gltfDenormalize(values, func(c uint8) float32 { return float32(c) / 255 })
	case [][4]int16:
		raw = gltfDenormalize(values, func(c int16) float32 { return max(float32(c)/32767, -1) })
	case [][4]uint16:
		raw = gltfDenormalize(values, func(c uint16) float32 { return float32(c) / 65535 })
	default:
		return nil, errors.Errorf("accessor %d: expected vec4 rotations, got %T", index, data)
	}

	out := make([]mgl32.Quat, len(raw))
	for i, v := range raw {
		out[i] = gltfQuat(v)
	}
	return out, nil
}

// gltfReadMat4s reads a MAT4 float accessor.
// The decoder returns each matrix indexed [row][col]; mgl32 stores columns contiguously.
func gltfReadMat4s(doc *gltf.Document, index uint32) ([]mgl32.Mat4, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	values, ok := data.([][4][4]float32)
	if !ok {
		return nil, errors.Errorf("accessor %d: expected float mat4, got %T", index, data)
	}
	out := make([]mgl32.Mat4, len(values))
	for i, v := range values {
		for col := 0; col < 4; col++ {
			for row := 0; row < 4; row++ {
				out[i][col*4+row] = v[row][col]
			}
		}
	}
	return out, nil
}

func gltfDenormalize[T int8 | uint8 | int16 | uint16](values [][4]T, conv func(T) float32) [][4]float32 {
	out := make([][4]float32, len(values))
	for i, v := range values {
		out[i] = [4]float32{conv(v[0]), conv(v[1]), conv(v[2]), conv(v[3])}
	}
	return out
}
