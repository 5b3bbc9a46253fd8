package shader

import (
	"strconv"
	"strings"
)

// Layout is the byte size and alignment of a WGSL type in host-shareable memory.
type Layout struct {
	Size  uint64
	Align uint64
}

// wgslPrimitiveLayoutMap maps WGSL scalar, vector and matrix type names to their layout.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]Layout{
	"f32": {4, 4},
	"i32": {4, 4},
	"u32": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// roundUpAlign rounds value up to the next multiple of alignment, which must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// splitArrayType splits "array<T, N>" into its element type and count string.
// ok is false when typeName is not an array; count is "" for runtime-sized arrays.
func splitArrayType(typeName string) (elem, count string, ok bool) {
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return "", "", false
	}
	parts := splitAtTopLevelCommas(typeName[6 : len(typeName)-1])
	elem = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		count = strings.TrimSpace(parts[1])
	}
	return elem, count, true
}

// resolveTypeLayout resolves a type from the primitives and the structs laid out so far.
// A runtime-sized array resolves to one element stride.
func resolveTypeLayout(typeName string, known map[string]Layout) (Layout, bool) {
	if l, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}

	elem, count, ok := splitArrayType(typeName)
	if !ok {
		return Layout{}, false
	}
	el, ok := resolveTypeLayout(elem, known)
	if !ok {
		return Layout{}, false
	}
	stride := roundUpAlign(el.Align, el.Size)
	if count == "" {
		return Layout{stride, el.Align}, true
	}
	n, err := strconv.ParseUint(count, 10, 64)
	if err != nil {
		return Layout{}, false
	}
	return Layout{n * stride, el.Align}, true
}

// computeStructLayout places each field at its next aligned offset.
// A trailing runtime-sized array contributes nothing to the size, so the result is the fixed prefix.
func computeStructLayout(ps parsedStruct, known map[string]Layout) (Layout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)

	for i, f := range ps.fields {
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return Layout{}, false
		}
		maxAlign = max(maxAlign, fl.Align)
		offset = roundUpAlign(fl.Align, offset)

		if _, count, isArray := splitArrayType(f.typeName); isArray && count == "" && i == len(ps.fields)-1 {
			break
		}
		offset += fl.Size
	}

	return Layout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructLayouts lays out every struct, resolving structs that embed other structs
// over repeated passes until no further progress is made.
func computeStructLayouts(structs []parsedStruct) map[string]Layout {
	resolved := make(map[string]Layout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}
