package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parsedField is one member of a WGSL struct.
type parsedField struct {
	name     string
	typeName string
}

// parsedStruct is a WGSL struct block.
type parsedStruct struct {
	name   string
	fields []parsedField
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldRegex matches a struct member: optional attributes, name, colon, type
	fieldRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	// bindingDeclRegex captures group, binding, variable name and type from declarations like
	// @group(1) @binding(0) var<storage, read> skinning: SkinningMatrices;
	bindingDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<[^>]*>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Binding is a resource variable declared with @group and @binding.
type Binding struct {
	Group    int
	Binding  int
	Name     string
	TypeName string
}

// Reflection is the buffer layout information read from a WGSL module.
type Reflection struct {
	structs  map[string]parsedStruct
	layouts  map[string]Layout
	bindings map[string]Binding
}

// Reflect parses the structs and resource bindings of a WGSL source.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - *Reflection: the parsed layout information
func Reflect(source string) *Reflection {
	source = stripComments(source)

	structs := parseStructBlocks(source)
	r := &Reflection{
		structs:  make(map[string]parsedStruct, len(structs)),
		layouts:  computeStructLayouts(structs),
		bindings: make(map[string]Binding),
	}
	for _, ps := range structs {
		r.structs[ps.name] = ps
	}

	for _, m := range bindingDeclRegex.FindAllStringSubmatch(source, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		r.bindings[m[3]] = Binding{Group: group, Binding: binding, Name: m[3], TypeName: strings.TrimSpace(m[4])}
	}
	return r
}

// StructLayout returns the layout of a struct. For a struct ending in a runtime-sized array
// the size covers only the fixed members before it.
//
// Parameters:
//   - name: the struct name
//
// Returns:
//   - Layout: the struct layout
//   - bool: false if the struct is unknown or has unresolvable members
func (r *Reflection) StructLayout(name string) (Layout, bool) {
	l, ok := r.layouts[name]
	return l, ok
}

// Binding returns the declaration of a resource variable.
//
// Parameters:
//   - name: the variable name
//
// Returns:
//   - Binding: the group, binding and type of the variable
//   - bool: false if no such variable is declared
func (r *Reflection) Binding(name string) (Binding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// ArrayStride returns the element stride of an array member of a struct.
//
// Parameters:
//   - structName: the struct holding the array
//   - field: the array member
//
// Returns:
//   - uint64: the byte distance between consecutive elements
//   - error: if the struct, the member or its element type is unknown
func (r *Reflection) ArrayStride(structName, field string) (uint64, error) {
	ps, ok := r.structs[structName]
	if !ok {
		return 0, errors.Errorf("wgsl: unknown struct %q", structName)
	}
	for _, f := range ps.fields {
		if f.name != field {
			continue
		}
		elem, _, isArray := splitArrayType(f.typeName)
		if !isArray {
			return 0, errors.Errorf("wgsl: %s.%s is %s, not an array", structName, field, f.typeName)
		}
		el, ok := resolveTypeLayout(elem, r.layouts)
		if !ok {
			return 0, errors.Errorf("wgsl: cannot lay out %s.%s element type %s", structName, field, elem)
		}
		return roundUpAlign(el.Align, el.Size), nil
	}
	return 0, errors.Errorf("wgsl: struct %q has no member %q", structName, field)
}

// parseStructBlocks extracts every struct block with its members.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

// parseStructFields splits a struct body into members.
func parseStructFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if fm := fieldRegex.FindStringSubmatch(part); fm != nil {
			fields = append(fields, parsedField{name: fm[1], typeName: strings.TrimSpace(fm[2])})
		}
	}
	return fields
}

// splitAtTopLevelCommas splits s at commas outside angle brackets, so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
