package loader

import "strings"

// DefaultNamePrefix is the vendor prefix stripped from source node and channel names by default.
// Rigs exported from Mixamo carry it on every joint while the mesh's own bone table does not.
const DefaultNamePrefix = "mixamorig:"

// NameNormalizer maps source node and channel names to the keys used by binding tables and bone lookups.
type NameNormalizer struct {
	prefixes []string
}

// NewNameNormalizer creates a normalizer that strips the first matching prefix from each name.
// Empty prefixes are ignored.
//
// Parameters:
//   - prefixes: the vendor prefixes to strip, tried in order
//
// Returns:
//   - NameNormalizer: the normalizer
func NewNameNormalizer(prefixes ...string) NameNormalizer {
	n := NameNormalizer{}
	for _, p := range prefixes {
		if p != "" {
			n.prefixes = append(n.prefixes, p)
		}
	}
	return n
}

// Normalize returns name with its vendor prefix removed.
//
// Parameters:
//   - name: the source name
//
// Returns:
//   - string: the lookup key
func (n NameNormalizer) Normalize(name string) string {
	for _, p := range n.prefixes {
		if stripped, ok := strings.CutPrefix(name, p); ok {
			return stripped
		}
	}
	return name
}

// Prefixes returns the configured prefixes.
func (n NameNormalizer) Prefixes() []string {
	return append([]string(nil), n.prefixes...)
}
