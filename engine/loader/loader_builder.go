package loader

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/sirupsen/logrus"
)

// LoaderBuilderOption is a functional option for configuring an AnimationLoader via NewAnimationLoader.
type LoaderBuilderOption func(*animationLoader)

// WithNamePrefix is an option builder that replaces the vendor prefixes stripped from source names.
// Passing no prefixes disables stripping.
//
// Parameters:
//   - prefixes: the prefixes to strip, tried in order
//
// Returns:
//   - LoaderBuilderOption: a function that applies the prefix option to a loader
func WithNamePrefix(prefixes ...string) LoaderBuilderOption {
	return func(l *animationLoader) {
		l.prefixes = append([]string(nil), prefixes...)
	}
}

// WithMaxBones is an option builder that sets the skinning matrix capacity.
// A load that would bind an index at or past it fails with ErrTooManyBones.
//
// Parameters:
//   - n: the capacity; non-positive values are ignored
//
// Returns:
//   - LoaderBuilderOption: a function that applies the capacity option to a loader
func WithMaxBones(n int) LoaderBuilderOption {
	return func(l *animationLoader) {
		if n > 0 {
			l.maxBones = n
		}
	}
}

// WithDefaultTicksPerSecond is an option builder that sets the tick rate used when a source reports zero.
//
// Parameters:
//   - tps: the fallback tick rate; non-positive values are ignored
//
// Returns:
//   - LoaderBuilderOption: a function that applies the tick rate option to a loader
func WithDefaultTicksPerSecond(tps float64) LoaderBuilderOption {
	return func(l *animationLoader) {
		if tps > 0 {
			l.defaultTicksPerSecond = tps
		}
	}
}

// WithClipIndex is an option builder that selects which animation of a source becomes the clip.
func WithClipIndex(i int) LoaderBuilderOption {
	return func(l *animationLoader) {
		l.clipIndex = i
	}
}

// WithClipName is an option builder that selects the source animation by name. It takes precedence over WithClipIndex.
func WithClipName(name string) LoaderBuilderOption {
	return func(l *animationLoader) {
		l.clipName = name
	}
}

// WithMeshBindings is an option builder that sets the binding table LoadFile and LoadReader extend,
// in place of the skin imported with the file.
//
// Parameters:
//   - mesh: the mesh's bindings
//
// Returns:
//   - LoaderBuilderOption: a function that applies the bindings option to a loader
func WithMeshBindings(mesh *model.MeshBindings) LoaderBuilderOption {
	return func(l *animationLoader) {
		l.meshBindings = mesh
	}
}

// WithLogger is an option builder that sets the logger used for load diagnostics.
func WithLogger(logger logrus.FieldLogger) LoaderBuilderOption {
	return func(l *animationLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
