package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"

	"github.com/sirupsen/logrus"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithMaxBones is an option builder that sets the length of the final skinning matrix array.
//
// Parameters:
//   - maxBones: the capacity; must be positive
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the capacity option to an animator
func WithMaxBones(maxBones int) AnimatorBuilderOption {
	return func(a *animator) {
		a.maxBones = maxBones
	}
}

// WithPlaybackSpeed is an option builder that sets the initial playback speed multiplier.
//
// Parameters:
//   - speed: the multiplier; negative values play backwards
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the speed option to an animator
func WithPlaybackSpeed(speed float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.playbackSpeed = speed
	}
}

// WithEnabled is an option builder that sets whether UpdateAnimation evaluates the clip.
func WithEnabled(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.enabled = enabled
	}
}

// WithDebugBone is an option builder that logs the named bone's final matrix at debug level after every update.
//
// Parameters:
//   - name: the normalized bone name
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the debug bone option to an animator
func WithDebugBone(name string) AnimatorBuilderOption {
	return func(a *animator) {
		a.debugBone = name
	}
}

// WithLogger is an option builder that sets the logger used for debug output.
func WithLogger(logger logrus.FieldLogger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProvider is an option builder that sets the provider whose buffer receives the skinning matrices on Flush.
//
// Parameters:
//   - provider: the skinning bind group provider
//   - binding: the binding index of the skinning matrix buffer
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the provider option to an animator
func WithProvider(provider bind_group_provider.BindGroupProvider, binding int) AnimatorBuilderOption {
	return func(a *animator) {
		a.provider = provider
		a.binding = binding
	}
}
