package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/sirupsen/logrus"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc    *gltf.Document
	logger logrus.FieldLogger
}

// gltfAnimationExtractor defines the interface for extracting animation data from a decoded glTF document.
// It merges the translation, rotation and scale channels that target one node into a single SourceChannel.
//
// glTF keyframe timestamps are in seconds, so every extracted animation reports one tick per second
// and a duration equal to its last timestamp.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - model.SourceAnimation: the extracted animation
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (model.SourceAnimation, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []model.SourceAnimation: all extracted animations
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]model.SourceAnimation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - logger: receives warnings for skipped channels
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document, logger logrus.FieldLogger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc, logger: logger}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (model.SourceAnimation, error) {
	doc := e.doc
	if animIndex < 0 || animIndex >= len(doc.Animations) || doc.Animations[animIndex] == nil {
		return model.SourceAnimation{}, errors.Errorf("animation index %d out of range", animIndex)
	}
	anim := doc.Animations[animIndex]

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}
	log := e.logger.WithField("animation", name)

	// Channels are merged per target node, in order of first appearance.
	order := make([]uint32, 0, len(anim.Channels))
	byNode := make(map[uint32]*model.SourceChannel)

	var duration float64

	for i, ch := range anim.Channels {
		if ch == nil || ch.Target.Node == nil {
			continue
		}
		nodeIndex := *ch.Target.Node
		if int(nodeIndex) >= len(doc.Nodes) {
			return model.SourceAnimation{}, errors.Errorf("animation %q channel %d: node index %d out of range", name, i, nodeIndex)
		}
		if ch.Target.Path == gltf.TRSWeights {
			log.WithField("channel", i).Debug("skipping morph weight channel")
			continue
		}

		if ch.Sampler == nil || int(*ch.Sampler) >= len(anim.Samplers) {
			return model.SourceAnimation{}, errors.Errorf("animation %q channel %d: invalid sampler", name, i)
		}
		sampler := anim.Samplers[*ch.Sampler]
		if sampler == nil || sampler.Input == nil || sampler.Output == nil {
			return model.SourceAnimation{}, errors.Errorf("animation %q channel %d: sampler without input or output", name, i)
		}
		cubic := sampler.Interpolation == gltf.InterpolationCubicSpline
		if sampler.Interpolation == gltf.InterpolationStep {
			log.WithField("channel", i).Debug("STEP sampler evaluated with linear interpolation")
		}

		timestamps, err := gltfReadScalars(doc, *sampler.Input)
		if err != nil {
			return model.SourceAnimation{}, errors.Wrapf(err, "animation %q channel %d: failed to read timestamps", name, i)
		}
		if n := len(timestamps); n > 0 {
			duration = max(duration, timestamps[n-1])
		}

		sc, exists := byNode[nodeIndex]
		if !exists {
			sc = &model.SourceChannel{NodeName: gltfNodeName(doc, nodeIndex)}
			byNode[nodeIndex] = sc
			order = append(order, nodeIndex)
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, err := gltfReadVec3s(doc, *sampler.Output)
			if err != nil {
				return model.SourceAnimation{}, errors.Wrapf(err, "animation %q channel %d: failed to read vector values", name, i)
			}
			values = gltfSplineValues(values, len(timestamps), cubic)
			keys := make([]model.VectorKeyframe, min(len(timestamps), len(values)))
			for j := range keys {
				keys[j] = model.VectorKeyframe{Time: timestamps[j], Value: values[j]}
			}
			if ch.Target.Path == gltf.TRSTranslation {
				sc.PositionKeys = keys
			} else {
				sc.ScaleKeys = keys
			}

		case gltf.TRSRotation:
			values, err := gltfReadRotations(doc, *sampler.Output)
			if err != nil {
				return model.SourceAnimation{}, errors.Wrapf(err, "animation %q channel %d: failed to read rotation values", name, i)
			}
			values = gltfSplineValues(values, len(timestamps), cubic)
			keys := make([]model.QuaternionKeyframe, min(len(timestamps), len(values)))
			for j := range keys {
				keys[j] = model.QuaternionKeyframe{Time: timestamps[j], Value: values[j]}
			}
			sc.RotationKeys = keys

		default:
			log.WithFields(logrus.Fields{"channel": i, "path": ch.Target.Path}).Warn("skipping channel with unknown target path")
		}
	}

	channels := make([]model.SourceChannel, 0, len(order))
	for _, n := range order {
		channels = append(channels, *byNode[n])
	}

	return model.SourceAnimation{
		Name:           name,
		Duration:       duration,
		TicksPerSecond: 1,
		Channels:       channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]model.SourceAnimation, error) {
	animations := make([]model.SourceAnimation, 0, len(e.doc.Animations))
	for i := range e.doc.Animations {
		anim, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, err
		}
		animations = append(animations, anim)
	}
	return animations, nil
}

// gltfSplineValues keeps only the value element of each (in-tangent, value, out-tangent) CUBICSPLINE triple.
func gltfSplineValues[T mgl32.Vec3 | mgl32.Quat](values []T, keys int, cubic bool) []T {
	if !cubic || len(values) < keys*3 {
		return values
	}
	out := make([]T, keys)
	for k := range out {
		out[k] = values[3*k+1]
	}
	return out
}
