package loader

import (
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBones is the default capacity of the skinning matrix array.
const DefaultMaxBones = 200

// DefaultTicksPerSecond is the tick rate assumed when a source animation reports zero.
const DefaultTicksPerSecond = 25.0

// LoaderBackendType identifies the source file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// animationLoader is the implementation of the AnimationLoader interface.
type animationLoader struct {
	mu sync.RWMutex

	clipCache map[string]*animation.Clip

	backend    loaderBackend
	normalizer NameNormalizer
	prefixes   []string
	logger     logrus.FieldLogger

	maxBones              int
	defaultTicksPerSecond float64
	clipIndex             int
	clipName              string
	meshBindings          *model.MeshBindings
}

// AnimationLoader builds immutable animation Clips from imported source scenes.
//
// Building a clip deep-copies the scene's node hierarchy with normalized names, extends a copy of the mesh's
// bone binding table with every animated bone the mesh does not already know, and turns each animation channel
// into a Bone. The caller's binding table is never modified. Any malformed input fails the whole load with a
// *common.LoadError; no partial clip is ever returned.
type AnimationLoader interface {
	// Load builds a Clip from an already imported source scene.
	//
	// Parameters:
	//   - scene: the imported scene holding the node hierarchy and its animations
	//   - mesh: the mesh's bone binding table and bone counter; nil means an empty table
	//
	// Returns:
	//   - *animation.Clip: the built clip
	//   - error: a *common.LoadError if the scene is unusable
	Load(scene *model.SourceScene, mesh *model.MeshBindings) (*animation.Clip, error)

	// LoadFile imports a source file and builds a Clip from it, caching the result by path.
	// The mesh bindings set with WithMeshBindings are used when present, otherwise the file's own skin.
	// The backend is selected by file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the animation source
	//
	// Returns:
	//   - *animation.Clip: the loaded and cached clip
	//   - error: error if importing or building fails
	LoadFile(path string) (*animation.Clip, error)

	// LoadReader imports a source stream and builds a Clip from it, caching the result by name.
	//
	// Parameters:
	//   - name: the cache key for the clip
	//   - r: the reader providing glTF JSON or GLB data
	//
	// Returns:
	//   - *animation.Clip: the loaded clip
	//   - error: error if importing or building fails
	LoadReader(name string, r io.Reader) (*animation.Clip, error)

	// Import reads a source file into a scene and the bindings of its first skin without building a clip.
	//
	// Parameters:
	//   - path: the file path to the animation source
	//
	// Returns:
	//   - *model.SourceScene: the imported scene
	//   - *model.MeshBindings: the bindings of the file's first skin, empty if it has none
	//   - error: error if importing fails
	Import(path string) (*model.SourceScene, *model.MeshBindings, error)

	// Get retrieves a cached clip by key. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *animation.Clip: the cached clip or nil
	Get(name string) *animation.Clip

	// Clips returns a copy of the clip cache.
	//
	// Returns:
	//   - map[string]*animation.Clip: all cached clips keyed by path or name
	Clips() map[string]*animation.Clip

	// Normalize maps a source name to its lookup key using the configured vendor prefixes.
	//
	// Parameters:
	//   - name: the source node or channel name
	//
	// Returns:
	//   - string: the normalized name
	Normalize(name string) string
}

var _ AnimationLoader = &animationLoader{}

// NewAnimationLoader creates a new AnimationLoader with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the loader
//
// Returns:
//   - AnimationLoader: a new loader configured with the provided backend and options
func NewAnimationLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) AnimationLoader {
	l := &animationLoader{
		mu:                    sync.RWMutex{},
		clipCache:             make(map[string]*animation.Clip),
		prefixes:              []string{DefaultNamePrefix},
		logger:                logrus.StandardLogger(),
		maxBones:              DefaultMaxBones,
		defaultTicksPerSecond: DefaultTicksPerSecond,
	}

	for _, option := range options {
		option(l)
	}

	l.normalizer = NewNameNormalizer(l.prefixes...)

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.normalizer.Normalize, l.logger)
	}
	return l
}

func (l *animationLoader) LoadFile(path string) (*animation.Clip, error) {
	l.mu.RLock()
	if cached, ok := l.clipCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	scene, skin, err := l.Import(path)
	if err != nil {
		return nil, err
	}

	clip, err := l.Load(scene, l.bindingsFor(skin))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.clipCache[path] = clip
	l.mu.Unlock()

	return clip, nil
}

func (l *animationLoader) LoadReader(name string, r io.Reader) (*animation.Clip, error) {
	l.mu.RLock()
	if cached, ok := l.clipCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if l.backend == nil {
		return nil, errors.New("loader has no backend")
	}
	scene, skin, err := l.backend.ImportReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to import from reader %q", name)
	}
	if scene.Name == "" {
		scene.Name = name
	}

	clip, err := l.Load(scene, l.bindingsFor(skin))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.clipCache[name] = clip
	l.mu.Unlock()

	return clip, nil
}

func (l *animationLoader) Import(path string) (*model.SourceScene, *model.MeshBindings, error) {
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, nil, err
	}

	scene, skin, err := backend.Import(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to import %s", path)
	}
	if scene.Name == "" {
		scene.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scene, skin, nil
}

func (l *animationLoader) Get(name string) *animation.Clip {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clipCache[name]
}

func (l *animationLoader) Clips() map[string]*animation.Clip {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*animation.Clip, len(l.clipCache))
	for k, v := range l.clipCache {
		result[k] = v
	}
	return result
}

func (l *animationLoader) Normalize(name string) string {
	return l.normalizer.Normalize(name)
}

func (l *animationLoader) Load(scene *model.SourceScene, mesh *model.MeshBindings) (*animation.Clip, error) {
	source := ""
	if scene != nil {
		source = scene.Name
	}
	log := l.logger.WithField("source", source)

	if scene == nil || scene.Root == nil {
		return nil, common.NewLoadError(source, common.ErrMissingRoot, "")
	}

	anim, err := l.selectAnimation(scene)
	if err != nil {
		return nil, common.NewLoadError(source, err, "")
	}
	log = log.WithField("clip", anim.Name)
	if len(anim.Channels) == 0 {
		return nil, common.NewLoadError(source, common.ErrNoChannels, "animation %q", anim.Name)
	}

	tps, err := l.resolveTicksPerSecond(anim)
	if err != nil {
		return nil, common.NewLoadError(source, err, "animation %q", anim.Name)
	}
	duration, err := resolveDuration(anim)
	if err != nil {
		return nil, common.NewLoadError(source, err, "animation %q", anim.Name)
	}

	skeleton, err := animation.NewSkeleton(scene.Root, l.normalizer.Normalize)
	if err != nil {
		return nil, common.NewLoadError(source, err, "")
	}

	working := model.BoneBindingTable{}
	counter := 0
	if mesh != nil {
		working = mesh.Table.Clone()
		counter = mesh.BoneCount
	}
	for _, entry := range working {
		counter = max(counter, entry.Index+1)
	}

	bones := make([]*animation.Bone, 0, len(anim.Channels))
	seen := make(map[string]struct{}, len(anim.Channels))
	added := 0
	for _, ch := range anim.Channels {
		name := l.normalizer.Normalize(ch.NodeName)
		if _, dup := seen[name]; dup {
			return nil, common.NewLoadError(source, common.ErrDuplicateChannel, "bone %q", name)
		}
		seen[name] = struct{}{}

		entry, ok := working[name]
		if !ok {
			entry = model.BindingEntry{Index: counter, Offset: mgl32.Ident4()}
			working[name] = entry
			counter++
			added++
			log.WithFields(logrus.Fields{"bone": name, "index": entry.Index}).Debug("bone not in mesh bindings, appended")
		}

		node := skeleton.Find(name)
		if node < 0 {
			log.WithField("bone", name).Warn("channel targets a node outside the hierarchy")
		}

		filled := l.completeChannel(ch, skeleton, node, duration)
		bone, err := animation.NewBone(name, entry.Index, filled)
		if err != nil {
			return nil, common.NewLoadError(source, err, "")
		}
		bones = append(bones, bone)
	}

	for name, entry := range working {
		if entry.Index >= l.maxBones {
			return nil, common.NewLoadError(source, common.ErrTooManyBones, "bone %q index %d, capacity %d", name, entry.Index, l.maxBones)
		}
	}

	clip, err := animation.NewClip(animation.ClipConfig{
		Name:           anim.Name,
		Duration:       duration,
		TicksPerSecond: tps,
		Skeleton:       skeleton,
		Bones:          bones,
		Bindings:       working,
		BoneCount:      counter,
	})
	if err != nil {
		return nil, common.NewLoadError(source, err, "")
	}

	log.WithFields(logrus.Fields{
		"nodes":       skeleton.Len(),
		"bones":       len(bones),
		"appended":    added,
		"bone_count":  counter,
		"duration":    duration,
		"ticks_per_s": tps,
	}).Info("animation clip loaded")

	return clip, nil
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *animationLoader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		if l.backend == nil {
			return nil, errors.New("loader has no backend")
		}
		return l.backend, nil
	default:
		return nil, errors.Errorf("unsupported animation format: %s", ext)
	}
}

// bindingsFor prefers the configured mesh bindings over the ones imported with the file.
func (l *animationLoader) bindingsFor(imported *model.MeshBindings) *model.MeshBindings {
	if l.meshBindings != nil {
		return l.meshBindings
	}
	return imported
}

// selectAnimation picks the animation named by WithClipName, else the one at WithClipIndex.
func (l *animationLoader) selectAnimation(scene *model.SourceScene) (*model.SourceAnimation, error) {
	if len(scene.Animations) == 0 {
		return nil, common.ErrNoAnimation
	}
	if l.clipName != "" {
		for i := range scene.Animations {
			if scene.Animations[i].Name == l.clipName {
				return &scene.Animations[i], nil
			}
		}
		return nil, errors.Wrapf(common.ErrNoAnimation, "no clip named %q", l.clipName)
	}
	if l.clipIndex < 0 || l.clipIndex >= len(scene.Animations) {
		return nil, errors.Wrapf(common.ErrNoAnimation, "clip index %d out of range [0, %d)", l.clipIndex, len(scene.Animations))
	}
	return &scene.Animations[l.clipIndex], nil
}

func (l *animationLoader) resolveTicksPerSecond(anim *model.SourceAnimation) (float64, error) {
	tps := anim.TicksPerSecond
	switch {
	case tps == 0:
		return l.defaultTicksPerSecond, nil
	case tps < 0 || math.IsNaN(tps) || math.IsInf(tps, 0):
		return 0, errors.Wrapf(common.ErrInvalidTicksPerSecond, "ticks per second %v", tps)
	}
	return tps, nil
}

// resolveDuration returns the declared duration, or the last key time when none is declared.
func resolveDuration(anim *model.SourceAnimation) (float64, error) {
	d := anim.Duration
	if d == 0 {
		for _, ch := range anim.Channels {
			if n := len(ch.PositionKeys); n > 0 {
				d = max(d, ch.PositionKeys[n-1].Time)
			}
			if n := len(ch.RotationKeys); n > 0 {
				d = max(d, ch.RotationKeys[n-1].Time)
			}
			if n := len(ch.ScaleKeys); n > 0 {
				d = max(d, ch.ScaleKeys[n-1].Time)
			}
		}
	}
	if !(d > 0) || math.IsInf(d, 0) {
		return 0, errors.Wrapf(common.ErrInvalidDuration, "duration %v", anim.Duration)
	}
	return d, nil
}

// completeChannel fills absent key lists from the node's bind pose and holds the first and last
// keys out to the clip bounds, so every track covers [0, duration].
func (l *animationLoader) completeChannel(ch model.SourceChannel, skeleton *animation.Skeleton, node int, duration float64) model.SourceChannel {
	bindT, bindR, bindS := mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}
	if node >= 0 {
		bindT, bindR, bindS = common.DecomposeTRS(skeleton.Node(node).BindTransform)
	}

	out := model.SourceChannel{NodeName: ch.NodeName}

	out.PositionKeys = ch.PositionKeys
	if len(out.PositionKeys) == 0 {
		out.PositionKeys = []model.VectorKeyframe{{Time: 0, Value: bindT}}
	}
	out.RotationKeys = ch.RotationKeys
	if len(out.RotationKeys) == 0 {
		out.RotationKeys = []model.QuaternionKeyframe{{Time: 0, Value: bindR}}
	}
	out.ScaleKeys = ch.ScaleKeys
	if len(out.ScaleKeys) == 0 {
		out.ScaleKeys = []model.VectorKeyframe{{Time: 0, Value: bindS}}
	}

	out.PositionKeys = padKeys(out.PositionKeys, duration,
		func(k model.VectorKeyframe) float64 { return k.Time },
		func(k model.VectorKeyframe, t float64) model.VectorKeyframe { return model.VectorKeyframe{Time: t, Value: k.Value} })
	out.RotationKeys = padKeys(out.RotationKeys, duration,
		func(k model.QuaternionKeyframe) float64 { return k.Time },
		func(k model.QuaternionKeyframe, t float64) model.QuaternionKeyframe {
			return model.QuaternionKeyframe{Time: t, Value: k.Value}
		})
	out.ScaleKeys = padKeys(out.ScaleKeys, duration,
		func(k model.VectorKeyframe) float64 { return k.Time },
		func(k model.VectorKeyframe, t float64) model.VectorKeyframe { return model.VectorKeyframe{Time: t, Value: k.Value} })

	return out
}

// padKeys holds the first key back to time 0 and the last key out to duration.
// Single-key tracks are constant and are returned unchanged. The input slice is never modified.
func padKeys[K any](keys []K, duration float64, timeOf func(K) float64, at func(K, float64) K) []K {
	if len(keys) < 2 {
		return keys
	}
	first, last := keys[0], keys[len(keys)-1]
	head := timeOf(first) > 0
	tail := timeOf(last) < duration
	if !head && !tail {
		return keys
	}

	out := make([]K, 0, len(keys)+2)
	if head {
		out = append(out, at(first, 0))
	}
	out = append(out, keys...)
	if tail {
		out = append(out, at(last, duration))
	}
	return out
}
