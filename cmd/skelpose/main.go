package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/animator"
	bgp "github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a YAML config file")
	source := flag.String("source", "", "glTF/GLB file to load")
	clip := flag.String("clip", "", "Animation name to play (default: first)")
	prefix := flag.String("prefix", "", "Vendor prefix stripped from bone names (default: mixamorig:)")
	maxBones := flag.Int("max-bones", 0, "Skinning matrix capacity (default: 200)")
	speed := flag.Float64("speed", 0, "Playback speed multiplier (default: 1)")
	instances := flag.Int("instances", 0, "Number of animator instances (default: 1)")
	frames := flag.Int("frames", 0, "Number of frames to simulate (default: 60)")
	frameRate := flag.Float64("fps", 0, "Simulated frame rate (default: 60)")
	workers := flag.Int("workers", 0, "Worker goroutines (default: NumCPU)")
	useGPU := flag.Bool("gpu", false, "Upload skinning matrices to a headless WebGPU device")
	debugBone := flag.String("debug-bone", "", "Bone whose final matrix is logged each frame")
	logLevel := flag.String("log-level", "", "Log level (default: info)")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Source:        *source,
		Clip:          *clip,
		NamePrefix:    *prefix,
		MaxBones:      *maxBones,
		PlaybackSpeed: *speed,
		Instances:     *instances,
		Frames:        *frames,
		FrameRate:     *frameRate,
		Workers:       *workers,
		GPU:           *useGPU,
		DebugBone:     *debugBone,
		LogLevel:      *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetLevel(cfg.Level())

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("skelpose failed")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	ldr := loader.NewAnimationLoader(loader.BackendTypeGLTF,
		loader.WithNamePrefix(cfg.NamePrefix),
		loader.WithMaxBones(cfg.MaxBones),
		loader.WithClipName(cfg.Clip),
		loader.WithClipIndex(cfg.ClipIndex),
		loader.WithLogger(logger),
	)

	clip, err := ldr.LoadFile(cfg.Source)
	if err != nil {
		return err
	}

	layout, err := animator.ReflectSkinningLayout()
	if err != nil {
		return err
	}

	target, err := newUploadTarget(cfg, layout.BufferSize(cfg.MaxBones))
	if err != nil {
		return err
	}
	defer target.release()

	pool := animator.NewAnimatorPool(animator.WithWorkers(cfg.Workers))
	defer pool.Stop()

	for i := 0; i < cfg.Instances; i++ {
		provider, err := target.newProvider(fmt.Sprintf("skinning_%d", i), layout.Binding)
		if err != nil {
			return err
		}
		opts := []animator.AnimatorBuilderOption{
			animator.WithMaxBones(cfg.MaxBones),
			animator.WithPlaybackSpeed(cfg.PlaybackSpeed),
			animator.WithLogger(logger.WithField("instance", i)),
			animator.WithProvider(provider, layout.Binding),
		}
		if i == 0 && cfg.DebugBone != "" {
			opts = append(opts, animator.WithDebugBone(cfg.DebugBone))
		}
		a, err := animator.NewAnimator(clip, opts...)
		if err != nil {
			return err
		}
		pool.Add(a)
	}

	prof := profiler.NewProfiler(profiler.WithLogger(logger))
	dt := 1 / cfg.FrameRate
	var submitted, stagedBytes int

	for f := 0; f < cfg.Frames; f++ {
		var updateErr error
		prof.Time(func() {
			updateErr = pool.Update(dt)
		})
		if updateErr != nil {
			return updateErr
		}

		writes := pool.Flush()
		for _, w := range writes {
			stagedBytes += len(w.Data)
		}
		n, err := bgp.WriteBuffers(target.writer, writes)
		if err != nil {
			return err
		}
		submitted += n
		prof.Tick()
	}

	first := pool.Animators()[0]
	logger.WithFields(logrus.Fields{
		"clip":         clip.Name(),
		"duration_s":   clip.DurationSeconds(),
		"bones":        len(clip.Bones()),
		"slots":        clip.SlotsNeeded(),
		"instances":    pool.Len(),
		"frames":       cfg.Frames,
		"final_time":   first.CurrentTime(),
		"gpu":          cfg.GPU,
		"writes":       submitted,
		"staged_bytes": stagedBytes,
		"buffer_bytes": layout.BufferSize(cfg.MaxBones),
		"sim_duration": time.Duration(float64(cfg.Frames) * dt * float64(time.Second)),
	}).Info("simulation finished")

	return nil
}

// uploadTarget is where the staged skinning writes go: a headless device, or a
// CountingWriter when no device is requested.
type uploadTarget struct {
	device     gpu.Device
	writer     bgp.BufferWriter
	bufferSize uint64
	providers  []bgp.BindGroupProvider
}

func newUploadTarget(cfg config.Config, bufferSize uint64) (*uploadTarget, error) {
	t := &uploadTarget{bufferSize: bufferSize}
	if !cfg.GPU {
		t.writer = bgp.NewCountingWriter()
		return t, nil
	}

	dev, err := gpu.NewHeadlessDevice(gpu.WithLabel("skelpose"))
	if err != nil {
		return nil, err
	}
	t.device = dev
	t.writer = dev.Writer()
	return t, nil
}

func (t *uploadTarget) newProvider(label string, binding int) (bgp.BindGroupProvider, error) {
	// Without a device the buffer is an empty handle; the CountingWriter never dereferences it.
	buf := &wgpu.Buffer{}
	if t.device != nil {
		var err error
		if buf, err = t.device.CreateStorageBuffer(label, t.bufferSize); err != nil {
			return nil, err
		}
	}
	p := bgp.NewBindGroupProvider(label, bgp.WithBuffer(binding, buf))
	t.providers = append(t.providers, p)
	return p, nil
}

func (t *uploadTarget) release() {
	if t.device == nil {
		return
	}
	for _, p := range t.providers {
		p.Release()
	}
	t.device.Release()
}
