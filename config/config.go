package config

import (
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-anim/common"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the skelpose command.
type Config struct {
	// Source is the glTF/GLB file to load.
	Source string `yaml:"source"`

	// Clip selects a source animation by name; empty selects by ClipIndex.
	Clip      string `yaml:"clip"`
	ClipIndex int    `yaml:"clip_index"`

	// NamePrefix is the vendor prefix stripped from node and channel names.
	NamePrefix string `yaml:"name_prefix"`

	// Skinning settings
	MaxBones      int     `yaml:"max_bones"`
	PlaybackSpeed float64 `yaml:"playback_speed"`

	// Simulation settings
	Instances int     `yaml:"instances"`
	Frames    int     `yaml:"frames"`
	FrameRate float64 `yaml:"frame_rate"`
	Workers   int     `yaml:"workers"`

	// GPU uploads the skinning matrices to a headless WebGPU device instead of counting them.
	GPU bool `yaml:"gpu"`

	// Diagnostics
	DebugBone string `yaml:"debug_bone"`
	LogLevel  string `yaml:"log_level"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Source        string
	Clip          string
	NamePrefix    string
	MaxBones      int
	PlaybackSpeed float64
	Instances     int
	Frames        int
	FrameRate     float64
	Workers       int
	GPU           bool
	DebugBone     string
	LogLevel      string
}

// Load reads a YAML config file.
// Fields not set in the file keep their zero values until Resolve.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the parsed config
//   - error: error if the file cannot be read or parsed
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Resolve applies CLI flag overrides, then fills any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
//
// Parameters:
//   - flags: the flag values
func (c *Config) Resolve(flags Flags) {
	c.Source = common.Coalesce(flags.Source, c.Source)
	c.Clip = common.Coalesce(flags.Clip, c.Clip)
	c.NamePrefix = common.Coalesce(flags.NamePrefix, c.NamePrefix, "mixamorig:")
	c.MaxBones = common.Coalesce(positive(flags.MaxBones), positive(c.MaxBones), 200)
	c.PlaybackSpeed = common.Coalesce(flags.PlaybackSpeed, c.PlaybackSpeed, 1)
	c.Instances = common.Coalesce(positive(flags.Instances), positive(c.Instances), 1)
	c.Frames = common.Coalesce(positive(flags.Frames), positive(c.Frames), 60)
	c.FrameRate = common.Coalesce(flags.FrameRate, c.FrameRate, 60)
	c.Workers = common.Coalesce(positive(flags.Workers), positive(c.Workers), runtime.NumCPU())
	c.GPU = flags.GPU || c.GPU
	c.DebugBone = common.Coalesce(flags.DebugBone, c.DebugBone)
	c.LogLevel = common.Coalesce(flags.LogLevel, c.LogLevel, "info")
}

// Validate reports settings Resolve cannot repair.
//
// Returns:
//   - error: the first invalid setting, or nil
func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.New("config: no source file")
	}
	if c.FrameRate <= 0 {
		return errors.Errorf("config: frame rate must be positive, got %v", c.FrameRate)
	}
	if c.ClipIndex < 0 {
		return errors.Errorf("config: clip index must not be negative, got %d", c.ClipIndex)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config: log level")
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func positive(n int) int {
	return max(n, 0)
}
