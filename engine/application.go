package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/fractal/engine/core"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height.
	StartHeight uint32 `toml:"start_height"`

	LogLevel core.LogLevel `toml:"log_level"`

	// Directory holding the compiled SPIR-V shaders.
	ShaderDir string `toml:"shader_dir"`
	// How much the iteration keys add or remove per press.
	IterationStep int32 `toml:"iteration_step"`
	// Enables validation layers and the debug messenger.
	Debug bool `toml:"debug"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:          "Fractal Viewer",
		StartPosX:     100,
		StartPosY:     100,
		StartWidth:    1280,
		StartHeight:   720,
		LogLevel:      core.LogLevelInfo,
		ShaderDir:     "shaders",
		IterationStep: 10,
		Debug:         false,
	}
}

// LoadApplicationConfig reads a TOML config file, filling any omitted field
// with its default. A missing file is not an error; the defaults are used
// unchanged.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file %q not found, using defaults", path)
			return config, nil
		}
		core.LogError("failed to read config file %q: %s", path, err)
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		err = fmt.Errorf("failed to parse config file %q: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	if config.IterationStep <= 0 {
		core.LogWarn("iteration_step must be positive, got %d; using default", config.IterationStep)
		config.IterationStep = DefaultApplicationConfig().IterationStep
	}
	return config, nil
}

// ConfigWatcher reloads the application config whenever the file changes on
// disk. Only settings that can take effect at runtime are applied by the
// consumer; the rest need a restart.
type ConfigWatcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	updates  chan *ApplicationConfig
	done     chan struct{}
}

// WatchApplicationConfig watches the directory holding path, since editors
// commonly replace the file instead of writing it in place.
func WatchApplicationConfig(path string) (*ConfigWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		core.LogError("failed to watch config directory %q: %s", dir, err)
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     path,
		fsnotify: fsWatch,
		updates:  make(chan *ApplicationConfig, 1),
		done:     make(chan struct{}),
	}
	go cw.start()
	return cw, nil
}

// Updates delivers freshly parsed configs. The channel holds at most one
// pending config; rapid successive writes collapse into the latest.
func (cw *ConfigWatcher) Updates() <-chan *ApplicationConfig {
	return cw.updates
}

func (cw *ConfigWatcher) start() {
	for {
		select {
		case <-cw.done:
			return
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != filepath.Clean(cw.path) {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			config, err := LoadApplicationConfig(cw.path)
			if err != nil {
				core.LogWarn("ignoring config reload: %s", err)
				continue
			}
			select {
			case cw.updates <- config:
			default:
				// Drop the stale pending config and queue the new one.
				select {
				case <-cw.updates:
				default:
				}
				cw.updates <- config
			}
		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogWarn("config watcher error: %s", err)
		}
	}
}

func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	return cw.fsnotify.Close()
}
