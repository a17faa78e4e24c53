package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/fractal/engine/core"
)

func TestLoadApplicationConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}

	defaults := DefaultApplicationConfig()
	if config.Name != defaults.Name {
		t.Errorf("Name = %q, want %q", config.Name, defaults.Name)
	}
	if config.StartWidth != defaults.StartWidth || config.StartHeight != defaults.StartHeight {
		t.Errorf("size = %dx%d, want %dx%d", config.StartWidth, config.StartHeight, defaults.StartWidth, defaults.StartHeight)
	}
	if config.IterationStep != defaults.IterationStep {
		t.Errorf("IterationStep = %d, want %d", config.IterationStep, defaults.IterationStep)
	}
}

func TestLoadApplicationConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	content := `
name = "Test Viewer"
start_width = 640
start_height = 480
log_level = "debug"
iteration_step = 25
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadApplicationConfig(path)
	if err != nil {
		t.Fatalf("LoadApplicationConfig: %v", err)
	}

	if config.Name != "Test Viewer" {
		t.Errorf("Name = %q, want %q", config.Name, "Test Viewer")
	}
	if config.StartWidth != 640 || config.StartHeight != 480 {
		t.Errorf("size = %dx%d, want 640x480", config.StartWidth, config.StartHeight)
	}
	if config.LogLevel != core.LogLevelDebug {
		t.Errorf("LogLevel = %q, want %q", config.LogLevel, core.LogLevelDebug)
	}
	if config.IterationStep != 25 {
		t.Errorf("IterationStep = %d, want 25", config.IterationStep)
	}
	// Omitted fields keep their defaults.
	if config.ShaderDir != DefaultApplicationConfig().ShaderDir {
		t.Errorf("ShaderDir = %q, want default %q", config.ShaderDir, DefaultApplicationConfig().ShaderDir)
	}
}

func TestLoadApplicationConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	if err := os.WriteFile(path, []byte("name = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadApplicationConfig(path); err == nil {
		t.Fatal("malformed TOML should error")
	}
}

func TestLoadApplicationConfigFixesNonPositiveIterationStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	if err := os.WriteFile(path, []byte("iteration_step = -5"), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadApplicationConfig(path)
	if err != nil {
		t.Fatalf("LoadApplicationConfig: %v", err)
	}
	if config.IterationStep != DefaultApplicationConfig().IterationStep {
		t.Errorf("IterationStep = %d, want default %d", config.IterationStep, DefaultApplicationConfig().IterationStep)
	}
}
