package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendOpenGL, cfg.Renderer.Backend)
	assert.Len(t, cfg.Scene.Shapes, 3)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
title = "Shapes"
width = 800

[renderer]
backend = "software"
max_frames = 10

[[scene.shapes]]
tag = "group"
kind = "group"

[[scene.shapes]]
tag = "octagon"
parent = "group"
kind = "polygon"
sides = 8
x = 0.5
size = 0.2
texture = "textures/wall.png"
`))
	require.NoError(t, err)

	assert.Equal(t, "Shapes", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(720), cfg.Window.Height, "unset keys keep their default")
	assert.Equal(t, BackendSoftware, cfg.Renderer.Backend)
	assert.Equal(t, uint64(10), cfg.Renderer.MaxFrames)

	require.Len(t, cfg.Scene.Shapes, 2)
	oct := cfg.Scene.Shapes[1]
	assert.Equal(t, "group", oct.Parent)
	assert.Equal(t, 8, oct.Sides)
	assert.InDelta(t, 0.5, oct.X, 1e-6)
	assert.Equal(t, "textures/wall.png", oct.Texture)
}

func TestParseKeepsDefaultScene(t *testing.T) {
	cfg, err := Parse([]byte("[log]\nlevel = \"debug\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, Default().Scene.Shapes, cfg.Scene.Shapes)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown key", "[window]\ncolour = \"red\"\n"},
		{"syntax", "[window\n"},
		{"backend", "[renderer]\nbackend = \"vulkan\"\n"},
		{"log level", "[log]\nlevel = \"loud\"\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"kind", "[[scene.shapes]]\nkind = \"circle\"\n"},
		{"too few sides", "[[scene.shapes]]\nkind = \"polygon\"\nsides = 2\n"},
		{"too many sides", "[[scene.shapes]]\nkind = \"polygon\"\nsides = 15\n"},
		{"unknown parent", "[[scene.shapes]]\nkind = \"square\"\nparent = \"nobody\"\n"},
		{"shape parent", "[[scene.shapes]]\ntag = \"a\"\nkind = \"square\"\n[[scene.shapes]]\nkind = \"square\"\nparent = \"a\"\n"},
		{"duplicate tag", "[[scene.shapes]]\ntag = \"a\"\nkind = \"square\"\n[[scene.shapes]]\ntag = \"a\"\nkind = \"triangle\"\n"},
		{"untagged group", "[[scene.shapes]]\nkind = \"group\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[assets]\ndir = \"data\"\nwatch = false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.Assets.Dir)
	assert.False(t, cfg.Assets.Watch)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Setenv(EnvConfigPath, path)
	cfg, err = Resolve()
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.Assets.Dir)
}
