package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want metadata.ResourceType
		ok   bool
	}{
		{"shaders/shape.vert", metadata.ResourceTypeShader, true},
		{"shaders/polygon.GEOM", metadata.ResourceTypeShader, true},
		{"textures/wall.jpeg", metadata.ResourceTypeImage, true},
		{"textures/wall.webp", metadata.ResourceTypeImage, true},
		{"prism.toml", metadata.ResourceTypeText, true},
		{"model.obj", metadata.ResourceTypeText, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := determineAssetType(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestInitializeIndexesTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shaders", "shape.vert"), "#version 410 core\nvoid main() {}\n")
	writeFile(t, filepath.Join(dir, "shaders", "shape.frag"), "#version 410 core\nvoid main() {}\n")
	writeFile(t, filepath.Join(dir, "notes.md"), "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "textures"), 0o755))
	writeImage(t, filepath.Join(dir, "textures", "pixel.png"))

	am := NewAssetManager()
	require.NoError(t, am.Initialize(dir, false))
	defer am.Close()

	assert.Equal(t, 3, am.Len())
	assert.Len(t, am.Assets(metadata.ResourceTypeShader), 2)

	_, ok := am.Lookup("shaders/shape.vert")
	assert.True(t, ok)
	_, ok = am.Lookup("notes.md")
	assert.False(t, ok)

	res, err := am.LoadAsset("shaders/shape.vert", nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeShader, res.Type)
	assert.Contains(t, res.Data, "#version 410")

	info, _ := am.Lookup("shaders/shape.vert")
	assert.False(t, info.LastLoaded.IsZero())

	res, err = am.LoadAsset("textures/pixel.png", nil)
	require.NoError(t, err)
	pixels := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, []uint8{10, 20, 30}, pixels.Pixels)
	require.NoError(t, am.UnloadAsset(res))

	_, err = am.LoadAsset("missing.vert", nil)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestInitializeErrors(t *testing.T) {
	am := NewAssetManager()
	_, err := am.LoadAsset("shape.vert", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.ErrorIs(t, am.Initialize(filepath.Join(t.TempDir(), "nope"), false), os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	assert.Error(t, am.Initialize(file, false))

	require.NoError(t, am.Close())
	require.NoError(t, am.Close())
	assert.ErrorIs(t, am.Initialize(t.TempDir(), false), ErrClosed)
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	am := NewAssetManager()
	require.NoError(t, am.Initialize(dir, true))

	writeFile(t, filepath.Join(dir, "shape.frag"), "#version 410 core\nvoid main() {}\n")

	select {
	case ev := <-am.Changes():
		assert.Equal(t, "shape.frag", ev.Path)
		assert.Equal(t, metadata.ResourceTypeShader, ev.Type)
		assert.False(t, ev.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event for a new shader file")
	}

	_, ok := am.Lookup("shape.frag")
	assert.True(t, ok)

	require.NoError(t, am.Close())
	// drain whatever the write produced, then observe the closed channel
	for range am.Changes() {
	}
}
