package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a 2x2 image: red, green on top and blue, white below.
func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	path := filepath.Join(t.TempDir(), "quad.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestDecodeToRGB(t *testing.T) {
	path := writePNG(t)

	data, err := (&ImageLoader{}).Decode(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), data.ChannelCount)
	assert.Equal(t, uint32(2), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, []uint8{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	}, data.Pixels)
}

func TestLoadFlipsRows(t *testing.T) {
	path := writePNG(t)

	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	require.NoError(t, err)
	assert.Equal(t, "quad.png", res.Name)
	data := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, []uint8{
		0, 0, 255, 255, 255, 255,
		255, 0, 0, 0, 255, 0,
	}, data.Pixels)
}

func TestDecodeErrors(t *testing.T) {
	_, err := (&ImageLoader{}).Decode(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = (&ImageLoader{}).Decode(garbage)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestShaderLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shape.vert")
	require.NoError(t, os.WriteFile(path, []byte("#version 410 core\n"), 0o644))

	res, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, "#version 410 core\n", res.Data)
	assert.Equal(t, uint64(18), res.DataSize)

	require.NoError(t, (&ShaderLoader{}).Unload(res))
	assert.Nil(t, res.Data)
}
