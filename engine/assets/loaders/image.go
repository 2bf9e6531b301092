package loaders

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// ImageLoader decodes png, jpeg, gif, bmp, tiff and webp files into tightly
// packed 8-bit RGB rows. FlipY is the default used by Decode; Load takes it
// from *metadata.ImageResourceParams when given.
type ImageLoader struct {
	FlipY bool
}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flip := il.FlipY
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}
	data, err := decodeRGB(path, flip)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeImage,
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (il *ImageLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}

// Decode makes the loader usable as a texture decoder.
func (il *ImageLoader) Decode(path string) (*metadata.ImageResourceData, error) {
	return decodeRGB(path, il.FlipY)
}

func decodeRGB(path string, flipY bool) (*metadata.ImageResourceData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding image '%s': %w", path, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image '%s' (%s) is empty", path, format)
	}

	pixels := make([]uint8, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := y
		if flipY {
			row = height - 1 - y
		}
		line := rgba.Pix[row*rgba.Stride : row*rgba.Stride+width*4]
		for x := 0; x < width; x++ {
			pixels = append(pixels, line[x*4], line[x*4+1], line[x*4+2])
		}
	}

	return &metadata.ImageResourceData{
		ChannelCount: 3,
		Width:        uint32(width),
		Height:       uint32(height),
		Pixels:       pixels,
	}, nil
}
