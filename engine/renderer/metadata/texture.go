package metadata

import "fmt"

/** @brief Number of texture units a context exposes. */
const MaxTextureSlots uint32 = 16

/** @brief A texture parameter key. */
type TextureProperty int

const (
	TexturePropertyWrapS TextureProperty = iota
	TexturePropertyWrapT
	TexturePropertyMinFilter
	TexturePropertyMagFilter
)

func (p TextureProperty) String() string {
	switch p {
	case TexturePropertyWrapS:
		return "wrap_s"
	case TexturePropertyWrapT:
		return "wrap_t"
	case TexturePropertyMinFilter:
		return "min_filter"
	case TexturePropertyMagFilter:
		return "mag_filter"
	}
	return fmt.Sprintf("property(%d)", int(p))
}

/** @brief A value for a TextureProperty. */
type TextureValue int

const (
	TextureValueRepeat TextureValue = iota
	TextureValueMirroredRepeat
	TextureValueClampToEdge
	TextureValueNearest
	TextureValueLinear
	TextureValueLinearMipmapLinear
)

// IsWrap reports whether v is a wrap mode (as opposed to a filter).
func (v TextureValue) IsWrap() bool {
	return v <= TextureValueClampToEdge
}

func (v TextureValue) String() string {
	switch v {
	case TextureValueRepeat:
		return "repeat"
	case TextureValueMirroredRepeat:
		return "mirrored_repeat"
	case TextureValueClampToEdge:
		return "clamp_to_edge"
	case TextureValueNearest:
		return "nearest"
	case TextureValueLinear:
		return "linear"
	case TextureValueLinearMipmapLinear:
		return "linear_mipmap_linear"
	}
	return fmt.Sprintf("value(%d)", int(v))
}

/** @brief Pixel layout of uploaded image data. */
type PixelFormat int

const (
	PixelFormatRGB PixelFormat = iota
	PixelFormatRGBA
)

// Channels returns the number of 8-bit channels per pixel.
func (f PixelFormat) Channels() int {
	if f == PixelFormatRGBA {
		return 4
	}
	return 3
}
