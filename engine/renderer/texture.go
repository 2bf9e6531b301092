package renderer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// ImageDecoder turns an image file into 8-bit pixel rows.
type ImageDecoder interface {
	Decode(path string) (*metadata.ImageResourceData, error)
}

/**
 * @brief Texture2D owns a decoded image uploaded to the driver. The slot it
 * was last bound to is remembered, so later mutations re-bind to it.
 */
type Texture2D struct {
	ctx       *Context
	handle    Handle
	name      string
	path      string
	slot      uint32
	width     uint32
	height    uint32
	format    metadata.PixelFormat
	destroyed bool
}

// NewTexture2DFromFile decodes path with decoder and uploads it. Decode
// failures are returned as *ResourceLoadError.
func NewTexture2DFromFile(ctx *Context, path string, decoder ImageDecoder) (*Texture2D, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	data, err := decoder.Decode(path)
	if err != nil {
		return nil, &ResourceLoadError{Path: path, Err: err}
	}
	t, err := NewTexture2DFromImage(ctx, path, data)
	if err != nil {
		return nil, &ResourceLoadError{Path: path, Err: err}
	}
	t.path = path
	return t, nil
}

// NewTexture2DFromImage uploads in-memory RGB or RGBA pixels. An empty name
// is replaced by a generated one.
func NewTexture2DFromImage(ctx *Context, name string, data *metadata.ImageResourceData) (*Texture2D, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	format, err := validateImage(data)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "texture-" + uuid.NewString()
	}

	t := &Texture2D{
		ctx:    ctx,
		handle: ctx.backend.CreateTexture(),
		name:   name,
		width:  data.Width,
		height: data.Height,
		format: format,
	}
	ctx.bindTexture(t.slot, t.handle)
	ctx.backend.TexImage2D(int32(data.Width), int32(data.Height), format, data.Pixels)
	return t, nil
}

func validateImage(data *metadata.ImageResourceData) (metadata.PixelFormat, error) {
	if data == nil || data.Width == 0 || data.Height == 0 {
		return 0, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	var format metadata.PixelFormat
	switch data.ChannelCount {
	case 3:
		format = metadata.PixelFormatRGB
	case 4:
		format = metadata.PixelFormatRGBA
	default:
		return 0, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidImage, data.ChannelCount)
	}
	want := int(data.Width) * int(data.Height) * format.Channels()
	if len(data.Pixels) != want {
		return 0, fmt.Errorf("%w: expected %d bytes of pixels, got %d", ErrInvalidImage, want, len(data.Pixels))
	}
	return format, nil
}

func (t *Texture2D) usable() error {
	if t.destroyed {
		return ErrDestroyed
	}
	return t.ctx.check()
}

// BindToSlot activates texture unit slot and binds the texture to it. The
// slot is remembered for later re-binds.
func (t *Texture2D) BindToSlot(slot uint32) error {
	if err := t.usable(); err != nil {
		return err
	}
	if slot >= metadata.MaxTextureSlots {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidSlot, slot, metadata.MaxTextureSlots-1)
	}
	t.ctx.bindTexture(slot, t.handle)
	t.slot = slot
	return nil
}

// Bind re-binds the texture to its remembered slot.
func (t *Texture2D) Bind() error {
	return t.BindToSlot(t.slot)
}

// GenerateMipMaps builds the mip chain of the texture.
func (t *Texture2D) GenerateMipMaps() error {
	if err := t.Bind(); err != nil {
		return err
	}
	t.ctx.backend.GenerateMipmap()
	return nil
}

// SetProperty sets a wrap or filter parameter.
func (t *Texture2D) SetProperty(key metadata.TextureProperty, value metadata.TextureValue) error {
	if err := validateProperty(key, value); err != nil {
		return err
	}
	if err := t.Bind(); err != nil {
		return err
	}
	t.ctx.backend.TexParameter(key, value)
	return nil
}

func validateProperty(key metadata.TextureProperty, value metadata.TextureValue) error {
	ok := false
	switch key {
	case metadata.TexturePropertyWrapS, metadata.TexturePropertyWrapT:
		ok = value.IsWrap()
	case metadata.TexturePropertyMinFilter:
		ok = !value.IsWrap()
	case metadata.TexturePropertyMagFilter:
		ok = value == metadata.TextureValueNearest || value == metadata.TextureValueLinear
	}
	if !ok {
		return fmt.Errorf("%w: %s = %s", ErrInvalidProperty, key, value)
	}
	return nil
}

func (t *Texture2D) Handle() Handle {
	return t.handle
}

func (t *Texture2D) Name() string {
	return t.name
}

// Path is the source file, empty for in-memory textures.
func (t *Texture2D) Path() string {
	return t.path
}

func (t *Texture2D) Slot() uint32 {
	return t.slot
}

func (t *Texture2D) Width() uint32 {
	return t.width
}

func (t *Texture2D) Height() uint32 {
	return t.height
}

func (t *Texture2D) Format() metadata.PixelFormat {
	return t.format
}

func (t *Texture2D) Destroy() error {
	if t.destroyed {
		return nil
	}
	t.destroyed = true
	if !t.ctx.lost {
		t.ctx.forgetTexture(t.handle)
		t.ctx.backend.DeleteTexture(t.handle)
	}
	return nil
}
