package renderer

import (
	"unsafe"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// buffer is the storage shared by vertex and index buffers. It owns a driver
// handle only; content is copied in on Upload.
type buffer struct {
	ctx       *Context
	handle    Handle
	target    metadata.BufferTarget
	usage     metadata.BufferUsage
	size      int
	destroyed bool
}

func newBuffer(ctx *Context, target metadata.BufferTarget) (buffer, error) {
	if err := ctx.check(); err != nil {
		return buffer{}, err
	}
	return buffer{ctx: ctx, handle: ctx.backend.CreateBuffer(), target: target}, nil
}

func (b *buffer) usable() error {
	if b.destroyed {
		return ErrDestroyed
	}
	return b.ctx.check()
}

// Bind makes the buffer current in its target.
func (b *buffer) Bind() error {
	if err := b.usable(); err != nil {
		return err
	}
	b.ctx.bindBuffer(b.target, b.handle)
	return nil
}

// Upload binds the buffer and replaces its content with data.
func (b *buffer) Upload(data []byte, usage metadata.BufferUsage) error {
	if len(data) == 0 {
		return ErrEmptyUpload
	}
	if err := b.Bind(); err != nil {
		return err
	}
	b.ctx.backend.BufferData(b.target, data, usage)
	b.size = len(data)
	b.usage = usage
	return nil
}

func (b *buffer) Handle() Handle {
	return b.handle
}

// Size is the byte length of the last upload.
func (b *buffer) Size() int {
	return b.size
}

func (b *buffer) Usage() metadata.BufferUsage {
	return b.usage
}

func (b *buffer) Destroy() error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	if !b.ctx.lost {
		b.ctx.forgetBuffer(b.handle)
		b.ctx.backend.DeleteBuffer(b.handle)
	}
	return nil
}

// VertexBuffer holds vertex attribute data.
type VertexBuffer struct {
	buffer
}

func NewVertexBuffer(ctx *Context) (*VertexBuffer, error) {
	b, err := newBuffer(ctx, metadata.BufferTargetArray)
	if err != nil {
		return nil, err
	}
	return &VertexBuffer{buffer: b}, nil
}

// UploadFloat32 uploads interleaved float vertex data.
func (vb *VertexBuffer) UploadFloat32(data []float32, usage metadata.BufferUsage) error {
	return vb.Upload(float32Bytes(data), usage)
}

// IndexBuffer holds element indices.
type IndexBuffer struct {
	buffer
	count     int32
	indexType metadata.ElementType
}

func NewIndexBuffer(ctx *Context) (*IndexBuffer, error) {
	b, err := newBuffer(ctx, metadata.BufferTargetElementArray)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{buffer: b, indexType: metadata.ElementTypeUnsignedInt}, nil
}

// UploadUint32 uploads 32-bit indices and remembers their count for drawing.
func (ib *IndexBuffer) UploadUint32(indices []uint32, usage metadata.BufferUsage) error {
	if err := ib.Upload(uint32Bytes(indices), usage); err != nil {
		return err
	}
	ib.count = int32(len(indices))
	ib.indexType = metadata.ElementTypeUnsignedInt
	return nil
}

// Count is the number of indices of the last UploadUint32.
func (ib *IndexBuffer) Count() int32 {
	return ib.count
}

func (ib *IndexBuffer) IndexType() metadata.ElementType {
	return ib.indexType
}

func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

func uint32Bytes(data []uint32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}
