package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief VertexArray records the attribute layout and the index buffer used
 * by draws. ConfigureAttribute takes the vertex buffer the attribute reads
 * from, so the array and the buffer are always bound before the layout is
 * described.
 */
type VertexArray struct {
	ctx        *Context
	handle     Handle
	attributes []metadata.VertexAttribute
	index      *IndexBuffer
	destroyed  bool
}

func NewVertexArray(ctx *Context) (*VertexArray, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	return &VertexArray{ctx: ctx, handle: ctx.backend.CreateVertexArray()}, nil
}

func (va *VertexArray) usable() error {
	if va.destroyed {
		return ErrDestroyed
	}
	return va.ctx.check()
}

// Bind activates the array. Subsequent attribute and index buffer changes
// apply to it.
func (va *VertexArray) Bind() error {
	if err := va.usable(); err != nil {
		return err
	}
	va.ctx.bindVertexArray(va.handle)
	return nil
}

func validateAttribute(attr metadata.VertexAttribute) error {
	switch {
	case attr.Components < 1 || attr.Components > 4:
		return fmt.Errorf("%w: slot %d has %d components", ErrInvalidAttribute, attr.Slot, attr.Components)
	case attr.Stride < 0:
		return fmt.Errorf("%w: slot %d has negative stride", ErrInvalidAttribute, attr.Slot)
	case attr.Offset < 0:
		return fmt.Errorf("%w: slot %d has negative offset", ErrInvalidAttribute, attr.Slot)
	}
	return nil
}

// ConfigureAttribute binds the array, then vb, then describes and enables the
// attribute slot. Configuring a slot twice replaces the earlier layout.
func (va *VertexArray) ConfigureAttribute(vb *VertexBuffer, attr metadata.VertexAttribute) error {
	if err := validateAttribute(attr); err != nil {
		return err
	}
	if err := va.Bind(); err != nil {
		return err
	}
	if err := vb.Bind(); err != nil {
		return err
	}
	va.ctx.backend.VertexAttribPointer(attr)
	va.ctx.backend.EnableVertexAttribArray(attr.Slot)

	for i, a := range va.attributes {
		if a.Slot == attr.Slot {
			va.attributes[i] = attr
			return nil
		}
	}
	va.attributes = append(va.attributes, attr)
	return nil
}

// SetIndexBuffer binds ib to the array's element target.
func (va *VertexArray) SetIndexBuffer(ib *IndexBuffer) error {
	if err := va.Bind(); err != nil {
		return err
	}
	if err := ib.Bind(); err != nil {
		return err
	}
	va.index = ib
	return nil
}

func (va *VertexArray) IndexBuffer() *IndexBuffer {
	return va.index
}

func (va *VertexArray) Attributes() []metadata.VertexAttribute {
	return append([]metadata.VertexAttribute(nil), va.attributes...)
}

func (va *VertexArray) Handle() Handle {
	return va.handle
}

// Destroy releases the array. Buffers referenced by it are not destroyed.
func (va *VertexArray) Destroy() error {
	if va.destroyed {
		return nil
	}
	va.destroyed = true
	va.index = nil
	if !va.ctx.lost {
		va.ctx.forgetVertexArray(va.handle)
		va.ctx.backend.DeleteVertexArray(va.handle)
	}
	return nil
}
