package renderer

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// unknown marks a cached binding that must be re-issued on next use.
const unknown = ^Handle(0)

// drainLimit bounds how many stale error flags are discarded after a status
// query. Drivers keep at most one flag per category.
const drainLimit = 8

/**
 * @brief Context owns the driver's "currently bound" state. Every resource
 * binds itself through the context right before it is used or mutated, and
 * the context skips binds that are already in effect.
 *
 * A Context is not safe for concurrent use. It must only be used from the
 * goroutine that owns the native rendering context.
 */
type Context struct {
	backend RendererBackend
	lost    bool

	program     Handle
	vertexArray Handle
	buffers     [2]Handle
	activeSlot  uint32
	textures    [metadata.MaxTextureSlots]Handle
}

func NewContext(backend RendererBackend) *Context {
	c := &Context{backend: backend}
	c.invalidate()
	return c
}

func (c *Context) Backend() RendererBackend {
	return c.backend
}

// Lost reports whether the driver signalled context loss.
func (c *Context) Lost() bool {
	return c.lost
}

// MarkLost puts the context in the lost state. Platforms call this when the
// window system tears the context down behind the driver's back.
func (c *Context) MarkLost() {
	if !c.lost {
		core.LogError("rendering context lost on backend '%s'", c.backend.Name())
	}
	c.lost = true
}

func (c *Context) check() error {
	if c.lost {
		return ErrContextLost
	}
	return nil
}

// invalidate forgets every cached binding.
func (c *Context) invalidate() {
	c.program = unknown
	c.vertexArray = unknown
	c.buffers[metadata.BufferTargetArray] = unknown
	c.buffers[metadata.BufferTargetElementArray] = unknown
	c.activeSlot = uint32(unknown)
	for i := range c.textures {
		c.textures[i] = unknown
	}
}

func (c *Context) useProgram(h Handle) {
	if c.program != h {
		c.backend.UseProgram(h)
		c.program = h
	}
}

func (c *Context) bindVertexArray(h Handle) {
	if c.vertexArray != h {
		c.backend.BindVertexArray(h)
		c.vertexArray = h
		// the element array binding is vertex array state
		c.buffers[metadata.BufferTargetElementArray] = unknown
	}
}

func (c *Context) bindBuffer(target metadata.BufferTarget, h Handle) {
	if c.buffers[target] != h {
		c.backend.BindBuffer(target, h)
		c.buffers[target] = h
	}
}

func (c *Context) activeTexture(slot uint32) {
	if c.activeSlot != slot {
		c.backend.ActiveTexture(slot)
		c.activeSlot = slot
	}
}

func (c *Context) bindTexture(slot uint32, h Handle) {
	c.activeTexture(slot)
	if c.textures[slot] != h {
		c.backend.BindTexture(h)
		c.textures[slot] = h
	}
}

// The forget helpers drop cached bindings of deleted objects so a recycled
// handle is always bound again.

func (c *Context) forgetProgram(h Handle) {
	if c.program == h {
		c.program = unknown
	}
}

func (c *Context) forgetVertexArray(h Handle) {
	if c.vertexArray == h {
		c.vertexArray = unknown
		c.buffers[metadata.BufferTargetElementArray] = unknown
	}
}

func (c *Context) forgetBuffer(h Handle) {
	for i, b := range c.buffers {
		if b == h {
			c.buffers[i] = unknown
		}
	}
}

func (c *Context) forgetTexture(h Handle) {
	for i, t := range c.textures {
		if t == h {
			c.textures[i] = unknown
		}
	}
}

// Viewport sets the drawable region.
func (c *Context) Viewport(x, y, width, height int32) error {
	if err := c.check(); err != nil {
		return err
	}
	c.backend.Viewport(x, y, width, height)
	return nil
}

// Clear clears the color buffer of the current frame.
func (c *Context) Clear(r, g, b, a float32) error {
	if err := c.check(); err != nil {
		return err
	}
	c.backend.Clear(r, g, b, a)
	return nil
}

// DrawIndexed issues an indexed draw with the bound vertex array.
func (c *Context) DrawIndexed(mode metadata.PrimitiveMode, count int32, indexType metadata.ElementType, offset int) error {
	if err := c.check(); err != nil {
		return err
	}
	c.backend.DrawElements(mode, count, indexType, offset)
	return nil
}

// DrawArrays issues a non-indexed draw with the bound vertex array.
func (c *Context) DrawArrays(mode metadata.PrimitiveMode, first, count int32) error {
	if err := c.check(); err != nil {
		return err
	}
	c.backend.DrawArrays(mode, first, count)
	return nil
}

// Error queries the oldest raised driver error flag and discards the rest,
// so the next query only sees errors raised after this one. A context lost
// flag moves the context into the lost state.
func (c *Context) Error() metadata.ErrorCode {
	if c.lost {
		return metadata.ErrorContextLost
	}
	code := c.backend.GetError()
	if code == metadata.ErrorContextLost {
		c.MarkLost()
		return code
	}
	for i := 0; i < drainLimit; i++ {
		next := c.backend.GetError()
		if next == metadata.ErrorNone {
			break
		}
		if next == metadata.ErrorContextLost {
			c.MarkLost()
			return next
		}
		core.LogDebug("discarding driver error flag '%s'", next)
	}
	return code
}

// Status maps the current driver error state to a DrawStatus.
func (c *Context) Status() DrawStatus {
	return StatusFromCode(c.Error())
}
