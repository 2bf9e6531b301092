// Package software implements a headless renderer backend. It keeps every
// driver object in memory, validates calls the way an OpenGL 4.1 core driver
// does, raises the same error flags and records draw calls instead of
// rasterizing them.
package software

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	maxVertexAttribs = 16
	// one flag per error category at most
	errorQueueSize = 8
	initialObjects = 64
)

type shaderObject struct {
	stage    metadata.ShaderStage
	source   string
	compiled bool
	log      string
	unit     *glslUnit
}

type programObject struct {
	shaders  []renderer.Handle
	linked   bool
	log      string
	geometry *glslUnit
	uniforms map[string]int32
	values   map[string]interface{}
}

type bufferObject struct {
	data  []byte
	usage metadata.BufferUsage
}

type vertexArrayObject struct {
	attributes map[uint32]metadata.VertexAttribute
	buffers    map[uint32]renderer.Handle
	enabled    map[uint32]bool
	element    renderer.Handle
}

type textureObject struct {
	width, height int32
	format        metadata.PixelFormat
	pixels        []byte
	mipmapped     bool
	params        map[metadata.TextureProperty]metadata.TextureValue
}

// DrawCall is one recorded draw.
type DrawCall struct {
	Mode        metadata.PrimitiveMode
	Indexed     bool
	First       int32
	Count       int32
	Offset      int
	Program     renderer.Handle
	VertexArray renderer.Handle
	// Texture bound to slot 0 at draw time.
	Texture    renderer.Handle
	Primitives int
	Attributes []metadata.VertexAttribute
	Uniforms   map[string]interface{}
}

/**
 * @brief Backend is the software RendererBackend. Object names come from an
 * identifier pool shared by every object kind, so a name is never valid for
 * two objects at once.
 */
type Backend struct {
	objects *core.IdentifierPool
	errors  *containers.RingQueue[metadata.ErrorCode]

	lost         bool
	lostReported bool
	drawFault    metadata.ErrorCode

	program      renderer.Handle
	vertexArray  renderer.Handle
	arrayBuffer  renderer.Handle
	looseElement renderer.Handle
	activeSlot   uint32
	textures     [metadata.MaxTextureSlots]renderer.Handle
	viewport     [4]int32
	clears       int

	calls []string
	draws []DrawCall
}

func New() *Backend {
	return &Backend{
		objects: core.NewIdentifierPool(initialObjects),
		errors:  containers.NewRingQueue[metadata.ErrorCode](errorQueueSize),
	}
}

func (b *Backend) Name() string {
	return "software"
}

func (b *Backend) record(name string, args ...interface{}) {
	b.calls = append(b.calls, fmt.Sprintf("%s%v", name, args))
}

// raise sets an error flag. Like the driver, a flag that is already set is
// not raised twice.
func (b *Backend) raise(code metadata.ErrorCode) {
	if b.errors.Contains(func(c metadata.ErrorCode) bool { return c == code }) {
		return
	}
	if err := b.errors.Enqueue(code); err != nil {
		core.LogDebug("software backend dropped error flag '%s': %s", code, err)
	}
}

// active reports whether calls still reach the device. After context loss
// every call is a no-op.
func (b *Backend) active() bool {
	return !b.lost
}

func (b *Backend) newObject(o interface{}) renderer.Handle {
	return renderer.Handle(b.objects.AquireNewID(o))
}

func (b *Backend) deleteObject(h renderer.Handle) {
	if err := b.objects.ReleaseID(uint32(h)); err != nil {
		core.LogDebug("software backend: %s", err)
	}
}

func lookup[T any](b *Backend, h renderer.Handle) (*T, bool) {
	o, ok := b.objects.Owner(uint32(h)).(*T)
	return o, ok
}

// Shaders

func (b *Backend) CreateShader(stage metadata.ShaderStage) renderer.Handle {
	b.record("CreateShader", stage)
	if !b.active() {
		return 0
	}
	return b.newObject(&shaderObject{stage: stage})
}

func (b *Backend) ShaderSource(shader renderer.Handle, source string) {
	b.record("ShaderSource", shader)
	if !b.active() {
		return
	}
	s, ok := lookup[shaderObject](b, shader)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	s.source = source
}

func (b *Backend) CompileShader(shader renderer.Handle) {
	b.record("CompileShader", shader)
	if !b.active() {
		return
	}
	s, ok := lookup[shaderObject](b, shader)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	unit, err := parseGLSL(s.stage, s.source)
	if err != nil {
		s.compiled, s.log, s.unit = false, err.Error(), nil
		return
	}
	s.compiled, s.log, s.unit = true, "", unit
}

func (b *Backend) ShaderStatus(shader renderer.Handle) (bool, string) {
	if !b.active() {
		return false, ""
	}
	s, ok := lookup[shaderObject](b, shader)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return false, ""
	}
	return s.compiled, s.log
}

func (b *Backend) DeleteShader(shader renderer.Handle) {
	b.record("DeleteShader", shader)
	if !b.active() || shader == 0 {
		return
	}
	if _, ok := lookup[shaderObject](b, shader); ok {
		b.deleteObject(shader)
	}
}

// Programs

func (b *Backend) CreateProgram() renderer.Handle {
	b.record("CreateProgram")
	if !b.active() {
		return 0
	}
	return b.newObject(&programObject{})
}

func (b *Backend) AttachShader(program, shader renderer.Handle) {
	b.record("AttachShader", program, shader)
	if !b.active() {
		return
	}
	p, ok := lookup[programObject](b, program)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	if _, ok := lookup[shaderObject](b, shader); !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	for _, s := range p.shaders {
		if s == shader {
			b.raise(metadata.ErrorInvalidOperation)
			return
		}
	}
	p.shaders = append(p.shaders, shader)
}

func (b *Backend) LinkProgram(program renderer.Handle) {
	b.record("LinkProgram", program)
	if !b.active() {
		return
	}
	p, ok := lookup[programObject](b, program)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}

	p.linked, p.geometry, p.uniforms = false, nil, nil
	var units []*glslUnit
	for _, order := range []metadata.ShaderStage{metadata.ShaderStageVertex, metadata.ShaderStageGeometry, metadata.ShaderStageFragment} {
		for _, h := range p.shaders {
			s, ok := lookup[shaderObject](b, h)
			if !ok || s.stage != order {
				continue
			}
			if !s.compiled {
				p.log = fmt.Sprintf("ERROR: attached %s shader is not compiled", s.stage)
				return
			}
			units = append(units, s.unit)
		}
	}
	active, err := linkUnits(units)
	if err != nil {
		p.log = err.Error()
		return
	}
	p.linked, p.log = true, ""
	p.uniforms = make(map[string]int32, len(active))
	for i, name := range active {
		p.uniforms[name] = int32(i)
	}
	p.values = make(map[string]interface{})
	for _, u := range units {
		if u.stage == metadata.ShaderStageGeometry {
			p.geometry = u
		}
	}
}

func (b *Backend) ProgramStatus(program renderer.Handle) (bool, string) {
	if !b.active() {
		return false, ""
	}
	p, ok := lookup[programObject](b, program)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return false, ""
	}
	return p.linked, p.log
}

func (b *Backend) UseProgram(program renderer.Handle) {
	b.record("UseProgram", program)
	if !b.active() {
		return
	}
	if program == 0 {
		b.program = 0
		return
	}
	p, ok := lookup[programObject](b, program)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	if !p.linked {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	b.program = program
}

func (b *Backend) UniformLocation(program renderer.Handle, name string) int32 {
	if !b.active() {
		return -1
	}
	p, ok := lookup[programObject](b, program)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return -1
	}
	if !p.linked {
		b.raise(metadata.ErrorInvalidOperation)
		return -1
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (b *Backend) setUniform(program renderer.Handle, location int32, value interface{}) {
	if !b.active() || location == -1 {
		return
	}
	p, ok := lookup[programObject](b, program)
	if !ok {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	if !p.linked {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	for name, loc := range p.uniforms {
		if loc == location {
			p.values[name] = value
			return
		}
	}
	b.raise(metadata.ErrorInvalidOperation)
}

func (b *Backend) ProgramUniformInt(program renderer.Handle, location int32, value int32) {
	b.record("ProgramUniformInt", program, location, value)
	b.setUniform(program, location, value)
}

func (b *Backend) ProgramUniformFloat(program renderer.Handle, location int32, value float32) {
	b.record("ProgramUniformFloat", program, location, value)
	b.setUniform(program, location, value)
}

func (b *Backend) ProgramUniformMat4(program renderer.Handle, location int32, value mgl32.Mat4) {
	b.record("ProgramUniformMat4", program, location)
	b.setUniform(program, location, value)
}

func (b *Backend) DeleteProgram(program renderer.Handle) {
	b.record("DeleteProgram", program)
	if !b.active() || program == 0 {
		return
	}
	if _, ok := lookup[programObject](b, program); ok {
		if b.program == program {
			b.program = 0
		}
		b.deleteObject(program)
	}
}

// Buffers

func (b *Backend) CreateBuffer() renderer.Handle {
	b.record("CreateBuffer")
	if !b.active() {
		return 0
	}
	return b.newObject(&bufferObject{})
}

func (b *Backend) elementBinding() *renderer.Handle {
	if va, ok := lookup[vertexArrayObject](b, b.vertexArray); ok {
		return &va.element
	}
	return &b.looseElement
}

func (b *Backend) BindBuffer(target metadata.BufferTarget, buffer renderer.Handle) {
	b.record("BindBuffer", target, buffer)
	if !b.active() {
		return
	}
	if buffer != 0 {
		if _, ok := lookup[bufferObject](b, buffer); !ok {
			b.raise(metadata.ErrorInvalidValue)
			return
		}
	}
	switch target {
	case metadata.BufferTargetArray:
		b.arrayBuffer = buffer
	case metadata.BufferTargetElementArray:
		*b.elementBinding() = buffer
	default:
		b.raise(metadata.ErrorInvalidEnum)
	}
}

func (b *Backend) bound(target metadata.BufferTarget) renderer.Handle {
	if target == metadata.BufferTargetArray {
		return b.arrayBuffer
	}
	return *b.elementBinding()
}

func (b *Backend) BufferData(target metadata.BufferTarget, data []byte, usage metadata.BufferUsage) {
	b.record("BufferData", target, len(data), usage)
	if !b.active() {
		return
	}
	if target != metadata.BufferTargetArray && target != metadata.BufferTargetElementArray {
		b.raise(metadata.ErrorInvalidEnum)
		return
	}
	buf, ok := lookup[bufferObject](b, b.bound(target))
	if !ok {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	buf.data = append(buf.data[:0], data...)
	buf.usage = usage
}

func (b *Backend) DeleteBuffer(buffer renderer.Handle) {
	b.record("DeleteBuffer", buffer)
	if !b.active() || buffer == 0 {
		return
	}
	if _, ok := lookup[bufferObject](b, buffer); !ok {
		return
	}
	if b.arrayBuffer == buffer {
		b.arrayBuffer = 0
	}
	if e := b.elementBinding(); *e == buffer {
		*e = 0
	}
	b.deleteObject(buffer)
}

// Vertex arrays

func (b *Backend) CreateVertexArray() renderer.Handle {
	b.record("CreateVertexArray")
	if !b.active() {
		return 0
	}
	return b.newObject(&vertexArrayObject{
		attributes: make(map[uint32]metadata.VertexAttribute),
		buffers:    make(map[uint32]renderer.Handle),
		enabled:    make(map[uint32]bool),
	})
}

func (b *Backend) BindVertexArray(array renderer.Handle) {
	b.record("BindVertexArray", array)
	if !b.active() {
		return
	}
	if array != 0 {
		if _, ok := lookup[vertexArrayObject](b, array); !ok {
			b.raise(metadata.ErrorInvalidOperation)
			return
		}
	}
	b.vertexArray = array
}

func (b *Backend) VertexAttribPointer(attr metadata.VertexAttribute) {
	b.record("VertexAttribPointer", attr.Slot, attr.Components, attr.Stride, attr.Offset)
	if !b.active() {
		return
	}
	if attr.Slot >= maxVertexAttribs || attr.Components < 1 || attr.Components > 4 || attr.Stride < 0 {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	va, ok := lookup[vertexArrayObject](b, b.vertexArray)
	if !ok || b.arrayBuffer == 0 {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	va.attributes[attr.Slot] = attr
	va.buffers[attr.Slot] = b.arrayBuffer
}

func (b *Backend) EnableVertexAttribArray(slot uint32) {
	b.record("EnableVertexAttribArray", slot)
	if !b.active() {
		return
	}
	if slot >= maxVertexAttribs {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	va, ok := lookup[vertexArrayObject](b, b.vertexArray)
	if !ok {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	va.enabled[slot] = true
}

func (b *Backend) DeleteVertexArray(array renderer.Handle) {
	b.record("DeleteVertexArray", array)
	if !b.active() || array == 0 {
		return
	}
	if _, ok := lookup[vertexArrayObject](b, array); !ok {
		return
	}
	if b.vertexArray == array {
		b.vertexArray = 0
	}
	b.deleteObject(array)
}

// Textures

func (b *Backend) CreateTexture() renderer.Handle {
	b.record("CreateTexture")
	if !b.active() {
		return 0
	}
	return b.newObject(&textureObject{params: make(map[metadata.TextureProperty]metadata.TextureValue)})
}

func (b *Backend) ActiveTexture(slot uint32) {
	b.record("ActiveTexture", slot)
	if !b.active() {
		return
	}
	if slot >= metadata.MaxTextureSlots {
		b.raise(metadata.ErrorInvalidEnum)
		return
	}
	b.activeSlot = slot
}

func (b *Backend) BindTexture(texture renderer.Handle) {
	b.record("BindTexture", texture)
	if !b.active() {
		return
	}
	if texture != 0 {
		if _, ok := lookup[textureObject](b, texture); !ok {
			b.raise(metadata.ErrorInvalidValue)
			return
		}
	}
	b.textures[b.activeSlot] = texture
}

func (b *Backend) boundTexture() (*textureObject, bool) {
	return lookup[textureObject](b, b.textures[b.activeSlot])
}

func (b *Backend) TexImage2D(width, height int32, format metadata.PixelFormat, pixels []byte) {
	b.record("TexImage2D", width, height, format)
	if !b.active() {
		return
	}
	t, ok := b.boundTexture()
	if !ok {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	if width <= 0 || height <= 0 || len(pixels) != int(width)*int(height)*format.Channels() {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	t.width, t.height, t.format = width, height, format
	t.pixels = append(t.pixels[:0], pixels...)
	t.mipmapped = false
}

func (b *Backend) GenerateMipmap() {
	b.record("GenerateMipmap")
	if !b.active() {
		return
	}
	t, ok := b.boundTexture()
	if !ok || t.width == 0 {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	t.mipmapped = true
}

func (b *Backend) TexParameter(property metadata.TextureProperty, value metadata.TextureValue) {
	b.record("TexParameter", property, value)
	if !b.active() {
		return
	}
	t, ok := b.boundTexture()
	if !ok {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	t.params[property] = value
}

func (b *Backend) DeleteTexture(texture renderer.Handle) {
	b.record("DeleteTexture", texture)
	if !b.active() || texture == 0 {
		return
	}
	if _, ok := lookup[textureObject](b, texture); !ok {
		return
	}
	for i, t := range b.textures {
		if t == texture {
			b.textures[i] = 0
		}
	}
	b.deleteObject(texture)
}

// Frame and draws

func (b *Backend) Viewport(x, y, width, height int32) {
	b.record("Viewport", x, y, width, height)
	if !b.active() {
		return
	}
	if width < 0 || height < 0 {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	b.viewport = [4]int32{x, y, width, height}
}

func (b *Backend) Clear(r, g, bl, a float32) {
	b.record("Clear", r, g, bl, a)
	if !b.active() {
		return
	}
	b.clears++
}

// drawState validates the bound pipeline for a draw of the given mode.
func (b *Backend) drawState(mode metadata.PrimitiveMode) (*programObject, *vertexArrayObject, bool) {
	p, ok := lookup[programObject](b, b.program)
	if !ok || !p.linked {
		b.raise(metadata.ErrorInvalidOperation)
		return nil, nil, false
	}
	va, ok := lookup[vertexArrayObject](b, b.vertexArray)
	if !ok {
		b.raise(metadata.ErrorInvalidOperation)
		return nil, nil, false
	}
	for slot, on := range va.enabled {
		if !on {
			continue
		}
		if _, ok := lookup[bufferObject](b, va.buffers[slot]); !ok {
			b.raise(metadata.ErrorInvalidOperation)
			return nil, nil, false
		}
	}
	if p.geometry != nil && !primitiveMatches(p.geometry.primitiveIn, mode) {
		b.raise(metadata.ErrorInvalidOperation)
		return nil, nil, false
	}
	return p, va, true
}

func primitiveMatches(layout string, mode metadata.PrimitiveMode) bool {
	switch layout {
	case "points":
		return mode == metadata.PrimitivePoints
	case "lines":
		return mode == metadata.PrimitiveLines
	case "triangles":
		return mode == metadata.PrimitiveTriangles || mode == metadata.PrimitiveTriangleStrip
	}
	return false
}

func primitiveCount(mode metadata.PrimitiveMode, count int32) int {
	n := int(count)
	switch mode {
	case metadata.PrimitiveTriangles:
		return n / 3
	case metadata.PrimitiveLines:
		return n / 2
	case metadata.PrimitiveTriangleStrip:
		return max(n-2, 0)
	}
	return n
}

func (b *Backend) recordDraw(call DrawCall, p *programObject, va *vertexArrayObject) {
	call.Program = b.program
	call.VertexArray = b.vertexArray
	call.Texture = b.textures[0]
	call.Primitives = primitiveCount(call.Mode, call.Count)
	call.Uniforms = maps.Clone(p.values)
	for slot, on := range va.enabled {
		if on {
			call.Attributes = append(call.Attributes, va.attributes[slot])
		}
	}
	slices.SortFunc(call.Attributes, func(x, y metadata.VertexAttribute) int {
		return int(x.Slot) - int(y.Slot)
	})
	b.draws = append(b.draws, call)
}

func (b *Backend) DrawElements(mode metadata.PrimitiveMode, count int32, indexType metadata.ElementType, offset int) {
	b.record("DrawElements", mode, count, indexType, offset)
	if !b.active() || b.faulted() {
		return
	}
	if count < 0 || offset < 0 {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	if indexType == metadata.ElementTypeFloat || indexType == metadata.ElementTypeInt {
		b.raise(metadata.ErrorInvalidEnum)
		return
	}
	p, va, ok := b.drawState(mode)
	if !ok {
		return
	}
	ib, ok := lookup[bufferObject](b, va.element)
	if !ok || offset+int(count)*indexType.Size() > len(ib.data) {
		b.raise(metadata.ErrorInvalidOperation)
		return
	}
	b.recordDraw(DrawCall{Mode: mode, Indexed: true, Count: count, Offset: offset}, p, va)
}

func (b *Backend) DrawArrays(mode metadata.PrimitiveMode, first, count int32) {
	b.record("DrawArrays", mode, first, count)
	if !b.active() || b.faulted() {
		return
	}
	if first < 0 || count < 0 {
		b.raise(metadata.ErrorInvalidValue)
		return
	}
	p, va, ok := b.drawState(mode)
	if !ok {
		return
	}
	b.recordDraw(DrawCall{Mode: mode, First: first, Count: count}, p, va)
}

// GetError returns the oldest error flag. After context loss it reports the
// loss exactly once.
func (b *Backend) GetError() metadata.ErrorCode {
	if b.lost {
		if !b.lostReported {
			b.lostReported = true
			return metadata.ErrorContextLost
		}
		return metadata.ErrorNone
	}
	code, err := b.errors.Dequeue()
	if err != nil {
		return metadata.ErrorNone
	}
	return code
}

// Fault injection and inspection.

// InjectError raises code as if the last call had failed.
func (b *Backend) InjectError(code metadata.ErrorCode) {
	b.raise(code)
}

// FailNextDraw makes the next draw call raise code instead of drawing.
func (b *Backend) FailNextDraw(code metadata.ErrorCode) {
	b.drawFault = code
}

func (b *Backend) faulted() bool {
	if b.drawFault == metadata.ErrorNone {
		return false
	}
	b.raise(b.drawFault)
	b.drawFault = metadata.ErrorNone
	return true
}

// LoseContext simulates a device reset. Every later call is ignored.
func (b *Backend) LoseContext() {
	b.lost = true
	b.errors.Clear()
}

// Draws returns the recorded draw calls.
func (b *Backend) Draws() []DrawCall {
	return append([]DrawCall(nil), b.draws...)
}

// Calls returns the call log, one entry per backend call.
func (b *Backend) Calls() []string {
	return append([]string(nil), b.calls...)
}

// Reset forgets recorded calls and draws. Objects stay alive.
func (b *Backend) Reset() {
	b.calls = nil
	b.draws = nil
}

// LiveObjects counts the driver objects not yet deleted.
func (b *Backend) LiveObjects() int {
	return b.objects.InUse()
}

// BufferContents returns a copy of a buffer's content.
func (b *Backend) BufferContents(buffer renderer.Handle) ([]byte, bool) {
	buf, ok := lookup[bufferObject](b, buffer)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), buf.data...), true
}

// TextureState reports the size, parameters and mip state of a texture.
func (b *Backend) TextureState(texture renderer.Handle) (width, height int32, params map[metadata.TextureProperty]metadata.TextureValue, mipmapped bool, ok bool) {
	t, ok := lookup[textureObject](b, texture)
	if !ok {
		return 0, 0, nil, false, false
	}
	return t.width, t.height, maps.Clone(t.params), t.mipmapped, true
}

// Uniform returns the last value uploaded to name in program.
func (b *Backend) Uniform(program renderer.Handle, name string) (interface{}, bool) {
	p, ok := lookup[programObject](b, program)
	if !ok {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Clears counts the frames cleared so far.
func (b *Backend) Clears() int {
	return b.clears
}

// ViewportRect returns the last viewport set.
func (b *Backend) ViewportRect() [4]int32 {
	return b.viewport
}
