package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Backend forwards every call to the OpenGL 4.1 core profile of the context
// current on the calling thread.
type Backend struct {
	version string
}

var _ renderer.RendererBackend = (*Backend)(nil)

// New loads the GL entry points. A context must be current on the calling
// goroutine, which must stay locked to its OS thread.
func New() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	// RGB rows are tightly packed and not 4-byte aligned.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	b := &Backend{version: gl.GoStr(gl.GetString(gl.VERSION))}
	core.LogInfo("OpenGL %s, GLSL %s, renderer %s", b.version,
		gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	return b, nil
}

func (b *Backend) Name() string {
	return "opengl " + b.version
}

var glStages = map[metadata.ShaderStage]uint32{
	metadata.ShaderStageVertex:   gl.VERTEX_SHADER,
	metadata.ShaderStageGeometry: gl.GEOMETRY_SHADER,
	metadata.ShaderStageFragment: gl.FRAGMENT_SHADER,
}

func (b *Backend) CreateShader(stage metadata.ShaderStage) renderer.Handle {
	// unknown stages map to 0 and the driver raises INVALID_ENUM
	typ := glStages[stage]
	return renderer.Handle(gl.CreateShader(typ))
}

func (b *Backend) ShaderSource(shader renderer.Handle, source string) {
	csources, free := gl.Strs(cString(source))
	gl.ShaderSource(uint32(shader), 1, csources, nil)
	free()
}

func (b *Backend) CompileShader(shader renderer.Handle) {
	gl.CompileShader(uint32(shader))
}

func (b *Backend) ShaderStatus(shader renderer.Handle) (bool, string) {
	var status int32
	gl.GetShaderiv(uint32(shader), gl.COMPILE_STATUS, &status)
	if status == gl.TRUE {
		return true, ""
	}
	var logLength int32
	gl.GetShaderiv(uint32(shader), gl.INFO_LOG_LENGTH, &logLength)
	msg := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(uint32(shader), logLength, nil, gl.Str(msg))
	return false, goString(msg)
}

func (b *Backend) DeleteShader(shader renderer.Handle) {
	gl.DeleteShader(uint32(shader))
}

func (b *Backend) CreateProgram() renderer.Handle {
	return renderer.Handle(gl.CreateProgram())
}

func (b *Backend) AttachShader(program, shader renderer.Handle) {
	gl.AttachShader(uint32(program), uint32(shader))
}

func (b *Backend) LinkProgram(program renderer.Handle) {
	gl.LinkProgram(uint32(program))
}

func (b *Backend) ProgramStatus(program renderer.Handle) (bool, string) {
	var status int32
	gl.GetProgramiv(uint32(program), gl.LINK_STATUS, &status)
	if status == gl.TRUE {
		return true, ""
	}
	var logLength int32
	gl.GetProgramiv(uint32(program), gl.INFO_LOG_LENGTH, &logLength)
	msg := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(uint32(program), logLength, nil, gl.Str(msg))
	return false, goString(msg)
}

func (b *Backend) UseProgram(program renderer.Handle) {
	gl.UseProgram(uint32(program))
}

func (b *Backend) UniformLocation(program renderer.Handle, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(cString(name)))
}

func (b *Backend) ProgramUniformInt(program renderer.Handle, location int32, value int32) {
	gl.ProgramUniform1i(uint32(program), location, value)
}

func (b *Backend) ProgramUniformFloat(program renderer.Handle, location int32, value float32) {
	gl.ProgramUniform1f(uint32(program), location, value)
}

func (b *Backend) ProgramUniformMat4(program renderer.Handle, location int32, value mgl32.Mat4) {
	gl.ProgramUniformMatrix4fv(uint32(program), location, 1, false, &value[0])
}

func (b *Backend) DeleteProgram(program renderer.Handle) {
	gl.DeleteProgram(uint32(program))
}

var glTargets = map[metadata.BufferTarget]uint32{
	metadata.BufferTargetArray:        gl.ARRAY_BUFFER,
	metadata.BufferTargetElementArray: gl.ELEMENT_ARRAY_BUFFER,
}

var glUsages = map[metadata.BufferUsage]uint32{
	metadata.BufferUsageStatic:  gl.STATIC_DRAW,
	metadata.BufferUsageDynamic: gl.DYNAMIC_DRAW,
}

func (b *Backend) CreateBuffer() renderer.Handle {
	var h uint32
	gl.GenBuffers(1, &h)
	return renderer.Handle(h)
}

func (b *Backend) BindBuffer(target metadata.BufferTarget, buffer renderer.Handle) {
	gl.BindBuffer(glTargets[target], uint32(buffer))
}

func (b *Backend) BufferData(target metadata.BufferTarget, data []byte, usage metadata.BufferUsage) {
	if len(data) == 0 {
		gl.BufferData(glTargets[target], 0, nil, glUsages[usage])
		return
	}
	gl.BufferData(glTargets[target], len(data), gl.Ptr(data), glUsages[usage])
}

func (b *Backend) DeleteBuffer(buffer renderer.Handle) {
	h := uint32(buffer)
	gl.DeleteBuffers(1, &h)
}

func (b *Backend) CreateVertexArray() renderer.Handle {
	var h uint32
	gl.GenVertexArrays(1, &h)
	return renderer.Handle(h)
}

func (b *Backend) BindVertexArray(array renderer.Handle) {
	gl.BindVertexArray(uint32(array))
}

var glTypes = map[metadata.ElementType]uint32{
	metadata.ElementTypeFloat:        gl.FLOAT,
	metadata.ElementTypeUnsignedInt:  gl.UNSIGNED_INT,
	metadata.ElementTypeInt:          gl.INT,
	metadata.ElementTypeUnsignedByte: gl.UNSIGNED_BYTE,
}

func (b *Backend) VertexAttribPointer(attr metadata.VertexAttribute) {
	gl.VertexAttribPointerWithOffset(attr.Slot, attr.Components, glTypes[attr.Type], attr.Normalized, attr.Stride, uintptr(attr.Offset))
}

func (b *Backend) EnableVertexAttribArray(slot uint32) {
	gl.EnableVertexAttribArray(slot)
}

func (b *Backend) DeleteVertexArray(array renderer.Handle) {
	h := uint32(array)
	gl.DeleteVertexArrays(1, &h)
}

func (b *Backend) CreateTexture() renderer.Handle {
	var h uint32
	gl.GenTextures(1, &h)
	return renderer.Handle(h)
}

func (b *Backend) ActiveTexture(slot uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + slot)
}

func (b *Backend) BindTexture(texture renderer.Handle) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
}

func (b *Backend) TexImage2D(width, height int32, format metadata.PixelFormat, pixels []byte) {
	glFormat := uint32(gl.RGB)
	if format == metadata.PixelFormatRGBA {
		glFormat = gl.RGBA
	}
	ptr := gl.Ptr(nil)
	if len(pixels) > 0 {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(glFormat), width, height, 0, glFormat, gl.UNSIGNED_BYTE, ptr)
}

func (b *Backend) GenerateMipmap() {
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

var glProperties = map[metadata.TextureProperty]uint32{
	metadata.TexturePropertyWrapS:     gl.TEXTURE_WRAP_S,
	metadata.TexturePropertyWrapT:     gl.TEXTURE_WRAP_T,
	metadata.TexturePropertyMinFilter: gl.TEXTURE_MIN_FILTER,
	metadata.TexturePropertyMagFilter: gl.TEXTURE_MAG_FILTER,
}

var glValues = map[metadata.TextureValue]int32{
	metadata.TextureValueRepeat:             gl.REPEAT,
	metadata.TextureValueMirroredRepeat:     gl.MIRRORED_REPEAT,
	metadata.TextureValueClampToEdge:        gl.CLAMP_TO_EDGE,
	metadata.TextureValueNearest:            gl.NEAREST,
	metadata.TextureValueLinear:             gl.LINEAR,
	metadata.TextureValueLinearMipmapLinear: gl.LINEAR_MIPMAP_LINEAR,
}

func (b *Backend) TexParameter(property metadata.TextureProperty, value metadata.TextureValue) {
	gl.TexParameteri(gl.TEXTURE_2D, glProperties[property], glValues[value])
}

func (b *Backend) DeleteTexture(texture renderer.Handle) {
	h := uint32(texture)
	gl.DeleteTextures(1, &h)
}

func (b *Backend) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

func (b *Backend) Clear(r, g, bl, a float32) {
	gl.ClearColor(r, g, bl, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

var glModes = map[metadata.PrimitiveMode]uint32{
	metadata.PrimitiveTriangles:     gl.TRIANGLES,
	metadata.PrimitivePoints:        gl.POINTS,
	metadata.PrimitiveLines:         gl.LINES,
	metadata.PrimitiveTriangleStrip: gl.TRIANGLE_STRIP,
}

func (b *Backend) DrawElements(mode metadata.PrimitiveMode, count int32, indexType metadata.ElementType, offset int) {
	gl.DrawElementsWithOffset(glModes[mode], count, glTypes[indexType], uintptr(offset))
}

func (b *Backend) DrawArrays(mode metadata.PrimitiveMode, first, count int32) {
	gl.DrawArrays(glModes[mode], first, count)
}

func (b *Backend) GetError() metadata.ErrorCode {
	return metadata.ErrorCode(gl.GetError())
}

// cString null-terminates s for the driver.
func cString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// goString trims the terminator and padding of a driver log.
func goString(s string) string {
	return strings.TrimRight(s, "\x00")
}
