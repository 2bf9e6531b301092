package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Handle is an opaque driver-assigned object name. Zero is never a live object.
type Handle uint32

// RendererBackend is the native driver surface every resource is built on.
// Methods follow the driver's bind-to-modify model: BufferData, TexImage2D,
// TexParameter, GenerateMipmap and VertexAttribPointer act on whatever is
// currently bound. Errors are not returned; they are raised as flags and
// collected with GetError.
type RendererBackend interface {
	Name() string

	CreateShader(stage metadata.ShaderStage) Handle
	ShaderSource(shader Handle, source string)
	CompileShader(shader Handle)
	ShaderStatus(shader Handle) (compiled bool, infoLog string)
	DeleteShader(shader Handle)

	CreateProgram() Handle
	AttachShader(program, shader Handle)
	LinkProgram(program Handle)
	ProgramStatus(program Handle) (linked bool, infoLog string)
	UseProgram(program Handle)
	UniformLocation(program Handle, name string) int32
	ProgramUniformInt(program Handle, location int32, value int32)
	ProgramUniformFloat(program Handle, location int32, value float32)
	ProgramUniformMat4(program Handle, location int32, value mgl32.Mat4)
	DeleteProgram(program Handle)

	CreateBuffer() Handle
	BindBuffer(target metadata.BufferTarget, buffer Handle)
	BufferData(target metadata.BufferTarget, data []byte, usage metadata.BufferUsage)
	DeleteBuffer(buffer Handle)

	CreateVertexArray() Handle
	BindVertexArray(array Handle)
	VertexAttribPointer(attribute metadata.VertexAttribute)
	EnableVertexAttribArray(slot uint32)
	DeleteVertexArray(array Handle)

	CreateTexture() Handle
	ActiveTexture(slot uint32)
	BindTexture(texture Handle)
	TexImage2D(width, height int32, format metadata.PixelFormat, pixels []byte)
	GenerateMipmap()
	TexParameter(property metadata.TextureProperty, value metadata.TextureValue)
	DeleteTexture(texture Handle)

	Viewport(x, y, width, height int32)
	Clear(r, g, b, a float32)
	DrawElements(mode metadata.PrimitiveMode, count int32, indexType metadata.ElementType, offset int)
	DrawArrays(mode metadata.PrimitiveMode, first, count int32)

	// GetError returns and clears the oldest raised error flag.
	GetError() metadata.ErrorCode
}
