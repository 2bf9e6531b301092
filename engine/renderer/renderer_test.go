package renderer_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/software"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aTexCoord;
out vec2 texCoord;
out vec3 debugColor;
uniform mat4 trans;
void main() {
	gl_Position = trans * vec4(aPos, 1.0);
	texCoord = aTexCoord;
	debugColor = aPos;
}
`

const fragmentSource = `#version 410 core
in vec2 texCoord;
out vec4 FragColor;
uniform sampler2D tex;
uniform bool flip;
void main() {
	FragColor = texture(tex, flip ? vec2(texCoord.x, 1.0 - texCoord.y) : texCoord);
}
`

func newContext() (*renderer.Context, *software.Backend) {
	b := software.New()
	return renderer.NewContext(b), b
}

func compiled(t *testing.T, ctx *renderer.Context, source string, stage metadata.ShaderStage) *renderer.Shader {
	t.Helper()
	s, err := renderer.NewShaderFromSource(ctx, source, stage)
	require.NoError(t, err)
	require.NoError(t, s.Compile())
	return s
}

func linked(t *testing.T, ctx *renderer.Context) *renderer.ShaderProgram {
	t.Helper()
	p, err := renderer.NewShaderProgram(ctx,
		compiled(t, ctx, vertexSource, metadata.ShaderStageVertex),
		compiled(t, ctx, fragmentSource, metadata.ShaderStageFragment),
		nil)
	require.NoError(t, err)
	require.NoError(t, p.Link())
	return p
}

func countCalls(b *software.Backend, prefix string) int {
	n := 0
	for _, c := range b.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestCompileReportsDriverLog(t *testing.T) {
	ctx, _ := newContext()

	ok, err := renderer.NewShaderFromSource(ctx, vertexSource, metadata.ShaderStageVertex)
	require.NoError(t, err)
	assert.NoError(t, ok.Compile())
	assert.True(t, ok.Compiled())

	bad, err := renderer.NewShaderFromSource(ctx, "void main() { broken", metadata.ShaderStageFragment)
	require.NoError(t, err)
	err = bad.Compile()

	var ce *renderer.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, metadata.ShaderStageFragment, ce.Stage)
	assert.NotEmpty(t, ce.Message)
	assert.False(t, bad.Compiled())
}

func TestShaderFromFile(t *testing.T) {
	ctx, _ := newContext()
	path := filepath.Join(t.TempDir(), "shape.vert")
	require.NoError(t, os.WriteFile(path, []byte(vertexSource), 0o644))

	s, err := renderer.NewShaderFromFile(ctx, path, metadata.ShaderStageVertex)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	assert.NoError(t, s.Compile())

	_, err = renderer.NewShaderFromFile(ctx, filepath.Join(t.TempDir(), "missing.vert"), metadata.ShaderStageVertex)
	var le *renderer.ResourceLoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProgramRequiresCompiledStagesOfTheRightKind(t *testing.T) {
	ctx, _ := newContext()

	raw, err := renderer.NewShaderFromSource(ctx, vertexSource, metadata.ShaderStageVertex)
	require.NoError(t, err)
	frag := compiled(t, ctx, fragmentSource, metadata.ShaderStageFragment)

	_, err = renderer.NewShaderProgram(ctx, raw, frag, nil)
	assert.ErrorIs(t, err, renderer.ErrNotCompiled)

	_, err = renderer.NewShaderProgram(ctx, frag, frag, nil)
	assert.ErrorIs(t, err, renderer.ErrStageMismatch)

	_, err = renderer.NewShaderProgram(ctx, nil, frag, nil)
	assert.ErrorIs(t, err, renderer.ErrStageMismatch)
}

func TestLinkWithUnconsumedOutputIsDeterministic(t *testing.T) {
	ctx, _ := newContext()
	// debugColor is written by the vertex stage and never read
	for i := 0; i < 3; i++ {
		p := linked(t, ctx)
		assert.True(t, p.Linked())
		require.NoError(t, p.Destroy())
	}
}

func TestLinkFailureCarriesMessage(t *testing.T) {
	ctx, _ := newContext()
	frag := compiled(t, ctx, "#version 410 core\nin vec3 normal;\nout vec4 c;\nvoid main() { c = vec4(normal, 1.0); }\n", metadata.ShaderStageFragment)
	p, err := renderer.NewShaderProgram(ctx, compiled(t, ctx, vertexSource, metadata.ShaderStageVertex), frag, nil)
	require.NoError(t, err)

	err = p.Link()
	var le *renderer.LinkError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "normal")
	assert.False(t, p.Linked())
	assert.ErrorIs(t, p.SetActive(), renderer.ErrNotLinked)
}

func TestProgramOwnsItsStages(t *testing.T) {
	ctx, b := newContext()
	vs := compiled(t, ctx, vertexSource, metadata.ShaderStageVertex)
	fs := compiled(t, ctx, fragmentSource, metadata.ShaderStageFragment)
	p, err := renderer.NewShaderProgram(ctx, vs, fs, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, vs.Destroy(), renderer.ErrStageOwned)
	_, err = renderer.NewShaderProgram(ctx, vs, fs, nil)
	assert.ErrorIs(t, err, renderer.ErrStageOwned)

	// never linked
	require.NoError(t, p.Destroy())
	require.NoError(t, p.Destroy())
	assert.Equal(t, 1, countCalls(b, "DeleteProgram"))
	assert.Equal(t, 2, countCalls(b, "DeleteShader"))
	assert.Equal(t, 0, b.LiveObjects())
	assert.NoError(t, vs.Destroy(), "stages are released with the program")
}

func TestUniformThatDoesNotResolveIsIgnored(t *testing.T) {
	ctx, b := newContext()
	p := linked(t, ctx)
	require.NoError(t, p.SetActive())

	// intentional: unresolved names behave like the driver and do nothing
	assert.NoError(t, p.SetUniformFloat("doesNotExist", 1.5))
	assert.NoError(t, p.SetUniformInt("doesNotExist", 1))
	assert.Equal(t, metadata.ErrorNone, b.GetError())

	require.NoError(t, p.SetUniformMat4("trans", mgl32.Translate3D(1, 2, 3)))
	require.NoError(t, p.SetUniformBool("flip", true))
	v, ok := b.Uniform(p.Handle(), "flip")
	require.True(t, ok)
	assert.Equal(t, int32(1), v)
	v, ok = b.Uniform(p.Handle(), "trans")
	require.True(t, ok)
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), v)
}

func TestConfigureAttributeBindsArrayThenBuffer(t *testing.T) {
	ctx, b := newContext()
	va, err := renderer.NewVertexArray(ctx)
	require.NoError(t, err)
	vb, err := renderer.NewVertexBuffer(ctx)
	require.NoError(t, err)

	b.Reset()
	require.NoError(t, va.ConfigureAttribute(vb, metadata.VertexAttribute{Slot: 0, Components: 3, Type: metadata.ElementTypeFloat, Stride: 12}))
	calls := b.Calls()
	require.Len(t, calls, 4)
	assert.True(t, strings.HasPrefix(calls[0], "BindVertexArray"))
	assert.True(t, strings.HasPrefix(calls[1], "BindBuffer"))
	assert.True(t, strings.HasPrefix(calls[2], "VertexAttribPointer"))
	assert.True(t, strings.HasPrefix(calls[3], "EnableVertexAttribArray"))
	assert.Equal(t, metadata.ErrorNone, b.GetError())

	err = va.ConfigureAttribute(vb, metadata.VertexAttribute{Slot: 1, Components: 5})
	assert.ErrorIs(t, err, renderer.ErrInvalidAttribute)
	assert.Len(t, va.Attributes(), 1)
}

func TestRedundantBindsAreSkipped(t *testing.T) {
	ctx, b := newContext()
	vb, err := renderer.NewVertexBuffer(ctx)
	require.NoError(t, err)

	b.Reset()
	require.NoError(t, vb.Bind())
	require.NoError(t, vb.Bind())
	assert.Equal(t, 1, countCalls(b, "BindBuffer"))

	require.NoError(t, vb.Destroy())
	assert.ErrorIs(t, vb.Bind(), renderer.ErrDestroyed)
	assert.ErrorIs(t, vb.Upload([]byte{1}, metadata.BufferUsageStatic), renderer.ErrDestroyed)
}

func TestUploadRejectsEmptyData(t *testing.T) {
	ctx, _ := newContext()
	vb, err := renderer.NewVertexBuffer(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, vb.Upload(nil, metadata.BufferUsageStatic), renderer.ErrEmptyUpload)
	assert.ErrorIs(t, vb.UploadFloat32(nil, metadata.BufferUsageDynamic), renderer.ErrEmptyUpload)
}

// The triangle scenario: interleaved position and uv, two attributes and
// a three index element buffer.
func TestIndexedTriangleDraw(t *testing.T) {
	ctx, b := newContext()
	p := linked(t, ctx)

	vertices := []float32{
		-0.5, -0.5, 0.0, 0.0, 0.0,
		0.5, -0.5, 0.0, 1.0, 0.0,
		0.0, 0.5, 0.0, 0.5, 1.0,
	}
	require.Len(t, vertices, 15)

	va, err := renderer.NewVertexArray(ctx)
	require.NoError(t, err)
	vb, err := renderer.NewVertexBuffer(ctx)
	require.NoError(t, err)
	require.NoError(t, va.Bind())
	require.NoError(t, vb.UploadFloat32(vertices, metadata.BufferUsageStatic))
	assert.Equal(t, 60, vb.Size())

	require.NoError(t, va.ConfigureAttribute(vb, metadata.VertexAttribute{Slot: 0, Components: 3, Type: metadata.ElementTypeFloat, Stride: 20, Offset: 0}))
	require.NoError(t, va.ConfigureAttribute(vb, metadata.VertexAttribute{Slot: 1, Components: 2, Type: metadata.ElementTypeFloat, Stride: 20, Offset: 12}))

	ib, err := renderer.NewIndexBuffer(ctx)
	require.NoError(t, err)
	require.NoError(t, va.SetIndexBuffer(ib))
	require.NoError(t, ib.UploadUint32([]uint32{0, 1, 2}, metadata.BufferUsageStatic))

	require.NoError(t, p.SetActive())
	require.NoError(t, ctx.DrawIndexed(metadata.PrimitiveTriangles, ib.Count(), ib.IndexType(), 0))

	status := ctx.Status()
	assert.Equal(t, renderer.OutcomeSuccess, status.Outcome, status.String())
	draws := b.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, 1, draws[0].Primitives)
	assert.Equal(t, []metadata.VertexAttribute{
		{Slot: 0, Components: 3, Type: metadata.ElementTypeFloat, Stride: 20, Offset: 0},
		{Slot: 1, Components: 2, Type: metadata.ElementTypeFloat, Stride: 20, Offset: 12},
	}, draws[0].Attributes)
}

type fakeDecoder struct {
	data *metadata.ImageResourceData
	err  error
}

func (d fakeDecoder) Decode(string) (*metadata.ImageResourceData, error) {
	return d.data, d.err
}

func rgb(w, h uint32) *metadata.ImageResourceData {
	return &metadata.ImageResourceData{ChannelCount: 3, Width: w, Height: h, Pixels: make([]uint8, w*h*3)}
}

func TestTextureLifecycle(t *testing.T) {
	ctx, b := newContext()
	tex, err := renderer.NewTexture2DFromFile(ctx, "wall.png", fakeDecoder{data: rgb(4, 2)})
	require.NoError(t, err)
	assert.Equal(t, "wall.png", tex.Path())
	assert.Equal(t, uint32(4), tex.Width())

	require.NoError(t, tex.BindToSlot(3))
	assert.Equal(t, uint32(3), tex.Slot())
	assert.ErrorIs(t, tex.BindToSlot(metadata.MaxTextureSlots), renderer.ErrInvalidSlot)
	assert.Equal(t, uint32(3), tex.Slot())

	require.NoError(t, tex.GenerateMipMaps())
	require.NoError(t, tex.SetProperty(metadata.TexturePropertyWrapS, metadata.TextureValueRepeat))
	require.NoError(t, tex.SetProperty(metadata.TexturePropertyMinFilter, metadata.TextureValueLinearMipmapLinear))
	assert.ErrorIs(t, tex.SetProperty(metadata.TexturePropertyMagFilter, metadata.TextureValueRepeat), renderer.ErrInvalidProperty)

	w, h, params, mip, ok := b.TextureState(tex.Handle())
	require.True(t, ok)
	assert.Equal(t, int32(4), w)
	assert.Equal(t, int32(2), h)
	assert.True(t, mip)
	assert.Equal(t, metadata.TextureValueRepeat, params[metadata.TexturePropertyWrapS])
	assert.Equal(t, metadata.ErrorNone, b.GetError())

	require.NoError(t, tex.Destroy())
	require.NoError(t, tex.Destroy())
	assert.Equal(t, 1, countCalls(b, "DeleteTexture"))
}

func TestTextureDecodeFailure(t *testing.T) {
	ctx, _ := newContext()
	decodeErr := errors.New("not an image")

	_, err := renderer.NewTexture2DFromFile(ctx, "broken.png", fakeDecoder{err: decodeErr})
	var le *renderer.ResourceLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "broken.png", le.Path)
	assert.ErrorIs(t, err, decodeErr)

	short := rgb(2, 2)
	short.Pixels = short.Pixels[:5]
	_, err = renderer.NewTexture2DFromFile(ctx, "short.png", fakeDecoder{data: short})
	assert.ErrorIs(t, err, renderer.ErrInvalidImage)
}

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		code    metadata.ErrorCode
		outcome renderer.Outcome
		message string
	}{
		{metadata.ErrorNone, renderer.OutcomeSuccess, ""},
		{metadata.ErrorInvalidEnum, renderer.OutcomeFailed, "invalid enum"},
		{metadata.ErrorInvalidValue, renderer.OutcomeFailed, "invalid value"},
		{metadata.ErrorInvalidOperation, renderer.OutcomeFailed, "invalid operation"},
		{metadata.ErrorStackOverflow, renderer.OutcomeFailed, "stack overflow"},
		{metadata.ErrorStackUnderflow, renderer.OutcomeFailed, "stack underflow"},
		{metadata.ErrorOutOfMemory, renderer.OutcomeFailed, "out of memory"},
		{metadata.ErrorInvalidFramebufferOperation, renderer.OutcomeFailed, "invalid framebuffer operation"},
		{metadata.ErrorContextLost, renderer.OutcomeContextLost, "context lost"},
		{metadata.ErrorCode(0x9999), renderer.OutcomeFailed, "unrecognized error code 0x9999"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			s := renderer.StatusFromCode(tt.code)
			assert.Equal(t, tt.outcome, s.Outcome)
			assert.Equal(t, tt.message, s.Message)
			assert.Equal(t, tt.outcome == renderer.OutcomeSuccess, s.Err() == nil)
		})
	}
	assert.ErrorIs(t, renderer.StatusContextLost().Err(), renderer.ErrContextLost)
}

func TestContextLossFailsFast(t *testing.T) {
	ctx, b := newContext()
	p := linked(t, ctx)
	vb, err := renderer.NewVertexBuffer(ctx)
	require.NoError(t, err)

	b.LoseContext()
	assert.Equal(t, renderer.OutcomeContextLost, ctx.Status().Outcome)
	assert.True(t, ctx.Lost())

	b.Reset()
	assert.ErrorIs(t, p.SetActive(), renderer.ErrContextLost)
	assert.ErrorIs(t, vb.Upload([]byte{1, 2, 3, 4}, metadata.BufferUsageDynamic), renderer.ErrContextLost)
	assert.ErrorIs(t, ctx.DrawArrays(metadata.PrimitivePoints, 0, 1), renderer.ErrContextLost)
	_, err = renderer.NewVertexArray(ctx)
	assert.ErrorIs(t, err, renderer.ErrContextLost)
	assert.Equal(t, renderer.OutcomeContextLost, ctx.Status().Outcome)

	// objects died with the context: destroying them does not reach the driver
	assert.NoError(t, p.Destroy())
	assert.NoError(t, vb.Destroy())
	assert.Empty(t, b.Calls())
}

func TestStatusDrainsStaleFlags(t *testing.T) {
	ctx, b := newContext()
	b.InjectError(metadata.ErrorOutOfMemory)
	b.InjectError(metadata.ErrorInvalidValue)

	s := ctx.Status()
	assert.Equal(t, metadata.ErrorOutOfMemory, s.Code)
	assert.True(t, ctx.Status().OK())
}
